package models

// ContentKind 标识帧内容的具体变体。
type ContentKind string

const (
	KindText               ContentKind = "text"
	KindExtendedText       ContentKind = "extended_text"
	KindLink               ContentKind = "link"
	KindExtendedLink       ContentKind = "extended_link"
	KindComment            ContentKind = "comment"
	KindLyrics             ContentKind = "lyrics"
	KindSynchronisedLyrics ContentKind = "synchronised_lyrics"
	KindPicture            ContentKind = "picture"
	KindUnknown            ContentKind = "unknown"
)

// FrameContent 是帧内容的封闭联合类型。
// 只有本包中定义的变体实现了该接口，处理方应对所有变体做穷举匹配。
type FrameContent interface {
	// Kind 返回内容变体的标识。
	Kind() ContentKind
	isFrameContent()
}

// TextContent 是文本信息帧（T***）的内容。
// ID3v2.4 中的多值文本以 NUL 分隔，原样保留在 Text 中。
type TextContent struct {
	Text string
}

// ExtendedTextContent 是用户自定义文本帧（TXXX）的内容。
type ExtendedTextContent struct {
	Description string
	Value       string
}

// LinkContent 是 URL 链接帧（W***）的内容。
type LinkContent struct {
	URL string
}

// ExtendedLinkContent 是用户自定义链接帧（WXXX）的内容。
type ExtendedLinkContent struct {
	Description string
	Link        string
}

// CommentContent 是注释帧（COMM）的内容。
type CommentContent struct {
	Lang        string
	Description string
	Text        string
}

// LyricsContent 是非同步歌词帧（USLT）的内容。
type LyricsContent struct {
	Lang        string
	Description string
	Text        string
}

// SyncedText 是同步歌词中的一段文本及其时间戳。
type SyncedText struct {
	Text      string
	Timestamp uint32
}

// SynchronisedLyricsContent 是同步歌词帧（SYLT）的内容。
// 对外只暴露 Lang，其余字段仅用于读写时原样透传。
type SynchronisedLyricsContent struct {
	Lang            string
	TimestampFormat byte
	ContentType     byte
	Description     string
	Entries         []SyncedText
}

// PictureContent 是附加图片帧（APIC）的内容。
// PictureType 不对外暴露，仅在读写时透传。
type PictureContent struct {
	MIMEType    string
	PictureType byte
	Description string
	Data        []byte
}

// UnknownContent 保存未建模或无法解析的帧的原始字节。
type UnknownContent struct {
	Data []byte
}

func (TextContent) Kind() ContentKind               { return KindText }
func (ExtendedTextContent) Kind() ContentKind       { return KindExtendedText }
func (LinkContent) Kind() ContentKind               { return KindLink }
func (ExtendedLinkContent) Kind() ContentKind       { return KindExtendedLink }
func (CommentContent) Kind() ContentKind            { return KindComment }
func (LyricsContent) Kind() ContentKind             { return KindLyrics }
func (SynchronisedLyricsContent) Kind() ContentKind { return KindSynchronisedLyrics }
func (PictureContent) Kind() ContentKind            { return KindPicture }
func (UnknownContent) Kind() ContentKind            { return KindUnknown }

func (TextContent) isFrameContent()               {}
func (ExtendedTextContent) isFrameContent()       {}
func (LinkContent) isFrameContent()               {}
func (ExtendedLinkContent) isFrameContent()       {}
func (CommentContent) isFrameContent()            {}
func (LyricsContent) isFrameContent()             {}
func (SynchronisedLyricsContent) isFrameContent() {}
func (PictureContent) isFrameContent()            {}
func (UnknownContent) isFrameContent()            {}

// FrameFlags 是与版本无关的帧标志。
// 读取时从 v2.3/v2.4 各自的位布局解析而来，写入时再按目标版本编码。
type FrameFlags struct {
	// TagAlterDiscard 表示标签被修改后应丢弃该帧。
	TagAlterDiscard bool
	// FileAlterDiscard 表示音频被修改后应丢弃该帧。
	FileAlterDiscard bool
	ReadOnly         bool
	// Grouping 为 true 时 GroupID 有效。
	Grouping bool
	GroupID  byte
	// Encrypted 为 true 时帧体保持加密状态，内容一律为 UnknownContent。
	Encrypted        bool
	EncryptionMethod byte
}

// RawFrame 记录帧在磁盘上的原始形态。
type RawFrame struct {
	// Version 是读取该帧时标签的主版本号（2、3 或 4）。
	Version byte
	// Flags 是帧头中的两个标志字节，v2.2 没有帧标志，为零值。
	Flags [2]byte
	// Body 是帧头之后的原始字节，未做任何解码。
	Body []byte
}

// Frame 表示标签中的一个帧。
// 同一标签中允许出现重复的 ID。
type Frame struct {
	// ID 是 3 字符（v2.2）或 4 字符的帧标识。
	ID      string
	Content FrameContent
	Flags   FrameFlags
	// Source 由标签编解码器填写，调用方自行构造的帧为 nil。
	Source *RawFrame
}

// NewFrame 使用给定的 ID 和内容创建一个新帧。
func NewFrame(id string, content FrameContent) Frame {
	return Frame{ID: id, Content: content}
}
