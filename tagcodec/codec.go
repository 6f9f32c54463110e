// Package tagcodec 读写 MP3 文件开头的 ID3v2 标签。
//
// 与常见的 ID3 库不同，本包按文件中的顺序保存帧，并保留重复的帧 ID。
// 帧体的编码借助 bogem/id3v2 的帧类型完成。
package tagcodec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"zero-tags/models"
)

// Version 是可以写入的 ID3v2 主版本号。
type Version byte

const (
	Version23 Version = 3
	Version24 Version = 4
)

// String 返回形如 "ID3v2.3" 的版本名称。
func (v Version) String() string {
	return fmt.Sprintf("ID3v2.%d", byte(v))
}

// Valid 判断版本是否可以作为写入目标。
func (v Version) Valid() bool {
	return v == Version23 || v == Version24
}

// ParseVersion 解析 "3"、"2.3"、"v2.3"、"ID3v2.3" 这类写法。
func ParseVersion(s string) (Version, error) {
	v := strings.TrimSpace(strings.ToLower(s))
	v = strings.TrimPrefix(v, "id3")
	v = strings.TrimPrefix(v, "v")
	v = strings.TrimPrefix(v, "2.")
	switch v {
	case "3":
		return Version23, nil
	case "4":
		return Version24, nil
	}
	return 0, &FormatError{Message: fmt.Sprintf("版本 %q", s), Err: ErrUnsupportedVersion}
}

// Tag 是按顺序排列的帧序列。
type Tag struct {
	// Version 和 Revision 是读取时标签头中的版本号，新建的标签为零值。
	Version  byte
	Revision byte

	frames []models.Frame
	size   int
}

// NewTag 使用给定的帧创建一个新标签。
func NewTag(frames []models.Frame) *Tag {
	t := &Tag{}
	t.SetFrames(frames)
	return t
}

// Frames 返回帧序列的副本，修改返回值不会影响标签。
func (t *Tag) Frames() []models.Frame {
	out := make([]models.Frame, len(t.frames))
	copy(out, t.frames)
	return out
}

// SetFrames 替换整个帧序列。
func (t *Tag) SetFrames(frames []models.Frame) {
	t.frames = make([]models.Frame, len(frames))
	copy(t.frames, frames)
}

// Len 返回帧的数量。
func (t *Tag) Len() int {
	return len(t.frames)
}

// Size 返回读取时标签占用的字节数，包括标签头；新建的标签为 0。
func (t *Tag) Size() int {
	return t.size
}

// Decode 从 r 的开头读取一个 ID3v2 标签。
func Decode(r io.Reader) (*Tag, error) {
	head := make([]byte, tagHeaderSize)
	if _, err := io.ReadFull(r, head); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, &FormatError{Err: ErrNoTag}
		}
		return nil, &IOError{Op: "read", Err: err}
	}
	h, err := parseTagHeader(head)
	if err != nil {
		return nil, err
	}

	body := make([]byte, h.Size)
	if _, err := io.ReadFull(r, body); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, corruptf("标签声明长度 %d，但文件提前结束", h.Size)
		}
		return nil, &IOError{Op: "read", Err: err}
	}

	frames, err := parseBody(h, body)
	if err != nil {
		return nil, err
	}
	return &Tag{
		Version:  h.Version,
		Revision: h.Revision,
		frames:   frames,
		size:     h.totalSize(),
	}, nil
}

func parseBody(h tagHeader, body []byte) ([]models.Frame, error) {
	// v2.2 和 v2.3 的反同步作用于整个标签体，v2.4 则按帧处理。
	if h.unsynchronised() && h.Version < 4 {
		body = removeUnsynchronisation(body)
	}
	if h.hasExtendedHeader() {
		var err error
		if body, err = skipExtendedHeader(body, h.Version); err != nil {
			return nil, err
		}
	}
	return parseFrames(body, h.Version, h.unsynchronised() && h.Version == 4)
}

// Encode 把标签按指定版本写入 w，帧之后追加 padding 个零字节。
func Encode(w io.Writer, tag *Tag, version Version, padding int) error {
	b, err := encodeTag(tag, version, padding)
	if err != nil {
		return err
	}
	if _, err := w.Write(b); err != nil {
		return &IOError{Op: "write", Err: err}
	}
	return nil
}

// encodeTag 在内存中完成整个标签的编码。
func encodeTag(tag *Tag, version Version, padding int) ([]byte, error) {
	if tag == nil {
		return nil, errors.New("标签为空")
	}
	if !version.Valid() {
		return nil, &FormatError{Message: fmt.Sprintf("不能写入 %s", version), Err: ErrUnsupportedVersion}
	}
	if padding < 0 {
		return nil, fmt.Errorf("填充长度 %d 不能为负数", padding)
	}

	var frames bytes.Buffer
	for i, f := range tag.frames {
		b, err := encodeFrame(f, byte(version))
		if err != nil {
			var fe *FormatError
			if errors.As(err, &fe) {
				copied := *fe
				copied.Message = fmt.Sprintf("第 %d 个帧: %s", i, fe.Message)
				return nil, &copied
			}
			return nil, &FormatError{Message: fmt.Sprintf("第 %d 个帧", i), Err: err}
		}
		frames.Write(b)
	}

	out := make([]byte, tagHeaderSize, tagHeaderSize+frames.Len()+padding)
	copy(out, tagMagic)
	out[3] = byte(version)
	if err := putSynchsafe(out[6:10], frames.Len()+padding); err != nil {
		return nil, &FormatError{Message: "标签过大", Err: err}
	}
	out = append(out, frames.Bytes()...)
	out = append(out, make([]byte, padding)...)
	return out, nil
}
