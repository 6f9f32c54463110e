package services

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"zero-tags/models"
	"zero-tags/tagcodec"
)

var (
	// ErrInvalidPayload 表示载荷或帧记录无法转换为帧内容。
	ErrInvalidPayload = errors.New("无效的帧载荷")
)

// EncodeFrames 把帧序列转换为传输记录，顺序与输入一致。
func EncodeFrames(frames []models.Frame) []models.FrameRecord {
	records := make([]models.FrameRecord, 0, len(frames))
	for _, f := range frames {
		records = append(records, EncodeFrame(f))
	}
	return records
}

// EncodeFrame 把一个帧转换为传输记录。
// 二进制字段使用标准 base64 编码；图片类型和同步歌词的时间表不会出现在记录中。
func EncodeFrame(f models.Frame) models.FrameRecord {
	r := models.FrameRecord{models.RecordKeyIdentifier: f.ID}
	switch c := f.Content.(type) {
	case models.TextContent:
		r[models.RecordKeyText] = c.Text
	case models.ExtendedTextContent:
		r[models.RecordKeyDescription] = c.Description
		r[models.RecordKeyValue] = c.Value
	case models.LinkContent:
		r[models.RecordKeyLink] = c.URL
	case models.ExtendedLinkContent:
		r[models.RecordKeyDescription] = c.Description
		r[models.RecordKeyLink] = c.Link
	case models.CommentContent:
		r[models.RecordKeyLang] = c.Lang
		r[models.RecordKeyDescription] = c.Description
		r[models.RecordKeyText] = c.Text
	case models.LyricsContent:
		r[models.RecordKeyLang] = c.Lang
		r[models.RecordKeyDescription] = c.Description
		r[models.RecordKeyText] = c.Text
	case models.SynchronisedLyricsContent:
		r[models.RecordKeyLang] = c.Lang
	case models.PictureContent:
		r[models.RecordKeyMIMEType] = c.MIMEType
		r[models.RecordKeyDescription] = c.Description
		r[models.RecordKeyData] = base64.StdEncoding.EncodeToString(c.Data)
	case models.UnknownContent:
		r[models.RecordKeyData] = base64.StdEncoding.EncodeToString(c.Data)
	}
	return r
}

// DecodeRecord 是 EncodeFrame 的逆操作，根据记录中出现的键还原帧内容。
// COMM 与 USLT 的记录结构相同，按帧 ID 区分。
func DecodeRecord(r models.FrameRecord) (models.Frame, error) {
	id := r.Identifier()
	if !tagcodec.ValidFrameID(id) {
		return models.Frame{}, fmt.Errorf("%w: 帧 ID %q 不合法", ErrInvalidPayload, id)
	}

	var content models.FrameContent
	switch {
	case r.Has(models.RecordKeyData):
		data, err := decodeBase64(r[models.RecordKeyData])
		if err != nil {
			return models.Frame{}, fmt.Errorf("%w: 帧 %s 的 data 不是合法的 base64: %v", ErrInvalidPayload, id, err)
		}
		if r.Has(models.RecordKeyMIMEType) {
			content = models.PictureContent{
				MIMEType:    r[models.RecordKeyMIMEType],
				Description: r[models.RecordKeyDescription],
				Data:        data,
			}
		} else {
			content = models.UnknownContent{Data: data}
		}
	case r.Has(models.RecordKeyLang) && r.Has(models.RecordKeyText):
		if isLyricsID(id) {
			content = models.LyricsContent{
				Lang:        r[models.RecordKeyLang],
				Description: r[models.RecordKeyDescription],
				Text:        r[models.RecordKeyText],
			}
		} else {
			content = models.CommentContent{
				Lang:        r[models.RecordKeyLang],
				Description: r[models.RecordKeyDescription],
				Text:        r[models.RecordKeyText],
			}
		}
	case r.Has(models.RecordKeyLang):
		content = models.SynchronisedLyricsContent{Lang: r[models.RecordKeyLang]}
	case r.Has(models.RecordKeyValue):
		content = models.ExtendedTextContent{
			Description: r[models.RecordKeyDescription],
			Value:       r[models.RecordKeyValue],
		}
	case r.Has(models.RecordKeyLink) && r.Has(models.RecordKeyDescription):
		content = models.ExtendedLinkContent{
			Description: r[models.RecordKeyDescription],
			Link:        r[models.RecordKeyLink],
		}
	case r.Has(models.RecordKeyLink):
		content = models.LinkContent{URL: r[models.RecordKeyLink]}
	case r.Has(models.RecordKeyText):
		content = models.TextContent{Text: r[models.RecordKeyText]}
	default:
		return models.Frame{}, fmt.Errorf("%w: 帧 %s 的记录缺少内容字段", ErrInvalidPayload, id)
	}
	return models.NewFrame(id, content), nil
}

func isLyricsID(id string) bool {
	return id == "USLT" || id == "ULT"
}

// DecodePayload 按载荷类型把替换请求中的载荷转换为帧内容。
//
// PayloadAuto 先尝试标准 base64 解码，成功则得到 UnknownContent，否则原样作为 TextContent。
// 空字符串是合法的 base64，会得到空的 UnknownContent。
// PayloadText 总是得到 TextContent，PayloadBinary 要求载荷必须是合法的 base64。
func DecodePayload(identifier, payload string, kind models.PayloadKind) (models.FrameContent, error) {
	switch kind {
	case models.PayloadText:
		return models.TextContent{Text: payload}, nil
	case models.PayloadBinary:
		data, err := decodeBase64(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: 帧 %s 的载荷不是合法的 base64: %v", ErrInvalidPayload, identifier, err)
		}
		return models.UnknownContent{Data: data}, nil
	case models.PayloadAuto, "":
		if data, err := decodeBase64(payload); err == nil {
			return models.UnknownContent{Data: data}, nil
		}
		return models.TextContent{Text: payload}, nil
	}
	return nil, fmt.Errorf("%w: 未知的载荷类型 %q", ErrInvalidPayload, kind)
}

// decodeBase64 严格解码标准 base64。
// encoding/base64 会静默跳过 \r 和 \n，含换行的载荷在这里直接视为非法。
func decodeBase64(s string) ([]byte, error) {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		return nil, base64.CorruptInputError(i)
	}
	return base64.StdEncoding.DecodeString(s)
}
