package tagcodec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
	"zero-tags/models"

	"github.com/bogem/id3v2/v2"
)

var errShortBody = errors.New("帧体过短")

// DecodeContent 按帧 ID 解码帧体。
// 无法识别的 ID 或解析失败的帧体一律返回 UnknownContent，不会报错。
func DecodeContent(id string, body []byte) models.FrameContent {
	content, err := decodeContent(id, body)
	if err != nil {
		return models.UnknownContent{Data: cloneBytes(body)}
	}
	return content
}

func decodeContent(id string, body []byte) (models.FrameContent, error) {
	if id == "" {
		return nil, errors.New("帧 ID 为空")
	}
	switch cid := canonicalID(id); {
	case cid == "TXXX":
		return decodeExtendedText(body)
	case cid[0] == 'T':
		return decodeTextFrame(body)
	case cid == "WXXX":
		return decodeExtendedLink(body)
	case cid[0] == 'W':
		return decodeLink(body)
	case cid == "COMM":
		lang, desc, text, err := decodeLangText(body)
		if err != nil {
			return nil, err
		}
		return models.CommentContent{Lang: lang, Description: desc, Text: text}, nil
	case cid == "USLT":
		lang, desc, text, err := decodeLangText(body)
		if err != nil {
			return nil, err
		}
		return models.LyricsContent{Lang: lang, Description: desc, Text: text}, nil
	case cid == "SYLT":
		return decodeSynchronisedLyrics(body)
	case cid == "APIC":
		return decodePicture(body, len(id) == 3)
	}
	return models.UnknownContent{Data: cloneBytes(body)}, nil
}

// readEncoding 读取帧体开头的文本编码字节。
func readEncoding(body []byte) (byte, []byte, error) {
	if len(body) < 1 {
		return 0, nil, errShortBody
	}
	if !validEncoding(body[0]) {
		return 0, nil, fmt.Errorf("未知的文本编码 %d", body[0])
	}
	return body[0], body[1:], nil
}

func decodeTextFrame(body []byte) (models.FrameContent, error) {
	enc, rest, err := readEncoding(body)
	if err != nil {
		return nil, err
	}
	text, err := decodeText(enc, trimTerminators(enc, rest))
	if err != nil {
		return nil, err
	}
	return models.TextContent{Text: text}, nil
}

func decodeExtendedText(body []byte) (models.FrameContent, error) {
	enc, rest, err := readEncoding(body)
	if err != nil {
		return nil, err
	}
	desc, rest, err := readTerminatedText(enc, rest)
	if err != nil {
		return nil, err
	}
	value, err := decodeText(enc, trimTerminators(enc, rest))
	if err != nil {
		return nil, err
	}
	return models.ExtendedTextContent{Description: desc, Value: value}, nil
}

func decodeLink(body []byte) (models.FrameContent, error) {
	url, err := decodeText(encodingISO, trimTerminators(encodingISO, body))
	if err != nil {
		return nil, err
	}
	return models.LinkContent{URL: url}, nil
}

func decodeExtendedLink(body []byte) (models.FrameContent, error) {
	enc, rest, err := readEncoding(body)
	if err != nil {
		return nil, err
	}
	desc, rest, err := readTerminatedText(enc, rest)
	if err != nil {
		return nil, err
	}
	link, err := decodeText(encodingISO, trimTerminators(encodingISO, rest))
	if err != nil {
		return nil, err
	}
	return models.ExtendedLinkContent{Description: desc, Link: link}, nil
}

// decodeLangText 解析 COMM 和 USLT 共用的布局：编码、语言、描述、正文。
func decodeLangText(body []byte) (lang, desc, text string, err error) {
	enc, rest, err := readEncoding(body)
	if err != nil {
		return "", "", "", err
	}
	if len(rest) < 3 {
		return "", "", "", errShortBody
	}
	lang = string(rest[:3])
	desc, rest, err = readTerminatedText(enc, rest[3:])
	if err != nil {
		return "", "", "", err
	}
	text, err = decodeText(enc, trimTerminators(enc, rest))
	return lang, desc, text, err
}

func decodeSynchronisedLyrics(body []byte) (models.FrameContent, error) {
	enc, rest, err := readEncoding(body)
	if err != nil {
		return nil, err
	}
	if len(rest) < 5 {
		return nil, errShortBody
	}
	c := models.SynchronisedLyricsContent{
		Lang:            string(rest[:3]),
		TimestampFormat: rest[3],
		ContentType:     rest[4],
	}
	c.Description, rest, err = readTerminatedText(enc, rest[5:])
	if err != nil {
		return nil, err
	}
	for len(rest) > 0 {
		head, tail, ok := splitTerminated(enc, rest)
		if !ok || len(tail) < 4 {
			return nil, errShortBody
		}
		text, err := decodeText(enc, head)
		if err != nil {
			return nil, err
		}
		c.Entries = append(c.Entries, models.SyncedText{
			Text:      text,
			Timestamp: binary.BigEndian.Uint32(tail[:4]),
		})
		rest = tail[4:]
	}
	return c, nil
}

func decodePicture(body []byte, v22 bool) (models.FrameContent, error) {
	enc, rest, err := readEncoding(body)
	if err != nil {
		return nil, err
	}
	var c models.PictureContent
	if v22 {
		// v2.2 使用 3 字符的图片格式而不是 MIME 类型。
		if len(rest) < 4 {
			return nil, errShortBody
		}
		c.MIMEType = imageFormatToMIME(string(rest[:3]))
		rest = rest[3:]
	} else {
		mime, tail, ok := splitTerminated(encodingISO, rest)
		if !ok || len(tail) < 1 {
			return nil, errShortBody
		}
		if c.MIMEType, err = decodeText(encodingISO, mime); err != nil {
			return nil, err
		}
		rest = tail
	}
	c.PictureType = rest[0]
	c.Description, rest, err = readTerminatedText(enc, rest[1:])
	if err != nil {
		return nil, err
	}
	c.Data = cloneBytes(rest)
	return c, nil
}

func imageFormatToMIME(format string) string {
	switch strings.ToUpper(format) {
	case "JPG":
		return "image/jpeg"
	case "PNG":
		return "image/png"
	case "-->":
		return "-->"
	}
	return "image/" + strings.ToLower(strings.TrimRight(format, "\x00 "))
}

// EncodeContent 按目标版本编码帧体。
// 文本编码由版本决定：v2.4 使用 UTF-8，v2.3 使用 ISO-8859-1 或 UTF-16。
func EncodeContent(content models.FrameContent, version byte) ([]byte, error) {
	switch c := content.(type) {
	case models.TextContent:
		enc := pickEncoding(version, c.Text)
		if enc == encodingUTF16 {
			return encodeUTF16(nil, []string{c.Text}, nil)
		}
		return writeFrameBody(id3v2.TextFrame{Encoding: bogemEncoding(enc), Text: c.Text})
	case models.ExtendedTextContent:
		enc := pickEncoding(version, c.Description, c.Value)
		if enc == encodingUTF16 {
			return encodeUTF16(nil, []string{c.Description, c.Value}, nil)
		}
		return writeFrameBody(id3v2.UserDefinedTextFrame{
			Encoding:    bogemEncoding(enc),
			Description: c.Description,
			Value:       c.Value,
		})
	case models.LinkContent:
		return latin1(c.URL)
	case models.ExtendedLinkContent:
		return encodeExtendedLink(c, version)
	case models.CommentContent:
		if err := checkLang(c.Lang); err != nil {
			return nil, err
		}
		enc := pickEncoding(version, c.Description, c.Text)
		if enc == encodingUTF16 {
			return encodeUTF16([]byte(c.Lang), []string{c.Description, c.Text}, nil)
		}
		return writeFrameBody(id3v2.CommentFrame{
			Encoding:    bogemEncoding(enc),
			Language:    c.Lang,
			Description: c.Description,
			Text:        c.Text,
		})
	case models.LyricsContent:
		if err := checkLang(c.Lang); err != nil {
			return nil, err
		}
		enc := pickEncoding(version, c.Description, c.Text)
		if enc == encodingUTF16 {
			return encodeUTF16([]byte(c.Lang), []string{c.Description, c.Text}, nil)
		}
		return writeFrameBody(id3v2.UnsynchronisedLyricsFrame{
			Encoding:          bogemEncoding(enc),
			Language:          c.Lang,
			ContentDescriptor: c.Description,
			Lyrics:            c.Text,
		})
	case models.SynchronisedLyricsContent:
		return encodeSynchronisedLyrics(c, version)
	case models.PictureContent:
		mime, err := latin1(c.MIMEType)
		if err != nil {
			return nil, err
		}
		enc := pickEncoding(version, c.Description)
		if enc == encodingUTF16 {
			head := append(mime, 0, c.PictureType)
			// 末尾的空字段让描述带上结束符，图片数据紧随其后。
			return encodeUTF16(head, []string{c.Description, ""}, c.Data)
		}
		return writeFrameBody(id3v2.PictureFrame{
			Encoding:    bogemEncoding(enc),
			MimeType:    c.MIMEType,
			PictureType: c.PictureType,
			Description: c.Description,
			Picture:     c.Data,
		})
	case models.UnknownContent:
		return writeFrameBody(id3v2.UnknownFrame{Body: c.Data})
	case nil:
		return nil, errors.New("帧内容为空")
	}
	return nil, fmt.Errorf("不支持的帧内容类型 %T", content)
}

// encodeUTF16 拼接 UTF-16 帧体：编码字节、head、各文本字段，最后是 tail。
// 除最后一个字段外每个字段后跟两个 0 字节；每个非空字段自带 BOM。
// bogem 会在 UTF-16 字符串后面多写一个 0 字节，UTF-16 帧体不经过它。
func encodeUTF16(head []byte, fields []string, tail []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(encodingUTF16)
	buf.Write(head)
	for i, s := range fields {
		b, err := encodeText(encodingUTF16, s)
		if err != nil {
			return nil, err
		}
		buf.Write(b)
		if i < len(fields)-1 {
			buf.Write(terminator(encodingUTF16))
		}
	}
	buf.Write(tail)
	return buf.Bytes(), nil
}

// writeFrameBody 借助 bogem 的帧类型序列化帧体，不含帧头。
func writeFrameBody(f io.WriterTo) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeExtendedLink(c models.ExtendedLinkContent, version byte) ([]byte, error) {
	enc := pickEncoding(version, c.Description)
	desc, err := encodeText(enc, c.Description)
	if err != nil {
		return nil, err
	}
	link, err := latin1(c.Link)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteByte(enc)
	buf.Write(desc)
	buf.Write(terminator(enc))
	buf.Write(link)
	return buf.Bytes(), nil
}

func encodeSynchronisedLyrics(c models.SynchronisedLyricsContent, version byte) ([]byte, error) {
	if err := checkLang(c.Lang); err != nil {
		return nil, err
	}
	texts := []string{c.Description}
	for _, e := range c.Entries {
		texts = append(texts, e.Text)
	}
	enc := pickEncoding(version, texts...)

	var buf bytes.Buffer
	buf.WriteByte(enc)
	buf.WriteString(c.Lang)
	buf.WriteByte(c.TimestampFormat)
	buf.WriteByte(c.ContentType)
	desc, err := encodeText(enc, c.Description)
	if err != nil {
		return nil, err
	}
	buf.Write(desc)
	buf.Write(terminator(enc))

	var ts [4]byte
	for _, e := range c.Entries {
		text, err := encodeText(enc, e.Text)
		if err != nil {
			return nil, err
		}
		buf.Write(text)
		buf.Write(terminator(enc))
		binary.BigEndian.PutUint32(ts[:], e.Timestamp)
		buf.Write(ts[:])
	}
	return buf.Bytes(), nil
}

func checkLang(lang string) error {
	if len(lang) != 3 {
		return fmt.Errorf("语言代码 %q 必须是 3 个字节", lang)
	}
	return nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
