package tagcodec

import (
	"bytes"
	"fmt"

	"github.com/bogem/id3v2/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// ID3v2 文本编码字节。
const (
	encodingISO     byte = 0
	encodingUTF16   byte = 1 // 带 BOM
	encodingUTF16BE byte = 2 // 仅 v2.4
	encodingUTF8    byte = 3 // 仅 v2.4
)

func validEncoding(enc byte) bool {
	return enc <= encodingUTF8
}

func xencoding(enc byte) encoding.Encoding {
	switch enc {
	case encodingISO:
		return charmap.ISO8859_1
	case encodingUTF16:
		// 缺少 BOM 时按小端处理。
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)
	case encodingUTF16BE:
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
	}
	return nil
}

// decodeText 把指定编码的字节解码为 UTF-8 字符串。
func decodeText(enc byte, b []byte) (string, error) {
	if len(b) == 0 {
		return "", nil
	}
	if enc == encodingUTF8 {
		return string(b), nil
	}
	xe := xencoding(enc)
	if xe == nil {
		return "", fmt.Errorf("未知的文本编码 %d", enc)
	}
	out, err := xe.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// encodeText 把字符串编码为指定编码的字节，不含结束符。
func encodeText(enc byte, s string) ([]byte, error) {
	if enc == encodingUTF8 {
		return []byte(s), nil
	}
	xe := xencoding(enc)
	if xe == nil {
		return nil, fmt.Errorf("未知的文本编码 %d", enc)
	}
	if s == "" {
		return nil, nil
	}
	return xe.NewEncoder().Bytes([]byte(s))
}

func terminator(enc byte) []byte {
	if enc == encodingUTF16 || enc == encodingUTF16BE {
		return []byte{0, 0}
	}
	return []byte{0}
}

// splitTerminated 在第一个结束符处切分 b，UTF-16 的结束符必须按 2 字节对齐。
func splitTerminated(enc byte, b []byte) (head, rest []byte, ok bool) {
	term := terminator(enc)
	if len(term) == 1 {
		i := bytes.IndexByte(b, 0)
		if i < 0 {
			return nil, nil, false
		}
		return b[:i], b[i+1:], true
	}
	for i := 0; i+1 < len(b); i += 2 {
		if b[i] == 0 && b[i+1] == 0 {
			return b[:i], b[i+2:], true
		}
	}
	return nil, nil, false
}

// trimTerminators 去掉末尾多余的结束符。
func trimTerminators(enc byte, b []byte) []byte {
	term := terminator(enc)
	for len(b) >= len(term) && bytes.HasSuffix(b, term) {
		if len(term) == 2 && len(b)%2 != 0 {
			break
		}
		b = b[:len(b)-len(term)]
	}
	return b
}

// readTerminatedText 读取一段以结束符结尾的文本，缺少结束符时视为读到末尾。
func readTerminatedText(enc byte, b []byte) (string, []byte, error) {
	head, rest, ok := splitTerminated(enc, b)
	if !ok {
		head, rest = b, nil
	}
	s, err := decodeText(enc, head)
	return s, rest, err
}

// pickEncoding 为目标版本选择能表示所有字符串的编码。
// v2.4 一律使用 UTF-8；v2.3 只能用 ISO-8859-1 或带 BOM 的 UTF-16。
func pickEncoding(version byte, texts ...string) byte {
	if version >= 4 {
		return encodingUTF8
	}
	for _, s := range texts {
		for _, r := range s {
			if r > 0xFF {
				return encodingUTF16
			}
		}
	}
	return encodingISO
}

// bogemEncoding 返回 ISO-8859-1 或 UTF-8 对应的 bogem 编码，UTF-16 帧体由 encodeUTF16 生成。
func bogemEncoding(enc byte) id3v2.Encoding {
	if enc == encodingUTF8 {
		return id3v2.EncodingUTF8
	}
	return id3v2.EncodingISO
}

// latin1 把只含 ISO-8859-1 字符的字符串编码为单字节序列，URL、MIME 类型等字段使用该编码。
func latin1(s string) ([]byte, error) {
	b, err := encodeText(encodingISO, s)
	if err != nil {
		return nil, fmt.Errorf("%q 无法用 ISO-8859-1 表示: %w", s, err)
	}
	return b, nil
}
