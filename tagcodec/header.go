package tagcodec

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	tagHeaderSize = 10
	// maxSynchsafe 是 4 字节 synchsafe 整数能表示的最大值。
	maxSynchsafe = 1<<28 - 1
)

// 标签头标志位。
const (
	tagFlagUnsynchronisation = 0x80
	tagFlagExtendedHeader    = 0x40 // v2.2 中该位表示压缩
	tagFlagFooter            = 0x10
)

var tagMagic = []byte("ID3")

// tagHeader 是 10 字节的 ID3v2 标签头。
type tagHeader struct {
	Version  byte
	Revision byte
	Flags    byte
	// Size 不包含标签头和标签尾。
	Size int
}

func (h tagHeader) unsynchronised() bool {
	return h.Flags&tagFlagUnsynchronisation != 0
}

func (h tagHeader) hasExtendedHeader() bool {
	return h.Version >= 3 && h.Flags&tagFlagExtendedHeader != 0
}

func (h tagHeader) hasFooter() bool {
	return h.Version == 4 && h.Flags&tagFlagFooter != 0
}

// totalSize 返回标签在文件中占用的总字节数。
func (h tagHeader) totalSize() int {
	n := tagHeaderSize + h.Size
	if h.hasFooter() {
		n += tagHeaderSize
	}
	return n
}

// parseTagHeader 解析标签头。
func parseTagHeader(b []byte) (tagHeader, error) {
	if len(b) < tagHeaderSize || !bytes.Equal(b[:3], tagMagic) {
		return tagHeader{}, &FormatError{Err: ErrNoTag}
	}

	h := tagHeader{Version: b[3], Revision: b[4], Flags: b[5]}
	switch h.Version {
	case 2, 3, 4:
	default:
		return tagHeader{}, &FormatError{
			Message: fmt.Sprintf("版本 2.%d", h.Version),
			Err:     ErrUnsupportedVersion,
		}
	}
	if h.Revision == 0xFF {
		return tagHeader{}, corruptf("修订号无效")
	}
	if h.Version == 2 && h.Flags&tagFlagExtendedHeader != 0 {
		return tagHeader{}, &FormatError{Message: "不支持压缩的 ID3v2.2 标签", Err: ErrUnsupportedVersion}
	}

	size, ok := parseSynchsafe(b[6:10])
	if !ok {
		return tagHeader{}, corruptf("标签长度不是 synchsafe 整数")
	}
	h.Size = size
	return h, nil
}

// parseSynchsafe 解析 4 字节的 synchsafe 整数，每个字节的最高位必须为 0。
func parseSynchsafe(b []byte) (int, bool) {
	if len(b) != 4 {
		return 0, false
	}
	n := 0
	for _, c := range b {
		if c&0x80 != 0 {
			return 0, false
		}
		n = n<<7 | int(c)
	}
	return n, true
}

// putSynchsafe 把 n 编码为 4 字节的 synchsafe 整数。
func putSynchsafe(dst []byte, n int) error {
	if n < 0 || n > maxSynchsafe {
		return fmt.Errorf("长度 %d 超出 synchsafe 整数范围", n)
	}
	dst[0] = byte(n >> 21 & 0x7F)
	dst[1] = byte(n >> 14 & 0x7F)
	dst[2] = byte(n >> 7 & 0x7F)
	dst[3] = byte(n & 0x7F)
	return nil
}

// removeUnsynchronisation 还原反同步：把 0xFF 0x00 替换为 0xFF。
func removeUnsynchronisation(b []byte) []byte {
	if bytes.IndexByte(b, 0xFF) < 0 {
		return b
	}
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		out = append(out, b[i])
		if b[i] == 0xFF && i+1 < len(b) && b[i+1] == 0x00 {
			i++
		}
	}
	return out
}

// skipExtendedHeader 跳过扩展头，返回其后的帧数据。
func skipExtendedHeader(body []byte, version byte) ([]byte, error) {
	if len(body) < 4 {
		return nil, corruptf("扩展头被截断")
	}
	switch version {
	case 3:
		// v2.3 的长度是普通整数，不包括长度字段本身。
		n := int(binary.BigEndian.Uint32(body[:4])) + 4
		if n > len(body) {
			return nil, corruptf("扩展头长度 %d 超出标签范围", n)
		}
		return body[n:], nil
	case 4:
		// v2.4 的长度是 synchsafe 整数，包括长度字段本身。
		n, ok := parseSynchsafe(body[:4])
		if !ok || n < 6 || n > len(body) {
			return nil, corruptf("扩展头长度无效")
		}
		return body[n:], nil
	}
	return body, nil
}
