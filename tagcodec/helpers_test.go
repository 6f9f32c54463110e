package tagcodec

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// fakeAudio 模拟标签之后的 MPEG 音频数据，包含 0xFF 字节以覆盖反同步相关的逻辑。
var fakeAudio = []byte{
	0xFF, 0xFB, 0x90, 0x64, 0x00, 0x0F, 0xF0, 0x00,
	0x00, 0x69, 0x00, 0x00, 0x00, 0x08, 0x00, 0x00,
	0x0D, 0x20, 0x00, 0x00, 0x01, 0x00, 0x00, 0x01,
	0xA4, 0x00, 0x00, 0x00, 0x20, 0x00, 0x00, 0x34,
}

// buildFrame 按指定版本构造一个帧的原始字节。
func buildFrame(version byte, id string, flags [2]byte, body []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString(id)
	switch version {
	case 2:
		n := len(body)
		buf.Write([]byte{byte(n >> 16), byte(n >> 8), byte(n)})
		buf.Write(body)
		return buf.Bytes()
	case 3:
		var size [4]byte
		binary.BigEndian.PutUint32(size[:], uint32(len(body)))
		buf.Write(size[:])
	case 4:
		var size [4]byte
		if err := putSynchsafe(size[:], len(body)); err != nil {
			panic(err)
		}
		buf.Write(size[:])
	}
	buf.Write(flags[:])
	buf.Write(body)
	return buf.Bytes()
}

// buildTag 拼接标签头和帧数据。
func buildTag(version, flags byte, frames ...[]byte) []byte {
	body := bytes.Join(frames, nil)
	out := []byte{'I', 'D', '3', version, 0, flags, 0, 0, 0, 0}
	if err := putSynchsafe(out[6:10], len(body)); err != nil {
		panic(err)
	}
	return append(out, body...)
}

// isoText 构造一个 ISO-8859-1 编码的文本帧体。
func isoText(s string) []byte {
	return append([]byte{encodingISO}, s...)
}

// utf8Text 构造一个 UTF-8 编码的文本帧体。
func utf8Text(s string) []byte {
	return append([]byte{encodingUTF8}, s...)
}

// utf16Text 构造一个带 BOM 的 UTF-16LE 文本帧体。
func utf16Text(t *testing.T, s string) []byte {
	t.Helper()
	b, err := encodeText(encodingUTF16, s)
	if err != nil {
		t.Fatalf("编码 UTF-16 文本失败: %v", err)
	}
	return append([]byte{encodingUTF16}, b...)
}

// commentBody 构造一个 ISO-8859-1 编码的 COMM 帧体。
func commentBody(lang, desc, text string) []byte {
	body := append([]byte{encodingISO}, lang...)
	body = append(body, desc...)
	body = append(body, 0)
	return append(body, text...)
}

// compress 用 zlib 压缩 b。
func compress(t *testing.T, b []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(b); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// unsynchronise 在每个 0xFF 之后插入 0x00。
func unsynchronise(b []byte) []byte {
	var out []byte
	for _, c := range b {
		out = append(out, c)
		if c == 0xFF {
			out = append(out, 0x00)
		}
	}
	return out
}

// writeMP3 在临时目录中写入一个由标签和音频数据组成的文件。
func writeMP3(t *testing.T, tag []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "track.mp3")
	data := append(append([]byte{}, tag...), fakeAudio...)
	if err := os.WriteFile(path, data, 0640); err != nil {
		t.Fatal(err)
	}
	return path
}
