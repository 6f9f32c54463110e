package tagcodec

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"zero-tags/models"
)

// v2.3 帧标志位。
const (
	v23StatusTagAlter  = 0x80
	v23StatusFileAlter = 0x40
	v23StatusReadOnly  = 0x20

	v23FormatCompression = 0x80
	v23FormatEncryption  = 0x40
	v23FormatGrouping    = 0x20
)

// v2.4 帧标志位。
const (
	v24StatusTagAlter  = 0x40
	v24StatusFileAlter = 0x20
	v24StatusReadOnly  = 0x10

	v24FormatGrouping    = 0x40
	v24FormatCompression = 0x08
	v24FormatEncryption  = 0x04
	v24FormatUnsync      = 0x02
	v24FormatDataLength  = 0x01
)

func frameHeaderSize(version byte) int {
	if version == 2 {
		return 6
	}
	return 10
}

func frameIDSize(version byte) int {
	if version == 2 {
		return 3
	}
	return 4
}

// parseFrames 按顺序遍历帧数据，遇到填充字节或数据结束时停止。
// tagUnsync 表示 v2.4 标签头声明了反同步，此时每个帧都需要还原。
func parseFrames(data []byte, version byte, tagUnsync bool) ([]models.Frame, error) {
	var frames []models.Frame
	hs := frameHeaderSize(version)
	for offset := 0; len(data) > 0; {
		if data[0] == 0 {
			break
		}
		if len(data) < hs {
			return nil, corruptf("偏移 %d 处的帧头被截断", offset)
		}

		id := string(data[:frameIDSize(version)])
		if !ValidFrameID(id) {
			return nil, corruptf("偏移 %d 处的帧 ID %q 不合法", offset, id)
		}

		var size int
		var flags [2]byte
		switch version {
		case 2:
			size = int(data[3])<<16 | int(data[4])<<8 | int(data[5])
		case 3:
			size = int(binary.BigEndian.Uint32(data[4:8]))
			flags = [2]byte{data[8], data[9]}
		case 4:
			n, ok := parseSynchsafe(data[4:8])
			if !ok {
				return nil, corruptf("帧 %s 的长度不是 synchsafe 整数", id)
			}
			size = n
			flags = [2]byte{data[8], data[9]}
		}
		if size > len(data)-hs {
			return nil, corruptf("帧 %s 的长度 %d 超出标签范围", id, size)
		}

		frame, err := decodeFrame(id, flags, data[hs:hs+size], version, tagUnsync)
		if err != nil {
			return nil, err
		}
		frames = append(frames, frame)

		data = data[hs+size:]
		offset += hs + size
	}
	return frames, nil
}

// decodeFrame 解析帧标志及其附加字节，再按 ID 解码帧体。
func decodeFrame(id string, flags [2]byte, body []byte, version byte, tagUnsync bool) (models.Frame, error) {
	frame := models.Frame{
		ID: id,
		Source: &models.RawFrame{
			Version: version,
			Flags:   flags,
			Body:    cloneBytes(body),
		},
	}

	payload := body
	var compressed bool
	var err error
	switch version {
	case 3:
		status, format := flags[0], flags[1]
		frame.Flags.TagAlterDiscard = status&v23StatusTagAlter != 0
		frame.Flags.FileAlterDiscard = status&v23StatusFileAlter != 0
		frame.Flags.ReadOnly = status&v23StatusReadOnly != 0

		if format&v23FormatCompression != 0 {
			compressed = true
			// 解压后的长度，解压时不需要。
			if _, payload, err = takeBytes(id, payload, 4); err != nil {
				return frame, err
			}
		}
		if format&v23FormatEncryption != 0 {
			frame.Flags.Encrypted = true
			if frame.Flags.EncryptionMethod, payload, err = takeByte(id, payload); err != nil {
				return frame, err
			}
		}
		if format&v23FormatGrouping != 0 {
			frame.Flags.Grouping = true
			if frame.Flags.GroupID, payload, err = takeByte(id, payload); err != nil {
				return frame, err
			}
		}
	case 4:
		status, format := flags[0], flags[1]
		frame.Flags.TagAlterDiscard = status&v24StatusTagAlter != 0
		frame.Flags.FileAlterDiscard = status&v24StatusFileAlter != 0
		frame.Flags.ReadOnly = status&v24StatusReadOnly != 0

		if tagUnsync && format&v24FormatUnsync == 0 {
			frame.Source.Flags[1] |= v24FormatUnsync
		}
		if tagUnsync || format&v24FormatUnsync != 0 {
			payload = removeUnsynchronisation(payload)
		}
		if format&v24FormatGrouping != 0 {
			frame.Flags.Grouping = true
			if frame.Flags.GroupID, payload, err = takeByte(id, payload); err != nil {
				return frame, err
			}
		}
		if format&v24FormatEncryption != 0 {
			frame.Flags.Encrypted = true
			if frame.Flags.EncryptionMethod, payload, err = takeByte(id, payload); err != nil {
				return frame, err
			}
		}
		if format&v24FormatDataLength != 0 {
			if _, payload, err = takeBytes(id, payload, 4); err != nil {
				return frame, err
			}
		}
		compressed = format&v24FormatCompression != 0
	}

	if frame.Flags.Encrypted {
		frame.Content = models.UnknownContent{Data: cloneBytes(payload)}
		return frame, nil
	}
	if compressed {
		inflated, err := inflate(payload)
		if err != nil {
			frame.Content = models.UnknownContent{Data: cloneBytes(payload)}
			return frame, nil
		}
		payload = inflated
	}
	frame.Content = DecodeContent(id, payload)
	return frame, nil
}

func takeByte(id string, b []byte) (byte, []byte, error) {
	if len(b) < 1 {
		return 0, nil, corruptf("帧 %s 的标志附加数据被截断", id)
	}
	return b[0], b[1:], nil
}

func takeBytes(id string, b []byte, n int) ([]byte, []byte, error) {
	if len(b) < n {
		return nil, nil, corruptf("帧 %s 的标志附加数据被截断", id)
	}
	return b[:n], b[n:], nil
}

func inflate(b []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// encodeFrame 把帧编码为目标版本的字节，包括帧头。
// 读取版本与目标版本相同且 ID 未变的帧直接写回原始字节。
func encodeFrame(f models.Frame, version byte) ([]byte, error) {
	id, err := frameIDFor(f.ID, version)
	if err != nil {
		return nil, err
	}
	if f.Source != nil && f.Source.Version == version && f.ID == id {
		return frameBytes(id, f.Source.Flags, f.Source.Body, version)
	}

	body, err := EncodeContent(f.Content, version)
	if err != nil {
		return nil, &FormatError{Message: fmt.Sprintf("帧 %s 编码失败", f.ID), Err: err}
	}

	var flags [2]byte
	var prefix []byte
	switch version {
	case 3:
		flags[0] = flagBit(f.Flags.TagAlterDiscard, v23StatusTagAlter) |
			flagBit(f.Flags.FileAlterDiscard, v23StatusFileAlter) |
			flagBit(f.Flags.ReadOnly, v23StatusReadOnly)
		if f.Flags.Encrypted {
			flags[1] |= v23FormatEncryption
			prefix = append(prefix, f.Flags.EncryptionMethod)
		}
		if f.Flags.Grouping {
			flags[1] |= v23FormatGrouping
			prefix = append(prefix, f.Flags.GroupID)
		}
	case 4:
		flags[0] = flagBit(f.Flags.TagAlterDiscard, v24StatusTagAlter) |
			flagBit(f.Flags.FileAlterDiscard, v24StatusFileAlter) |
			flagBit(f.Flags.ReadOnly, v24StatusReadOnly)
		if f.Flags.Grouping {
			flags[1] |= v24FormatGrouping
			prefix = append(prefix, f.Flags.GroupID)
		}
		if f.Flags.Encrypted {
			flags[1] |= v24FormatEncryption
			prefix = append(prefix, f.Flags.EncryptionMethod)
		}
	}
	return frameBytes(id, flags, append(prefix, body...), version)
}

func flagBit(set bool, bit byte) byte {
	if set {
		return bit
	}
	return 0
}

// frameBytes 拼接帧头和帧体。
func frameBytes(id string, flags [2]byte, body []byte, version byte) ([]byte, error) {
	if len(id) != 4 {
		return nil, &FormatError{Message: fmt.Sprintf("帧 ID %q 不能写入 ID3v2.%d", id, version)}
	}
	out := make([]byte, 10, 10+len(body))
	copy(out, id)
	switch version {
	case 3:
		if len(body) > maxSynchsafe {
			return nil, &FormatError{Message: fmt.Sprintf("帧 %s 过大", id)}
		}
		binary.BigEndian.PutUint32(out[4:8], uint32(len(body)))
	case 4:
		if err := putSynchsafe(out[4:8], len(body)); err != nil {
			return nil, &FormatError{Message: fmt.Sprintf("帧 %s 过大", id), Err: err}
		}
	default:
		return nil, &FormatError{Message: fmt.Sprintf("版本 2.%d", version), Err: ErrUnsupportedVersion}
	}
	out[8], out[9] = flags[0], flags[1]
	return append(out, body...), nil
}
