package tagcodec

import (
	"bufio"
	"errors"
	"io"
	"os"
	"path/filepath"
)

// Adapter 在文件上读写标签。
type Adapter struct {
	padding int
}

// Option 配置 Adapter。
type Option func(*Adapter)

// WithPadding 设置写入时帧之后追加的填充字节数。
func WithPadding(n int) Option {
	return func(a *Adapter) {
		if n >= 0 {
			a.padding = n
		}
	}
}

// NewAdapter 创建一个新的 Adapter。
func NewAdapter(opts ...Option) *Adapter {
	a := &Adapter{}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Read 读取 path 开头的 ID3v2 标签。
// 文件无法打开或读取时返回 *IOError，没有标签或标签损坏时返回 *FormatError。
func (a *Adapter) Read(path string) (*Tag, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	defer file.Close()

	tag, err := Decode(bufio.NewReader(file))
	if err != nil {
		return nil, withPath(err, path)
	}
	return tag, nil
}

// Write 用 tag 按指定版本重写 path 的标签，音频数据保持不变。
// 标签先在内存中编码完成，再写入同目录的临时文件并重命名覆盖原文件，
// 任何一步失败都不会改动原文件。
func (a *Adapter) Write(tag *Tag, path string, version Version) error {
	encoded, err := encodeTag(tag, version, a.padding)
	if err != nil {
		return withPath(err, path)
	}
	return replaceTag(path, encoded)
}

// replaceTag 把 encoded 和原文件的音频数据拼接后原子地替换原文件。
func replaceTag(path string, encoded []byte) (err error) {
	src, err := os.Open(path)
	if err != nil {
		return &IOError{Op: "open", Path: path, Err: err}
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return &IOError{Op: "stat", Path: path, Err: err}
	}
	offset, err := audioOffset(src, info.Size())
	if err != nil {
		return withPath(err, path)
	}
	if _, err := src.Seek(offset, io.SeekStart); err != nil {
		return &IOError{Op: "seek", Path: path, Err: err}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &IOError{Op: "create", Path: path, Err: err}
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(encoded); err != nil {
		return &IOError{Op: "write", Path: tmpName, Err: err}
	}
	if _, err = io.Copy(tmp, src); err != nil {
		return &IOError{Op: "copy", Path: tmpName, Err: err}
	}
	if err = tmp.Sync(); err != nil {
		return &IOError{Op: "sync", Path: tmpName, Err: err}
	}
	if err = tmp.Close(); err != nil {
		return &IOError{Op: "close", Path: tmpName, Err: err}
	}
	if err = os.Chmod(tmpName, info.Mode().Perm()); err != nil {
		return &IOError{Op: "chmod", Path: tmpName, Err: err}
	}
	src.Close()
	if err = os.Rename(tmpName, path); err != nil {
		return &IOError{Op: "rename", Path: path, Err: err}
	}
	return nil
}

// audioOffset 返回标签之后音频数据的起始位置，没有标签时为 0。
func audioOffset(r io.ReadSeeker, fileSize int64) (int64, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, &IOError{Op: "seek", Err: err}
	}
	head := make([]byte, tagHeaderSize)
	if _, err := io.ReadFull(r, head); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, nil
		}
		return 0, &IOError{Op: "read", Err: err}
	}
	h, err := parseTagHeader(head)
	if err != nil {
		if errors.Is(err, ErrNoTag) {
			return 0, nil
		}
		return 0, err
	}
	n := int64(h.totalSize())
	if n > fileSize {
		return 0, corruptf("标签长度 %d 超出文件长度 %d", n, fileSize)
	}
	return n, nil
}
