package tagcodec

import (
	"errors"
	"fmt"
)

var (
	// ErrNoTag 表示文件开头没有 ID3v2 标签。
	ErrNoTag = errors.New("未找到 ID3v2 标签")
	// ErrUnsupportedVersion 表示标签版本无法读取或无法作为写入目标。
	ErrUnsupportedVersion = errors.New("不支持的 ID3v2 版本")
	// ErrCorruptTag 表示标签结构已损坏。
	ErrCorruptTag = errors.New("ID3v2 标签已损坏")
)

// IOError 表示文件无法打开、读取或写入。
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("标签 I/O 错误: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// FormatError 表示没有可解析的标签，或者标签、帧的结构不合法。
type FormatError struct {
	Path    string
	Message string
	Err     error
}

func (e *FormatError) Error() string {
	msg := "标签格式错误"
	if e.Path != "" {
		msg += ": " + e.Path
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

func corruptf(format string, args ...interface{}) error {
	return &FormatError{Message: fmt.Sprintf(format, args...), Err: ErrCorruptTag}
}

// withPath 为编解码阶段产生的错误补上文件路径。
func withPath(err error, path string) error {
	var fe *FormatError
	if errors.As(err, &fe) && fe.Path == "" {
		copied := *fe
		copied.Path = path
		return &copied
	}
	var ioe *IOError
	if errors.As(err, &ioe) && ioe.Path == "" {
		copied := *ioe
		copied.Path = path
		return &copied
	}
	return err
}
