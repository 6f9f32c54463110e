package handlers

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"zero-tags/services"
	"zero-tags/tagcodec"
)

// APIError 定义了 API 返回的标准化错误结构。
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error 实现了标准错误接口。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// NewNotFoundError 创建一个表示资源未找到的 APIError。
func NewNotFoundError(resource string) *APIError {
	return &APIError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// NewInternalError 创建一个表示内部服务器错误的 APIError。
func NewInternalError(err error) *APIError {
	return &APIError{
		Code:    "INTERNAL_ERROR",
		Message: "Internal server error",
		Details: err.Error(),
	}
}

// NewBadRequestError 创建一个表示无效请求的 APIError。
func NewBadRequestError(message string) *APIError {
	return &APIError{
		Code:    "BAD_REQUEST",
		Message: message,
	}
}

// NewForbiddenError 创建一个表示禁止访问的 APIError。
func NewForbiddenError(message string) *APIError {
	return &APIError{
		Code:    "FORBIDDEN",
		Message: message,
	}
}

// NewIOError 创建一个表示文件读写失败的 APIError。
func NewIOError(err error) *APIError {
	return &APIError{
		Code:    "IO_ERROR",
		Message: "Tag I/O failed",
		Details: err.Error(),
	}
}

// NewFormatError 创建一个表示标签格式错误的 APIError。
func NewFormatError(err error) *APIError {
	return &APIError{
		Code:    "FORMAT_ERROR",
		Message: "Malformed or unsupported tag",
		Details: err.Error(),
	}
}

// NewUnavailableError 创建一个表示服务暂时不可用的 APIError。
func NewUnavailableError(err error) *APIError {
	return &APIError{
		Code:    "UNAVAILABLE",
		Message: "Service unavailable",
		Details: err.Error(),
	}
}

// errorResponse 把服务层返回的错误映射为 HTTP 状态码和 APIError。
func errorResponse(err error) (int, *APIError) {
	var ioErr *tagcodec.IOError
	var formatErr *tagcodec.FormatError

	switch {
	case errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound, &APIError{Code: "NOT_FOUND", Message: "文件不存在", Details: err.Error()}
	case errors.Is(err, services.ErrInvalidPayload):
		return http.StatusBadRequest, &APIError{Code: "BAD_REQUEST", Message: "无效的帧载荷", Details: err.Error()}
	case errors.As(err, &formatErr):
		return http.StatusUnprocessableEntity, NewFormatError(err)
	case errors.As(err, &ioErr):
		return http.StatusInternalServerError, NewIOError(err)
	case errors.Is(err, services.ErrPoolClosed), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, NewUnavailableError(err)
	default:
		return http.StatusInternalServerError, NewInternalError(err)
	}
}
