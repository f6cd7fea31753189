package apierror

import (
	"errors"
	"net/http"
	"strings"
)

// ErrorResponse 错误响应结构
type ErrorResponse struct {
	Errors    []Error `json:"errors"`
	RequestID string  `json:"requestID,omitempty"`
}

func (er *ErrorResponse) Error() string {
	var b strings.Builder
	b.WriteString("RequestID: " + er.RequestID)
	for i := range er.Errors {
		b.WriteString("; " + er.Errors[i].Error())
	}
	return b.String()
}

// Error 对外暴露 Code 和 Message，HTTPStatus 和 RawError 只在服务端使用
type Error struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	RawError   error  `json:"-"`
}

func (e *Error) Error() string {
	s := "[" + e.Code + "] " + e.Message
	if e.RawError != nil {
		s += " (RawError: " + e.RawError.Error() + ")"
	}
	return s
}

// Is Code 相同即视为同一类错误，Message 和 RawError 不参与比较
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e != nil && t != nil && e.Code == t.Code
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.RawError
}

// NewError 自定义错误，HTTP 状态码为 500
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message, HTTPStatus: http.StatusInternalServerError}
}

// NewErrorResponse 一次响应可以携带多个错误
func NewErrorResponse(requestID string, errs ...*Error) *ErrorResponse {
	resp := &ErrorResponse{RequestID: requestID, Errors: make([]Error, 0, len(errs))}
	for _, e := range errs {
		resp.Errors = append(resp.Errors, *e)
	}
	return resp
}

// WrapError 沿用预定义错误的 Code 和 HTTPStatus，换成具体的消息和原始错误
func WrapError(baseErr *Error, message string, rawError error) *Error {
	return &Error{
		Code:       baseErr.Code,
		Message:    message,
		HTTPStatus: baseErr.HTTPStatus,
		RawError:   rawError,
	}
}

// As 在错误链中查找第一个 *Error
func As(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr != nil {
		return apiErr, true
	}
	return nil, false
}

// StatusOf 返回错误对应的 HTTP 状态码，非 *Error 一律 500
func StatusOf(err error) int {
	if apiErr, ok := As(err); ok && apiErr.HTTPStatus > 0 {
		return apiErr.HTTPStatus
	}
	return http.StatusInternalServerError
}
