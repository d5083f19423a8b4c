package xui

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
)

// Коды ошибок клиента панели
const (
	CodeConnRefused   = "ECONNREFUSED"
	CodeNotFound      = "ENOTFOUND"
	CodeConnReset     = "ECONNRESET"
	CodeTimeout       = "ETIMEDOUT"
	CodeAuthFailed    = "AUTH_FAILED"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeBadResponse   = "BAD_RESPONSE"
	CodeCanceled      = "CANCELED"
	CodePanelRejected = "PANEL_REJECTED"
	CodeUnknown       = "UNKNOWN"
)

// Error единая форма ошибки клиента панели
type Error struct {
	Message string
	Code    string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Code)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsConnectivity сообщает, что до панели не удалось достучаться
func (e *Error) IsConnectivity() bool {
	switch e.Code {
	case CodeConnRefused, CodeNotFound, CodeConnReset, CodeTimeout:
		return true
	}
	return false
}

// Result форма {success, message, code}, в которой ошибки отдаются наружу
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// AsResult преобразует ошибку операции в Result
func AsResult(err error) Result {
	if err == nil {
		return Result{Success: true}
	}
	var e *Error
	if errors.As(err, &e) {
		return Result{Success: false, Message: e.Message, Code: e.Code}
	}
	return Result{Success: false, Message: err.Error(), Code: CodeUnknown}
}

// CodeOf возвращает код ошибки панели или пустую строку
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// transportError классифицирует сетевую ошибку запроса к target
func transportError(target string, err error) *Error {
	if errors.Is(err, context.Canceled) {
		return canceledError(err)
	}

	code := CodeUnknown
	var dnsErr *net.DNSError
	var netErr net.Error

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		code = CodeTimeout
	case errors.As(err, &dnsErr):
		code = CodeNotFound
	case errors.Is(err, syscall.ECONNREFUSED):
		code = CodeConnRefused
	case errors.Is(err, syscall.ECONNRESET):
		code = CodeConnReset
	case errors.As(err, &netErr) && netErr.Timeout():
		code = CodeTimeout
	}

	return &Error{
		Message: fmt.Sprintf("не удалось подключиться к %s", target),
		Code:    code,
		Err:     err,
	}
}

// canceledError запрос прерван вызывающей стороной, панель тут ни при чем
func canceledError(err error) *Error {
	return &Error{Message: "запрос к панели отменен", Code: CodeCanceled, Err: err}
}

func contextError(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Message: "истекло время ожидания авторизации в панели", Code: CodeTimeout, Err: err}
	}
	return canceledError(err)
}

func statusError(target string, status int) *Error {
	if status == http.StatusUnauthorized {
		return &Error{Message: "панель отклонила токен сессии", Code: CodeUnauthorized, Status: status}
	}
	return &Error{
		Message: fmt.Sprintf("некорректный статус ответа %s: %d", target, status),
		Code:    fmt.Sprintf("HTTP_%d", status),
		Status:  status,
	}
}

func isUnauthorized(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Status == http.StatusUnauthorized
}

func messageOr(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}
