package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
)

// Kind 错误分类
type Kind string

const (
	KindNetwork      Kind = "network"
	KindBadRequest   Kind = "bad_request"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindRateLimited  Kind = "rate_limited"
	KindServer       Kind = "server"
	KindUnavailable  Kind = "unavailable"
	KindClient       Kind = "client"
	KindDecode       Kind = "decode"
)

// 用于 errors.Is 判断
var (
	ErrNetwork      = &Error{Kind: KindNetwork}
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
	ErrForbidden    = &Error{Kind: KindForbidden}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrRateLimited  = &Error{Kind: KindRateLimited}
	ErrServer       = &Error{Kind: KindServer}
	ErrUnavailable  = &Error{Kind: KindUnavailable}
	ErrDecode       = &Error{Kind: KindDecode}
)

// Error 归一化后的请求错误，调用方不会看到底层传输错误
type Error struct {
	Kind    Kind   `json:"kind"`
	Status  int    `json:"status,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Method  string `json:"method,omitempty"`
	URL     string `json:"url,omitempty"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.URL, e.Status, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Method, e.URL, e.Message, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Method, e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Retryable 网络、限流和服务端错误可以由调用方重试
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindNetwork, KindRateLimited, KindServer, KindUnavailable:
		return true
	}
	return false
}

// AsError 从错误链中取出 *Error
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// serverMessage 兼容 {"message": ...}、{"detail": ...} 与 {"code": ...}
type serverMessage struct {
	Message string `json:"message"`
	Detail  any    `json:"detail"`
	Code    string `json:"code"`
}

// classify 唯一的错误分类入口
func classify(method, url string, status int, body []byte, err error) *Error {
	e := &Error{Method: method, URL: url, Status: status, Err: err}

	if status == 0 {
		e.Kind = KindNetwork
		e.Code = "NETWORK_ERROR"
		e.Message = "Network error - please check your connection"
		if err != nil && errors.Is(err, context.DeadlineExceeded) {
			e.Message = "Request timed out - please check your connection"
		}
		return e
	}

	e.Code = fmt.Sprintf("HTTP_%d", status)
	var sm serverMessage
	if len(body) > 0 && sonic.Unmarshal(body, &sm) == nil {
		if sm.Code != "" {
			e.Code = sm.Code
		}
	}

	switch {
	case status == http.StatusBadRequest:
		e.Kind = KindBadRequest
		e.Message = "Bad request - please check your input"
	case status == http.StatusUnauthorized:
		e.Kind = KindUnauthorized
		e.Message = "Unauthorized - please check your API key"
	case status == http.StatusForbidden:
		e.Kind = KindForbidden
		e.Message = "Forbidden - insufficient permissions"
	case status == http.StatusNotFound:
		e.Kind = KindNotFound
		e.Message = "Resource not found"
	case status == http.StatusTooManyRequests:
		e.Kind = KindRateLimited
		e.Message = "Rate limit exceeded - please try again later"
	case status == http.StatusServiceUnavailable:
		e.Kind = KindUnavailable
		e.Message = "Service temporarily unavailable"
	case status >= 500:
		e.Kind = KindServer
		e.Message = "Server error - please try again later"
	default:
		e.Kind = KindClient
		e.Message = serverText(sm)
		if e.Message == "" {
			e.Message = fmt.Sprintf("Error %d", status)
		}
	}
	return e
}

func serverText(sm serverMessage) string {
	if sm.Message != "" {
		return sm.Message
	}
	if s, ok := sm.Detail.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}
