package apperr

import (
    "errors"
    "fmt"
    "time"
)

// 错误大类：所有业务错误都可通过 errors.Is 归入其中之一，
// pkg/response 负责映射为 HTTP 状态码。
var (
    ErrValidation    = errors.New("validation failed")
    ErrState         = errors.New("invalid state")
    ErrIntegrity     = errors.New("integrity violation")
    ErrAuthorization = errors.New("not authorized")
    ErrNotFound      = errors.New("not found")
    ErrRateLimited   = errors.New("rate limited")
)

func Validationf(format string, args ...any) error {
    return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

func Statef(format string, args ...any) error {
    return fmt.Errorf("%w: "+format, append([]any{ErrState}, args...)...)
}

func Integrityf(format string, args ...any) error {
    return fmt.Errorf("%w: "+format, append([]any{ErrIntegrity}, args...)...)
}

func Authorizationf(format string, args ...any) error {
    return fmt.Errorf("%w: "+format, append([]any{ErrAuthorization}, args...)...)
}

func NotFoundf(format string, args ...any) error {
    return fmt.Errorf("%w: "+format, append([]any{ErrNotFound}, args...)...)
}

// RateLimitError 限流错误，携带调用方退避所需的信息。
type RateLimitError struct {
    Limit      int
    Window     time.Duration
    RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
    return fmt.Sprintf("rate limited: %d posts per %s, retry after %s", e.Limit, e.Window, e.RetryAfter.Round(time.Second))
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }
