package response

import (
    "errors"
    "net/http"
    "strconv"

    "github.com/gin-gonic/gin"

    "github.com/d60-Lab/feedgraph/internal/apperr"
)

// Response 统一响应包裹
type Response struct {
    Code    int    `json:"code"`
    Message string `json:"message"`
    Data    any    `json:"data,omitempty"`
}

func Success(c *gin.Context, data any) {
    c.JSON(http.StatusOK, Response{Code: 0, Message: "ok", Data: data})
}

func Created(c *gin.Context, data any) {
    c.JSON(http.StatusCreated, Response{Code: 0, Message: "ok", Data: data})
}

func BadRequest(c *gin.Context, msg string) {
    c.JSON(http.StatusBadRequest, Response{Code: http.StatusBadRequest, Message: msg})
}

func Unauthorized(c *gin.Context, msg string) {
    c.JSON(http.StatusUnauthorized, Response{Code: http.StatusUnauthorized, Message: msg})
}

func InternalError(c *gin.Context, err error) {
    c.JSON(http.StatusInternalServerError, Response{Code: http.StatusInternalServerError, Message: err.Error()})
}

// Error 按错误大类映射状态码；限流错误附带 Retry-After 头。
func Error(c *gin.Context, err error) {
    var rl *apperr.RateLimitError
    if errors.As(err, &rl) {
        c.Header("Retry-After", strconv.Itoa(int(rl.RetryAfter.Seconds())+1))
        c.JSON(http.StatusTooManyRequests, Response{Code: http.StatusTooManyRequests, Message: err.Error()})
        return
    }

    status := http.StatusInternalServerError
    switch {
    case errors.Is(err, apperr.ErrValidation):
        status = http.StatusBadRequest
    case errors.Is(err, apperr.ErrNotFound):
        status = http.StatusNotFound
    case errors.Is(err, apperr.ErrAuthorization):
        status = http.StatusForbidden
    case errors.Is(err, apperr.ErrState):
        status = http.StatusConflict
    case errors.Is(err, apperr.ErrIntegrity):
        status = http.StatusUnprocessableEntity
    case errors.Is(err, apperr.ErrRateLimited):
        status = http.StatusTooManyRequests
    }
    c.JSON(status, Response{Code: status, Message: err.Error()})
}
