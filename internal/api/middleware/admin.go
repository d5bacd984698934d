package middleware

import (
    "net/http"

    "github.com/gin-gonic/gin"
    "golang.org/x/crypto/bcrypt"

    "github.com/d60-Lab/feedgraph/pkg/response"
)

// AdminKey 运维接口准入：X-Admin-Key 对 bcrypt 哈希校验。
// keyHash 为空表示未启用钥匙，放行（仍受鉴权中间件约束）。
func AdminKey(keyHash string) gin.HandlerFunc {
    return func(c *gin.Context) {
        if keyHash == "" {
            c.Next()
            return
        }
        key := c.GetHeader("X-Admin-Key")
        if err := bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)); err != nil {
            c.AbortWithStatusJSON(http.StatusForbidden, response.Response{
                Code:    http.StatusForbidden,
                Message: "admin key required",
            })
            return
        }
        c.Next()
    }
}
