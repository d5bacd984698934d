package middleware

import (
    "strings"

    "github.com/gin-gonic/gin"
    "github.com/golang-jwt/jwt/v5"

    "github.com/d60-Lab/feedgraph/pkg/response"
)

const actorKey = "actor_id"

// ActorID 读出鉴权后的操作者 id；未鉴权返回空串
func ActorID(c *gin.Context) string {
    return c.GetString(actorKey)
}

// Auth 解出 Bearer token 里的操作者 id。身份签发在外部系统，
// 这里只验签并信任 sub 声明。required 为 false 时放行匿名请求。
func Auth(secret string, required bool) gin.HandlerFunc {
    return func(c *gin.Context) {
        header := c.GetHeader("Authorization")
        if header == "" {
            if required {
                response.Unauthorized(c, "missing authorization header")
                c.Abort()
                return
            }
            c.Next()
            return
        }

        raw := strings.TrimPrefix(header, "Bearer ")
        token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
            if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
                return nil, jwt.ErrSignatureInvalid
            }
            return []byte(secret), nil
        })
        if err != nil || !token.Valid {
            response.Unauthorized(c, "invalid token")
            c.Abort()
            return
        }

        sub, err := token.Claims.GetSubject()
        if err != nil || sub == "" {
            response.Unauthorized(c, "token has no subject")
            c.Abort()
            return
        }
        c.Set(actorKey, sub)
        c.Next()
    }
}
