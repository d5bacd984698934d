package middleware

import (
    "net/http"
    "sync"
    "time"

    "github.com/gin-gonic/gin"
    "golang.org/x/time/rate"

    "github.com/d60-Lab/feedgraph/pkg/response"
)

// RateLimit 按客户端 IP 的令牌桶，挡住单客户端的请求洪峰。
// 业务层的发帖滑动窗口限流与此无关，那个在 PostService 事务里。
func RateLimit(rps float64, burst int) gin.HandlerFunc {
    if rps <= 0 {
        rps = 50
    }
    if burst <= 0 {
        burst = 100
    }

    type client struct {
        limiter  *rate.Limiter
        lastSeen time.Time
    }
    var (
        mu      sync.Mutex
        clients = make(map[string]*client)
    )

    // 惰性清理：每次上锁顺手丢掉十分钟没露面的客户端
    cleanup := func(now time.Time) {
        for ip, cl := range clients {
            if now.Sub(cl.lastSeen) > 10*time.Minute {
                delete(clients, ip)
            }
        }
    }
    lastCleanup := time.Now()

    return func(c *gin.Context) {
        ip := c.ClientIP()
        now := time.Now()

        mu.Lock()
        if now.Sub(lastCleanup) > time.Minute {
            cleanup(now)
            lastCleanup = now
        }
        cl, ok := clients[ip]
        if !ok {
            cl = &client{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
            clients[ip] = cl
        }
        cl.lastSeen = now
        allowed := cl.limiter.Allow()
        mu.Unlock()

        if !allowed {
            c.JSON(http.StatusTooManyRequests, response.Response{
                Code:    http.StatusTooManyRequests,
                Message: "too many requests",
            })
            c.Abort()
            return
        }
        c.Next()
    }
}
