package middleware

import (
    "strconv"
    "time"

    "github.com/gin-gonic/gin"

    "github.com/d60-Lab/feedgraph/pkg/metrics"
)

// Metrics 按 method/route/status 记录请求耗时直方图
func Metrics() gin.HandlerFunc {
    return func(c *gin.Context) {
        start := time.Now()
        c.Next()

        route := c.FullPath()
        if route == "" {
            route = "unmatched"
        }
        metrics.HTTPRequestDuration.
            WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
            Observe(time.Since(start).Seconds())
    }
}
