package api

import (
    sentrygin "github.com/getsentry/sentry-go/gin"
    "github.com/gin-contrib/gzip"
    "github.com/gin-gonic/gin"
    "github.com/prometheus/client_golang/prometheus/promhttp"
    swaggerfiles "github.com/swaggo/files"
    ginswagger "github.com/swaggo/gin-swagger"
    "go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

    "github.com/d60-Lab/feedgraph/config"
    "github.com/d60-Lab/feedgraph/internal/api/handler"
    "github.com/d60-Lab/feedgraph/internal/api/middleware"
)

// NewRouter 组装 gin 引擎：可观测性中间件 + 全部业务路由。
// 鉴权统一挂成可选模式，写接口在 handler 里自行要求操作者。
func NewRouter(cfg *config.Config, h *handler.Handler) *gin.Engine {
    gin.SetMode(ginMode(cfg.Server.Mode))
    handler.RegisterValidators()

    r := gin.New()
    r.Use(gin.Recovery())
    if cfg.Sentry.DSN != "" {
        r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
    }
    if cfg.Trace.Enabled {
        r.Use(otelgin.Middleware("feedgraph"))
    }
    r.Use(gzip.Gzip(gzip.DefaultCompression))
    r.Use(middleware.Metrics())
    r.Use(middleware.RateLimit(float64(cfg.RateLimit.HTTPRPS), cfg.RateLimit.HTTPBurst))

    r.GET("/health", func(c *gin.Context) {
        c.JSON(200, gin.H{"status": "ok"})
    })
    r.GET("/metrics", gin.WrapH(promhttp.Handler()))
    r.GET("/swagger/*any", ginswagger.WrapHandler(swaggerfiles.Handler))

    v1 := r.Group("/api/v1")
    v1.Use(middleware.Auth(cfg.JWT.Secret, false))
    {
        users := v1.Group("/users")
        {
            users.POST("/me", h.UpsertProfile)
            users.GET("/:user_id", h.GetUser)
        }

        relations := v1.Group("/relations")
        {
            relations.POST("/follow", h.Follow)
            relations.POST("/unfollow", h.Unfollow)
            relations.GET("/:user_id/following", h.ListFollowing)
            relations.GET("/:user_id/followers", h.ListFollowers)
        }

        posts := v1.Group("/posts")
        {
            posts.POST("", h.CreatePost)
            posts.GET("", h.ListMyPosts)
            posts.GET("/:post_id", h.GetPost)
            posts.PUT("/:post_id", h.EditPost)
            posts.DELETE("/:post_id", h.DeletePost)
            posts.POST("/:post_id/publish", h.PublishPost)

            posts.POST("/:post_id/timelines", h.AddToTimeline)
            posts.DELETE("/:post_id/timelines", h.RemoveFromTimeline)
            posts.GET("/:post_id/timelines", h.ListPostTimelines)
            posts.POST("/:post_id/pin", h.PinPost)
            posts.POST("/:post_id/unpin", h.UnpinPost)

            posts.PUT("/:post_id/like", h.Like)
            posts.DELETE("/:post_id/like", h.Unlike)
            posts.PUT("/:post_id/dislike", h.Dislike)
            posts.DELETE("/:post_id/dislike", h.Undislike)
            posts.POST("/:post_id/comments", h.CreateComment)
            posts.GET("/:post_id/comments", h.ListComments)
            posts.POST("/:post_id/shares", h.SharePost)
            posts.GET("/:post_id/shares", h.ListShares)
            posts.GET("/:post_id/stats", h.GetStats)
            posts.POST("/:post_id/recount", middleware.AdminKey(cfg.Admin.KeyHash), h.RecountStats)
        }

        v1.DELETE("/comments/:comment_id", h.DeleteComment)

        owners := v1.Group("/owners")
        {
            owners.POST("", h.RegisterOwner)
            owners.GET("", h.ListMyOwners)
            owners.GET("/:kind/:owner_id", h.GetOwner)
            owners.DELETE("/:kind/:owner_id", h.RemoveOwner)
        }

        feeds := v1.Group("/feeds")
        {
            feeds.GET("/communal", h.CommunalFeed)
            feeds.GET("/timelines/:kind/:owner_id", h.TimelineFeed)
        }
    }

    return r
}

func ginMode(mode string) string {
    if mode == "release" {
        return gin.ReleaseMode
    }
    return gin.DebugMode
}
