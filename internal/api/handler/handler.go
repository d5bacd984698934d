package handler

import (
    "strconv"

    "github.com/gin-gonic/gin"

    "github.com/d60-Lab/feedgraph/internal/api/middleware"
    "github.com/d60-Lab/feedgraph/internal/service"
    "github.com/d60-Lab/feedgraph/pkg/response"
)

// Handler 聚合各业务服务；方法按资源拆在同包的多个文件里
type Handler struct {
    posts      *service.PostService
    timelines  *service.TimelineService
    engagement service.EngagementService
    feeds      service.FeedService
    follows    service.FollowService
    users      service.UserService
}

func New(
    posts *service.PostService,
    timelines *service.TimelineService,
    engagement service.EngagementService,
    feeds service.FeedService,
    follows service.FollowService,
    users service.UserService,
) *Handler {
    return &Handler{
        posts:      posts,
        timelines:  timelines,
        engagement: engagement,
        feeds:      feeds,
        follows:    follows,
        users:      users,
    }
}

// actorID 取鉴权中间件放进来的操作者 id；匿名读路径返回空串
func actorID(c *gin.Context) string {
    return middleware.ActorID(c)
}

// requireActor 写路径必须有操作者，匿名直接 401
func requireActor(c *gin.Context) (string, bool) {
    id := middleware.ActorID(c)
    if id == "" {
        response.Unauthorized(c, "authentication required")
        return "", false
    }
    return id, true
}

// pageParams 统一解析分页参数
func pageParams(c *gin.Context) (int, int) {
    page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
    pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
    return page, pageSize
}
