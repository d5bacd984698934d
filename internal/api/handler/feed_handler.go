package handler

import (
    "github.com/gin-gonic/gin"

    "github.com/d60-Lab/feedgraph/internal/model"
    "github.com/d60-Lab/feedgraph/internal/repository"
    "github.com/d60-Lab/feedgraph/pkg/response"
)

// CommunalFeed 公共发现流；sort=recent|popular|trending
// @Summary 公共时间线
// @Tags 信息流
// @Param sort query string false "排序方式" default(recent)
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 400 {object} response.Response
// @Router /api/v1/feeds/communal [get]
func (h *Handler) CommunalFeed(c *gin.Context) {
    sort := repository.FeedSort(c.DefaultQuery("sort", string(repository.FeedSortRecent)))
    if !repository.ValidFeedSort(sort) {
        response.BadRequest(c, "unknown sort "+string(sort))
        return
    }
    page, pageSize := pageParams(c)
    items, err := h.feeds.CommunalFeed(c.Request.Context(), sort, actorID(c), page, pageSize)
    if err != nil {
        response.Error(c, err)
        return
    }
    response.Success(c, gin.H{"page": page, "page_size": pageSize, "sort": sort, "list": items})
}

// TimelineFeed 读某条 personal/entity 时间线（置顶在前）
// @Summary 属主时间线
// @Tags 信息流
// @Param kind path string true "时间线类型"
// @Param owner_id path string true "属主ID"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 404 {object} response.Response
// @Router /api/v1/feeds/timelines/{kind}/{owner_id} [get]
func (h *Handler) TimelineFeed(c *gin.Context) {
    ref := model.TimelineRef{Kind: model.TimelineKind(c.Param("kind")), OwnerID: c.Param("owner_id")}
    page, pageSize := pageParams(c)
    items, err := h.feeds.TimelineFeed(c.Request.Context(), ref, actorID(c), page, pageSize)
    if err != nil {
        response.Error(c, err)
        return
    }
    response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": items})
}
