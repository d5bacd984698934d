package handler

import (
    "github.com/gin-gonic/gin"

    "github.com/d60-Lab/feedgraph/internal/model"
    "github.com/d60-Lab/feedgraph/pkg/response"
)

type timelineRefRequest struct {
    Kind    model.TimelineKind `json:"kind" binding:"required,timelinekind"`
    OwnerID string             `json:"owner_id"`
}

func (r timelineRefRequest) ref() model.TimelineRef {
    return model.TimelineRef{Kind: r.Kind, OwnerID: r.OwnerID}
}

type registerOwnerRequest struct {
    Kind        model.TimelineKind `json:"kind" binding:"required,timelinekind"`
    DisplayName string             `json:"display_name"`
}

// AddToTimeline 把已发布的帖子挂到一条时间线（幂等）
// @Summary 帖子挂入时间线
// @Tags 时间线
// @Accept json
// @Produce json
// @Param post_id path string true "帖子ID"
// @Param request body timelineRefRequest true "目标时间线"
// @Success 200 {object} response.Response{data=model.TimelineEntry}
// @Failure 403 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /api/v1/posts/{post_id}/timelines [post]
// @Security BearerAuth
func (h *Handler) AddToTimeline(c *gin.Context) {
    actor, ok := requireActor(c)
    if !ok {
        return
    }
    var req timelineRefRequest
    if err := c.ShouldBindJSON(&req); err != nil {
        response.BadRequest(c, err.Error())
        return
    }
    entry, err := h.timelines.AddToTimeline(c.Request.Context(), c.Param("post_id"), req.ref(), actor)
    if err != nil {
        response.Error(c, err)
        return
    }
    response.Success(c, entry)
}

// RemoveFromTimeline 把帖子从一条时间线摘除（幂等）
// @Summary 帖子移出时间线
// @Tags 时间线
// @Param post_id path string true "帖子ID"
// @Param kind query string true "时间线类型"
// @Param owner_id query string false "属主ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /api/v1/posts/{post_id}/timelines [delete]
// @Security BearerAuth
func (h *Handler) RemoveFromTimeline(c *gin.Context) {
    actor, ok := requireActor(c)
    if !ok {
        return
    }
    ref := model.TimelineRef{Kind: model.TimelineKind(c.Query("kind")), OwnerID: c.Query("owner_id")}
    if err := h.timelines.RemoveFromTimeline(c.Request.Context(), c.Param("post_id"), ref, actor); err != nil {
        response.Error(c, err)
        return
    }
    response.Success(c, nil)
}

// PinPost 在自有时间线置顶
// @Summary 置顶
// @Tags 时间线
// @Accept json
// @Produce json
// @Param post_id path string true "帖子ID"
// @Param request body timelineRefRequest true "目标时间线"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /api/v1/posts/{post_id}/pin [post]
// @Security BearerAuth
func (h *Handler) PinPost(c *gin.Context) {
    h.setPin(c, true)
}

// UnpinPost 取消置顶
// @Summary 取消置顶
// @Tags 时间线
// @Accept json
// @Produce json
// @Param post_id path string true "帖子ID"
// @Param request body timelineRefRequest true "目标时间线"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /api/v1/posts/{post_id}/unpin [post]
// @Security BearerAuth
func (h *Handler) UnpinPost(c *gin.Context) {
    h.setPin(c, false)
}

func (h *Handler) setPin(c *gin.Context, pinned bool) {
    actor, ok := requireActor(c)
    if !ok {
        return
    }
    var req timelineRefRequest
    if err := c.ShouldBindJSON(&req); err != nil {
        response.BadRequest(c, err.Error())
        return
    }
    if err := h.timelines.SetPin(c.Request.Context(), c.Param("post_id"), req.ref(), actor, pinned); err != nil {
        response.Error(c, err)
        return
    }
    response.Success(c, nil)
}

// ListPostTimelines 查询帖子挂在哪些时间线上
// @Summary 帖子的时间线分布
// @Tags 时间线
// @Param post_id path string true "帖子ID"
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/posts/{post_id}/timelines [get]
func (h *Handler) ListPostTimelines(c *gin.Context) {
    entries, err := h.timelines.ListEntriesForPost(c.Request.Context(), c.Param("post_id"))
    if err != nil {
        response.InternalError(c, err)
        return
    }
    response.Success(c, gin.H{"list": entries})
}

// RegisterOwner 登记时间线属主（personal 即本人，entity 发新ID）
// @Summary 登记时间线属主
// @Tags 时间线
// @Accept json
// @Produce json
// @Param request body registerOwnerRequest true "属主信息"
// @Success 201 {object} response.Response{data=model.TimelineOwner}
// @Failure 409 {object} response.Response
// @Router /api/v1/owners [post]
// @Security BearerAuth
func (h *Handler) RegisterOwner(c *gin.Context) {
    actor, ok := requireActor(c)
    if !ok {
        return
    }
    var req registerOwnerRequest
    if err := c.ShouldBindJSON(&req); err != nil {
        response.BadRequest(c, err.Error())
        return
    }
    owner, err := h.timelines.RegisterOwner(c.Request.Context(), req.Kind, req.DisplayName, actor)
    if err != nil {
        response.Error(c, err)
        return
    }
    response.Created(c, owner)
}

// RemoveOwner 注销属主并级联清掉其时间线条目
// @Summary 注销时间线属主
// @Tags 时间线
// @Param kind path string true "时间线类型"
// @Param owner_id path string true "属主ID"
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 403 {object} response.Response
// @Router /api/v1/owners/{kind}/{owner_id} [delete]
// @Security BearerAuth
func (h *Handler) RemoveOwner(c *gin.Context) {
    actor, ok := requireActor(c)
    if !ok {
        return
    }
    purged, err := h.timelines.RemoveOwner(c.Request.Context(), model.TimelineKind(c.Param("kind")), c.Param("owner_id"), actor)
    if err != nil {
        response.Error(c, err)
        return
    }
    response.Success(c, gin.H{"purged_entries": purged})
}

// GetOwner 查询属主
// @Summary 查询时间线属主
// @Tags 时间线
// @Param kind path string true "时间线类型"
// @Param owner_id path string true "属主ID"
// @Success 200 {object} response.Response{data=model.TimelineOwner}
// @Failure 404 {object} response.Response
// @Router /api/v1/owners/{kind}/{owner_id} [get]
func (h *Handler) GetOwner(c *gin.Context) {
    owner, err := h.timelines.GetOwner(c.Request.Context(), model.TimelineKind(c.Param("kind")), c.Param("owner_id"))
    if err != nil {
        response.Error(c, err)
        return
    }
    response.Success(c, owner)
}

// ListMyOwners 当前用户控制的全部属主
// @Summary 我的时间线属主
// @Tags 时间线
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/owners [get]
// @Security BearerAuth
func (h *Handler) ListMyOwners(c *gin.Context) {
    actor, ok := requireActor(c)
    if !ok {
        return
    }
    owners, err := h.timelines.ListOwnedBy(c.Request.Context(), actor)
    if err != nil {
        response.InternalError(c, err)
        return
    }
    response.Success(c, gin.H{"list": owners})
}
