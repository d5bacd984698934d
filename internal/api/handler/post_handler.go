package handler

import (
    "github.com/gin-gonic/gin"

    "github.com/d60-Lab/feedgraph/internal/model"
    "github.com/d60-Lab/feedgraph/pkg/response"
)

type postContentRequest struct {
    Title     string         `json:"title"`
    Body      string         `json:"body" binding:"required"`
    MediaRefs []string       `json:"media_refs"`
    Tags      []string       `json:"tags"`
    Metadata  map[string]any `json:"metadata"`
}

func (r postContentRequest) content() model.PostContent {
    return model.PostContent{
        Title:     r.Title,
        Body:      r.Body,
        MediaRefs: r.MediaRefs,
        Tags:      r.Tags,
        Metadata:  r.Metadata,
    }
}

type publishRequest struct {
    Visibility model.Visibility `json:"visibility" binding:"required,visibility"`
}

// CreatePost 新建草稿（限流窗口在同一事务内裁决）
// @Summary 创建草稿
// @Tags 帖子
// @Accept json
// @Produce json
// @Param request body postContentRequest true "内容"
// @Success 201 {object} response.Response{data=model.Post}
// @Failure 400 {object} response.Response
// @Failure 429 {object} response.Response
// @Router /api/v1/posts [post]
// @Security BearerAuth
func (h *Handler) CreatePost(c *gin.Context) {
    actor, ok := requireActor(c)
    if !ok {
        return
    }
    var req postContentRequest
    if err := c.ShouldBindJSON(&req); err != nil {
        response.BadRequest(c, err.Error())
        return
    }
    post, err := h.posts.CreateDraft(c.Request.Context(), actor, req.content())
    if err != nil {
        response.Error(c, err)
        return
    }
    response.Created(c, post)
}

// PublishPost 发布草稿；public 帖同事务写公共时间线
// @Summary 发布帖子
// @Tags 帖子
// @Accept json
// @Produce json
// @Param post_id path string true "帖子ID"
// @Param request body publishRequest true "可见性"
// @Success 200 {object} response.Response{data=model.Post}
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/posts/{post_id}/publish [post]
// @Security BearerAuth
func (h *Handler) PublishPost(c *gin.Context) {
    actor, ok := requireActor(c)
    if !ok {
        return
    }
    var req publishRequest
    if err := c.ShouldBindJSON(&req); err != nil {
        response.BadRequest(c, err.Error())
        return
    }
    post, err := h.posts.Publish(c.Request.Context(), c.Param("post_id"), actor, req.Visibility)
    if err != nil {
        response.Error(c, err)
        return
    }
    response.Success(c, post)
}

// EditPost 编辑已有帖子（不触碰时间线与计数）
// @Summary 编辑帖子
// @Tags 帖子
// @Accept json
// @Produce json
// @Param post_id path string true "帖子ID"
// @Param request body postContentRequest true "内容"
// @Success 200 {object} response.Response{data=model.Post}
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{post_id} [put]
// @Security BearerAuth
func (h *Handler) EditPost(c *gin.Context) {
    actor, ok := requireActor(c)
    if !ok {
        return
    }
    var req postContentRequest
    if err := c.ShouldBindJSON(&req); err != nil {
        response.BadRequest(c, err.Error())
        return
    }
    post, err := h.posts.Edit(c.Request.Context(), c.Param("post_id"), actor, req.content())
    if err != nil {
        response.Error(c, err)
        return
    }
    response.Success(c, post)
}

// DeletePost 软删除；行保留，所有读路径立即不可见
// @Summary 删除帖子
// @Tags 帖子
// @Param post_id path string true "帖子ID"
// @Param reason query string false "删除原因"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /api/v1/posts/{post_id} [delete]
// @Security BearerAuth
func (h *Handler) DeletePost(c *gin.Context) {
    actor, ok := requireActor(c)
    if !ok {
        return
    }
    if err := h.posts.SoftDelete(c.Request.Context(), c.Param("post_id"), actor, c.Query("reason")); err != nil {
        response.Error(c, err)
        return
    }
    response.Success(c, nil)
}

// GetPost 读单帖；可见性不满足时按不存在处理
// @Summary 查询帖子
// @Tags 帖子
// @Param post_id path string true "帖子ID"
// @Success 200 {object} response.Response{data=model.Post}
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{post_id} [get]
func (h *Handler) GetPost(c *gin.Context) {
    post, err := h.posts.Get(c.Request.Context(), c.Param("post_id"), actorID(c))
    if err != nil {
        response.Error(c, err)
        return
    }
    response.Success(c, post)
}

// ListMyPosts 当前用户的全部帖子（含草稿与已删）
// @Summary 我的帖子
// @Tags 帖子
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/posts [get]
// @Security BearerAuth
func (h *Handler) ListMyPosts(c *gin.Context) {
    actor, ok := requireActor(c)
    if !ok {
        return
    }
    page, pageSize := pageParams(c)
    list, err := h.posts.ListMine(c.Request.Context(), actor, page, pageSize)
    if err != nil {
        response.InternalError(c, err)
        return
    }
    response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": list})
}
