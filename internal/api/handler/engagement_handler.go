package handler

import (
    "github.com/gin-gonic/gin"

    "github.com/d60-Lab/feedgraph/internal/model"
    "github.com/d60-Lab/feedgraph/pkg/response"
)

type commentRequest struct {
    Body     string  `json:"body" binding:"required"`
    ParentID *string `json:"parent_id"`
}

type shareRequest struct {
    Kind    model.ShareDestKind `json:"kind" binding:"required,sharedest"`
    OwnerID string              `json:"owner_id"`
}

// Like 点赞；覆盖同一用户已有的点踩
// @Summary 点赞
// @Tags 互动
// @Param post_id path string true "帖子ID"
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/posts/{post_id}/like [put]
// @Security BearerAuth
func (h *Handler) Like(c *gin.Context) {
    h.react(c, model.ReactionLike)
}

// Dislike 点踩；覆盖同一用户已有的点赞
// @Summary 点踩
// @Tags 互动
// @Param post_id path string true "帖子ID"
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{post_id}/dislike [put]
// @Security BearerAuth
func (h *Handler) Dislike(c *gin.Context) {
    h.react(c, model.ReactionDislike)
}

func (h *Handler) react(c *gin.Context, kind model.ReactionKind) {
    actor, ok := requireActor(c)
    if !ok {
        return
    }
    count, err := h.engagement.React(c.Request.Context(), c.Param("post_id"), actor, kind)
    if err != nil {
        response.Error(c, err)
        return
    }
    response.Success(c, gin.H{"kind": kind, "count": count})
}

// Unlike 取消点赞（幂等）
// @Summary 取消点赞
// @Tags 互动
// @Param post_id path string true "帖子ID"
// @Success 200 {object} response.Response
// @Router /api/v1/posts/{post_id}/like [delete]
// @Security BearerAuth
func (h *Handler) Unlike(c *gin.Context) {
    h.unreact(c, model.ReactionLike)
}

// Undislike 取消点踩（幂等）
// @Summary 取消点踩
// @Tags 互动
// @Param post_id path string true "帖子ID"
// @Success 200 {object} response.Response
// @Router /api/v1/posts/{post_id}/dislike [delete]
// @Security BearerAuth
func (h *Handler) Undislike(c *gin.Context) {
    h.unreact(c, model.ReactionDislike)
}

func (h *Handler) unreact(c *gin.Context, kind model.ReactionKind) {
    actor, ok := requireActor(c)
    if !ok {
        return
    }
    if err := h.engagement.Unreact(c.Request.Context(), c.Param("post_id"), actor, kind); err != nil {
        response.Error(c, err)
        return
    }
    response.Success(c, nil)
}

// CreateComment 评论或回复（回复只有一层，回复的回复压平到根）
// @Summary 发表评论
// @Tags 互动
// @Accept json
// @Produce json
// @Param post_id path string true "帖子ID"
// @Param request body commentRequest true "评论内容"
// @Success 201 {object} response.Response{data=map[string]interface{}}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{post_id}/comments [post]
// @Security BearerAuth
func (h *Handler) CreateComment(c *gin.Context) {
    actor, ok := requireActor(c)
    if !ok {
        return
    }
    var req commentRequest
    if err := c.ShouldBindJSON(&req); err != nil {
        response.BadRequest(c, err.Error())
        return
    }
    comment, total, err := h.engagement.Comment(c.Request.Context(), c.Param("post_id"), actor, req.Body, req.ParentID)
    if err != nil {
        response.Error(c, err)
        return
    }
    response.Created(c, gin.H{"comment": comment, "total_comments": total})
}

// ListComments 帖子评论（楼层结构，已删评论保位去正文）
// @Summary 查询评论
// @Tags 互动
// @Param post_id path string true "帖子ID"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{post_id}/comments [get]
func (h *Handler) ListComments(c *gin.Context) {
    page, pageSize := pageParams(c)
    threads, total, err := h.engagement.ListComments(c.Request.Context(), c.Param("post_id"), actorID(c), page, pageSize)
    if err != nil {
        response.Error(c, err)
        return
    }
    response.Success(c, gin.H{"page": page, "page_size": pageSize, "total_comments": total, "list": threads})
}

// DeleteComment 作者删除自己的评论（幂等）
// @Summary 删除评论
// @Tags 互动
// @Param comment_id path string true "评论ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /api/v1/comments/{comment_id} [delete]
// @Security BearerAuth
func (h *Handler) DeleteComment(c *gin.Context) {
    actor, ok := requireActor(c)
    if !ok {
        return
    }
    if err := h.engagement.DeleteComment(c.Request.Context(), c.Param("comment_id"), actor); err != nil {
        response.Error(c, err)
        return
    }
    response.Success(c, nil)
}

// SharePost 转发到另一条时间线；只记引用不复制内容
// @Summary 转发帖子
// @Tags 互动
// @Accept json
// @Produce json
// @Param post_id path string true "帖子ID"
// @Param request body shareRequest true "转发目标"
// @Success 201 {object} response.Response{data=model.Share}
// @Failure 403 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /api/v1/posts/{post_id}/shares [post]
// @Security BearerAuth
func (h *Handler) SharePost(c *gin.Context) {
    actor, ok := requireActor(c)
    if !ok {
        return
    }
    var req shareRequest
    if err := c.ShouldBindJSON(&req); err != nil {
        response.BadRequest(c, err.Error())
        return
    }
    dest := model.ShareDestination{Kind: req.Kind, OwnerID: req.OwnerID}
    share, err := h.engagement.Share(c.Request.Context(), c.Param("post_id"), actor, dest)
    if err != nil {
        response.Error(c, err)
        return
    }
    response.Created(c, share)
}

// ListShares 帖子的转发记录
// @Summary 查询转发
// @Tags 互动
// @Param post_id path string true "帖子ID"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/posts/{post_id}/shares [get]
func (h *Handler) ListShares(c *gin.Context) {
    page, pageSize := pageParams(c)
    list, total, err := h.engagement.ListShares(c.Request.Context(), c.Param("post_id"), actorID(c), page, pageSize)
    if err != nil {
        response.Error(c, err)
        return
    }
    response.Success(c, gin.H{"page": page, "page_size": pageSize, "total": total, "list": list})
}

// GetStats 帖子互动计数与热度分
// @Summary 查询互动计数
// @Tags 互动
// @Param post_id path string true "帖子ID"
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{post_id}/stats [get]
func (h *Handler) GetStats(c *gin.Context) {
    stats, err := h.engagement.Stats(c.Request.Context(), c.Param("post_id"))
    if err != nil {
        response.Error(c, err)
        return
    }
    response.Success(c, gin.H{"stats": stats, "score": stats.Score()})
}

// RecountStats 从台账重建计数缓存（运维修复口）
// @Summary 重建互动计数
// @Tags 互动
// @Param post_id path string true "帖子ID"
// @Success 200 {object} response.Response{data=model.EngagementStats}
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{post_id}/recount [post]
// @Security BearerAuth
func (h *Handler) RecountStats(c *gin.Context) {
    if _, ok := requireActor(c); !ok {
        return
    }
    stats, err := h.engagement.Recount(c.Request.Context(), c.Param("post_id"))
    if err != nil {
        response.Error(c, err)
        return
    }
    response.Success(c, stats)
}
