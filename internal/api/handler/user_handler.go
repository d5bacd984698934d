package handler

import (
    "github.com/gin-gonic/gin"

    "github.com/d60-Lab/feedgraph/pkg/response"
)

type profileRequest struct {
    Username    string `json:"username" binding:"required"`
    DisplayName string `json:"display_name"`
    AvatarURL   string `json:"avatar_url"`
    Bio         string `json:"bio"`
}

// UpsertProfile 创建或更新当前用户资料快照
// @Summary 维护用户资料
// @Tags 用户
// @Accept json
// @Produce json
// @Param request body profileRequest true "资料"
// @Success 200 {object} response.Response{data=model.User}
// @Failure 400 {object} response.Response
// @Router /api/v1/users/me [post]
// @Security BearerAuth
func (h *Handler) UpsertProfile(c *gin.Context) {
    actor, ok := requireActor(c)
    if !ok {
        return
    }
    var req profileRequest
    if err := c.ShouldBindJSON(&req); err != nil {
        response.BadRequest(c, err.Error())
        return
    }
    user, err := h.users.UpsertProfile(c.Request.Context(), actor, req.Username, req.DisplayName, req.AvatarURL, req.Bio)
    if err != nil {
        response.Error(c, err)
        return
    }
    response.Success(c, user)
}

// GetUser 查询用户资料
// @Summary 查询用户资料
// @Tags 用户
// @Param user_id path string true "用户ID"
// @Success 200 {object} response.Response{data=model.User}
// @Failure 404 {object} response.Response
// @Router /api/v1/users/{user_id} [get]
func (h *Handler) GetUser(c *gin.Context) {
    user, err := h.users.Get(c.Request.Context(), c.Param("user_id"))
    if err != nil {
        response.Error(c, err)
        return
    }
    response.Success(c, user)
}
