package controller

import (
	"learnhub_backend/internal/service"
	"learnhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// MessageController 公告留言板
type MessageController struct {
	MessageService *service.MessageService
	Hub            *service.MessageHub
}

func NewMessageController(messageService *service.MessageService, hub *service.MessageHub) *MessageController {
	return &MessageController{MessageService: messageService, Hub: hub}
}

type MessageRequest struct {
	Content string `json:"content" binding:"required,max=5000"`
}

type ReactionRequest struct {
	Emoji string `json:"emoji" binding:"required,max=32"`
}

// ListMessages godoc
// @Summary 留言列表
// @Description 按时间倒序，包含回复与表情
// @Tags 留言板
// @Produce  json
// @Security ApiKeyAuth
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/messages [get]
func (c *MessageController) ListMessages(ctx *gin.Context) {
	page, limit := util.Pagination(ctx)
	items, total, err := c.MessageService.List(page, limit)
	if err != nil {
		handleError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: items, Total: total, Page: page, Limit: limit})
}

// CreateMessage godoc
// @Summary 发布公告
// @Tags 留言板
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param body body MessageRequest true "内容"
// @Success 201 {object} util.Response{data=service.MessageView}
// @Router /api/messages [post]
func (c *MessageController) CreateMessage(ctx *gin.Context) {
	var req MessageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	claims := util.GetUserFromContext(ctx)
	msg, err := c.MessageService.Create(claims.UserID, req.Content)
	if err != nil {
		handleError(ctx, err)
		return
	}
	util.Created(ctx, msg)
}

// DeleteMessage godoc
// @Summary 删除留言
// @Description 管理员或发送者
// @Tags 留言板
// @Produce  json
// @Security ApiKeyAuth
// @Param id path string true "留言ID"
// @Success 200 {object} util.Response
// @Router /api/messages/{id} [delete]
func (c *MessageController) DeleteMessage(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if err := c.MessageService.Delete(claims, ctx.Param("id")); err != nil {
		handleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// Reply godoc
// @Summary 回复留言
// @Tags 留言板
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param id path string true "留言ID"
// @Param body body MessageRequest true "内容"
// @Success 201 {object} util.Response{data=model.MessageReply}
// @Router /api/messages/{id}/replies [post]
func (c *MessageController) Reply(ctx *gin.Context) {
	var req MessageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	claims := util.GetUserFromContext(ctx)
	reply, err := c.MessageService.Reply(claims.UserID, ctx.Param("id"), req.Content)
	if err != nil {
		handleError(ctx, err)
		return
	}
	util.Created(ctx, reply)
}

// DeleteReply godoc
// @Summary 删除回复
// @Description 管理员或回复作者
// @Tags 留言板
// @Produce  json
// @Security ApiKeyAuth
// @Param id path string true "留言ID"
// @Param replyId path string true "回复ID"
// @Success 200 {object} util.Response
// @Router /api/messages/{id}/replies/{replyId} [delete]
func (c *MessageController) DeleteReply(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if err := c.MessageService.DeleteReply(claims, ctx.Param("id"), ctx.Param("replyId")); err != nil {
		handleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// ToggleReaction godoc
// @Summary 添加/取消表情
// @Tags 留言板
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param id path string true "留言ID"
// @Param body body ReactionRequest true "表情"
// @Success 200 {object} util.Response{data=service.ReactionState}
// @Router /api/messages/{id}/reactions [post]
func (c *MessageController) ToggleReaction(ctx *gin.Context) {
	var req ReactionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	claims := util.GetUserFromContext(ctx)
	state, err := c.MessageService.ToggleReaction(claims.UserID, ctx.Param("id"), req.Emoji)
	if err != nil {
		handleError(ctx, err)
		return
	}
	util.Success(ctx, state)
}

// Connect godoc
// @Summary 留言板实时推送
// @Description WebSocket，浏览器通过 ?token= 传递 JWT
// @Tags 留言板
// @Param token query string false "JWT"
// @Router /api/messages/ws [get]
func (c *MessageController) Connect(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	service.ServeWs(c.Hub, ctx.Writer, ctx.Request, claims.UserID)
}
