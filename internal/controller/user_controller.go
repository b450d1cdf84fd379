package controller

import (
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/service"
	"learnhub_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

// UserController 管理员用户管理
type UserController struct {
	UserService *service.UserService
}

func NewUserController(userService *service.UserService) *UserController {
	return &UserController{UserService: userService}
}

type ApprovalRequest struct {
	Approved *bool `json:"approved" binding:"required"`
}

type RoleRequest struct {
	Role model.UserRole `json:"role" binding:"required,oneof=student admin"`
}

// ListUsers godoc
// @Summary 用户列表
// @Tags 用户管理
// @Produce  json
// @Security ApiKeyAuth
// @Param role query string false "角色 student/admin"
// @Param approved query bool false "审批状态"
// @Param search query string false "姓名或邮箱"
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/users [get]
func (c *UserController) ListUsers(ctx *gin.Context) {
	page, limit := util.Pagination(ctx)
	filter := repository.UserFilter{
		Role:   model.UserRole(ctx.Query("role")),
		Search: ctx.Query("search"),
	}
	if v := ctx.Query("approved"); v != "" {
		approved, err := strconv.ParseBool(v)
		if err != nil {
			util.BadRequest(ctx, "invalid approved")
			return
		}
		filter.Approved = &approved
	}

	users, total, err := c.UserService.List(filter, page, limit)
	if err != nil {
		handleError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: users, Total: total, Page: page, Limit: limit})
}

// SetApproval godoc
// @Summary 审批学生账号
// @Description 审批通过时发送通知邮件
// @Tags 用户管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param id path int true "用户ID"
// @Param body body ApprovalRequest true "审批状态"
// @Success 200 {object} util.Response{data=model.User}
// @Router /api/users/{id}/approval [patch]
func (c *UserController) SetApproval(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var req ApprovalRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user, err := c.UserService.SetApproval(ctx.Request.Context(), id, *req.Approved)
	if err != nil {
		handleError(ctx, err)
		return
	}
	util.Success(ctx, user)
}

// SetRole godoc
// @Summary 修改用户角色
// @Tags 用户管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param id path int true "用户ID"
// @Param body body RoleRequest true "角色"
// @Success 200 {object} util.Response{data=model.User}
// @Failure 400 {object} util.Response "不能降级自己"
// @Router /api/users/{id}/role [patch]
func (c *UserController) SetRole(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var req RoleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	user, err := c.UserService.SetRole(claims.UserID, id, req.Role)
	if err != nil {
		handleError(ctx, err)
		return
	}
	util.Success(ctx, user)
}

// DeleteUser godoc
// @Summary 删除用户及其学习进度
// @Tags 用户管理
// @Produce  json
// @Security ApiKeyAuth
// @Param id path int true "用户ID"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response "不能删除自己"
// @Router /api/users/{id} [delete]
func (c *UserController) DeleteUser(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}

	claims := util.GetUserFromContext(ctx)
	if err := c.UserService.Delete(claims.UserID, id); err != nil {
		handleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
