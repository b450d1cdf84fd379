package controller

import (
	"learnhub_backend/internal/service"
	"learnhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// ProgressController 学习进度
type ProgressController struct {
	ProgressService *service.ProgressService
}

func NewProgressController(progressService *service.ProgressService) *ProgressController {
	return &ProgressController{ProgressService: progressService}
}

type WatchRequest struct {
	Seconds int `json:"seconds" binding:"min=0"`
}

// Enroll godoc
// @Summary 报名课程
// @Tags 学习进度
// @Produce  json
// @Security ApiKeyAuth
// @Param courseId path int true "课程ID"
// @Success 201 {object} util.Response{data=service.ProgressView}
// @Failure 404 {object} util.Response "课程不存在或未发布"
// @Failure 409 {object} util.Response "已报名"
// @Router /api/progress/enroll/{courseId} [post]
func (c *ProgressController) Enroll(ctx *gin.Context) {
	courseID, ok := paramID(ctx, "courseId")
	if !ok {
		return
	}
	claims := util.GetUserFromContext(ctx)
	view, err := c.ProgressService.Enroll(claims.UserID, courseID)
	if err != nil {
		handleError(ctx, err)
		return
	}
	util.Created(ctx, view)
}

// ListMine godoc
// @Summary 我的课程进度
// @Tags 学习进度
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]service.ProgressSummary}
// @Router /api/progress [get]
func (c *ProgressController) ListMine(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	items, err := c.ProgressService.ListMine(claims.UserID)
	if err != nil {
		handleError(ctx, err)
		return
	}
	util.Success(ctx, items)
}

// GetProgress godoc
// @Summary 课程进度详情
// @Description 包含每个模块的解锁状态
// @Tags 学习进度
// @Produce  json
// @Security ApiKeyAuth
// @Param courseId path int true "课程ID"
// @Success 200 {object} util.Response{data=service.ProgressView}
// @Router /api/progress/{courseId} [get]
func (c *ProgressController) GetProgress(ctx *gin.Context) {
	courseID, ok := paramID(ctx, "courseId")
	if !ok {
		return
	}
	claims := util.GetUserFromContext(ctx)
	view, err := c.ProgressService.Get(claims.UserID, courseID)
	if err != nil {
		handleError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// Unenroll godoc
// @Summary 退出课程
// @Tags 学习进度
// @Produce  json
// @Security ApiKeyAuth
// @Param courseId path int true "课程ID"
// @Success 200 {object} util.Response
// @Router /api/progress/{courseId} [delete]
func (c *ProgressController) Unenroll(ctx *gin.Context) {
	courseID, ok := paramID(ctx, "courseId")
	if !ok {
		return
	}
	claims := util.GetUserFromContext(ctx)
	if err := c.ProgressService.Unenroll(claims.UserID, courseID); err != nil {
		handleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// CompleteModule godoc
// @Summary 完成模块
// @Description 测验模块需通过测验完成；视频资源需达到观看比例
// @Tags 学习进度
// @Produce  json
// @Security ApiKeyAuth
// @Param courseId path int true "课程ID"
// @Param moduleId path int true "模块ID"
// @Success 200 {object} util.Response{data=service.ProgressView}
// @Failure 403 {object} util.Response "模块未解锁"
// @Router /api/progress/{courseId}/modules/{moduleId}/complete [post]
func (c *ProgressController) CompleteModule(ctx *gin.Context) {
	courseID, ok := paramID(ctx, "courseId")
	if !ok {
		return
	}
	moduleID, ok := paramID(ctx, "moduleId")
	if !ok {
		return
	}
	claims := util.GetUserFromContext(ctx)
	view, err := c.ProgressService.CompleteModule(claims.UserID, courseID, moduleID)
	if err != nil {
		handleError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// RecordWatch godoc
// @Summary 上报视频观看时长
// @Tags 学习进度
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param courseId path int true "课程ID"
// @Param moduleId path int true "模块ID"
// @Param body body WatchRequest true "已观看秒数"
// @Success 200 {object} util.Response{data=service.ModuleProgressView}
// @Router /api/progress/{courseId}/modules/{moduleId}/watch [post]
func (c *ProgressController) RecordWatch(ctx *gin.Context) {
	courseID, ok := paramID(ctx, "courseId")
	if !ok {
		return
	}
	moduleID, ok := paramID(ctx, "moduleId")
	if !ok {
		return
	}
	var req WatchRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	claims := util.GetUserFromContext(ctx)
	view, err := c.ProgressService.RecordWatch(claims.UserID, courseID, moduleID, req.Seconds)
	if err != nil {
		handleError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// ListForCourse godoc
// @Summary 课程学生进度列表
// @Tags 学习进度管理
// @Produce  json
// @Security ApiKeyAuth
// @Param courseId path int true "课程ID"
// @Success 200 {object} util.Response{data=[]service.ProgressSummary}
// @Router /api/admin/progress/{courseId} [get]
func (c *ProgressController) ListForCourse(ctx *gin.Context) {
	courseID, ok := paramID(ctx, "courseId")
	if !ok {
		return
	}
	items, err := c.ProgressService.ListForCourse(courseID)
	if err != nil {
		handleError(ctx, err)
		return
	}
	util.Success(ctx, items)
}

// GetForStudent godoc
// @Summary 查看学生课程进度
// @Tags 学习进度管理
// @Produce  json
// @Security ApiKeyAuth
// @Param courseId path int true "课程ID"
// @Param studentId path int true "学生ID"
// @Success 200 {object} util.Response{data=service.ProgressView}
// @Router /api/admin/progress/{courseId}/{studentId} [get]
func (c *ProgressController) GetForStudent(ctx *gin.Context) {
	courseID, ok := paramID(ctx, "courseId")
	if !ok {
		return
	}
	studentID, ok := paramID(ctx, "studentId")
	if !ok {
		return
	}
	view, err := c.ProgressService.GetForStudent(courseID, studentID)
	if err != nil {
		handleError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// Reset godoc
// @Summary 重置学生课程进度
// @Tags 学习进度管理
// @Produce  json
// @Security ApiKeyAuth
// @Param courseId path int true "课程ID"
// @Param studentId path int true "学生ID"
// @Success 200 {object} util.Response{data=service.ProgressView}
// @Router /api/admin/progress/{courseId}/{studentId} [delete]
func (c *ProgressController) Reset(ctx *gin.Context) {
	courseID, ok := paramID(ctx, "courseId")
	if !ok {
		return
	}
	studentID, ok := paramID(ctx, "studentId")
	if !ok {
		return
	}
	view, err := c.ProgressService.Reset(courseID, studentID)
	if err != nil {
		handleError(ctx, err)
		return
	}
	util.Success(ctx, view)
}
