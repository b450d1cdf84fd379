package controller

import (
	"learnhub_backend/internal/service"
	"learnhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// CourseController 课程树的查询与编辑
type CourseController struct {
	CourseService *service.CourseService
}

func NewCourseController(courseService *service.CourseService) *CourseController {
	return &CourseController{CourseService: courseService}
}

type PublishRequest struct {
	IsPublished *bool `json:"isPublished" binding:"required"`
}

// ReorderRequest orderedIds 必须是当前子项的一个排列
type ReorderRequest struct {
	OrderedIDs []uint `json:"orderedIds" binding:"required"`
}

type ReorderLevelsRequest struct {
	SubCourseID *uint  `json:"subCourseId"`
	OrderedIDs  []uint `json:"orderedIds" binding:"required"`
}

type ReorderModulesRequest struct {
	LevelID    uint   `json:"levelId" binding:"required"`
	OrderedIDs []uint `json:"orderedIds" binding:"required"`
}

type MoveLevelRequest struct {
	LevelID           uint  `json:"levelId" binding:"required"`
	TargetSubCourseID *uint `json:"targetSubCourseId"`
	Index             int   `json:"index"`
}

type MoveModuleRequest struct {
	ModuleID      uint `json:"moduleId" binding:"required"`
	TargetLevelID uint `json:"targetLevelId" binding:"required"`
	Index         int  `json:"index"`
}

func forceParam(ctx *gin.Context) bool {
	return ctx.Query("force") == "true"
}

// ListCourses godoc
// @Summary 课程列表
// @Description 学生仅返回已发布课程，管理员返回全部
// @Tags 课程
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]repository.CourseSummary}
// @Router /api/courses [get]
func (c *CourseController) ListCourses(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	courses, err := c.CourseService.List(claims.IsAdmin())
	if err != nil {
		handleError(ctx, err)
		return
	}
	util.Success(ctx, courses)
}

// GetCourse godoc
// @Summary 课程树
// @Tags 课程
// @Produce  json
// @Security ApiKeyAuth
// @Param id path int true "课程ID"
// @Success 200 {object} util.Response{data=model.Course}
// @Failure 404 {object} util.Response "课程不存在或未发布"
// @Router /api/courses/{id} [get]
func (c *CourseController) GetCourse(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	claims := util.GetUserFromContext(ctx)
	course, err := c.CourseService.GetTree(ctx.Request.Context(), id, claims.IsAdmin())
	if err != nil {
		handleError(ctx, err)
		return
	}
	util.Success(ctx, course)
}

// CreateCourse godoc
// @Summary 创建课程
// @Tags 课程管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param body body service.CourseInput true "课程信息"
// @Success 201 {object} util.Response{data=model.Course}
// @Router /api/courses [post]
func (c *CourseController) CreateCourse(ctx *gin.Context) {
	var req service.CourseInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	claims := util.GetUserFromContext(ctx)
	course, err := c.CourseService.CreateCourse(claims.UserID, req)
	if err != nil {
		handleError(ctx, err)
		return
	}
	util.Created(ctx, course)
}

// UpdateCourse godoc
// @Summary 更新课程
// @Tags 课程管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param id path int true "课程ID"
// @Param body body service.CourseInput true "课程信息"
// @Success 200 {object} util.Response{data=model.Course}
// @Router /api/courses/{id} [put]
func (c *CourseController) UpdateCourse(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var req service.CourseInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	course, err := c.CourseService.UpdateCourse(ctx.Request.Context(), id, req)
	if err != nil {
		handleError(ctx, err)
		return
	}
	util.Success(ctx, course)
}

// SetPublished godoc
// @Summary 发布/下架课程
// @Tags 课程管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param id path int true "课程ID"
// @Param body body PublishRequest true "发布状态"
// @Success 200 {object} util.Response{data=model.Course}
// @Router /api/courses/{id}/publish [patch]
func (c *CourseController) SetPublished(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var req PublishRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	course, err := c.CourseService.SetPublished(ctx.Request.Context(), id, *req.IsPublished)
	if err != nil {
		handleError(ctx, err)
		return
	}
	util.Success(ctx, course)
}

// DeleteCourse godoc
// @Summary 删除课程
// @Description 级联删除子课程、关卡、模块、测验和学生进度
// @Tags 课程管理
// @Produce  json
// @Security ApiKeyAuth
// @Param id path int true "课程ID"
// @Success 200 {object} util.Response
// @Router /api/courses/{id} [delete]
func (c *CourseController) DeleteCourse(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	if err := c.CourseService.DeleteCourse(ctx.Request.Context(), id); err != nil {
		handleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// SyncProgress godoc
// @Summary 同步课程进度
// @Description 将所有学生进度对齐到当前课程结构
// @Tags 课程管理
// @Produce  json
// @Security ApiKeyAuth
// @Param id path int true "课程ID"
// @Success 200 {object} util.Response{data=object}
// @Router /api/courses/{id}/sync [post]
func (c *CourseController) SyncProgress(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	n, err := c.CourseService.SyncProgress(id)
	if err != nil {
		handleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"synced": n})
}

// AddSubCourse godoc
// @Summary 添加子课程
// @Tags 课程管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param id path int true "课程ID"
// @Param body body service.SubCourseInput true "子课程"
// @Success 201 {object} util.Response{data=model.SubCourse}
// @Router /api/courses/{id}/sub-courses [post]
func (c *CourseController) AddSubCourse(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var req service.SubCourseInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	sc, err := c.CourseService.AddSubCourse(ctx.Request.Context(), id, req)
	if err != nil {
		handleError(ctx, err)
		return
	}
	util.Created(ctx, sc)
}

// UpdateSubCourse godoc
// @Summary 更新子课程
// @Tags 课程管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param id path int true "课程ID"
// @Param subId path int true "子课程ID"
// @Param body body service.SubCourseInput true "子课程"
// @Success 200 {object} util.Response{data=model.SubCourse}
// @Router /api/courses/{id}/sub-courses/{subId} [put]
func (c *CourseController) UpdateSubCourse(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	subID, ok := paramID(ctx, "subId")
	if !ok {
		return
	}
	var req service.SubCourseInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	sc, err := c.CourseService.UpdateSubCourse(ctx.Request.Context(), id, subID, req)
	if err != nil {
		handleError(ctx, err)
		return
	}
	util.Success(ctx, sc)
}

// DeleteSubCourse godoc
// @Summary 删除子课程
// @Description 子课程下仍有关卡时返回 409，force=true 级联删除
// @Tags 课程管理
// @Produce  json
// @Security ApiKeyAuth
// @Param id path int true "课程ID"
// @Param subId path int true "子课程ID"
// @Param force query bool false "级联删除"
// @Success 200 {object} util.Response
// @Failure 409 {object} util.Response "仍有子项"
// @Router /api/courses/{id}/sub-courses/{subId} [delete]
func (c *CourseController) DeleteSubCourse(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	subID, ok := paramID(ctx, "subId")
	if !ok {
		return
	}
	if err := c.CourseService.DeleteSubCourse(ctx.Request.Context(), id, subID, forceParam(ctx)); err != nil {
		handleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// ReorderSubCourses godoc
// @Summary 子课程排序
// @Tags 课程管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param id path int true "课程ID"
// @Param body body ReorderRequest true "新顺序"
// @Success 200 {object} util.Response{data=[]model.SubCourse}
// @Router /api/courses/{id}/sub-courses/reorder [post]
func (c *CourseController) ReorderSubCourses(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var req ReorderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	items, err := c.CourseService.ReorderSubCourses(ctx.Request.Context(), id, req.OrderedIDs)
	if err != nil {
		handleError(ctx, err)
		return
	}
	util.Success(ctx, items)
}

// AddLevel godoc
// @Summary 添加关卡
// @Description subCourseId 为空时添加到课程根部
// @Tags 课程管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param id path int true "课程ID"
// @Param body body service.LevelInput true "关卡"
// @Success 201 {object} util.Response{data=model.Level}
// @Router /api/courses/{id}/levels [post]
func (c *CourseController) AddLevel(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var req service.LevelInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	level, err := c.CourseService.AddLevel(ctx.Request.Context(), id, req)
	if err != nil {
		handleError(ctx, err)
		return
	}
	util.Created(ctx, level)
}

// UpdateLevel godoc
// @Summary 更新关卡
// @Tags 课程管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param id path int true "课程ID"
// @Param levelId path int true "关卡ID"
// @Param body body service.LevelInput true "关卡"
// @Success 200 {object} util.Response{data=model.Level}
// @Router /api/courses/{id}/levels/{levelId} [put]
func (c *CourseController) UpdateLevel(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	levelID, ok := paramID(ctx, "levelId")
	if !ok {
		return
	}
	var req service.LevelInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	level, err := c.CourseService.UpdateLevel(ctx.Request.Context(), id, levelID, req)
	if err != nil {
		handleError(ctx, err)
		return
	}
	util.Success(ctx, level)
}

// DeleteLevel godoc
// @Summary 删除关卡
// @Description 关卡下仍有模块时返回 409，force=true 级联删除
// @Tags 课程管理
// @Produce  json
// @Security ApiKeyAuth
// @Param id path int true "课程ID"
// @Param levelId path int true "关卡ID"
// @Param force query bool false "级联删除"
// @Success 200 {object} util.Response
// @Router /api/courses/{id}/levels/{levelId} [delete]
func (c *CourseController) DeleteLevel(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	levelID, ok := paramID(ctx, "levelId")
	if !ok {
		return
	}
	if err := c.CourseService.DeleteLevel(ctx.Request.Context(), id, levelID, forceParam(ctx)); err != nil {
		handleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// ReorderLevels godoc
// @Summary 关卡排序
// @Tags 课程管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param id path int true "课程ID"
// @Param body body ReorderLevelsRequest true "新顺序"
// @Success 200 {object} util.Response{data=[]model.Level}
// @Router /api/courses/{id}/levels/reorder [post]
func (c *CourseController) ReorderLevels(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var req ReorderLevelsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	items, err := c.CourseService.ReorderLevels(ctx.Request.Context(), id, req.SubCourseID, req.OrderedIDs)
	if err != nil {
		handleError(ctx, err)
		return
	}
	util.Success(ctx, items)
}

// MoveLevel godoc
// @Summary 移动关卡
// @Description 移动到目标子课程（为空表示课程根部）的指定位置
// @Tags 课程管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param id path int true "课程ID"
// @Param body body MoveLevelRequest true "目标位置"
// @Success 200 {object} util.Response{data=model.Level}
// @Router /api/courses/{id}/levels/move [post]
func (c *CourseController) MoveLevel(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var req MoveLevelRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	level, err := c.CourseService.MoveLevel(ctx.Request.Context(), id, req.LevelID, req.TargetSubCourseID, req.Index)
	if err != nil {
		handleError(ctx, err)
		return
	}
	util.Success(ctx, level)
}

// AddModule godoc
// @Summary 添加模块
// @Tags 课程管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param id path int true "课程ID"
// @Param body body service.ModuleInput true "模块"
// @Success 201 {object} util.Response{data=model.Module}
// @Router /api/courses/{id}/modules [post]
func (c *CourseController) AddModule(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var req service.ModuleInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	module, err := c.CourseService.AddModule(ctx.Request.Context(), id, req)
	if err != nil {
		handleError(ctx, err)
		return
	}
	util.Created(ctx, module)
}

// UpdateModule godoc
// @Summary 更新模块
// @Tags 课程管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param id path int true "课程ID"
// @Param moduleId path int true "模块ID"
// @Param body body service.ModuleInput true "模块"
// @Success 200 {object} util.Response{data=model.Module}
// @Router /api/courses/{id}/modules/{moduleId} [put]
func (c *CourseController) UpdateModule(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	moduleID, ok := paramID(ctx, "moduleId")
	if !ok {
		return
	}
	var req service.ModuleInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	module, err := c.CourseService.UpdateModule(ctx.Request.Context(), id, moduleID, req)
	if err != nil {
		handleError(ctx, err)
		return
	}
	util.Success(ctx, module)
}

// DeleteModule godoc
// @Summary 删除模块
// @Tags 课程管理
// @Produce  json
// @Security ApiKeyAuth
// @Param id path int true "课程ID"
// @Param moduleId path int true "模块ID"
// @Success 200 {object} util.Response
// @Router /api/courses/{id}/modules/{moduleId} [delete]
func (c *CourseController) DeleteModule(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	moduleID, ok := paramID(ctx, "moduleId")
	if !ok {
		return
	}
	if err := c.CourseService.DeleteModule(ctx.Request.Context(), id, moduleID); err != nil {
		handleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// ReorderModules godoc
// @Summary 模块排序
// @Tags 课程管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param id path int true "课程ID"
// @Param body body ReorderModulesRequest true "新顺序"
// @Success 200 {object} util.Response{data=[]model.Module}
// @Router /api/courses/{id}/modules/reorder [post]
func (c *CourseController) ReorderModules(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var req ReorderModulesRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	items, err := c.CourseService.ReorderModules(ctx.Request.Context(), id, req.LevelID, req.OrderedIDs)
	if err != nil {
		handleError(ctx, err)
		return
	}
	util.Success(ctx, items)
}

// MoveModule godoc
// @Summary 移动模块
// @Tags 课程管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param id path int true "课程ID"
// @Param body body MoveModuleRequest true "目标位置"
// @Success 200 {object} util.Response{data=model.Module}
// @Router /api/courses/{id}/modules/move [post]
func (c *CourseController) MoveModule(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var req MoveModuleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	module, err := c.CourseService.MoveModule(ctx.Request.Context(), id, req.ModuleID, req.TargetLevelID, req.Index)
	if err != nil {
		handleError(ctx, err)
		return
	}
	util.Success(ctx, module)
}
