package controller

import (
	"learnhub_backend/internal/service"
	"learnhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	QuizService *service.QuizService
}

func NewQuizController(quizService *service.QuizService) *QuizController {
	return &QuizController{QuizService: quizService}
}

type UpsertQuizRequest struct {
	Title     string                  `json:"title"`
	Questions []service.QuestionInput `json:"questions" binding:"required"`
}

type SubmitQuizRequest struct {
	Answers []string `json:"answers"`
}

// quizPath 解析 :courseId/:levelId/:moduleId
func quizPath(ctx *gin.Context) (courseID, levelID, moduleID uint, ok bool) {
	if courseID, ok = paramID(ctx, "courseId"); !ok {
		return
	}
	if levelID, ok = paramID(ctx, "levelId"); !ok {
		return
	}
	moduleID, ok = paramID(ctx, "moduleId")
	return
}

// GetQuiz godoc
// @Summary 获取测验
// @Description 学生获取的题目不含正确答案
// @Tags 测验
// @Produce  json
// @Security ApiKeyAuth
// @Param courseId path int true "课程ID"
// @Param levelId path int true "关卡ID"
// @Param moduleId path int true "模块ID"
// @Success 200 {object} util.Response{data=model.Quiz}
// @Router /api/quizzes/{courseId}/{levelId}/{moduleId} [get]
func (c *QuizController) GetQuiz(ctx *gin.Context) {
	courseID, levelID, moduleID, ok := quizPath(ctx)
	if !ok {
		return
	}
	claims := util.GetUserFromContext(ctx)
	quiz, err := c.QuizService.Get(courseID, levelID, moduleID, claims.IsAdmin())
	if err != nil {
		handleError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}

// UpsertQuiz godoc
// @Summary 创建或覆盖测验
// @Tags 测验管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param courseId path int true "课程ID"
// @Param levelId path int true "关卡ID"
// @Param moduleId path int true "模块ID"
// @Param body body UpsertQuizRequest true "测验"
// @Success 200 {object} util.Response{data=model.Quiz}
// @Router /api/quizzes/{courseId}/{levelId}/{moduleId} [put]
func (c *QuizController) UpsertQuiz(ctx *gin.Context) {
	courseID, levelID, moduleID, ok := quizPath(ctx)
	if !ok {
		return
	}
	var req UpsertQuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	quiz, err := c.QuizService.Upsert(courseID, levelID, moduleID, req.Title, req.Questions)
	if err != nil {
		handleError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}

// DeleteQuiz godoc
// @Summary 删除测验
// @Tags 测验管理
// @Produce  json
// @Security ApiKeyAuth
// @Param courseId path int true "课程ID"
// @Param levelId path int true "关卡ID"
// @Param moduleId path int true "模块ID"
// @Success 200 {object} util.Response
// @Router /api/quizzes/{courseId}/{levelId}/{moduleId} [delete]
func (c *QuizController) DeleteQuiz(ctx *gin.Context) {
	courseID, levelID, moduleID, ok := quizPath(ctx)
	if !ok {
		return
	}
	if err := c.QuizService.Delete(courseID, levelID, moduleID); err != nil {
		handleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// SubmitQuiz godoc
// @Summary 提交测验
// @Description 未通过时 24 小时内不能重考，返回 429 及可重考时间
// @Tags 测验
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param courseId path int true "课程ID"
// @Param levelId path int true "关卡ID"
// @Param moduleId path int true "模块ID"
// @Param body body SubmitQuizRequest true "答案，按题目顺序"
// @Success 200 {object} util.Response{data=service.QuizResult}
// @Failure 403 {object} util.Response "模块未解锁"
// @Failure 429 {object} util.Response{data=object} "冷却中"
// @Router /api/quizzes/{courseId}/{levelId}/{moduleId}/submit [post]
func (c *QuizController) SubmitQuiz(ctx *gin.Context) {
	courseID, levelID, moduleID, ok := quizPath(ctx)
	if !ok {
		return
	}
	var req SubmitQuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	claims := util.GetUserFromContext(ctx)
	result, err := c.QuizService.Submit(claims.UserID, courseID, levelID, moduleID, req.Answers)
	if err != nil {
		handleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}
