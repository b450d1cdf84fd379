package controller

import (
	"errors"
	"learnhub_backend/internal/service"
	"learnhub_backend/internal/util"
	"net/http"

	"github.com/gin-gonic/gin"
)

var errorStatus = []struct {
	err    error
	status int
}{
	{util.ErrUnauthorized, http.StatusUnauthorized},
	{util.ErrInvalidCredentials, http.StatusUnauthorized},

	{util.ErrPermissionDenied, http.StatusForbidden},
	{util.ErrNotApproved, http.StatusForbidden},
	{util.ErrModuleLocked, http.StatusForbidden},

	{util.ErrUserNotFound, http.StatusNotFound},
	{util.ErrCourseNotFound, http.StatusNotFound},
	{util.ErrCourseNotPublished, http.StatusNotFound},
	{util.ErrSubCourseNotFound, http.StatusNotFound},
	{util.ErrLevelNotFound, http.StatusNotFound},
	{util.ErrModuleNotFound, http.StatusNotFound},
	{util.ErrNotEnrolled, http.StatusNotFound},
	{util.ErrQuizNotFound, http.StatusNotFound},
	{util.ErrMessageNotFound, http.StatusNotFound},
	{util.ErrReplyNotFound, http.StatusNotFound},

	{util.ErrEmailRegistered, http.StatusConflict},
	{util.ErrAlreadyEnrolled, http.StatusConflict},
	{util.ErrHasChildren, http.StatusConflict},

	{util.ErrWrongPassword, http.StatusBadRequest},
	{util.ErrSelfModification, http.StatusBadRequest},
	{util.ErrInvalidRole, http.StatusBadRequest},
	{util.ErrInvalidOrder, http.StatusBadRequest},
	{util.ErrInvalidModuleType, http.StatusBadRequest},
	{util.ErrInvalidResourceKind, http.StatusBadRequest},
	{util.ErrQuizModule, http.StatusBadRequest},
	{util.ErrWatchIncomplete, http.StatusBadRequest},
	{util.ErrNotVideoModule, http.StatusBadRequest},
	{util.ErrNotQuizModule, http.StatusBadRequest},
	{util.ErrInvalidQuiz, http.StatusBadRequest},
	{util.ErrEmptyQuiz, http.StatusBadRequest},
	{util.ErrEmptyContent, http.StatusBadRequest},
	{util.ErrInvalidFileType, http.StatusBadRequest},
}

// handleError 将业务错误映射为 HTTP 状态码，未知错误记录日志并返回 500
func handleError(ctx *gin.Context, err error) {
	var cooldown *service.RetakeCooldownError
	if errors.As(err, &cooldown) {
		util.ErrorWithData(ctx, http.StatusTooManyRequests, util.ErrRetakeCooldown.Error(), gin.H{
			"retakeAvailableAt": cooldown.AvailableAt,
		})
		return
	}

	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			util.Error(ctx, e.status, e.err.Error())
			return
		}
	}
	util.LogInternalError(ctx, err)
}

// paramID 读取路径中的数字 ID，非法时直接返回 400
func paramID(ctx *gin.Context, name string) (uint, bool) {
	id, ok := util.ParamUint(ctx, name)
	if !ok {
		util.BadRequest(ctx, "invalid "+name)
	}
	return id, ok
}
