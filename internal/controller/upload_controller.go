package controller

import (
	"errors"
	"learnhub_backend/internal/service"
	"learnhub_backend/internal/util"
	"net/http"

	"github.com/gin-gonic/gin"
)

type UploadController struct {
	StorageService *service.StorageService
}

func NewUploadController(storageService *service.StorageService) *UploadController {
	return &UploadController{StorageService: storageService}
}

// Upload godoc
// @Summary 上传课程素材
// @Description 支持图片、视频、PDF、文本；视频会尝试读取时长
// @Tags 素材
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   file formData file true "素材文件"
// @Success 201 {object} util.Response{data=service.UploadResult}
// @Failure 400 {object} util.Response "文件类型不支持"
// @Failure 413 {object} util.Response "文件过大"
// @Router /api/uploads [post]
func (c *UploadController) Upload(ctx *gin.Context) {
	maxBytes := c.StorageService.Cfg.MaxUploadMB << 20
	if maxBytes > 0 {
		ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxBytes)
	}

	file, err := ctx.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			util.Error(ctx, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		util.BadRequest(ctx, "file is required")
		return
	}

	result, err := c.StorageService.UploadMedia(ctx.Request.Context(), file)
	if err != nil {
		handleError(ctx, err)
		return
	}
	util.Created(ctx, result)
}
