package images

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"os"

	"github.com/anoixa/tidypics/api/common"
	"github.com/anoixa/tidypics/api/middleware"
	"github.com/anoixa/tidypics/database/models"
	"github.com/anoixa/tidypics/utils"
	"github.com/anoixa/tidypics/utils/validator"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// UploadImages 上传到相册，单个文件直接保存，多个文件作为一个批次保存
func (h *Handler) UploadImages(c *gin.Context) {
	albumID, ok := parseID(c, "id")
	if !ok {
		return
	}
	userGUID := middleware.CurrentUser(c)
	ctx := c.Request.Context()

	album, err := h.ctrl.Albums.GetByID(ctx, albumID)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}
	if album == nil {
		common.RespondError(c, http.StatusNotFound, "Album not found")
		return
	}
	if album.OwnerGUID != userGUID {
		common.RespondError(c, http.StatusForbidden, "Only the album owner can upload")
		return
	}

	accessID, ok := parseAccess(c.PostForm("access_id"))
	if !ok {
		common.RespondError(c, http.StatusBadRequest, "Invalid access_id")
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "Invalid form data")
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		files = form.File["file"]
	}
	if len(files) == 0 {
		common.RespondError(c, http.StatusBadRequest, "At least one file is required under the 'file' or 'files' key")
		return
	}
	if len(files) > h.maxBatchFiles {
		common.RespondError(c, http.StatusBadRequest, fmt.Sprintf("Maximum %d files allowed per upload", h.maxBatchFiles))
		return
	}

	uploads := make([]*validator.UploadData, 0, len(files))
	for _, fh := range files {
		data := h.receive(c, fh)
		// 被拒绝的上传不会被移走，这里统一清理
		defer removeTemp(data.TmpPath)
		uploads = append(uploads, data)
	}

	if len(uploads) == 1 {
		img := &models.Image{
			OwnerGUID:     userGUID,
			ContainerGUID: albumID,
			AccessID:      accessID,
			Title:         c.PostForm("title"),
		}
		if err := h.ctrl.Save(ctx, img, uploads[0]); err != nil {
			common.RespondServiceError(c, err)
			return
		}
		common.RespondSuccess(c, h.view(img))
		return
	}

	batch, results, err := h.ctrl.SaveBatch(ctx, userGUID, albumID, accessID, uploads)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	var saved []imageView
	var failed []gin.H
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, gin.H{"filename": r.Name, "error": r.Err.Error(), "status": common.StatusFor(r.Err)})
			continue
		}
		saved = append(saved, h.view(r.Image))
	}

	data := gin.H{
		"total_files":   len(uploads),
		"success_count": len(saved),
		"error_count":   len(failed),
		"success":       saved,
		"errors":        failed,
	}
	if batch != nil {
		data["batch_guid"] = batch.ID
	}
	common.RespondSuccess(c, data)
}

// receive 把表单文件写入临时目录，写入失败记为传输错误交给校验器处理
func (h *Handler) receive(c *gin.Context, fh *multipart.FileHeader) *validator.UploadData {
	data := &validator.UploadData{
		Name: fh.Filename,
		Type: fh.Header.Get("Content-Type"),
		Size: fh.Size,
	}
	if fh.Size == 0 {
		data.Error = validator.UploadErrNoFile
		return data
	}

	if err := os.MkdirAll(h.tempDir, 0755); err != nil {
		log.Error().Err(err).Str("dir", h.tempDir).Msg("Failed to create upload temp directory")
		data.Error = validator.UploadErrPartial
		return data
	}
	tmp, err := os.CreateTemp(h.tempDir, "upload-*")
	if err != nil {
		log.Error().Err(err).Msg("Failed to create upload temp file")
		data.Error = validator.UploadErrPartial
		return data
	}
	data.TmpPath = tmp.Name()
	_ = tmp.Close()

	if err := c.SaveUploadedFile(fh, data.TmpPath); err != nil {
		if utils.IsContextCanceled(err) {
			log.Debug().Str("file", utils.SanitizeLogFilename(fh.Filename)).Msg("Client disconnected during upload")
		} else {
			log.Warn().Err(err).Str("file", utils.SanitizeLogFilename(fh.Filename)).Msg("Failed to receive upload")
		}
		data.Error = validator.UploadErrPartial
		return data
	}
	data.Type = utils.ResolveContentType(data.Type, data.TmpPath)
	return data
}

func removeTemp(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", path).Msg("Failed to remove upload temp file")
	}
}
