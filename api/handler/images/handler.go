package images

import (
	"net/http"
	"strconv"

	"github.com/anoixa/tidypics/api/common"
	"github.com/anoixa/tidypics/api/middleware"
	"github.com/anoixa/tidypics/config"
	"github.com/anoixa/tidypics/database/models"
	imagesvc "github.com/anoixa/tidypics/internal/services/image"
	"github.com/gin-gonic/gin"
)

// Handler 图片接口处理器
type Handler struct {
	ctrl          *imagesvc.Controller
	tempDir       string
	maxBatchFiles int
}

// NewHandler 创建图片处理器，上传文件先写入 tempDir
func NewHandler(ctrl *imagesvc.Controller, tempDir string, maxBatchFiles int) *Handler {
	if maxBatchFiles <= 0 {
		maxBatchFiles = 20
	}
	return &Handler{ctrl: ctrl, tempDir: tempDir, maxBatchFiles: maxBatchFiles}
}

type imageView struct {
	GUID             uint              `json:"guid"`
	OwnerGUID        uint              `json:"owner_guid"`
	ContainerGUID    uint              `json:"container_guid"`
	Title            string            `json:"title"`
	OriginalFilename string            `json:"original_filename"`
	MimeType         string            `json:"mime_type"`
	Size             int64             `json:"size"`
	Width            int               `json:"width"`
	Height           int               `json:"height"`
	AccessID         int               `json:"access_id"`
	State            models.ImageState `json:"state"`
	Thumbnails       map[string]string `json:"thumbnails"`
}

func (h *Handler) view(img *models.Image) imageView {
	thumbs := make(map[string]string, 3)
	for _, size := range []string{config.SizeThumb, config.SizeSmall, config.SizeLarge} {
		if img.DerivativePath(size) != "" {
			thumbs[size] = h.ctrl.SrcURL(img, size)
		}
	}
	return imageView{
		GUID:             img.ID,
		OwnerGUID:        img.OwnerGUID,
		ContainerGUID:    img.ContainerGUID,
		Title:            h.ctrl.Title(img),
		OriginalFilename: img.OriginalFilename,
		MimeType:         img.MimeType,
		Size:             img.Size,
		Width:            img.Width,
		Height:           img.Height,
		AccessID:         img.AccessID,
		State:            img.State,
		Thumbnails:       thumbs,
	}
}

// loadVisible 加载当前用户可见的图片，失败时已写入响应
func (h *Handler) loadVisible(c *gin.Context) (*models.Image, bool) {
	id, ok := parseID(c, "id")
	if !ok {
		return nil, false
	}

	img, err := h.ctrl.Load(c.Request.Context(), id)
	if err != nil {
		common.RespondServiceError(c, err)
		return nil, false
	}
	if !h.ctrl.CanView(img, middleware.CurrentUser(c)) {
		common.RespondError(c, http.StatusForbidden, "This image is private")
		return nil, false
	}
	return img, true
}

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		common.RespondError(c, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// parseAccess 解析访问级别，缺省为公开
func parseAccess(raw string) (int, bool) {
	if raw == "" {
		return models.AccessPublic, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < models.AccessPrivate || v > models.AccessPublic {
		return 0, false
	}
	return v, true
}
