package images

import (
	"net/http"

	"github.com/anoixa/tidypics/api/common"
	"github.com/anoixa/tidypics/api/middleware"
	imagesvc "github.com/anoixa/tidypics/internal/services/image"
	"github.com/gin-gonic/gin"
)

type addTagRequest struct {
	Type     string              `json:"type" binding:"required,oneof=user word"`
	Value    string              `json:"value" binding:"required,max=255"`
	Coords   *imagesvc.TagCoords `json:"coords"`
	AccessID *int                `json:"access_id" binding:"omitempty,min=0,max=2"`
}

// AddTag 为图片添加人物或文字标签
func (h *Handler) AddTag(c *gin.Context) {
	img, ok := h.loadVisible(c)
	if !ok {
		return
	}

	var req addTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}
	accessID, _ := parseAccess("")
	if req.AccessID != nil {
		accessID = *req.AccessID
	}

	tag := imagesvc.PhotoTag{Type: req.Type, Value: req.Value, TagCoords: req.Coords}
	annotation, err := h.ctrl.AddPhotoTag(c.Request.Context(), img, middleware.CurrentUser(c), tag, accessID)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}
	common.RespondSuccess(c, gin.H{"id": annotation.ID})
}

// GetTags 返回当前用户可见的标签
func (h *Handler) GetTags(c *gin.Context) {
	img, ok := h.loadVisible(c)
	if !ok {
		return
	}

	tags, err := h.ctrl.GetPhotoTags(c.Request.Context(), img, middleware.CurrentUser(c))
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}
	if tags == nil {
		tags = &imagesvc.PhotoTags{Tags: []imagesvc.TagView{}, Links: map[uint]imagesvc.TagLink{}}
	}
	common.RespondSuccess(c, tags)
}
