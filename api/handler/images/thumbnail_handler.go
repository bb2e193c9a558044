package images

import (
	"net/http"

	"github.com/anoixa/tidypics/api/common"
	"github.com/gin-gonic/gin"
)

// GetThumbnail 返回派生图内容，派生图不存在时 404
func (h *Handler) GetThumbnail(c *gin.Context) {
	img, ok := h.loadVisible(c)
	if !ok {
		return
	}

	data, err := h.ctrl.GetThumbnail(c.Request.Context(), img, c.Param("size"))
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}
	if len(data) == 0 {
		common.RespondError(c, http.StatusNotFound, "Thumbnail not found")
		return
	}

	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, "image/jpeg", data)
}
