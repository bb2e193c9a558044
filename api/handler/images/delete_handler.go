package images

import (
	"github.com/anoixa/tidypics/api/common"
	"github.com/anoixa/tidypics/api/middleware"
	"github.com/gin-gonic/gin"
)

// DeleteImage 删除图片，仅所有者可操作
func (h *Handler) DeleteImage(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.ctrl.DeleteAs(c.Request.Context(), id, middleware.CurrentUser(c)); err != nil {
		common.RespondServiceError(c, err)
		return
	}
	common.RespondSuccess(c, gin.H{"guid": id})
}
