package images

import (
	"github.com/anoixa/tidypics/api/common"
	"github.com/anoixa/tidypics/api/middleware"
	"github.com/gin-gonic/gin"
)

// AddView 记录当前用户的一次浏览
func (h *Handler) AddView(c *gin.Context) {
	img, ok := h.loadVisible(c)
	if !ok {
		return
	}

	recorded, err := h.ctrl.AddView(c.Request.Context(), img, middleware.CurrentUser(c))
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}
	common.RespondSuccess(c, gin.H{"recorded": recorded})
}

// GetViews 返回浏览统计
func (h *Handler) GetViews(c *gin.Context) {
	img, ok := h.loadVisible(c)
	if !ok {
		return
	}

	counts, err := h.ctrl.GetViews(c.Request.Context(), img, middleware.CurrentUser(c))
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}
	common.RespondSuccess(c, counts)
}
