package images

import (
	"errors"
	"net/http"

	"github.com/anoixa/tidypics/api/common"
	"github.com/anoixa/tidypics/api/middleware"
	"github.com/anoixa/tidypics/internal/services/quota"
	"github.com/anoixa/tidypics/utils/format"
	"github.com/gin-gonic/gin"
)

// GetQuota 返回当前用户已用空间
func (h *Handler) GetQuota(c *gin.Context) {
	userGUID := middleware.CurrentUser(c)

	used, err := h.ctrl.Ledger.Usage(c.Request.Context(), userGUID)
	if err != nil {
		if errors.Is(err, quota.ErrOwnerNotFound) {
			common.RespondError(c, http.StatusNotFound, "User not found")
			return
		}
		common.RespondServiceError(c, err)
		return
	}

	common.RespondSuccess(c, gin.H{
		"owner_guid": userGUID,
		"used_bytes": used,
		"used":       format.HumanReadableSize(used),
	})
}
