package common

import (
	"errors"
	"net/http"

	"github.com/anoixa/tidypics/database/repo/albums"
	"github.com/anoixa/tidypics/database/repo/images"
	imagesvc "github.com/anoixa/tidypics/internal/services/image"
	"github.com/anoixa/tidypics/utils/validator"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type Response struct {
	Status string      `json:"status"`
	Msg    string      `json:"msg"`
	Data   interface{} `json:"data,omitempty"`
}

func Respond(c *gin.Context, httpStatus int, status string, message string, data interface{}) {
	c.JSON(httpStatus, Response{
		Status: status,
		Msg:    message,
		Data:   data,
	})
}

// RespondSuccess sends a success response with data.
func RespondSuccess(c *gin.Context, data interface{}) {
	Respond(c, http.StatusOK, "success", "", data)
}

// RespondError sends an error response with message.
func RespondError(c *gin.Context, httpStatus int, message string) {
	Respond(c, httpStatus, "error", message, nil)
}

// RespondErrorAbort sends an error response and aborts the handler chain.
func RespondErrorAbort(c *gin.Context, httpStatus int, message string) {
	RespondError(c, httpStatus, message)
	c.Abort()
}

// RespondServiceError 按错误类型选择状态码
func RespondServiceError(c *gin.Context, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
		RespondError(c, status, "Internal server error")
		return
	}
	RespondError(c, status, err.Error())
}

// StatusFor 错误到 HTTP 状态码的映射
func StatusFor(err error) int {
	switch validator.KindOf(err) {
	case validator.KindTransportError, validator.KindUnsupportedFormat:
		return http.StatusBadRequest
	case validator.KindFileTooLarge, validator.KindDecodedTooLarge:
		return http.StatusRequestEntityTooLarge
	}

	switch {
	case errors.Is(err, images.ErrImageNotFound), errors.Is(err, albums.ErrAlbumNotFound):
		return http.StatusNotFound
	case errors.Is(err, imagesvc.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, imagesvc.ErrMissingContainer), errors.Is(err, imagesvc.ErrAlreadyStored),
		errors.Is(err, imagesvc.ErrInvalidTag):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
