package core

import (
	"context"
	"net/http"
	"time"

	"github.com/anoixa/tidypics/api/common"
	handlerImages "github.com/anoixa/tidypics/api/handler/images"
	"github.com/anoixa/tidypics/api/middleware"
	"github.com/anoixa/tidypics/cache"
	"github.com/anoixa/tidypics/config"
	"github.com/anoixa/tidypics/database"
	imagesvc "github.com/anoixa/tidypics/internal/services/image"
	"github.com/anoixa/tidypics/storage"
	"github.com/gin-gonic/gin"
)

var startTime = time.Now()

// RouterDependencies 路由注册依赖
type RouterDependencies struct {
	Config           *config.Config
	Database         database.Provider
	Storage          storage.Provider
	Cache            cache.Provider
	Controller       *imagesvc.Controller
	Tokens           middleware.TokenParser
	APIRateLimiter   *middleware.IPRateLimiter
	ImageRateLimiter *middleware.IPRateLimiter
	UploadLimiter    *middleware.ConcurrencyLimiter
}

// RegisterRoutes 注册所有路由
func RegisterRoutes(router *gin.Engine, deps *RouterDependencies) {
	registerBasicRoutes(router, deps)

	cfg := deps.Config
	imageHandler := handlerImages.NewHandler(deps.Controller, cfg.StorageTempDir, cfg.UploadMaxBatchFiles)

	// 缩略图公共访问，按图片访问级别过滤
	photos := router.Group("/photos")
	photos.Use(deps.ImageRateLimiter.Middleware())
	photos.Use(middleware.OptionalAuth(deps.Tokens))
	{
		photos.GET("/thumbnail/:id/:size/", imageHandler.GetThumbnail) // GET /photos/thumbnail/{guid}/{size}/
	}

	apiGroup := router.Group("/api")
	apiGroup.Use(func(context *gin.Context) { // 所有API禁止缓存
		context.Header("Cache-Control", "no-store")
		context.Next()
	})
	{
		v1 := apiGroup.Group("/v1")
		v1.Use(deps.APIRateLimiter.Middleware())
		v1.Use(middleware.RequireAuth(deps.Tokens))
		{
			v1.POST("/albums/:id/images", deps.UploadLimiter.Middleware(), imageHandler.UploadImages) // POST /api/v1/albums/{guid}/images

			imagesGroup := v1.Group("/images")
			{
				imagesGroup.DELETE("/:id", imageHandler.DeleteImage) // DELETE /api/v1/images/{guid}
				imagesGroup.POST("/:id/views", imageHandler.AddView) // POST /api/v1/images/{guid}/views
				imagesGroup.GET("/:id/views", imageHandler.GetViews) // GET /api/v1/images/{guid}/views
				imagesGroup.POST("/:id/tags", imageHandler.AddTag)   // POST /api/v1/images/{guid}/tags
				imagesGroup.GET("/:id/tags", imageHandler.GetTags)   // GET /api/v1/images/{guid}/tags
			}

			v1.GET("/quota", imageHandler.GetQuota) // GET /api/v1/quota
		}
	}
}

// registerBasicRoutes 注册基础路由
func registerBasicRoutes(router *gin.Engine, deps *RouterDependencies) {
	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		checks := gin.H{
			"database": checkDatabaseHealth(ctx, deps.Database),
			"cache":    checkCacheHealth(ctx, deps.Cache),
			"storage":  checkStorageHealth(ctx, deps.Storage),
		}
		httpStatus := http.StatusOK
		for _, result := range checks {
			if result != "ok" {
				httpStatus = http.StatusServiceUnavailable
				break
			}
		}
		c.JSON(httpStatus, gin.H{
			"status":  http.StatusText(httpStatus),
			"uptime":  time.Since(startTime).Round(time.Second).String(),
			"version": config.Version,
			"checks":  checks,
		})
	})

	router.GET("/version", func(c *gin.Context) {
		common.RespondSuccess(c, gin.H{
			"version": config.Version,
			"commit":  config.CommitHash,
		})
	})
}
