package core

import (
	"net/http"
	"strings"
	"time"

	"github.com/anoixa/tidypics/api/middleware"
	"github.com/anoixa/tidypics/config"
	"github.com/anoixa/tidypics/internal/auth"
	"github.com/anoixa/tidypics/internal/di"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// 同时处理的上传请求上限，避免解码与缩略图占满内存
const maxConcurrentUploads = 16

// setupRouter 启动gin
func setupRouter(container *di.Container) (*gin.Engine, func()) {
	cfg := container.GetConfig()
	router := gin.New()

	// 仅在开发版本时启用 gin 日志
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		router.Use(gin.Logger())
	}
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{strings.TrimSuffix(cfg.BaseURL(), "/")},
		AllowMethods:     []string{"GET", "POST", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	_ = router.SetTrustedProxies(nil)

	// 超出部分由 multipart 落到临时文件
	router.MaxMultipartMemory = cfg.UploadMaxSizeKB << 10

	apiRateLimiter := middleware.NewIPRateLimiter(cfg.RateLimitApiRPS, cfg.RateLimitApiBurst, cfg.RateLimitExpireTime)
	imageRateLimiter := middleware.NewIPRateLimiter(cfg.RateLimitImageRPS, cfg.RateLimitImageBurst, cfg.RateLimitExpireTime)
	cleanup := func() {
		apiRateLimiter.StopCleanup()
		imageRateLimiter.StopCleanup()
	}

	deps := &RouterDependencies{
		Config:           cfg,
		Database:         container.GetDatabaseProvider(),
		Storage:          container.GetStorage(),
		Cache:            container.GetCache(),
		Controller:       container.GetController(),
		APIRateLimiter:   apiRateLimiter,
		ImageRateLimiter: imageRateLimiter,
		UploadLimiter:    middleware.NewConcurrencyLimiter(maxConcurrentUploads),
	}
	// 未配置密钥时所有令牌都被拒绝，匿名仍可访问公开缩略图
	if jwtSvc := container.GetJWTService(); jwtSvc != nil {
		deps.Tokens = jwtSvc
	} else {
		deps.Tokens = rejectAllTokens{}
	}
	RegisterRoutes(router, deps)

	return router, cleanup
}

// StartServer 创建 http.Server
func StartServer(container *di.Container) (*http.Server, func()) {
	cfg := container.GetConfig()
	router, clean := setupRouter(container)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  cfg.ServerIdleTimeout,
	}

	return srv, clean
}

type rejectAllTokens struct{}

func (rejectAllTokens) ParseToken(string) (uint, error) {
	return 0, auth.ErrSecretNotSet
}
