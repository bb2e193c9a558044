// Package di 依赖注入容器
package di

import (
	"fmt"
	"sync"

	"github.com/anoixa/tidypics/cache"
	"github.com/anoixa/tidypics/config"
	"github.com/anoixa/tidypics/database"
	"github.com/anoixa/tidypics/database/repo/albums"
	"github.com/anoixa/tidypics/database/repo/annotations"
	"github.com/anoixa/tidypics/database/repo/batches"
	"github.com/anoixa/tidypics/database/repo/images"
	"github.com/anoixa/tidypics/database/repo/relationships"
	"github.com/anoixa/tidypics/database/repo/users"
	"github.com/anoixa/tidypics/internal/auth"
	"github.com/anoixa/tidypics/internal/events"
	imagesvc "github.com/anoixa/tidypics/internal/services/image"
	"github.com/anoixa/tidypics/internal/services/quota"
	"github.com/anoixa/tidypics/internal/worker"
	"github.com/anoixa/tidypics/storage"
	"github.com/anoixa/tidypics/utils"
	"github.com/anoixa/tidypics/utils/generator"
	"github.com/anoixa/tidypics/utils/validator"
	"github.com/rs/zerolog/log"
)

// Container 依赖注入容器 - 管理所有服务的生命周期
type Container struct {
	mu              sync.RWMutex // 保护 config，热更新与读取可能并发
	config          *config.Config
	databaseFactory *database.Factory
	storage         storage.Provider
	cache           cache.Provider
	pool            *worker.Pool
	publisher       events.Publisher

	ledger     *quota.Ledger
	validator  *validator.Validator
	generator  *imagesvc.Generator
	controller *imagesvc.Controller
	jwt        *auth.JWTService
}

// NewContainer 创建新的依赖注入容器
func NewContainer(cfg *config.Config) *Container {
	return &Container{config: cfg}
}

// InitDatabase 只初始化数据库与配额账本，供命令行工具使用
func (c *Container) InitDatabase() error {
	utils.LogIfDev("Initializing database...")

	factory, err := database.NewFactory(c.config)
	if err != nil {
		return fmt.Errorf("failed to initialize database factory: %w", err)
	}
	c.databaseFactory = factory

	if err := factory.AutoMigrate(); err != nil {
		return err
	}

	c.ledger = quota.NewLedger(factory.GetProvider(), nil, c.config.QuotaCacheTTL)
	return nil
}

// Init 初始化全部服务
func (c *Container) Init() error {
	if c.databaseFactory == nil {
		if err := c.InitDatabase(); err != nil {
			return err
		}
	}

	store, err := storage.NewProvider(c.config)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.storage = store

	cacheProvider, err := cache.NewProvider(c.config)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	c.cache = cacheProvider

	provider := c.databaseFactory.GetProvider()
	c.ledger = quota.NewLedger(provider, cacheProvider, c.config.QuotaCacheTTL)

	c.pool = worker.NewPool(c.config.WorkerCount, 1000)
	c.publisher = events.Nop{}
	if len(c.config.KafkaBrokers) > 0 {
		c.publisher = events.NewKafkaPublisher(c.config.KafkaBrokers, c.config.KafkaTopic, c.pool)
		log.Info().Strs("brokers", c.config.KafkaBrokers).Str("topic", c.config.KafkaTopic).Msg("Lifecycle events enabled")
	}

	if c.config.JWTSecret != "" {
		jwtSvc, err := auth.NewJWTService(c.config.JWTSecret)
		if err != nil {
			return err
		}
		c.jwt = jwtSvc
	}

	paths := generator.NewPathGenerator()
	c.validator = validator.New(c.config.UploadSettings())
	c.generator = imagesvc.NewGenerator(c.config.ThumbnailSettings(), store, paths, c.config.StorageTempDir)
	log.Info().Str("backend", c.generator.BackendName()).Msg("Thumbnail generator initialized")

	c.controller = imagesvc.NewController(imagesvc.Deps{
		DB:            provider,
		Images:        images.NewRepository(provider),
		Albums:        albums.NewRepository(provider),
		Batches:       batches.NewRepository(provider),
		Relationships: relationships.NewRepository(provider),
		Annotations:   annotations.NewRepository(provider),
		Users:         users.NewRepository(provider),
		Validator:     c.validator,
		Placer:        imagesvc.NewPlacer(store, paths),
		Generator:     c.generator,
		Exif:          imagesvc.NewExifReader(store, c.config.StorageTempDir),
		Ledger:        c.ledger,
		Storage:       store,
		Publisher:     c.publisher,
	}, imagesvc.Options{
		RollbackOnValidationFailure: c.config.RollbackOnValidationFailure,
		MaxViewScan:                 c.config.MaxViewScan,
		BaseURL:                     c.config.BaseURL(),
	})

	utils.LogIfDev("DI container initialized successfully")
	return nil
}

// ApplyConfig 把热更新的配置应用到运行中的服务
func (c *Container) ApplyConfig(cfg *config.Config) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.validator != nil {
		c.validator.Update(cfg.UploadSettings())
	}
	if c.generator != nil {
		c.generator.Update(cfg.ThumbnailSettings())
	}
	if c.jwt != nil && cfg.JWTSecret != "" {
		if err := c.jwt.SetSecret(cfg.JWTSecret); err != nil {
			log.Warn().Err(err).Msg("Ignoring invalid jwt_secret change")
		}
	}
	c.config = cfg
	log.Info().Msg("Configuration reloaded")
}

// GetConfig 获取配置
func (c *Container) GetConfig() *config.Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config
}

// GetDatabaseProvider 获取数据库提供者
func (c *Container) GetDatabaseProvider() database.Provider {
	if c.databaseFactory == nil {
		return nil
	}
	return c.databaseFactory.GetProvider()
}

// GetStorage 获取存储提供者
func (c *Container) GetStorage() storage.Provider {
	return c.storage
}

// GetCache 获取缓存提供者
func (c *Container) GetCache() cache.Provider {
	return c.cache
}

// GetLedger 获取配额账本
func (c *Container) GetLedger() *quota.Ledger {
	return c.ledger
}

// GetController 获取图片生命周期控制器
func (c *Container) GetController() *imagesvc.Controller {
	return c.controller
}

// GetJWTService 获取令牌服务，未配置 jwt_secret 时为 nil
func (c *Container) GetJWTService() *auth.JWTService {
	return c.jwt
}

// GetWorkerPool 获取异步任务池
func (c *Container) GetWorkerPool() *worker.Pool {
	return c.pool
}

// Close 关闭所有服务，先排空事件队列再关闭外部连接
func (c *Container) Close() error {
	utils.LogIfDev("Closing DI container...")

	if c.pool != nil {
		c.pool.Stop()
	}
	if c.publisher != nil {
		if err := c.publisher.Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing event publisher")
		}
	}
	if c.cache != nil {
		if err := c.cache.Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing cache")
		}
	}
	if c.databaseFactory != nil {
		if err := c.databaseFactory.Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing database")
		}
	}

	utils.LogIfDev("DI container closed")
	return nil
}
