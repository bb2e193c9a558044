package database

import (
	"fmt"

	"github.com/anoixa/tidypics/config"
	"github.com/anoixa/tidypics/database/models"
	"github.com/rs/zerolog/log"
)

// Factory 数据库工厂 - 负责创建数据库提供者并执行迁移
type Factory struct {
	provider Provider
}

// NewFactory 创建新的数据库工厂
func NewFactory(cfg *config.Config) (*Factory, error) {
	log.Info().Msg("Initializing database provider...")

	provider, err := NewGormProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database provider: %w", err)
	}

	log.Info().Msgf("Database provider '%s' initialized successfully", provider.Name())
	return &Factory{provider: provider}, nil
}

// GetProvider 获取数据库提供者
func (f *Factory) GetProvider() Provider {
	return f.provider
}

// Close 关闭数据库连接
func (f *Factory) Close() error {
	if f.provider != nil {
		return f.provider.Close()
	}
	return nil
}

// AutoMigrate 自动迁移数据库结构
func (f *Factory) AutoMigrate() error {
	if f.provider == nil {
		return fmt.Errorf("database provider not initialized")
	}
	return Migrate(f.provider)
}

// Migrate 迁移全部模型
func Migrate(p Provider) error {
	log.Info().Msg("Running database auto migration...")
	if err := p.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("failed to auto migrate database: %w", err)
	}
	log.Info().Msg("Database auto migration completed.")
	return nil
}

// AllModels 需要迁移的模型列表
func AllModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Album{},
		&models.Image{},
		&models.Batch{},
		&models.Relationship{},
		&models.Annotation{},
	}
}
