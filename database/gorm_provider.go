package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/anoixa/tidypics/config"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormProvider GORM 数据库提供者实现
type GormProvider struct {
	db     *gorm.DB
	dbType string
}

// NewGormProvider 创建新的 GORM 数据库提供者
func NewGormProvider(cfg *config.Config) (*GormProvider, error) {
	logLevel := logger.Info
	if config.IsProduction() {
		logLevel = logger.Silent
	}
	gormLogger := logger.New(
		&log.Logger,
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	gormCfg := &gorm.Config{
		Logger:                 gormLogger,
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
	}

	var db *gorm.DB
	var err error

	switch cfg.DBType {
	case "sqlite", "sqlite3", "":
		path := cfg.DBFilePath
		if path == "" {
			path = "./data/tidypics.db"
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}

		// WAL 模式
		dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000", path)
		db, err = gorm.Open(sqlite.Open(dsn), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to SQLite3 database: %w", err)
		}
		log.Info().Str("path", path).Msg("Using SQLite database")

	case "postgres", "postgresql":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			cfg.DBHost, cfg.DBPort, cfg.DBUsername, cfg.DBPassword, cfg.DBName)
		db, err = gorm.Open(postgres.Open(dsn), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
		}
		log.Info().Msgf("Connected to PostgreSQL database on %s:%d", cfg.DBHost, cfg.DBPort)

	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.DBType)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying DB instance: %w", err)
	}

	maxOpenConns := cfg.DBMaxOpenConns
	if maxOpenConns <= 0 {
		maxOpenConns = 100
	}
	maxIdleConns := cfg.DBMaxIdleConns
	if maxIdleConns <= 0 {
		maxIdleConns = 10
	}
	connMaxLifetime := cfg.DBConnMaxLifetime
	if connMaxLifetime <= 0 {
		connMaxLifetime = 3600
	}
	sqlDB.SetConnMaxLifetime(time.Duration(connMaxLifetime) * time.Second)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetMaxOpenConns(maxOpenConns)

	dbType := cfg.DBType
	if dbType == "" {
		dbType = "sqlite"
	}
	return &GormProvider{db: db, dbType: dbType}, nil
}

// NewGormProviderFromDB 包装已有连接，测试与工具命令使用
func NewGormProviderFromDB(db *gorm.DB, name string) *GormProvider {
	return &GormProvider{db: db, dbType: name}
}

func (p *GormProvider) DB() *gorm.DB {
	return p.db
}

func (p *GormProvider) WithContext(ctx context.Context) *gorm.DB {
	return p.db.WithContext(ctx)
}

func (p *GormProvider) Transaction(fn TxFunc) error {
	return p.db.Transaction(fn)
}

func (p *GormProvider) TransactionWithContext(ctx context.Context, fn TxFunc) error {
	return p.db.WithContext(ctx).Transaction(fn)
}

func (p *GormProvider) AutoMigrate(models ...interface{}) error {
	return p.db.AutoMigrate(models...)
}

func (p *GormProvider) SQLDB() (*sql.DB, error) {
	return p.db.DB()
}

// Ping 检查数据库连接
func (p *GormProvider) Ping() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Close 关闭数据库连接
func (p *GormProvider) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	log.Info().Msg("Closing database connection...")
	return sqlDB.Close()
}

func (p *GormProvider) Name() string {
	return p.dbType
}
