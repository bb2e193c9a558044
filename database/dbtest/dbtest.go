// Package dbtest 提供基于内存 SQLite 的测试数据库
package dbtest

import (
	"fmt"
	"testing"

	"github.com/anoixa/tidypics/database"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewProvider 创建已迁移的独立内存数据库，测试结束自动关闭
func NewProvider(t testing.TB) database.Provider {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// 内存库单连接，避免并发写入时的表锁
	sqlDB.SetMaxOpenConns(1)

	provider := database.NewGormProviderFromDB(db, "sqlite")
	require.NoError(t, database.Migrate(provider))

	t.Cleanup(func() {
		_ = provider.Close()
	})
	return provider
}
