package core

import (
	"context"
	"time"

	"github.com/anoixa/tidypics/cache"
	"github.com/anoixa/tidypics/database"
	"github.com/anoixa/tidypics/storage"
)

const healthProbeKey = "health:probe"

func checkDatabaseHealth(ctx context.Context, provider database.Provider) string {
	if provider == nil {
		return "not initialized"
	}

	db := provider.DB()
	if db == nil {
		return "not initialized"
	}
	sqlDB, err := db.DB()
	if err != nil {
		return "error: " + err.Error()
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return "unavailable: " + err.Error()
	}
	return "ok"
}

func checkCacheHealth(ctx context.Context, provider cache.Provider) string {
	if provider == nil {
		return "not initialized"
	}
	if err := provider.Set(ctx, healthProbeKey, time.Now().Unix(), time.Minute); err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}

func checkStorageHealth(ctx context.Context, provider storage.Provider) string {
	if provider == nil {
		return "not initialized"
	}
	if err := provider.Health(ctx); err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}
