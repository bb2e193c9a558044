// Package quota 维护用户已用存储空间
package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anoixa/tidypics/cache"
	"github.com/anoixa/tidypics/database"
	"github.com/anoixa/tidypics/database/models"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ErrOwnerNotFound 用户不存在
var ErrOwnerNotFound = errors.New("quota owner not found")

// Ledger 配额账本
// 加减在数据库层用单条 UPDATE 原子完成，同一用户的并发上传与删除不会丢失更新
type Ledger struct {
	db    *gorm.DB
	cache cache.Provider
	ttl   time.Duration
}

// NewLedger 创建配额账本，cacheProvider 可以为 nil
func NewLedger(provider database.Provider, cacheProvider cache.Provider, ttl time.Duration) *Ledger {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Ledger{db: provider.DB(), cache: cacheProvider, ttl: ttl}
}

// Credit 增加已用字节数
func (l *Ledger) Credit(ctx context.Context, ownerGUID uint, bytes int64) error {
	if err := l.adjust(ctx, l.db, ownerGUID, bytes); err != nil {
		return err
	}
	l.Forget(ctx, ownerGUID)
	return nil
}

// Debit 减少已用字节数，不做下限检查
func (l *Ledger) Debit(ctx context.Context, ownerGUID uint, bytes int64) error {
	if err := l.adjust(ctx, l.db, ownerGUID, -bytes); err != nil {
		return err
	}
	l.Forget(ctx, ownerGUID)
	return nil
}

// CreditTx 在调用方事务中增加已用字节数，提交后需调用 Forget
func (l *Ledger) CreditTx(ctx context.Context, tx *gorm.DB, ownerGUID uint, bytes int64) error {
	return l.adjust(ctx, tx, ownerGUID, bytes)
}

// DebitTx 在调用方事务中减少已用字节数，提交后需调用 Forget
func (l *Ledger) DebitTx(ctx context.Context, tx *gorm.DB, ownerGUID uint, bytes int64) error {
	return l.adjust(ctx, tx, ownerGUID, -bytes)
}

func (l *Ledger) adjust(ctx context.Context, db *gorm.DB, ownerGUID uint, delta int64) error {
	if delta == 0 {
		return nil
	}

	result := db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", ownerGUID).
		UpdateColumn("image_repo_size", gorm.Expr("image_repo_size + ?", delta))
	if result.Error != nil {
		return fmt.Errorf("failed to adjust quota for owner %d: %w", ownerGUID, result.Error)
	}
	if result.RowsAffected == 0 {
		// 没有对应用户时账本无处记录，不影响上传与删除
		log.Warn().Uint("owner", ownerGUID).Int64("delta", delta).Msg("[Quota] Owner not found, adjustment skipped")
	}
	return nil
}

// Forget 清除用户用量缓存
func (l *Ledger) Forget(ctx context.Context, ownerGUID uint) {
	if l.cache == nil {
		return
	}
	if err := l.cache.Delete(ctx, cache.QuotaUsage.BuildID(ownerGUID)); err != nil {
		log.Warn().Err(err).Uint("owner", ownerGUID).Msg("[Quota] Failed to evict usage cache")
	}
}

// Usage 返回用户当前已用字节数
func (l *Ledger) Usage(ctx context.Context, ownerGUID uint) (int64, error) {
	key := cache.QuotaUsage.BuildID(ownerGUID)
	if l.cache != nil {
		var cached int64
		if err := l.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	var user models.User
	err := l.db.WithContext(ctx).Select("id", "image_repo_size").First(&user, ownerGUID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrOwnerNotFound
		}
		return 0, err
	}

	if l.cache != nil {
		if err := l.cache.Set(ctx, key, user.ImageRepoSize, l.ttl); err != nil {
			log.Warn().Err(err).Uint("owner", ownerGUID).Msg("[Quota] Failed to cache usage")
		}
	}
	return user.ImageRepoSize, nil
}

// Reconcile 按已落盘图片重新计算用户用量，返回修正前后的值
func (l *Ledger) Reconcile(ctx context.Context, ownerGUID uint) (before, after int64, err error) {
	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Select("id", "image_repo_size").First(&user, ownerGUID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOwnerNotFound
			}
			return err
		}
		before = user.ImageRepoSize

		stored := tx.Session(&gorm.Session{NewDB: true}).Model(&models.Image{}).
			Select("COALESCE(SUM(size), 0)").
			Where("owner_guid = ? AND state IN ?", ownerGUID,
				[]models.ImageState{models.ImageStateStored, models.ImageStateReady})
		if err := tx.Model(&models.User{}).Where("id = ?", ownerGUID).
			UpdateColumn("image_repo_size", stored).Error; err != nil {
			return err
		}

		var updated models.User
		if err := tx.Select("id", "image_repo_size").First(&updated, ownerGUID).Error; err != nil {
			return err
		}
		after = updated.ImageRepoSize
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to reconcile quota for owner %d: %w", ownerGUID, err)
	}

	l.Forget(ctx, ownerGUID)
	if before != after {
		log.Info().Uint("owner", ownerGUID).Int64("before", before).Int64("after", after).Msg("[Quota] Usage corrected")
	}
	return before, after, nil
}
