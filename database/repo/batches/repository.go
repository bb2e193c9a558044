package batches

import (
	"context"
	"errors"
	"fmt"

	"github.com/anoixa/tidypics/database"
	"github.com/anoixa/tidypics/database/models"
	"github.com/anoixa/tidypics/database/repo/base"
	"github.com/anoixa/tidypics/database/repo/relationships"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository 上传批次仓库
type Repository struct {
	*base.Repository[models.Batch]
	db *gorm.DB
}

// NewRepository 创建新的批次仓库
func NewRepository(provider database.Provider) *Repository {
	return newRepository(provider.DB())
}

func newRepository(db *gorm.DB) *Repository {
	return &Repository{Repository: base.NewRepository[models.Batch](db), db: db}
}

// WithTx 返回绑定到事务的仓库
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return newRepository(tx)
}

// Lock 在当前事务内锁定批次行，批次不存在时返回 false
// SQLite 不支持行锁，写事务本身已串行
func (r *Repository) Lock(ctx context.Context, batchID uint) (bool, error) {
	var batch models.Batch
	err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").First(&batch, batchID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return err == nil, err
}

// DeleteBatch 删除批次及指向它的成员关系
func (r *Repository) DeleteBatch(ctx context.Context, batchID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rels := relationships.NewRepositoryWithDB(tx)
		if err := rels.RemoveTarget(ctx, models.RelationshipBelongsToBatch, batchID); err != nil {
			return fmt.Errorf("failed to unlink batch %d members: %w", batchID, err)
		}
		if err := tx.Delete(&models.Batch{}, batchID).Error; err != nil {
			return fmt.Errorf("failed to delete batch %d: %w", batchID, err)
		}
		return nil
	})
}
