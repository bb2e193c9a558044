package relationships

import (
	"context"

	"github.com/anoixa/tidypics/database"
	"github.com/anoixa/tidypics/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository 关系仓库
type Repository struct {
	db *gorm.DB
}

// NewRepository 创建新的关系仓库
func NewRepository(provider database.Provider) *Repository {
	return &Repository{db: provider.DB()}
}

// NewRepositoryWithDB 使用已有连接或事务创建仓库
func NewRepositoryWithDB(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx 返回绑定到事务的仓库
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return NewRepositoryWithDB(tx)
}

// Add 建立 subject --name--> target 关系，已存在时忽略
func (r *Repository) Add(ctx context.Context, name string, subjectGUID, targetGUID uint) error {
	rel := &models.Relationship{Name: name, SubjectGUID: subjectGUID, TargetGUID: targetGUID}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(rel).Error
}

// Query 查询关系另一端的 GUID
// inverse 为 false 时 guid 作为 subject 返回 target，为 true 时 guid 作为 target 返回 subject
func (r *Repository) Query(ctx context.Context, name string, guid uint, inverse bool) ([]uint, error) {
	column, other := "subject_guid", "target_guid"
	if inverse {
		column, other = other, column
	}

	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Relationship{}).
		Where("name = ? AND "+column+" = ?", name, guid).
		Order("id").
		Pluck(other, &ids).Error
	return ids, err
}

// Count 统计关系数量，方向语义同 Query
func (r *Repository) Count(ctx context.Context, name string, guid uint, inverse bool) (int64, error) {
	column := "subject_guid"
	if inverse {
		column = "target_guid"
	}

	var count int64
	err := r.db.WithContext(ctx).Model(&models.Relationship{}).
		Where("name = ? AND "+column+" = ?", name, guid).
		Count(&count).Error
	return count, err
}

// RemoveSubject 删除 guid 作为 subject 的全部同名关系
func (r *Repository) RemoveSubject(ctx context.Context, name string, subjectGUID uint) error {
	return r.db.WithContext(ctx).
		Where("name = ? AND subject_guid = ?", name, subjectGUID).
		Delete(&models.Relationship{}).Error
}

// RemoveTarget 删除 guid 作为 target 的全部同名关系
func (r *Repository) RemoveTarget(ctx context.Context, name string, targetGUID uint) error {
	return r.db.WithContext(ctx).
		Where("name = ? AND target_guid = ?", name, targetGUID).
		Delete(&models.Relationship{}).Error
}
