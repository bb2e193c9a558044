package users

import (
	"context"

	"github.com/anoixa/tidypics/database"
	"github.com/anoixa/tidypics/database/models"
	"github.com/anoixa/tidypics/database/repo/base"
	"gorm.io/gorm"
)

// Repository 用户仓库
type Repository struct {
	*base.Repository[models.User]
	db *gorm.DB
}

// NewRepository 创建新的用户仓库
func NewRepository(provider database.Provider) *Repository {
	return &Repository{Repository: base.NewRepository[models.User](provider.DB()), db: provider.DB()}
}

// GetByUsername 通过用户名获取用户，不存在时返回 nil, nil
func (r *Repository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.FirstByCondition(ctx, "username = ?", username)
}

// GetByIDs 批量获取用户，结果按 ID 索引
func (r *Repository) GetByIDs(ctx context.Context, ids []uint) (map[uint]*models.User, error) {
	result := make(map[uint]*models.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var list []*models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&list).Error; err != nil {
		return nil, err
	}
	for _, u := range list {
		result[u.ID] = u
	}
	return result, nil
}

// ListIDs 返回全部用户 ID
func (r *Repository) ListIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.User{}).Order("id").Pluck("id", &ids).Error
	return ids, err
}
