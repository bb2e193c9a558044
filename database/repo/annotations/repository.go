package annotations

import (
	"context"

	"github.com/anoixa/tidypics/database"
	"github.com/anoixa/tidypics/database/models"
	"gorm.io/gorm"
)

// Query 注解查询条件
type Query struct {
	EntityGUID uint
	Subtype    string // 为空时不过滤
	Name       string
	Offset     int
	Limit      int

	// ViewerGUID 查询者，0 表示匿名
	ViewerGUID uint
	// IgnoreAccess 跳过访问控制，仅供系统内部清理使用
	IgnoreAccess bool
}

// Repository 注解仓库
type Repository struct {
	db *gorm.DB
}

// NewRepository 创建新的注解仓库
func NewRepository(provider database.Provider) *Repository {
	return &Repository{db: provider.DB()}
}

// Create 创建注解
func (r *Repository) Create(ctx context.Context, annotation *models.Annotation) error {
	if annotation.Subtype == "" {
		annotation.Subtype = models.EntitySubtypeImage
	}
	return r.db.WithContext(ctx).Create(annotation).Error
}

// Find 按条件查询查询者可见的注解，按创建顺序返回
func (r *Repository) Find(ctx context.Context, q Query) ([]*models.Annotation, error) {
	db := r.scope(ctx, q).Order("id")
	if q.Offset > 0 {
		db = db.Offset(q.Offset)
	}
	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}

	var list []*models.Annotation
	err := db.Find(&list).Error
	return list, err
}

// Count 统计查询者可见的注解数量
func (r *Repository) Count(ctx context.Context, q Query) (int64, error) {
	var count int64
	err := r.scope(ctx, q).Count(&count).Error
	return count, err
}

// DeleteByEntity 删除实体上的全部注解
func (r *Repository) DeleteByEntity(ctx context.Context, entityGUID uint, subtype string) error {
	return r.db.WithContext(ctx).
		Where("entity_guid = ? AND subtype = ?", entityGUID, subtype).
		Delete(&models.Annotation{}).Error
}

func (r *Repository) scope(ctx context.Context, q Query) *gorm.DB {
	db := r.db.WithContext(ctx).Model(&models.Annotation{}).Where("entity_guid = ?", q.EntityGUID)
	if q.Subtype != "" {
		db = db.Where("subtype = ?", q.Subtype)
	}
	if q.Name != "" {
		db = db.Where("name = ?", q.Name)
	}
	if !q.IgnoreAccess {
		db = db.Where(accessClause(r.db, q.ViewerGUID))
	}
	return db
}

// accessClause 公开注解对所有人可见，登录可见需非匿名，私有注解仅作者可见
func accessClause(db *gorm.DB, viewer uint) *gorm.DB {
	clause := db.Session(&gorm.Session{NewDB: true}).Where("access_id = ?", models.AccessPublic)
	if viewer == 0 {
		return clause
	}
	return clause.
		Or("access_id = ?", models.AccessLoggedIn).
		Or("owner_guid = ?", viewer)
}
