// Package base 提供通用的实体存储基类
package base

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Repository 通用实体仓库
type Repository[T any] struct {
	db *gorm.DB
}

// NewRepository 创建新的通用仓库
func NewRepository[T any](db *gorm.DB) *Repository[T] {
	return &Repository[T]{db: db}
}

// DB 返回底层数据库连接
func (r *Repository[T]) DB() *gorm.DB {
	return r.db
}

// Create 创建记录，主键回填到 entity
func (r *Repository[T]) Create(ctx context.Context, entity *T) error {
	return r.db.WithContext(ctx).Create(entity).Error
}

// GetByID 通过 ID 获取记录，不存在时返回 nil, nil
func (r *Repository[T]) GetByID(ctx context.Context, id uint) (*T, error) {
	var entity T
	err := r.db.WithContext(ctx).First(&entity, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entity, nil
}

// Save 保存整条记录
func (r *Repository[T]) Save(ctx context.Context, entity *T) error {
	return r.db.WithContext(ctx).Save(entity).Error
}

// Delete 删除记录，返回是否确实删除了一行
func (r *Repository[T]) Delete(ctx context.Context, id uint) (bool, error) {
	var entity T
	result := r.db.WithContext(ctx).Delete(&entity, id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Count 获取记录总数
func (r *Repository[T]) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(new(T)).Count(&count).Error
	return count, err
}

// Exists 检查记录是否存在
func (r *Repository[T]) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(new(T)).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// FindByCondition 根据条件查询
func (r *Repository[T]) FindByCondition(ctx context.Context, condition string, args ...interface{}) ([]*T, error) {
	var entities []*T
	err := r.db.WithContext(ctx).Where(condition, args...).Find(&entities).Error
	return entities, err
}

// FirstByCondition 根据条件查询第一条记录
func (r *Repository[T]) FirstByCondition(ctx context.Context, condition string, args ...interface{}) (*T, error) {
	var entity T
	err := r.db.WithContext(ctx).Where(condition, args...).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entity, nil
}
