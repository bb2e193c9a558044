package albums

import (
	"context"
	"errors"
	"fmt"

	"github.com/anoixa/tidypics/database"
	"github.com/anoixa/tidypics/database/models"
	"github.com/anoixa/tidypics/database/repo/base"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrAlbumNotFound 相册不存在
var ErrAlbumNotFound = errors.New("album not found")

// Repository 相册仓库
type Repository struct {
	*base.Repository[models.Album]
	db *gorm.DB
}

// NewRepository 创建新的相册仓库
func NewRepository(provider database.Provider) *Repository {
	return newRepository(provider.DB())
}

func newRepository(db *gorm.DB) *Repository {
	return &Repository{Repository: base.NewRepository[models.Album](db), db: db}
}

// AddImage 将图片加入相册，第一张图片同时成为封面
func (r *Repository) AddImage(ctx context.Context, albumID, imageID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var album models.Album
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&album, albumID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %d", ErrAlbumNotFound, albumID)
			}
			return err
		}

		link := map[string]interface{}{"album_id": albumID, "image_id": imageID}
		if err := tx.Table("album_images").Clauses(clause.OnConflict{DoNothing: true}).Create(link).Error; err != nil {
			return fmt.Errorf("failed to add image %d to album %d: %w", imageID, albumID, err)
		}

		if album.CoverImageID == nil {
			return tx.Model(&album).Update("cover_image_id", imageID).Error
		}
		return nil
	})
}

// RemoveImage 从相册移除图片引用，被移除的封面会被清空
func (r *Repository) RemoveImage(ctx context.Context, albumID, imageID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var album models.Album
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&album, albumID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %d", ErrAlbumNotFound, albumID)
			}
			return err
		}

		if err := tx.Model(&album).Association("Images").Delete(&models.Image{ID: imageID}); err != nil {
			return fmt.Errorf("failed to remove image %d from album %d: %w", imageID, albumID, err)
		}

		if album.CoverImageID != nil && *album.CoverImageID == imageID {
			return tx.Model(&album).Update("cover_image_id", nil).Error
		}
		return nil
	})
}

// ImageIDs 返回相册内的图片 ID
func (r *Repository) ImageIDs(ctx context.Context, albumID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Table("album_images").
		Where("album_id = ?", albumID).
		Order("image_id").
		Pluck("image_id", &ids).Error
	return ids, err
}
