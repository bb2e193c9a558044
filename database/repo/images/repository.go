package images

import (
	"context"
	"errors"
	"time"

	"github.com/anoixa/tidypics/database"
	"github.com/anoixa/tidypics/database/models"
	"github.com/anoixa/tidypics/database/repo/base"
	"gorm.io/gorm"
)

// ErrImageNotFound 图片记录不存在
var ErrImageNotFound = errors.New("image not found")

// Repository 图片仓库 - 封装所有图片相关的数据库操作
type Repository struct {
	*base.Repository[models.Image]
	db *gorm.DB
}

// NewRepository 创建新的图片仓库
func NewRepository(provider database.Provider) *Repository {
	return newRepository(provider.DB())
}

func newRepository(db *gorm.DB) *Repository {
	return &Repository{Repository: base.NewRepository[models.Image](db), db: db}
}

// WithTx 返回绑定到事务的仓库
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return newRepository(tx)
}

// MarkStored 写入落盘后的文件信息并将状态置为 stored
func (r *Repository) MarkStored(ctx context.Context, image *models.Image) error {
	image.State = models.ImageStateStored
	result := r.db.WithContext(ctx).Model(&models.Image{}).
		Where("id = ?", image.ID).
		Updates(map[string]interface{}{
			"original_filename": image.OriginalFilename,
			"filename":          image.Filename,
			"simple_type":       image.SimpleType,
			"mime_type":         image.MimeType,
			"size":              image.Size,
			"width":             image.Width,
			"height":            image.Height,
			"state":             image.State,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrImageNotFound
	}
	return nil
}

// UpdateDerivatives 写入缩略图路径，未生成的尺寸保存为空字符串
func (r *Repository) UpdateDerivatives(ctx context.Context, image *models.Image, state models.ImageState) error {
	image.State = state
	return r.db.WithContext(ctx).Model(&models.Image{}).
		Where("id = ?", image.ID).
		Updates(map[string]interface{}{
			"thumbnail":   image.Thumbnail,
			"small_thumb": image.SmallThumb,
			"large_thumb": image.LargeThumb,
			"state":       state,
		}).Error
}

// UpdateExif 写入 EXIF 摘要与拍摄时间
func (r *Repository) UpdateExif(ctx context.Context, image *models.Image) error {
	return r.db.WithContext(ctx).Model(image).
		Select("exif", "taken_at").
		Updates(image).Error
}

// ListOrphans 查询早于 before 且没有原图文件的记录
func (r *Repository) ListOrphans(ctx context.Context, before time.Time, limit int) ([]*models.Image, error) {
	var images []*models.Image
	err := r.db.WithContext(ctx).
		Where("state IN ? AND created_at < ?", []models.ImageState{models.ImageStateEmpty, models.ImageStateMetadataSet}, before).
		Order("id").
		Limit(limit).
		Find(&images).Error
	return images, err
}

// StoredSizeByOwner 汇总用户已落盘图片的字节数
func (r *Repository) StoredSizeByOwner(ctx context.Context, ownerGUID uint) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Image{}).
		Select("COALESCE(SUM(size), 0)").
		Where("owner_guid = ? AND state IN ?", ownerGUID, []models.ImageState{models.ImageStateStored, models.ImageStateReady}).
		Scan(&total).Error
	return total, err
}
