// Package image 图片入库与生命周期管理
package image

import (
	"context"
	"errors"
	"fmt"

	"github.com/anoixa/tidypics/database"
	"github.com/anoixa/tidypics/database/models"
	"github.com/anoixa/tidypics/database/repo/albums"
	"github.com/anoixa/tidypics/database/repo/annotations"
	"github.com/anoixa/tidypics/database/repo/batches"
	"github.com/anoixa/tidypics/database/repo/images"
	"github.com/anoixa/tidypics/database/repo/relationships"
	"github.com/anoixa/tidypics/database/repo/users"
	"github.com/anoixa/tidypics/internal/events"
	"github.com/anoixa/tidypics/internal/services/quota"
	"github.com/anoixa/tidypics/storage"
	"github.com/anoixa/tidypics/utils"
	"github.com/anoixa/tidypics/utils/validator"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Options 生命周期行为配置
type Options struct {
	// RollbackOnValidationFailure 校验或落盘失败时删除已创建的基础记录
	RollbackOnValidationFailure bool
	// MaxViewScan 统计浏览量时最多读取的记录数
	MaxViewScan int
	// BaseURL 站点根 URL，以 "/" 结尾
	BaseURL string
	// MaxBatchConcurrency 批量上传的并发数
	MaxBatchConcurrency int
}

// Deps 控制器依赖
type Deps struct {
	DB            database.Provider
	Images        *images.Repository
	Albums        *albums.Repository
	Batches       *batches.Repository
	Relationships *relationships.Repository
	Annotations   *annotations.Repository
	Users         *users.Repository
	Validator     *validator.Validator
	Placer        *Placer
	Generator     *Generator
	Exif          *ExifReader // 为 nil 时不读取 EXIF
	Ledger        *quota.Ledger
	Storage       storage.Provider
	Publisher     events.Publisher
}

// Controller 图片生命周期控制器
type Controller struct {
	Deps
	opts Options
}

// NewController 创建生命周期控制器
func NewController(deps Deps, opts Options) *Controller {
	if deps.Publisher == nil {
		deps.Publisher = events.Nop{}
	}
	if opts.MaxViewScan <= 0 {
		opts.MaxViewScan = 99999
	}
	if opts.MaxBatchConcurrency <= 0 {
		opts.MaxBatchConcurrency = 4
	}
	return &Controller{Deps: deps, opts: opts}
}

// Save 保存图片
// data 为 nil 时只持久化基础记录；否则依次校验、落盘、计入配额、生成缩略图
// 校验与落盘错误原样返回，缩略图失败只记录警告
func (c *Controller) Save(ctx context.Context, img *models.Image, data *validator.UploadData) error {
	if img.ContainerGUID == 0 {
		return ErrMissingContainer
	}

	if data != nil && img.State.HasFile() {
		return ErrAlreadyStored
	}

	created := img.ID == 0
	img.SimpleType = models.SimpleTypeImage
	if created {
		img.State = models.ImageStateEmpty
	}
	if data != nil {
		img.State = models.ImageStateMetadataSet
		img.OriginalFilename = data.Name
		img.MimeType = data.Type
		if img.Title == "" {
			img.Title = data.Name
		}
	}

	if err := c.persistBase(ctx, img, created); err != nil {
		return fmt.Errorf("failed to persist image record: %w", err)
	}
	if data == nil {
		return nil
	}

	probe, err := c.Validator.Validate(data)
	if err != nil {
		c.rejectUpload(ctx, img, created, err)
		return err
	}

	path, size, err := c.Placer.Place(ctx, img.ContainerGUID, data.Name, data.TmpPath)
	if err != nil {
		c.rejectUpload(ctx, img, created, err)
		return err
	}
	img.Filename = path
	img.Size = size
	img.Width = probe.Width
	img.Height = probe.Height

	err = c.DB.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		if err := c.Images.WithTx(tx).MarkStored(ctx, img); err != nil {
			return err
		}
		return c.Ledger.CreditTx(ctx, tx, img.OwnerGUID, size)
	})
	if err != nil {
		if delErr := c.Storage.DeleteWithContext(ctx, path); delErr != nil {
			log.Warn().Err(delErr).Str("path", path).Msg("[Lifecycle] Failed to remove unrecorded original")
		}
		return fmt.Errorf("failed to record stored image %d: %w", img.ID, err)
	}
	c.Ledger.Forget(ctx, img.OwnerGUID)

	c.readExif(ctx, img)
	c.generateDerivatives(ctx, img)
	c.linkAlbum(ctx, img)
	c.publish(ctx, events.TypeImageSaved, img)
	return nil
}

func (c *Controller) persistBase(ctx context.Context, img *models.Image, created bool) error {
	if created {
		return c.Images.Create(ctx, img)
	}
	return c.Images.Save(ctx, img)
}

// rejectUpload 按配置处理校验或落盘失败后遗留的无文件记录
func (c *Controller) rejectUpload(ctx context.Context, img *models.Image, created bool, cause error) {
	log.Info().Err(cause).Uint("image", img.ID).Str("kind", string(validator.KindOf(cause))).
		Msg("[Lifecycle] Upload rejected")

	if !c.opts.RollbackOnValidationFailure || !created {
		return
	}
	if _, err := c.Images.Delete(ctx, img.ID); err != nil {
		log.Warn().Err(err).Uint("image", img.ID).Msg("[Lifecycle] Failed to roll back image record")
		return
	}
	img.ID = 0
}

// readExif 原图落盘后读取 EXIF，失败只记录警告
func (c *Controller) readExif(ctx context.Context, img *models.Image) {
	if c.Exif == nil {
		return
	}
	found, err := c.Exif.Read(ctx, img)
	if err != nil {
		log.Warn().Err(err).Uint("image", img.ID).Msg("[Exif] Failed to read EXIF")
		return
	}
	if !found {
		return
	}
	if err := c.Images.UpdateExif(ctx, img); err != nil {
		log.Warn().Err(err).Uint("image", img.ID).Msg("[Exif] Failed to record EXIF")
	}
}

// generateDerivatives 生成缩略图并进入 ready 状态，失败不影响保存
func (c *Controller) generateDerivatives(ctx context.Context, img *models.Image) {
	if err := c.Generator.Generate(ctx, img); err != nil {
		var te *ThumbnailError
		if errors.As(err, &te) {
			log.Warn().Err(te.Err).Uint("image", img.ID).Strs("missing", te.Missing).
				Msg("[Thumbnail] Derivative generation failed")
		} else {
			log.Warn().Err(err).Uint("image", img.ID).Msg("[Thumbnail] Derivative generation failed")
		}
	}

	if err := c.Images.UpdateDerivatives(ctx, img, models.ImageStateReady); err != nil {
		log.Warn().Err(err).Uint("image", img.ID).Msg("[Thumbnail] Failed to record derivatives")
	}
}

// linkAlbum 容器为相册时登记图片，容器不是相册时跳过
func (c *Controller) linkAlbum(ctx context.Context, img *models.Image) {
	if c.Albums == nil {
		return
	}
	err := c.Albums.AddImage(ctx, img.ContainerGUID, img.ID)
	if err != nil && !errors.Is(err, albums.ErrAlbumNotFound) {
		log.Warn().Err(err).Uint("image", img.ID).Uint("album", img.ContainerGUID).Msg("[Lifecycle] Failed to add image to album")
	}
}

func (c *Controller) publish(ctx context.Context, eventType string, img *models.Image) {
	event := events.NewImageEvent(eventType, img.ID, img.OwnerGUID, img.ContainerGUID, img.Size, img.Filename)
	if err := c.Publisher.Publish(ctx, event); err != nil {
		log.Warn().Err(err).Str("type", eventType).Uint("image", img.ID).Msg("[Lifecycle] Failed to publish event")
	}
}

// Load 按 ID 加载图片，不存在时返回 images.ErrImageNotFound
func (c *Controller) Load(ctx context.Context, id uint) (*models.Image, error) {
	img, err := c.Images.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if img == nil {
		return nil, fmt.Errorf("%w: %d", images.ErrImageNotFound, id)
	}
	return img, nil
}

// Delete 删除图片及其派生资源
// 每一步独立执行，子资源缺失或清理失败只记录日志，基础记录总会被删除
func (c *Controller) Delete(ctx context.Context, id uint) error {
	img, err := c.Load(ctx, id)
	if err != nil {
		return err
	}

	c.leaveBatches(ctx, img)

	if c.Albums != nil {
		if err := c.Albums.RemoveImage(ctx, img.ContainerGUID, img.ID); err != nil && !errors.Is(err, albums.ErrAlbumNotFound) {
			log.Warn().Err(err).Uint("image", img.ID).Msg("[Lifecycle] Failed to remove image from album")
		}
	}

	c.removeFile(ctx, img.ID, img.DerivativePaths()...)

	if err := c.removeRecord(ctx, img); err != nil {
		return err
	}

	if img.Filename != "" {
		c.removeFile(ctx, img.ID, img.Filename)
	}

	if err := c.Annotations.DeleteByEntity(ctx, img.ID, models.EntitySubtypeImage); err != nil {
		log.Warn().Err(err).Uint("image", img.ID).Msg("[Lifecycle] Failed to remove annotations")
	}

	c.publish(ctx, events.TypeImageDeleted, img)
	return nil
}

// DeleteAs 以 actorGUID 身份删除图片，只有所有者可以删除
func (c *Controller) DeleteAs(ctx context.Context, id, actorGUID uint) error {
	img, err := c.Load(ctx, id)
	if err != nil {
		return err
	}
	if img.OwnerGUID != actorGUID {
		return ErrNotOwner
	}
	return c.Delete(ctx, id)
}

// leaveBatches 解除图片的批次成员关系，图片是最后一个成员时删除批次
// 先锁定批次再复查剩余成员，并发删除最后两张图片时批次也只会被删除一次
func (c *Controller) leaveBatches(ctx context.Context, img *models.Image) {
	err := c.DB.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		rels := c.Relationships.WithTx(tx)
		batchRepo := c.Batches.WithTx(tx)

		batchIDs, err := rels.Query(ctx, models.RelationshipBelongsToBatch, img.ID, false)
		if err != nil {
			return fmt.Errorf("failed to look up batch membership: %w", err)
		}
		for _, batchID := range batchIDs {
			if _, err := batchRepo.Lock(ctx, batchID); err != nil {
				return fmt.Errorf("failed to lock batch %d: %w", batchID, err)
			}
		}
		if err := rels.RemoveSubject(ctx, models.RelationshipBelongsToBatch, img.ID); err != nil {
			return fmt.Errorf("failed to remove batch membership: %w", err)
		}

		for _, batchID := range batchIDs {
			remaining, err := rels.Count(ctx, models.RelationshipBelongsToBatch, batchID, true)
			if err != nil {
				return fmt.Errorf("failed to count batch %d members: %w", batchID, err)
			}
			if remaining > 0 {
				continue
			}
			if err := batchRepo.DeleteBatch(ctx, batchID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Uint("image", img.ID).Msg("[Lifecycle] Failed to leave batches")
	}
}

// removeFile 删除存储文件，文件已不存在时静默跳过
func (c *Controller) removeFile(ctx context.Context, imageID uint, paths ...string) {
	for _, p := range paths {
		err := c.Storage.DeleteWithContext(ctx, p)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			log.Warn().Err(err).Uint("image", imageID).Str("path", utils.SanitizeLogFilename(p)).
				Msg("[Lifecycle] Failed to delete file")
		}
	}
}

// removeRecord 删除记录并扣减配额，二者在同一事务中完成，重复删除不会重复扣减
func (c *Controller) removeRecord(ctx context.Context, img *models.Image) error {
	err := c.DB.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		deleted, err := c.Images.WithTx(tx).Delete(ctx, img.ID)
		if err != nil {
			return err
		}
		if !deleted {
			return fmt.Errorf("%w: %d", images.ErrImageNotFound, img.ID)
		}
		if img.State.HasFile() {
			return c.Ledger.DebitTx(ctx, tx, img.OwnerGUID, img.Size)
		}
		return nil
	})
	if err == nil {
		c.Ledger.Forget(ctx, img.OwnerGUID)
		return nil
	}
	if errors.Is(err, images.ErrImageNotFound) {
		return err
	}

	// 配额扣减失败时仍然删除记录，用量留给 quota reconcile 修正
	log.Warn().Err(err).Uint("image", img.ID).Msg("[Lifecycle] Transactional delete failed, removing record without quota debit")
	if _, delErr := c.Images.Delete(ctx, img.ID); delErr != nil {
		return fmt.Errorf("failed to delete image %d: %w", img.ID, delErr)
	}
	return nil
}
