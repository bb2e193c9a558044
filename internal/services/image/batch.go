package image

import (
	"context"
	"fmt"

	"github.com/anoixa/tidypics/database/models"
	"github.com/anoixa/tidypics/utils/validator"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// BatchResult 批量上传中单个文件的结果
type BatchResult struct {
	Name  string
	Image *models.Image // 失败且已回滚时为 nil
	Err   error
}

// SaveBatch 批量保存上传文件并归入同一批次，所有图片使用同一访问级别
// 单个文件失败不影响其余文件，没有任何文件落盘时批次被删除并返回 nil
func (c *Controller) SaveBatch(ctx context.Context, ownerGUID, containerGUID uint, accessID int, uploads []*validator.UploadData) (*models.Batch, []BatchResult, error) {
	if containerGUID == 0 {
		return nil, nil, ErrMissingContainer
	}

	batch := &models.Batch{OwnerGUID: ownerGUID, ContainerGUID: containerGUID}
	if err := c.Batches.Create(ctx, batch); err != nil {
		return nil, nil, fmt.Errorf("failed to create batch: %w", err)
	}

	results := make([]BatchResult, len(uploads))
	var g errgroup.Group
	g.SetLimit(c.opts.MaxBatchConcurrency)

	for i, data := range uploads {
		i, data := i, data
		g.Go(func() error {
			img := &models.Image{OwnerGUID: ownerGUID, ContainerGUID: containerGUID, AccessID: accessID}
			results[i] = BatchResult{Name: data.Name}

			if err := c.Save(ctx, img, data); err != nil {
				results[i].Err = err
				if img.ID != 0 {
					results[i].Image = img
				}
				return nil
			}
			results[i].Image = img

			if err := c.Relationships.Add(ctx, models.RelationshipBelongsToBatch, img.ID, batch.ID); err != nil {
				log.Warn().Err(err).Uint("image", img.ID).Uint("batch", batch.ID).Msg("[Lifecycle] Failed to link image to batch")
			}
			return nil
		})
	}
	_ = g.Wait()

	members, err := c.Relationships.Count(ctx, models.RelationshipBelongsToBatch, batch.ID, true)
	if err != nil {
		return batch, results, fmt.Errorf("failed to count batch members: %w", err)
	}
	if members == 0 {
		if err := c.Batches.DeleteBatch(ctx, batch.ID); err != nil {
			log.Warn().Err(err).Uint("batch", batch.ID).Msg("[Lifecycle] Failed to delete empty batch")
		}
		return nil, results, nil
	}
	return batch, results, nil
}
