package image

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/anoixa/tidypics/database/models"
	"github.com/anoixa/tidypics/database/repo/annotations"
	"github.com/anoixa/tidypics/storage"
)

// GetThumbnail 读取指定尺寸的派生图
// 未知尺寸、未生成或文件已丢失时返回空内容，不视为错误
func (c *Controller) GetThumbnail(ctx context.Context, img *models.Image, size string) ([]byte, error) {
	path := img.DerivativePath(size)
	if path == "" {
		return nil, nil
	}

	rc, err := c.Storage.GetWithContext(ctx, path)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s thumbnail of image %d: %w", size, img.ID, err)
	}
	defer func() { _ = rc.Close() }()

	return io.ReadAll(rc)
}

// SrcURL 返回派生图访问地址
func (c *Controller) SrcURL(img *models.Image, size string) string {
	return fmt.Sprintf("%sphotos/thumbnail/%d/%s/", c.opts.BaseURL, img.ID, size)
}

// Title 返回展示标题，未设置时使用原始文件名
func (c *Controller) Title(img *models.Image) string {
	if img.Title != "" {
		return img.Title
	}
	return img.OriginalFilename
}

// CanView 按图片访问级别判断查询者是否可见，viewerGUID 为 0 表示匿名
func (c *Controller) CanView(img *models.Image, viewerGUID uint) bool {
	switch {
	case viewerGUID != 0 && viewerGUID == img.OwnerGUID:
		return true
	case img.AccessID == models.AccessPublic:
		return true
	case img.AccessID == models.AccessLoggedIn:
		return viewerGUID != 0
	default:
		return false
	}
}

// IsPhotoTagged 图片上是否有查询者可见的人物/文字标签
func (c *Controller) IsPhotoTagged(ctx context.Context, img *models.Image, viewerGUID uint) (bool, error) {
	n, err := c.Annotations.Count(ctx, annotations.Query{
		EntityGUID: img.ID,
		Subtype:    models.EntitySubtypeImage,
		Name:       models.AnnotationPhotoTag,
		ViewerGUID: viewerGUID,
	})
	return n > 0, err
}
