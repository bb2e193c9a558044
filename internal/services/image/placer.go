package image

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anoixa/tidypics/storage"
	"github.com/anoixa/tidypics/utils"
	"github.com/anoixa/tidypics/utils/generator"
)

// maxPlaceAttempts 同名冲突时的最大尝试次数
const maxPlaceAttempts = 5

// Placer 把校验通过的上传文件移动到永久存储
type Placer struct {
	storage storage.Provider
	paths   *generator.PathGenerator
	now     func() time.Time
}

// NewPlacer 创建存储放置器
func NewPlacer(store storage.Provider, paths *generator.PathGenerator) *Placer {
	return &Placer{storage: store, paths: paths, now: time.Now}
}

// Place 计算原图路径并以独占方式导入，目标已存在时换用带随机后缀的路径重试
func (p *Placer) Place(ctx context.Context, containerGUID uint, originalName, tmpPath string) (string, int64, error) {
	uploadTime := p.now()

	var lastPath string
	for attempt := 0; attempt < maxPlaceAttempts; attempt++ {
		lastPath = p.paths.OriginalPath(containerGUID, originalName, uploadTime, attempt)

		size, err := p.storage.ImportFile(ctx, tmpPath, lastPath)
		if err == nil {
			return lastPath, size, nil
		}
		if !errors.Is(err, storage.ErrAlreadyExists) {
			return "", 0, &StorageWriteError{Path: lastPath, Err: err}
		}
		utils.LogIfDevf("[Placer] %s already exists, retrying", lastPath)
	}

	return "", 0, &StorageWriteError{
		Path: lastPath,
		Err:  fmt.Errorf("no free path after %d attempts: %w", maxPlaceAttempts, storage.ErrAlreadyExists),
	}
}
