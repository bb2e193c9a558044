package image

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/anoixa/tidypics/config"
	"github.com/anoixa/tidypics/database/models"
	"github.com/anoixa/tidypics/storage"
	"github.com/anoixa/tidypics/utils"
	"github.com/anoixa/tidypics/utils/generator"
	"golang.org/x/sync/semaphore"
)

// Generator 缩略图生成器
type Generator struct {
	mu       sync.RWMutex
	settings config.ThumbnailSettings
	backend  Backend

	storage storage.Provider
	paths   *generator.PathGenerator
	tempDir string
	// 并发上限在创建时确定，热更新不改变
	sem *semaphore.Weighted
}

// NewGenerator 按配置选择后端创建生成器
func NewGenerator(settings config.ThumbnailSettings, store storage.Provider, paths *generator.PathGenerator, tempDir string) *Generator {
	return NewGeneratorWithBackend(settings, NewBackend(settings), store, paths, tempDir)
}

// NewGeneratorWithBackend 使用指定后端创建生成器
func NewGeneratorWithBackend(settings config.ThumbnailSettings, backend Backend, store storage.Provider, paths *generator.PathGenerator, tempDir string) *Generator {
	limit := settings.MaxConcurrency
	if limit <= 0 {
		limit = 2
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Generator{
		settings: settings,
		backend:  backend,
		storage:  store,
		paths:    paths,
		tempDir:  tempDir,
		sem:      semaphore.NewWeighted(int64(limit)),
	}
}

// Update 替换配置并重新选择后端
func (g *Generator) Update(settings config.ThumbnailSettings) {
	backend := NewBackend(settings)

	g.mu.Lock()
	g.settings = settings
	g.backend = backend
	g.mu.Unlock()
}

// BackendName 当前后端名称
func (g *Generator) BackendName() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.backend.Name()
}

func (g *Generator) current() (config.ThumbnailSettings, Backend) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.settings, g.backend
}

// Generate 为已落盘的图片生成全部尺寸的派生图，并把成功的路径写回 img
// 返回 *ThumbnailError 时 img 中仍保留已生成的部分
func (g *Generator) Generate(ctx context.Context, img *models.Image) error {
	if img.Filename == "" {
		return &ThumbnailError{Err: errors.New("image has no stored file")}
	}

	settings, backend := g.current()
	if settings.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, settings.Timeout)
		defer cancel()
	}

	missing := func() []string {
		var names []string
		for _, s := range settings.Sizes {
			if img.DerivativePath(s.Name) == "" {
				names = append(names, s.Name)
			}
		}
		return names
	}

	if err := g.sem.Acquire(ctx, 1); err != nil {
		return &ThumbnailError{Missing: missing(), Err: err}
	}
	defer g.sem.Release(1)

	if err := os.MkdirAll(g.tempDir, 0755); err != nil {
		return &ThumbnailError{Missing: missing(), Err: err}
	}
	workDir, err := os.MkdirTemp(g.tempDir, "thumb-*")
	if err != nil {
		return &ThumbnailError{Missing: missing(), Err: err}
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	src, cleanup, err := storage.Localize(ctx, g.storage, img.Filename, workDir)
	if err != nil {
		return &ThumbnailError{Missing: missing(), Err: fmt.Errorf("failed to read original: %w", err)}
	}
	defer cleanup()

	targets := make([]Target, 0, len(settings.Sizes))
	for _, size := range settings.Sizes {
		targets = append(targets, Target{Size: size, Path: filepath.Join(workDir, size.Prefix+".jpg")})
	}

	done, genErr := backend.Generate(ctx, src, targets)

	var errs []error
	if genErr != nil {
		errs = append(errs, genErr)
	}
	for _, t := range done {
		storagePath := g.paths.DerivativePath(img.Filename, t.Size.Prefix)
		if err := g.importDerivative(ctx, t.Path, storagePath); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t.Size.Name, err))
			continue
		}
		img.SetDerivativePath(t.Size.Name, storagePath)
	}

	if names := missing(); len(names) > 0 {
		err := errors.Join(errs...)
		if err == nil {
			err = fmt.Errorf("%s produced no output", backend.Name())
		}
		return &ThumbnailError{Missing: names, Err: err}
	}
	utils.LogIfDevf("[Thumbnail] Generated %d derivatives for image %d with %s", len(done), img.ID, backend.Name())
	return nil
}

// importDerivative 派生图路径由原图唯一决定，残留的旧文件直接覆盖
func (g *Generator) importDerivative(ctx context.Context, localPath, storagePath string) error {
	_, err := g.storage.ImportFile(ctx, localPath, storagePath)
	if errors.Is(err, storage.ErrAlreadyExists) {
		if err := g.storage.DeleteWithContext(ctx, storagePath); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		_, err = g.storage.ImportFile(ctx, localPath, storagePath)
	}
	return err
}
