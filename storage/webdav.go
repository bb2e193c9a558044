package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/studio-b12/gowebdav"
)

// WebDAVConfig WebDAV 配置结构
type WebDAVConfig struct {
	URL      string
	Username string
	Password string
	RootPath string
}

// WebDAVStorage WebDAV 存储实现
type WebDAVStorage struct {
	client   *gowebdav.Client
	baseURL  string
	rootPath string
}

// NewWebDAVStorage 创建 WebDAV 存储提供者
func NewWebDAVStorage(cfg WebDAVConfig) (*WebDAVStorage, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webdav URL is required")
	}

	rootPath := strings.Trim(cfg.RootPath, "/")
	if rootPath != "" {
		rootPath = "/" + rootPath
	}

	client := gowebdav.NewClient(cfg.URL, cfg.Username, cfg.Password)
	if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("webdav connection test failed: %w", err)
	}
	if rootPath != "" {
		if err := client.MkdirAll(rootPath, 0755); err != nil {
			return nil, fmt.Errorf("failed to create webdav root %s: %w", rootPath, err)
		}
	}

	return &WebDAVStorage{
		client:   client,
		baseURL:  strings.TrimRight(cfg.URL, "/"),
		rootPath: rootPath,
	}, nil
}

// fullPath 生成完整的 WebDAV 路径
func (s *WebDAVStorage) fullPath(storagePath string) string {
	return s.rootPath + "/" + strings.TrimLeft(storagePath, "/")
}

// run 在 goroutine 中执行阻塞调用以响应 ctx 取消
func run[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{v, err}
	}()

	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case res := <-done:
		return res.val, res.err
	}
}

// SaveWithContext 保存文件到 WebDAV
func (s *WebDAVStorage) SaveWithContext(ctx context.Context, storagePath string, file io.Reader) error {
	fullPath := s.fullPath(storagePath)
	_, err := run(ctx, func() (struct{}, error) {
		if err := s.client.MkdirAll(path.Dir(fullPath), 0755); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, s.client.WriteStream(fullPath, file, 0644)
	})
	if err != nil {
		return fmt.Errorf("failed to write file %s: %w", storagePath, err)
	}
	return nil
}

// ImportFile 上传本地文件，目标存在时拒绝覆盖
func (s *WebDAVStorage) ImportFile(ctx context.Context, srcPath, storagePath string) (int64, error) {
	exists, err := s.Exists(ctx, storagePath)
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, fmt.Errorf("%w: %s", ErrAlreadyExists, storagePath)
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", srcPath, err)
	}
	info, err := src.Stat()
	if err != nil {
		_ = src.Close()
		return 0, err
	}

	err = s.SaveWithContext(ctx, storagePath, src)
	_ = src.Close()
	if err != nil {
		return 0, err
	}
	_ = os.Remove(srcPath)
	return info.Size(), nil
}

// GetWithContext 从 WebDAV 获取文件流
func (s *WebDAVStorage) GetWithContext(ctx context.Context, storagePath string) (io.ReadCloser, error) {
	rc, err := run(ctx, func() (io.ReadCloser, error) {
		return s.client.ReadStream(s.fullPath(storagePath))
	})
	if err != nil {
		if gowebdav.IsErrNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, storagePath)
		}
		return nil, fmt.Errorf("failed to read file %s: %w", storagePath, err)
	}
	return rc, nil
}

// DeleteWithContext 从 WebDAV 删除文件
func (s *WebDAVStorage) DeleteWithContext(ctx context.Context, storagePath string) error {
	exists, err := s.Exists(ctx, storagePath)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, storagePath)
	}

	_, err = run(ctx, func() (struct{}, error) {
		return struct{}{}, s.client.Remove(s.fullPath(storagePath))
	})
	return err
}

// Exists 检查文件是否存在
func (s *WebDAVStorage) Exists(ctx context.Context, storagePath string) (bool, error) {
	return run(ctx, func() (bool, error) {
		_, err := s.client.Stat(s.fullPath(storagePath))
		if err == nil {
			return true, nil
		}
		if gowebdav.IsErrNotFound(err) {
			return false, nil
		}
		return false, err
	})
}

// Health 检查存储健康状态
func (s *WebDAVStorage) Health(ctx context.Context) error {
	_, err := run(ctx, func() ([]os.FileInfo, error) {
		return s.client.ReadDir(s.rootPath + "/")
	})
	return err
}

// Name 返回存储名称
func (s *WebDAVStorage) Name() string {
	return "webdav"
}
