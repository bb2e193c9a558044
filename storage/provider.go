package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

var (
	// ErrNotFound 存储对象不存在
	ErrNotFound = errors.New("storage object not found")
	// ErrAlreadyExists 目标路径已被占用
	ErrAlreadyExists = errors.New("storage object already exists")
)

// Provider 存储提供者接口
// 所有路径均为相对存储根目录的 "/" 分隔路径
type Provider interface {
	// SaveWithContext 写入文件，已存在时覆盖
	SaveWithContext(ctx context.Context, storagePath string, file io.Reader) error

	// ImportFile 将本地临时文件移动到 storagePath，目标已存在时返回 ErrAlreadyExists
	// 返回写入的字节数；成功后 srcPath 不再存在
	ImportFile(ctx context.Context, srcPath, storagePath string) (int64, error)

	// GetWithContext 读取文件，不存在时返回 ErrNotFound
	GetWithContext(ctx context.Context, storagePath string) (io.ReadCloser, error)

	// DeleteWithContext 删除文件，不存在时返回 ErrNotFound
	DeleteWithContext(ctx context.Context, storagePath string) error

	// Exists 检查文件是否存在
	Exists(ctx context.Context, storagePath string) (bool, error)

	// Health 检查存储健康状态
	Health(ctx context.Context) error

	// Name 返回存储名称
	Name() string
}

// LocalPathProvider 可以直接提供本地文件路径的存储
type LocalPathProvider interface {
	LocalPath(storagePath string) (string, error)
}

// Localize 返回可供图像工具读取的本地文件路径
// 非本地存储会下载到 tempDir，调用方在用完后执行 cleanup
func Localize(ctx context.Context, p Provider, storagePath, tempDir string) (string, func(), error) {
	if lp, ok := p.(LocalPathProvider); ok {
		path, err := lp.LocalPath(storagePath)
		return path, func() {}, err
	}

	rc, err := p.GetWithContext(ctx, storagePath)
	if err != nil {
		return "", nil, err
	}
	defer func() { _ = rc.Close() }()

	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return "", nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	f, err := os.CreateTemp(tempDir, "src-*"+filepath.Ext(storagePath))
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	cleanup := func() { _ = os.Remove(f.Name()) }

	if _, err := io.Copy(f, rc); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, fmt.Errorf("failed to download %s: %w", storagePath, err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return f.Name(), cleanup, nil
}
