package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// LocalStorage 本地文件存储实现
type LocalStorage struct {
	absBasePath string
}

// NewLocalStorage 创建本地存储提供者
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for '%s': %w", basePath, err)
	}

	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create local storage directory '%s': %w", absPath, err)
	}

	testFile := filepath.Join(absPath, ".write_test_"+strconv.FormatInt(time.Now().UnixNano(), 10))
	f, err := os.Create(testFile)
	if err != nil {
		return nil, fmt.Errorf("local storage directory '%s' is not writable: %w", absPath, err)
	}
	_ = f.Close()
	_ = os.Remove(testFile)

	return &LocalStorage{
		absBasePath: absPath + string(os.PathSeparator),
	}, nil
}

// resolve 校验并解析为绝对路径
func (s *LocalStorage) resolve(storagePath string) (string, error) {
	if !IsValidStoragePath(storagePath) {
		return "", fmt.Errorf("invalid storage path: %s", storagePath)
	}

	fullPath := filepath.Join(s.absBasePath, filepath.FromSlash(storagePath))
	if !strings.HasPrefix(fullPath, s.absBasePath) {
		return "", fmt.Errorf("invalid file path, potential directory traversal: %s", storagePath)
	}
	return fullPath, nil
}

// SaveWithContext 保存文件到本地存储
func (s *LocalStorage) SaveWithContext(ctx context.Context, storagePath string, file io.Reader) error {
	dstPath, err := s.resolve(storagePath)
	if err != nil {
		return err
	}

	// MkdirAll 对已存在的目录不报错，并发创建同一目录是安全的
	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory for '%s': %w", storagePath, err)
	}

	dst, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("failed to create destination file '%s': %w", dstPath, err)
	}
	defer func() { _ = dst.Close() }()

	if _, err := io.Copy(dst, file); err != nil {
		_ = os.Remove(dstPath)
		return fmt.Errorf("failed to copy file content to '%s': %w", dstPath, err)
	}
	return nil
}

// ImportFile 以独占方式把临时文件移动到存储路径
// 同一文件系统内使用硬链接保证原子独占，跨设备时退化为 O_EXCL 复制
func (s *LocalStorage) ImportFile(ctx context.Context, srcPath, storagePath string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	dstPath, err := s.resolve(storagePath)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return 0, fmt.Errorf("failed to create directory for '%s': %w", storagePath, err)
	}

	linkErr := os.Link(srcPath, dstPath)
	switch {
	case linkErr == nil:
		_ = os.Remove(srcPath)
	case errors.Is(linkErr, os.ErrExist):
		return 0, fmt.Errorf("%w: %s", ErrAlreadyExists, storagePath)
	case errors.Is(linkErr, os.ErrNotExist):
		return 0, fmt.Errorf("failed to import '%s': %w", srcPath, linkErr)
	default:
		if err := copyExclusive(srcPath, dstPath); err != nil {
			if errors.Is(err, os.ErrExist) {
				return 0, fmt.Errorf("%w: %s", ErrAlreadyExists, storagePath)
			}
			return 0, fmt.Errorf("failed to import '%s': %w", srcPath, err)
		}
		_ = os.Remove(srcPath)
	}

	info, err := os.Stat(dstPath)
	if err != nil {
		return 0, fmt.Errorf("failed to stat imported file '%s': %w", storagePath, err)
	}
	return info.Size(), nil
}

func copyExclusive(srcPath, dstPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	dst, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(dstPath)
		return err
	}
	return dst.Close()
}

// GetWithContext 从本地存储获取文件
func (s *LocalStorage) GetWithContext(ctx context.Context, storagePath string) (io.ReadCloser, error) {
	fullPath, err := s.resolve(storagePath)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, storagePath)
		}
		return nil, fmt.Errorf("failed to open file '%s': %w", storagePath, err)
	}
	return file, nil
}

// LocalPath 返回存储路径对应的本地文件
func (s *LocalStorage) LocalPath(storagePath string) (string, error) {
	return s.resolve(storagePath)
}

// DeleteWithContext 从本地存储删除文件
func (s *LocalStorage) DeleteWithContext(ctx context.Context, storagePath string) error {
	fullPath, err := s.resolve(storagePath)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, storagePath)
		}
		return fmt.Errorf("failed to delete local file '%s': %w", fullPath, err)
	}
	return nil
}

// Exists 检查文件是否存在
func (s *LocalStorage) Exists(ctx context.Context, storagePath string) (bool, error) {
	fullPath, err := s.resolve(storagePath)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Health 检查存储健康状态
func (s *LocalStorage) Health(ctx context.Context) error {
	_, err := os.ReadDir(s.absBasePath)
	return err
}

// Name 返回存储名称
func (s *LocalStorage) Name() string {
	return "local"
}

// BasePath 返回存储的基础路径
func (s *LocalStorage) BasePath() string {
	return s.absBasePath
}

// IsValidStoragePath 校验存储路径是否合法
func IsValidStoragePath(path string) bool {
	if path == "" || filepath.IsAbs(path) || strings.HasPrefix(path, "/") {
		return false
	}

	// 防止目录遍历
	if strings.Contains(path, "..") {
		return false
	}

	// 只允许安全字符
	for _, r := range path {
		if (r < 'a' || r > 'z') &&
			(r < 'A' || r > 'Z') &&
			(r < '0' || r > '9') &&
			r != '-' && r != '_' && r != '.' && r != '/' {
			return false
		}
	}
	return true
}
