package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

// MinioConfig MinIO 连接配置
type MinioConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	BucketName      string
}

// MinioStorage MinIO 对象存储实现
type MinioStorage struct {
	client     *minio.Client
	bucketName string
}

// NewMinioStorage 创建 MinIO 存储并确保 bucket 存在
func NewMinioStorage(cfg MinioConfig) (*MinioStorage, error) {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          256,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       time.Minute,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 10 * time.Second,
		DisableCompression:    true,
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure:    cfg.UseSSL,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check if bucket '%s' exists: %w", cfg.BucketName, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket '%s': %w", cfg.BucketName, err)
		}
		log.Info().Str("bucket", cfg.BucketName).Msg("Created MinIO bucket")
	}

	return &MinioStorage{client: client, bucketName: cfg.BucketName}, nil
}

// SaveWithContext 上传对象
func (s *MinioStorage) SaveWithContext(ctx context.Context, storagePath string, file io.Reader) error {
	_, err := s.client.PutObject(ctx, s.bucketName, storagePath, file, -1, minio.PutObjectOptions{
		ContentType: contentTypeFor(storagePath),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object '%s' to minio: %w", storagePath, err)
	}
	return nil
}

// ImportFile 上传本地文件，对象已存在时拒绝覆盖
func (s *MinioStorage) ImportFile(ctx context.Context, srcPath, storagePath string) (int64, error) {
	exists, err := s.Exists(ctx, storagePath)
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, fmt.Errorf("%w: %s", ErrAlreadyExists, storagePath)
	}

	info, err := s.client.FPutObject(ctx, s.bucketName, storagePath, srcPath, minio.PutObjectOptions{
		ContentType: contentTypeFor(storagePath),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to upload '%s' to minio: %w", storagePath, err)
	}
	_ = os.Remove(srcPath)
	return info.Size, nil
}

// GetWithContext 获取对象流
func (s *MinioStorage) GetWithContext(ctx context.Context, storagePath string) (io.ReadCloser, error) {
	if _, err := s.client.StatObject(ctx, s.bucketName, storagePath, minio.StatObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, storagePath)
		}
		return nil, fmt.Errorf("failed to stat object '%s': %w", storagePath, err)
	}

	obj, err := s.client.GetObject(ctx, s.bucketName, storagePath, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object stream from minio for '%s': %w", storagePath, err)
	}
	return obj, nil
}

// DeleteWithContext 删除对象
func (s *MinioStorage) DeleteWithContext(ctx context.Context, storagePath string) error {
	exists, err := s.Exists(ctx, storagePath)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, storagePath)
	}

	if err := s.client.RemoveObject(ctx, s.bucketName, storagePath, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object '%s' from minio: %w", storagePath, err)
	}
	return nil
}

// Exists 检查对象是否存在
func (s *MinioStorage) Exists(ctx context.Context, storagePath string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucketName, storagePath, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if isNoSuchKey(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat object '%s': %w", storagePath, err)
}

// Health 检查 bucket 可访问
func (s *MinioStorage) Health(ctx context.Context) error {
	ok, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("bucket does not exist: " + s.bucketName)
	}
	return nil
}

// Name 返回存储名称
func (s *MinioStorage) Name() string {
	return "minio"
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

// contentTypeFor 按扩展名推断对象类型
func contentTypeFor(storagePath string) string {
	switch path.Ext(storagePath) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
