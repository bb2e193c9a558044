package storage

import (
	"fmt"

	"github.com/anoixa/tidypics/config"
	"github.com/rs/zerolog/log"
)

// NewProvider 按 storage_type 创建存储提供者
func NewProvider(cfg *config.Config) (Provider, error) {
	log.Info().Str("type", cfg.StorageType).Msg("Initializing storage provider")

	switch cfg.StorageType {
	case "local", "":
		return NewLocalStorage(cfg.StorageRoot)
	case "minio":
		return NewMinioStorage(MinioConfig{
			Endpoint:        cfg.MinioEndpoint,
			AccessKeyID:     cfg.MinioAccessKeyID,
			SecretAccessKey: cfg.MinioSecretAccessKey,
			UseSSL:          cfg.MinioUseSSL,
			BucketName:      cfg.MinioBucketName,
		})
	case "webdav":
		return NewWebDAVStorage(WebDAVConfig{
			URL:      cfg.WebDAVURL,
			Username: cfg.WebDAVUsername,
			Password: cfg.WebDAVPassword,
			RootPath: cfg.WebDAVRootPath,
		})
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.StorageType)
	}
}
