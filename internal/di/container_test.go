package di

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/anoixa/tidypics/config"
	"github.com/anoixa/tidypics/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		ServerHost:            "127.0.0.1",
		ServerPort:            8080,
		DBType:                "sqlite",
		DBFilePath:            filepath.Join(dir, "test.db"),
		StorageType:           "local",
		StorageRoot:           filepath.Join(dir, "photos"),
		StorageTempDir:        filepath.Join(dir, "temp"),
		UploadAcceptedFormats: []string{"image/png"},
		UploadMaxSizeKB:       1024,
		UploadMaxPixels:       1000000,
		ImageLib:              config.ImageLibGD,
		CacheType:             "memory",
		JWTSecret:             "0123456789abcdef0123456789abcdef",
		WorkerCount:           1,
	}
}

func TestContainer_Init(t *testing.T) {
	c := NewContainer(testConfig(t))
	require.NoError(t, c.Init())
	defer func() { _ = c.Close() }()

	assert.NotNil(t, c.GetDatabaseProvider())
	assert.Equal(t, "local", c.GetStorage().Name())
	assert.Equal(t, "memory", c.GetCache().Name())
	assert.NotNil(t, c.GetLedger())
	assert.NotNil(t, c.GetJWTService())
	assert.NotNil(t, c.GetWorkerPool())

	ctrl := c.GetController()
	require.NotNil(t, ctrl)
	assert.IsType(t, events.Nop{}, ctrl.Publisher)
	assert.Equal(t, "GD", ctrl.Generator.BackendName())
}

func TestContainer_ApplyConfig(t *testing.T) {
	cfg := testConfig(t)
	c := NewContainer(cfg)
	require.NoError(t, c.Init())
	defer func() { _ = c.Close() }()

	updated := *cfg
	updated.UploadAcceptedFormats = []string{"image/jpeg"}
	updated.UploadMaxSizeKB = 1
	c.ApplyConfig(&updated)

	settings := c.GetController().Validator.Settings()
	assert.Equal(t, []string{"image/jpeg"}, settings.AcceptedFormats)
	assert.Equal(t, int64(1024), settings.MaxSizeBytes)
	assert.Same(t, &updated, c.GetConfig())
}

// TestContainer_ConcurrentReload 测试热更新与读取配置并发执行
func TestContainer_ConcurrentReload(t *testing.T) {
	cfg := testConfig(t)
	c := NewContainer(cfg)
	require.NoError(t, c.Init())
	defer func() { _ = c.Close() }()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(kb int64) {
			defer wg.Done()
			updated := *cfg
			updated.UploadMaxSizeKB = kb
			c.ApplyConfig(&updated)
		}(int64(i + 1))
		go func() {
			defer wg.Done()
			assert.NotNil(t, c.GetConfig())
		}()
	}
	wg.Wait()

	got := c.GetConfig()
	assert.Equal(t, got.UploadMaxSizeKB*1024, c.GetController().Validator.Settings().MaxSizeBytes)
}

func TestContainer_BadStorage(t *testing.T) {
	cfg := testConfig(t)
	cfg.StorageType = "ftp"

	c := NewContainer(cfg)
	assert.Error(t, c.Init())
	_ = c.Close()
}
