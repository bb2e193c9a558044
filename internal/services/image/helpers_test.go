package image

import (
	"bytes"
	stdimage "image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/anoixa/tidypics/config"
	"github.com/anoixa/tidypics/database"
	"github.com/anoixa/tidypics/database/dbtest"
	"github.com/anoixa/tidypics/database/models"
	"github.com/anoixa/tidypics/database/repo/albums"
	"github.com/anoixa/tidypics/database/repo/annotations"
	"github.com/anoixa/tidypics/database/repo/batches"
	"github.com/anoixa/tidypics/database/repo/images"
	"github.com/anoixa/tidypics/database/repo/relationships"
	"github.com/anoixa/tidypics/database/repo/users"
	"github.com/anoixa/tidypics/internal/services/quota"
	"github.com/anoixa/tidypics/storage"
	"github.com/anoixa/tidypics/utils/generator"
	"github.com/anoixa/tidypics/utils/validator"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	ctrl     *Controller
	provider database.Provider
	store    *storage.LocalStorage
	root     string
	ledger   *quota.Ledger
}

func testUploadSettings() config.UploadSettings {
	return config.UploadSettings{
		AcceptedFormats: []string{"image/jpeg", "image/png", "image/gif"},
		MaxSizeBytes:    10240 * 1024,
		MaxPixels:       1000 * 1000,
	}
}

func testThumbnailSettings() config.ThumbnailSettings {
	return config.ThumbnailSettings{
		ImageLib:       config.ImageLibGD,
		Sizes:          config.DefaultThumbnailSizes,
		Quality:        80,
		MaxConcurrency: 2,
	}
}

// newFixture 构建基于内存 SQLite 与临时目录的控制器，backend 为 nil 时使用 GD 后端
func newFixture(t *testing.T, backend Backend, opts Options) *fixture {
	t.Helper()

	provider := dbtest.NewProvider(t)
	root := t.TempDir()
	store, err := storage.NewLocalStorage(root)
	require.NoError(t, err)

	if backend == nil {
		backend = NewBackend(testThumbnailSettings())
	}
	paths := generator.NewPathGenerator()
	ledger := quota.NewLedger(provider, nil, 0)

	ctrl := NewController(Deps{
		DB:            provider,
		Images:        images.NewRepository(provider),
		Albums:        albums.NewRepository(provider),
		Batches:       batches.NewRepository(provider),
		Relationships: relationships.NewRepository(provider),
		Annotations:   annotations.NewRepository(provider),
		Users:         users.NewRepository(provider),
		Validator:     validator.New(testUploadSettings()),
		Placer:        NewPlacer(store, paths),
		Generator:     NewGeneratorWithBackend(testThumbnailSettings(), backend, store, paths, t.TempDir()),
		Exif:          NewExifReader(store, t.TempDir()),
		Ledger:        ledger,
		Storage:       store,
	}, opts)

	return &fixture{ctrl: ctrl, provider: provider, store: store, root: root, ledger: ledger}
}

func (f *fixture) createUser(t *testing.T, username, userType string) *models.User {
	t.Helper()
	u := &models.User{Username: username, Name: username + " name", Type: userType}
	require.NoError(t, f.provider.DB().Create(u).Error)
	return u
}

func (f *fixture) usage(t *testing.T, owner uint) int64 {
	t.Helper()
	n, err := f.ledger.Usage(t.Context(), owner)
	require.NoError(t, err)
	return n
}

// countFiles 统计存储目录下的文件数
func (f *fixture) countFiles(t *testing.T) int {
	t.Helper()
	n := 0
	err := filepath.Walk(f.root, func(_ string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			n++
		}
		return err
	})
	require.NoError(t, err)
	return n
}

// newUpload 写入一张 PNG 临时文件并返回上传元数据
func newUpload(t *testing.T, name string, w, h int) *validator.UploadData {
	t.Helper()
	img := stdimage.NewRGBA(stdimage.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	path := filepath.Join(t.TempDir(), "upload.tmp")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return &validator.UploadData{
		Name:    name,
		Type:    "image/png",
		Size:    int64(buf.Len()),
		TmpPath: path,
	}
}
