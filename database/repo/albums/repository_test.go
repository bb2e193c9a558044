package albums

import (
	"context"
	"testing"

	"github.com/anoixa/tidypics/database/dbtest"
	"github.com/anoixa/tidypics/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRepository_AddRemoveImage 测试相册图片引用的增删与封面维护
func TestRepository_AddRemoveImage(t *testing.T) {
	provider := dbtest.NewProvider(t)
	repo := NewRepository(provider)
	ctx := context.Background()

	album := &models.Album{OwnerGUID: 1, Title: "Holiday"}
	require.NoError(t, repo.Create(ctx, album))

	img1 := &models.Image{OwnerGUID: 1, ContainerGUID: album.ID}
	img2 := &models.Image{OwnerGUID: 1, ContainerGUID: album.ID}
	require.NoError(t, provider.DB().Create(img1).Error)
	require.NoError(t, provider.DB().Create(img2).Error)

	require.NoError(t, repo.AddImage(ctx, album.ID, img1.ID))
	require.NoError(t, repo.AddImage(ctx, album.ID, img2.ID))

	ids, err := repo.ImageIDs(ctx, album.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{img1.ID, img2.ID}, ids)

	loaded, err := repo.GetByID(ctx, album.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.CoverImageID)
	assert.Equal(t, img1.ID, *loaded.CoverImageID)

	require.NoError(t, repo.RemoveImage(ctx, album.ID, img1.ID))

	ids, err = repo.ImageIDs(ctx, album.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{img2.ID}, ids)

	loaded, err = repo.GetByID(ctx, album.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded.CoverImageID)
}

// TestRepository_RemoveImage_AlbumMissing 测试相册不存在时返回 ErrAlbumNotFound
func TestRepository_RemoveImage_AlbumMissing(t *testing.T) {
	repo := NewRepository(dbtest.NewProvider(t))

	err := repo.RemoveImage(context.Background(), 999, 1)
	assert.ErrorIs(t, err, ErrAlbumNotFound)
}
