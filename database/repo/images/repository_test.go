package images

import (
	"context"
	"testing"
	"time"

	"github.com/anoixa/tidypics/database/dbtest"
	"github.com/anoixa/tidypics/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRepository_MarkStoredAndDerivatives 测试落盘与缩略图字段更新
func TestRepository_MarkStoredAndDerivatives(t *testing.T) {
	repo := NewRepository(dbtest.NewProvider(t))
	ctx := context.Background()

	img := &models.Image{OwnerGUID: 1, ContainerGUID: 5, State: models.ImageStateMetadataSet}
	require.NoError(t, repo.Create(ctx, img))

	img.Filename = "image/5/1700000000cat.jpg"
	img.OriginalFilename = "Cat.jpg"
	img.SimpleType = models.SimpleTypeImage
	img.Size = 2048
	require.NoError(t, repo.MarkStored(ctx, img))

	img.Thumbnail = "image/5/thumb1700000000cat.jpg"
	require.NoError(t, repo.UpdateDerivatives(ctx, img, models.ImageStateReady))

	loaded, err := repo.GetByID(ctx, img.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, models.ImageStateReady, loaded.State)
	assert.Equal(t, int64(2048), loaded.Size)
	assert.Equal(t, "image/5/thumb1700000000cat.jpg", loaded.Thumbnail)
	assert.Empty(t, loaded.SmallThumb)
}

// TestRepository_MarkStored_Missing 测试记录不存在时返回 ErrImageNotFound
func TestRepository_MarkStored_Missing(t *testing.T) {
	repo := NewRepository(dbtest.NewProvider(t))

	err := repo.MarkStored(context.Background(), &models.Image{ID: 42})
	assert.ErrorIs(t, err, ErrImageNotFound)
}

// TestRepository_StoredSizeAndOrphans 测试配额汇总与孤儿记录查询
func TestRepository_StoredSizeAndOrphans(t *testing.T) {
	provider := dbtest.NewProvider(t)
	repo := NewRepository(provider)
	ctx := context.Background()

	records := []*models.Image{
		{OwnerGUID: 1, ContainerGUID: 1, Size: 100, State: models.ImageStateReady},
		{OwnerGUID: 1, ContainerGUID: 1, Size: 50, State: models.ImageStateStored},
		{OwnerGUID: 1, ContainerGUID: 1, Size: 999, State: models.ImageStateMetadataSet},
		{OwnerGUID: 2, ContainerGUID: 1, Size: 7, State: models.ImageStateReady},
	}
	for _, rec := range records {
		require.NoError(t, repo.Create(ctx, rec))
	}

	total, err := repo.StoredSizeByOwner(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(150), total)

	total, err = repo.StoredSizeByOwner(ctx, 3)
	require.NoError(t, err)
	assert.Zero(t, total)

	orphans, err := repo.ListOrphans(ctx, time.Now().Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, records[2].ID, orphans[0].ID)

	orphans, err = repo.ListOrphans(ctx, time.Now().Add(-time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, orphans)
}
