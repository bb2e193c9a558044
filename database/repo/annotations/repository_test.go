package annotations

import (
	"context"
	"testing"

	"github.com/anoixa/tidypics/database/dbtest"
	"github.com/anoixa/tidypics/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, repo *Repository) {
	t.Helper()
	ctx := context.Background()
	list := []*models.Annotation{
		{EntityGUID: 1, Name: models.AnnotationPhotoTag, Value: "public", OwnerGUID: 10, AccessID: models.AccessPublic},
		{EntityGUID: 1, Name: models.AnnotationPhotoTag, Value: "members", OwnerGUID: 10, AccessID: models.AccessLoggedIn},
		{EntityGUID: 1, Name: models.AnnotationPhotoTag, Value: "private", OwnerGUID: 10, AccessID: models.AccessPrivate},
		{EntityGUID: 1, Name: models.AnnotationView, Value: "1", ValueType: models.ValueTypeInteger, OwnerGUID: 11, AccessID: models.AccessPublic},
		{EntityGUID: 2, Name: models.AnnotationPhotoTag, Value: "other", OwnerGUID: 10, AccessID: models.AccessPublic},
	}
	for _, a := range list {
		require.NoError(t, repo.Create(ctx, a))
	}
}

// TestRepository_AccessFiltering 测试不同查询者可见的注解范围
func TestRepository_AccessFiltering(t *testing.T) {
	repo := NewRepository(dbtest.NewProvider(t))
	seed(t, repo)
	ctx := context.Background()

	tests := []struct {
		name   string
		viewer uint
		expect []string
	}{
		{"anonymous", 0, []string{"public"}},
		{"logged in", 99, []string{"public", "members"}},
		{"author", 10, []string{"public", "members", "private"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := repo.Find(ctx, Query{EntityGUID: 1, Subtype: models.EntitySubtypeImage, Name: models.AnnotationPhotoTag, ViewerGUID: tt.viewer})
			require.NoError(t, err)

			var values []string
			for _, a := range list {
				values = append(values, a.Value)
			}
			assert.Equal(t, tt.expect, values)

			count, err := repo.Count(ctx, Query{EntityGUID: 1, Name: models.AnnotationPhotoTag, ViewerGUID: tt.viewer})
			require.NoError(t, err)
			assert.Equal(t, int64(len(tt.expect)), count)
		})
	}
}

// TestRepository_OffsetLimitAndDelete 测试分页与按实体删除
func TestRepository_OffsetLimitAndDelete(t *testing.T) {
	repo := NewRepository(dbtest.NewProvider(t))
	seed(t, repo)
	ctx := context.Background()

	list, err := repo.Find(ctx, Query{EntityGUID: 1, IgnoreAccess: true, Offset: 1, Limit: 2})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "members", list[0].Value)

	require.NoError(t, repo.DeleteByEntity(ctx, 1, models.EntitySubtypeImage))

	count, err := repo.Count(ctx, Query{EntityGUID: 1, IgnoreAccess: true})
	require.NoError(t, err)
	assert.Zero(t, count)

	count, err = repo.Count(ctx, Query{EntityGUID: 2, IgnoreAccess: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
