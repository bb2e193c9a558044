package image

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/anoixa/tidypics/config"
	"github.com/anoixa/tidypics/database/models"
	"github.com/anoixa/tidypics/database/repo/images"
	"github.com/anoixa/tidypics/utils/validator"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// TestSave_Success 测试完整入库流程
func TestSave_Success(t *testing.T) {
	f := newFixture(t, nil, Options{})
	ctx := context.Background()
	owner := f.createUser(t, "owner", models.UserTypePerson)

	upload := newUpload(t, "My Cat.PNG", 320, 240)
	img := &models.Image{OwnerGUID: owner.ID, ContainerGUID: 5}
	require.NoError(t, f.ctrl.Save(ctx, img, upload))

	assert.Equal(t, models.ImageStateReady, img.State)
	assert.Regexp(t, `^image/5/\d+my_cat\.png$`, img.Filename)
	assert.Equal(t, upload.Size, img.Size)
	assert.Equal(t, 320, img.Width)
	assert.Equal(t, 240, img.Height)
	assert.Equal(t, "image/png", img.MimeType)
	assert.Equal(t, "My Cat.PNG", img.OriginalFilename)
	assert.Equal(t, "My Cat.PNG", f.ctrl.Title(img))
	assert.NoFileExists(t, upload.TmpPath)

	loaded, err := f.ctrl.Load(ctx, img.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ImageStateReady, loaded.State)
	for _, size := range []string{config.SizeThumb, config.SizeSmall, config.SizeLarge} {
		assert.NotEmpty(t, loaded.DerivativePath(size), size)
		data, err := f.ctrl.GetThumbnail(ctx, loaded, size)
		require.NoError(t, err)
		assert.NotEmpty(t, data, size)
	}
	assert.Equal(t, filepath.Dir(loaded.Filename), filepath.Dir(loaded.SmallThumb))

	assert.Equal(t, upload.Size, f.usage(t, owner.ID))
}

// TestSave_MissingContainer 测试未设置容器时拒绝保存
func TestSave_MissingContainer(t *testing.T) {
	f := newFixture(t, nil, Options{})

	err := f.ctrl.Save(context.Background(), &models.Image{OwnerGUID: 1}, newUpload(t, "a.png", 10, 10))
	assert.ErrorIs(t, err, ErrMissingContainer)

	count, err := f.ctrl.Images.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

// TestSave_WithoutData 测试只持久化基础记录
func TestSave_WithoutData(t *testing.T) {
	f := newFixture(t, nil, Options{})

	img := &models.Image{OwnerGUID: 1, ContainerGUID: 3, Title: "placeholder"}
	require.NoError(t, f.ctrl.Save(context.Background(), img, nil))
	assert.NotZero(t, img.ID)
	assert.Equal(t, models.ImageStateEmpty, img.State)
	assert.Zero(t, f.countFiles(t))
}

// TestSave_TransportError 测试传输错误时不触碰存储和配额
func TestSave_TransportError(t *testing.T) {
	f := newFixture(t, nil, Options{})
	ctx := context.Background()
	owner := f.createUser(t, "owner", models.UserTypePerson)

	upload := newUpload(t, "a.png", 10, 10)
	upload.Error = validator.UploadErrIniSize

	img := &models.Image{OwnerGUID: owner.ID, ContainerGUID: 1}
	err := f.ctrl.Save(ctx, img, upload)
	require.Error(t, err)
	assert.Equal(t, validator.KindTransportError, validator.KindOf(err))

	assert.Zero(t, f.countFiles(t))
	assert.Zero(t, f.usage(t, owner.ID))
	assert.FileExists(t, upload.TmpPath)

	// 默认保留无文件的基础记录
	loaded, err := f.ctrl.Load(ctx, img.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ImageStateMetadataSet, loaded.State)
}

// TestSave_UnsupportedFormat 测试格式不在白名单时不读取文件
func TestSave_UnsupportedFormat(t *testing.T) {
	f := newFixture(t, nil, Options{})

	upload := &validator.UploadData{Name: "doc.pdf", Type: "application/pdf", Size: 10, TmpPath: "/nonexistent/upload"}
	err := f.ctrl.Save(context.Background(), &models.Image{OwnerGUID: 1, ContainerGUID: 1}, upload)
	assert.Equal(t, validator.KindUnsupportedFormat, validator.KindOf(err))
	assert.Zero(t, f.countFiles(t))
}

// TestSave_DecodedTooLarge 测试小文件大像素被拒绝，并按配置回滚记录
func TestSave_DecodedTooLarge(t *testing.T) {
	f := newFixture(t, nil, Options{RollbackOnValidationFailure: true})
	ctx := context.Background()
	owner := f.createUser(t, "owner", models.UserTypePerson)

	upload := newUpload(t, "bomb.png", 1200, 1000)
	require.Less(t, upload.Size, int64(1024*1024))

	img := &models.Image{OwnerGUID: owner.ID, ContainerGUID: 1}
	err := f.ctrl.Save(ctx, img, upload)
	assert.Equal(t, validator.KindDecodedTooLarge, validator.KindOf(err))
	assert.Zero(t, img.ID)

	count, err := f.ctrl.Images.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Zero(t, f.usage(t, owner.ID))
}

// TestSave_AlreadyStored 测试已落盘的图片不能再次上传
func TestSave_AlreadyStored(t *testing.T) {
	f := newFixture(t, nil, Options{})
	img := &models.Image{OwnerGUID: 1, ContainerGUID: 1}
	require.NoError(t, f.ctrl.Save(context.Background(), img, newUpload(t, "a.png", 10, 10)))

	err := f.ctrl.Save(context.Background(), img, newUpload(t, "b.png", 10, 10))
	assert.ErrorIs(t, err, ErrAlreadyStored)
}

// TestSave_ThumbnailFailure 测试后端失败时图片仍完整保存
func TestSave_ThumbnailFailure(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	backend := NewMockBackend(mockCtrl)
	backend.EXPECT().Name().Return("mock").AnyTimes()
	backend.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Len(3)).Return(nil, errors.New("backend crashed"))

	f := newFixture(t, backend, Options{})
	ctx := context.Background()
	owner := f.createUser(t, "owner", models.UserTypePerson)

	upload := newUpload(t, "a.png", 50, 50)
	img := &models.Image{OwnerGUID: owner.ID, ContainerGUID: 2}
	require.NoError(t, f.ctrl.Save(ctx, img, upload))

	loaded, err := f.ctrl.Load(ctx, img.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ImageStateReady, loaded.State)
	assert.NotEmpty(t, loaded.Filename)
	assert.Empty(t, loaded.Thumbnail)
	assert.Empty(t, loaded.SmallThumb)
	assert.Empty(t, loaded.LargeThumb)
	assert.Equal(t, upload.Size, f.usage(t, owner.ID))

	data, err := f.ctrl.GetThumbnail(ctx, loaded, config.SizeSmall)
	assert.NoError(t, err)
	assert.Empty(t, data)
}

// TestSave_PartialThumbnails 测试部分尺寸生成成功
func TestSave_PartialThumbnails(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	backend := NewMockBackend(mockCtrl)
	backend.EXPECT().Name().Return("mock").AnyTimes()
	backend.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, targets []Target) ([]Target, error) {
			require.NoError(t, os.WriteFile(targets[0].Path, []byte("thumb"), 0644))
			return targets[:1], errors.New("small and large failed")
		})

	f := newFixture(t, backend, Options{})
	ctx := context.Background()

	img := &models.Image{OwnerGUID: 1, ContainerGUID: 2}
	require.NoError(t, f.ctrl.Save(ctx, img, newUpload(t, "a.png", 50, 50)))

	assert.NotEmpty(t, img.Thumbnail)
	assert.Empty(t, img.SmallThumb)

	data, err := f.ctrl.GetThumbnail(ctx, img, config.SizeThumb)
	require.NoError(t, err)
	assert.Equal(t, "thumb", string(data))

	data, err = f.ctrl.GetThumbnail(ctx, img, "huge")
	assert.NoError(t, err)
	assert.Empty(t, data)
}

// TestSaveDelete_QuotaRoundTrip 测试保存后删除配额净变化为零
func TestSaveDelete_QuotaRoundTrip(t *testing.T) {
	f := newFixture(t, nil, Options{})
	ctx := context.Background()
	owner := f.createUser(t, "owner", models.UserTypePerson)
	require.NoError(t, f.ledger.Credit(ctx, owner.ID, 777))

	img := &models.Image{OwnerGUID: owner.ID, ContainerGUID: 9}
	upload := newUpload(t, "a.png", 100, 80)
	require.NoError(t, f.ctrl.Save(ctx, img, upload))
	assert.Equal(t, 777+upload.Size, f.usage(t, owner.ID))

	require.NoError(t, f.ctrl.Delete(ctx, img.ID))
	assert.Equal(t, int64(777), f.usage(t, owner.ID))
	assert.Zero(t, f.countFiles(t))

	_, err := f.ctrl.Load(ctx, img.ID)
	assert.ErrorIs(t, err, images.ErrImageNotFound)
}

// TestDelete_MissingDerivatives 测试派生图已丢失时仍删除记录且只扣减一次
func TestDelete_MissingDerivatives(t *testing.T) {
	f := newFixture(t, nil, Options{})
	ctx := context.Background()
	owner := f.createUser(t, "owner", models.UserTypePerson)

	img := &models.Image{OwnerGUID: owner.ID, ContainerGUID: 9}
	require.NoError(t, f.ctrl.Save(ctx, img, newUpload(t, "a.png", 100, 80)))

	for _, p := range img.DerivativePaths() {
		require.NoError(t, f.store.DeleteWithContext(ctx, p))
	}
	require.NoError(t, f.store.DeleteWithContext(ctx, img.Filename))

	require.NoError(t, f.ctrl.Delete(ctx, img.ID))
	assert.Zero(t, f.usage(t, owner.ID))

	assert.ErrorIs(t, f.ctrl.Delete(ctx, img.ID), images.ErrImageNotFound)
	assert.Zero(t, f.usage(t, owner.ID))
}

// TestDelete_SameStemKeepsOtherDerivatives 测试同一秒上传的同名不同扩展名图片互不影响派生图
func TestDelete_SameStemKeepsOtherDerivatives(t *testing.T) {
	f := newFixture(t, nil, Options{})
	f.ctrl.Placer.now = func() time.Time { return time.Unix(1700000000, 0) }
	ctx := context.Background()
	owner := f.createUser(t, "owner", models.UserTypePerson)

	a := &models.Image{OwnerGUID: owner.ID, ContainerGUID: 7}
	require.NoError(t, f.ctrl.Save(ctx, a, newUpload(t, "pic.png", 100, 80)))
	b := &models.Image{OwnerGUID: owner.ID, ContainerGUID: 7}
	require.NoError(t, f.ctrl.Save(ctx, b, newUpload(t, "pic.gif", 100, 80)))

	assert.Equal(t, "image/7/smallthumb1700000000pic.png.jpg", a.SmallThumb)
	assert.Equal(t, "image/7/smallthumb1700000000pic.gif.jpg", b.SmallThumb)

	require.NoError(t, f.ctrl.Delete(ctx, a.ID))

	for _, size := range []string{config.SizeThumb, config.SizeSmall, config.SizeLarge} {
		data, err := f.ctrl.GetThumbnail(ctx, b, size)
		require.NoError(t, err)
		assert.NotEmpty(t, data, size)
	}
}

// TestDelete_FilelessRecord 测试删除无文件记录不扣减配额
func TestDelete_FilelessRecord(t *testing.T) {
	f := newFixture(t, nil, Options{})
	ctx := context.Background()
	owner := f.createUser(t, "owner", models.UserTypePerson)
	require.NoError(t, f.ledger.Credit(ctx, owner.ID, 100))

	upload := newUpload(t, "a.png", 10, 10)
	upload.Type = "image/bmp"
	img := &models.Image{OwnerGUID: owner.ID, ContainerGUID: 9}
	require.Error(t, f.ctrl.Save(ctx, img, upload))

	require.NoError(t, f.ctrl.Delete(ctx, img.ID))
	assert.Equal(t, int64(100), f.usage(t, owner.ID))
}

// TestDelete_Album 测试删除时从相册移除并清空封面
func TestDelete_Album(t *testing.T) {
	f := newFixture(t, nil, Options{})
	ctx := context.Background()

	album := &models.Album{OwnerGUID: 1, Title: "Holiday"}
	require.NoError(t, f.ctrl.Albums.Create(ctx, album))

	img := &models.Image{OwnerGUID: 1, ContainerGUID: album.ID}
	require.NoError(t, f.ctrl.Save(ctx, img, newUpload(t, "a.png", 10, 10)))

	ids, err := f.ctrl.Albums.ImageIDs(ctx, album.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{img.ID}, ids)

	require.NoError(t, f.ctrl.Delete(ctx, img.ID))

	ids, err = f.ctrl.Albums.ImageIDs(ctx, album.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)

	reloaded, err := f.ctrl.Albums.GetByID(ctx, album.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.CoverImageID)
}

// TestBatch_SingleMemberCascade 测试删除唯一成员时批次随之删除
func TestBatch_SingleMemberCascade(t *testing.T) {
	f := newFixture(t, nil, Options{})
	ctx := context.Background()

	batch, results, err := f.ctrl.SaveBatch(ctx, 1, 4, models.AccessPublic, []*validator.UploadData{newUpload(t, "only.png", 20, 20)})
	require.NoError(t, err)
	require.NotNil(t, batch)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)

	require.NoError(t, f.ctrl.Delete(ctx, results[0].Image.ID))

	loaded, err := f.ctrl.Batches.GetByID(ctx, batch.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

// TestBatch_MultiMember 测试删除部分成员时批次与其余成员保留
func TestBatch_MultiMember(t *testing.T) {
	f := newFixture(t, nil, Options{})
	ctx := context.Background()

	uploads := []*validator.UploadData{
		newUpload(t, "a.png", 20, 20),
		newUpload(t, "b.png", 20, 20),
		newUpload(t, "c.png", 20, 20),
	}
	batch, results, err := f.ctrl.SaveBatch(ctx, 1, 4, models.AccessPublic, uploads)
	require.NoError(t, err)
	require.NotNil(t, batch)
	for _, r := range results {
		require.NoError(t, r.Err)
	}

	require.NoError(t, f.ctrl.Delete(ctx, results[0].Image.ID))

	loaded, err := f.ctrl.Batches.GetByID(ctx, batch.ID)
	require.NoError(t, err)
	assert.NotNil(t, loaded)

	members, err := f.ctrl.Relationships.Query(ctx, models.RelationshipBelongsToBatch, batch.ID, true)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{results[1].Image.ID, results[2].Image.ID}, members)

	for _, r := range results[1:] {
		_, err := f.ctrl.Load(ctx, r.Image.ID)
		assert.NoError(t, err)
	}
}

// TestBatch_ConcurrentDeleteOfLastMembers 测试同时删除最后两个成员后批次不会残留
func TestBatch_ConcurrentDeleteOfLastMembers(t *testing.T) {
	f := newFixture(t, nil, Options{})
	ctx := context.Background()

	uploads := []*validator.UploadData{
		newUpload(t, "a.png", 20, 20),
		newUpload(t, "b.png", 20, 20),
	}
	batch, results, err := f.ctrl.SaveBatch(ctx, 1, 4, models.AccessPublic, uploads)
	require.NoError(t, err)
	require.NotNil(t, batch)

	var g errgroup.Group
	for _, r := range results {
		require.NoError(t, r.Err)
		id := r.Image.ID
		g.Go(func() error { return f.ctrl.Delete(ctx, id) })
	}
	require.NoError(t, g.Wait())

	loaded, err := f.ctrl.Batches.GetByID(ctx, batch.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded)

	members, err := f.ctrl.Relationships.Count(ctx, models.RelationshipBelongsToBatch, batch.ID, true)
	require.NoError(t, err)
	assert.Zero(t, members)
}

// TestBatch_AllRejected 测试没有成员落盘时批次被删除
func TestBatch_AllRejected(t *testing.T) {
	f := newFixture(t, nil, Options{RollbackOnValidationFailure: true})
	ctx := context.Background()

	bad := newUpload(t, "a.png", 10, 10)
	bad.Error = validator.UploadErrPartial

	batch, results, err := f.ctrl.SaveBatch(ctx, 1, 4, models.AccessPublic, []*validator.UploadData{bad})
	require.NoError(t, err)
	assert.Nil(t, batch)
	require.Len(t, results, 1)
	assert.Equal(t, validator.KindTransportError, validator.KindOf(results[0].Err))
	assert.Nil(t, results[0].Image)

	count, err := f.ctrl.Batches.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

// TestSrcURL 测试派生图地址
func TestSrcURL(t *testing.T) {
	f := newFixture(t, nil, Options{BaseURL: "http://example.com/"})
	assert.Equal(t, "http://example.com/photos/thumbnail/12/small/", f.ctrl.SrcURL(&models.Image{ID: 12}, config.SizeSmall))
}

func TestDeleteAs(t *testing.T) {
	f := newFixture(t, nil, Options{})
	ctx := context.Background()

	img := &models.Image{OwnerGUID: 3, ContainerGUID: 1}
	require.NoError(t, f.ctrl.Save(ctx, img, nil))

	assert.ErrorIs(t, f.ctrl.DeleteAs(ctx, img.ID, 4), ErrNotOwner)
	require.NoError(t, f.ctrl.DeleteAs(ctx, img.ID, 3))
	assert.ErrorIs(t, f.ctrl.DeleteAs(ctx, img.ID, 3), images.ErrImageNotFound)
}

func TestCanView(t *testing.T) {
	f := newFixture(t, nil, Options{})

	cases := []struct {
		access int
		viewer uint
		want   bool
	}{
		{models.AccessPublic, 0, true},
		{models.AccessLoggedIn, 0, false},
		{models.AccessLoggedIn, 9, true},
		{models.AccessPrivate, 9, false},
		{models.AccessPrivate, 1, true},
	}
	for _, tc := range cases {
		img := &models.Image{OwnerGUID: 1, AccessID: tc.access}
		assert.Equal(t, tc.want, f.ctrl.CanView(img, tc.viewer), "access=%d viewer=%d", tc.access, tc.viewer)
	}
}
