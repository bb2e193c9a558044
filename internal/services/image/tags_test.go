package image

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"

	"github.com/anoixa/tidypics/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhotoTags(t *testing.T) {
	f := newFixture(t, nil, Options{BaseURL: "http://example.com/"})
	ctx := context.Background()

	owner := f.createUser(t, "owner", models.UserTypePerson)
	friend := f.createUser(t, "friend", models.UserTypePerson)
	gone := f.createUser(t, "gone", models.UserTypePerson)

	img := &models.Image{OwnerGUID: owner.ID, ContainerGUID: 1}
	require.NoError(t, f.ctrl.Save(ctx, img, nil))

	tagged, err := f.ctrl.IsPhotoTagged(ctx, img, 0)
	require.NoError(t, err)
	assert.False(t, tagged)

	coords := &TagCoords{X1: 10, Y1: 20, Width: 30, Height: 40}
	friendTag, err := f.ctrl.AddPhotoTag(ctx, img, owner.ID,
		PhotoTag{Type: TagTypeUser, Value: strconv.FormatUint(uint64(friend.ID), 10), TagCoords: coords}, models.AccessPublic)
	require.NoError(t, err)
	goneTag, err := f.ctrl.AddPhotoTag(ctx, img, owner.ID,
		PhotoTag{Type: TagTypeUser, Value: strconv.FormatUint(uint64(gone.ID), 10), TagCoords: coords}, models.AccessPublic)
	require.NoError(t, err)
	wordTag, err := f.ctrl.AddPhotoTag(ctx, img, owner.ID,
		PhotoTag{Type: TagTypeWord, Value: "red car"}, models.AccessPublic)
	require.NoError(t, err)

	require.NoError(t, f.provider.DB().Delete(&models.User{}, gone.ID).Error)

	tags, err := f.ctrl.GetPhotoTags(ctx, img, 0)
	require.NoError(t, err)
	require.NotNil(t, tags)
	require.Len(t, tags.Tags, 3)

	assert.Equal(t, "friend name", tags.Tags[0].Text)
	assert.Equal(t, coords, tags.Tags[0].TagCoords)
	assert.Equal(t, TagLink{
		Text: "friend name",
		URL:  "http://example.com/pg/photos/tagged/" + strconv.FormatUint(uint64(friend.ID), 10),
	}, tags.Links[friendTag.ID])

	assert.Equal(t, "unknown user", tags.Tags[1].Text)
	assert.Equal(t, strconv.FormatUint(uint64(goneTag.ID), 10), tags.Tags[1].ID)
	assert.Equal(t, 10, tags.Tags[1].X1)

	assert.Equal(t, "red car", tags.Tags[2].Text)
	assert.Nil(t, tags.Tags[2].TagCoords)
	assert.Equal(t, "http://example.com/search/?tag=red+car&subtype=image&object=object", tags.Links[wordTag.ID].URL)

	var rendered []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(tags.JSON), &rendered))
	require.Len(t, rendered, 3)
	assert.EqualValues(t, 30, rendered[0]["width"])
	assert.Equal(t, "unknown user", rendered[1]["text"])
	assert.NotContains(t, rendered[2], "x1")

	tagged, err = f.ctrl.IsPhotoTagged(ctx, img, 0)
	require.NoError(t, err)
	assert.True(t, tagged)
}

func TestPhotoTags_None(t *testing.T) {
	f := newFixture(t, nil, Options{})
	img := &models.Image{OwnerGUID: 1, ContainerGUID: 1}
	require.NoError(t, f.ctrl.Save(context.Background(), img, nil))

	tags, err := f.ctrl.GetPhotoTags(context.Background(), img, 0)
	require.NoError(t, err)
	assert.Nil(t, tags)
}

func TestPhotoTags_Access(t *testing.T) {
	f := newFixture(t, nil, Options{})
	ctx := context.Background()

	img := &models.Image{OwnerGUID: 1, ContainerGUID: 1}
	require.NoError(t, f.ctrl.Save(ctx, img, nil))

	_, err := f.ctrl.AddPhotoTag(ctx, img, 5, PhotoTag{Type: TagTypeWord, Value: "secret"}, models.AccessPrivate)
	require.NoError(t, err)

	tags, err := f.ctrl.GetPhotoTags(ctx, img, 0)
	require.NoError(t, err)
	assert.Nil(t, tags)

	tags, err = f.ctrl.GetPhotoTags(ctx, img, 5)
	require.NoError(t, err)
	require.NotNil(t, tags)
	assert.Equal(t, "secret", tags.Tags[0].Text)
}

func TestAddPhotoTag_Invalid(t *testing.T) {
	f := newFixture(t, nil, Options{})
	img := &models.Image{ID: 1}

	cases := []PhotoTag{
		{Type: "face", Value: "x"},
		{Type: TagTypeUser, Value: "alice"},
		{Type: TagTypeWord, Value: ""},
		{Type: TagTypeWord, Value: "x", TagCoords: &TagCoords{Width: 0, Height: 5}},
	}
	for _, tag := range cases {
		_, err := f.ctrl.AddPhotoTag(context.Background(), img, 1, tag, models.AccessPublic)
		assert.ErrorIs(t, err, ErrInvalidTag)
	}
}
