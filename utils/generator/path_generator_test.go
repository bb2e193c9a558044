package generator

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPathGenerator_OriginalPath(t *testing.T) {
	pg := NewPathGenerator()
	uploadTime := time.Unix(1700000000, 0)

	tests := []struct {
		name      string
		container uint
		filename  string
		want      string
	}{
		{"lowercased", 42, "Holiday.JPG", "image/42/1700000000holiday.jpg"},
		{"spaces replaced", 7, "my cat.png", "image/7/1700000000my_cat.png"},
		{"path stripped", 7, `C:\Users\me\dog.gif`, "image/7/1700000000dog.gif"},
		{"traversal collapsed", 7, "../../etc/passwd", "image/7/1700000000passwd"},
		{"unicode replaced", 3, "café.jpg", "image/3/1700000000caf_.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pg.OriginalPath(tt.container, tt.filename, uploadTime, 0))
		})
	}
}

func TestPathGenerator_OriginalPathRetrySuffix(t *testing.T) {
	pg := &PathGenerator{suffix: func() string { return "abcd1234" }}
	uploadTime := time.Unix(1700000000, 0)

	got := pg.OriginalPath(42, "Holiday.jpg", uploadTime, 1)
	assert.Equal(t, "image/42/1700000000holiday-abcd1234.jpg", got)

	real := NewPathGenerator()
	a := real.OriginalPath(1, "a.jpg", uploadTime, 1)
	b := real.OriginalPath(1, "a.jpg", uploadTime, 2)
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "image/1/1700000000a-"))
}

func TestPathGenerator_DerivativePath(t *testing.T) {
	pg := NewPathGenerator()

	assert.Equal(t, "image/42/thumb1700000000holiday.jpg.jpg", pg.DerivativePath("image/42/1700000000holiday.jpg", "thumb"))
	assert.Equal(t, "image/42/smallthumb1700000000holiday.png.jpg", pg.DerivativePath("image/42/1700000000holiday.png", "smallthumb"))
	assert.Equal(t, "image/42/largethumb1700000000noext.jpg", pg.DerivativePath("image/42/1700000000noext", "largethumb"))

	// 同名不同扩展名的原图不能共用派生图
	assert.NotEqual(t,
		pg.DerivativePath("image/7/1700000000pic.png", "smallthumb"),
		pg.DerivativePath("image/7/1700000000pic.gif", "smallthumb"))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "upload", SanitizeFilename(""))
	assert.Equal(t, "upload", SanitizeFilename("..."))
	assert.Equal(t, "a.b", SanitizeFilename("a..b"))
	assert.Equal(t, "hidden", SanitizeFilename(".hidden"))
}
