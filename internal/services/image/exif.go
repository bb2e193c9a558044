package image

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/anoixa/tidypics/database/models"
	"github.com/anoixa/tidypics/storage"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// 只有这些格式会携带 EXIF
var exifMimeTypes = map[string]bool{
	"image/jpeg":  true,
	"image/pjpeg": true,
	"image/tiff":  true,
}

// 保存到 Image.Exif 的字段
var exifFields = []exif.FieldName{
	exif.Make,
	exif.Model,
	exif.DateTimeOriginal,
	exif.ExposureTime,
	exif.FNumber,
	exif.ISOSpeedRatings,
	exif.FocalLength,
	exif.Flash,
	exif.Orientation,
}

// ExifReader 从已落盘的原图读取拍摄信息
type ExifReader struct {
	storage storage.Provider
	tempDir string
}

// NewExifReader 创建 EXIF 读取器
func NewExifReader(store storage.Provider, tempDir string) *ExifReader {
	return &ExifReader{storage: store, tempDir: tempDir}
}

// Read 解析原图 EXIF 并写入 img.Exif 与 img.TakenAt
// 格式不支持或文件没有 EXIF 时返回 false 且不报错
func (r *ExifReader) Read(ctx context.Context, img *models.Image) (bool, error) {
	if !exifMimeTypes[strings.ToLower(img.MimeType)] || !img.State.HasFile() {
		return false, nil
	}

	local, cleanup, err := storage.Localize(ctx, r.storage, img.Filename, r.tempDir)
	if err != nil {
		return false, fmt.Errorf("failed to localize %s: %w", img.Filename, err)
	}
	defer cleanup()

	f, err := os.Open(local)
	if err != nil {
		return false, err
	}
	defer func() { _ = f.Close() }()

	// 非致命错误时已解析出的字段仍可用
	x, err := exif.Decode(f)
	if err != nil && exif.IsCriticalError(err) {
		return false, nil
	}
	if x == nil {
		return false, nil
	}

	values := make(map[string]string, len(exifFields))
	for _, name := range exifFields {
		tag, err := x.Get(name)
		if err != nil {
			continue
		}
		if v, ok := tagValue(tag); ok {
			values[string(name)] = v
		}
	}
	if len(values) == 0 {
		return false, nil
	}

	img.Exif = values
	if taken, err := x.DateTime(); err == nil {
		img.TakenAt = &taken
	}
	return true, nil
}

func tagValue(tag *tiff.Tag) (string, bool) {
	switch tag.Format() {
	case tiff.StringVal:
		v, err := tag.StringVal()
		v = strings.TrimSpace(v)
		return v, err == nil && v != ""
	case tiff.IntVal:
		v, err := tag.Int(0)
		return strconv.Itoa(v), err == nil
	case tiff.RatVal:
		v, err := tag.Rat(0)
		if err != nil {
			return "", false
		}
		return v.RatString(), true
	}
	return "", false
}
