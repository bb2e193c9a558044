package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// 图像处理后端取值
const (
	ImageLibGD             = "GD"
	ImageLibImageMagick    = "ImageMagick"
	ImageLibImageMagickPHP = "ImageMagickPHP"
)

// 缩略图尺寸名称
const (
	SizeThumb = "thumb"
	SizeSmall = "small"
	SizeLarge = "large"
)

// ThumbnailSize 缩略图尺寸
type ThumbnailSize struct {
	Name   string `mapstructure:"name" json:"name"`
	Prefix string `mapstructure:"prefix" json:"prefix"` // 派生文件名前缀
	Width  int    `mapstructure:"width" json:"width"`
	Height int    `mapstructure:"height" json:"height"`
	Square bool   `mapstructure:"square" json:"square"` // true 时居中裁剪为正方形，否则保持比例
}

// DefaultThumbnailSizes 默认的三档缩略图
var DefaultThumbnailSizes = []ThumbnailSize{
	{Name: SizeThumb, Prefix: "thumb", Width: 60, Height: 60, Square: true},
	{Name: SizeSmall, Prefix: "smallthumb", Width: 153, Height: 153, Square: true},
	{Name: SizeLarge, Prefix: "largethumb", Width: 600, Height: 600},
}

// UploadSettings 上传校验配置
type UploadSettings struct {
	AcceptedFormats []string
	MaxSizeBytes    int64
	MaxPixels       int64
}

// ThumbnailSettings 缩略图生成配置
type ThumbnailSettings struct {
	ImageLib        string
	ImageMagickPath string
	Sizes           []ThumbnailSize
	Quality         int
	Timeout         time.Duration
	MaxConcurrency  int
}

// UploadSettings 从配置中提取上传校验配置
func (c *Config) UploadSettings() UploadSettings {
	return UploadSettings{
		AcceptedFormats: c.UploadAcceptedFormats,
		MaxSizeBytes:    c.UploadMaxSizeKB * 1024,
		MaxPixels:       c.UploadMaxPixels,
	}
}

// ThumbnailSettings 从配置中提取缩略图配置
func (c *Config) ThumbnailSettings() ThumbnailSettings {
	sizes := c.ThumbnailSizes
	if len(sizes) == 0 {
		sizes = DefaultThumbnailSizes
	}
	quality := c.ThumbnailQuality
	if quality <= 0 || quality > 100 {
		quality = 85
	}
	return ThumbnailSettings{
		ImageLib:        c.ImageLib,
		ImageMagickPath: c.ImageMagickPath,
		Sizes:           sizes,
		Quality:         quality,
		Timeout:         c.ThumbnailTimeout,
		MaxConcurrency:  c.ThumbnailMaxConcurrency,
	}
}

// ParseThumbnailSizes 解析 "name:WxH[:square]" 逗号分隔列表
func ParseThumbnailSizes(s string) ([]ThumbnailSize, error) {
	var sizes []ThumbnailSize
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		parts := strings.Split(item, ":")
		if len(parts) < 2 || len(parts) > 3 {
			return nil, fmt.Errorf("malformed size %q", item)
		}

		dims := strings.SplitN(strings.ToLower(parts[1]), "x", 2)
		if len(dims) != 2 {
			return nil, fmt.Errorf("malformed dimensions %q", parts[1])
		}
		w, err := strconv.Atoi(dims[0])
		if err != nil || w <= 0 {
			return nil, fmt.Errorf("invalid width in %q", item)
		}
		h, err := strconv.Atoi(dims[1])
		if err != nil || h <= 0 {
			return nil, fmt.Errorf("invalid height in %q", item)
		}

		size := ThumbnailSize{
			Name:   parts[0],
			Prefix: defaultPrefix(parts[0]),
			Width:  w,
			Height: h,
		}
		if len(parts) == 3 {
			if parts[2] != "square" {
				return nil, fmt.Errorf("unknown size option %q", parts[2])
			}
			size.Square = true
		}
		sizes = append(sizes, size)
	}

	if len(sizes) == 0 {
		return nil, fmt.Errorf("no thumbnail sizes configured")
	}
	return sizes, nil
}

// defaultPrefix thumb -> thumb, small -> smallthumb, large -> largethumb
func defaultPrefix(name string) string {
	if name == SizeThumb {
		return "thumb"
	}
	return name + "thumb"
}
