package image

import (
	"context"
	"os/exec"

	"github.com/anoixa/tidypics/config"
	"github.com/rs/zerolog/log"
)

// Target 一个待生成的派生图
type Target struct {
	Size config.ThumbnailSize
	Path string // 本地输出路径，统一为 JPEG
}

// Backend 图像处理后端
type Backend interface {
	Name() string

	// Generate 从本地源文件生成派生图，返回实际生成成功的目标
	// 部分失败时同时返回已生成的目标与错误
	Generate(ctx context.Context, src string, targets []Target) ([]Target, error)
}

// NewBackend 按 image_lib 选择后端，未知取值或后端不可用时回退到 GD
func NewBackend(settings config.ThumbnailSettings) Backend {
	switch settings.ImageLib {
	case config.ImageLibGD, "":
		return newImagingBackend(settings.Quality)
	case config.ImageLibImageMagick:
		bin := settings.ImageMagickPath
		if bin == "" {
			bin = "convert"
		}
		if _, err := exec.LookPath(bin); err != nil {
			log.Warn().Err(err).Str("path", bin).Msg("[Thumbnail] ImageMagick not available, falling back to GD")
			return newImagingBackend(settings.Quality)
		}
		return newMagickBackend(bin, settings.Quality)
	case config.ImageLibImageMagickPHP:
		return newVipsBackend(settings.Quality)
	default:
		log.Warn().Str("image_lib", settings.ImageLib).Msg("[Thumbnail] Unknown image library, falling back to GD")
		return newImagingBackend(settings.Quality)
	}
}
