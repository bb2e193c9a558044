package image

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/rs/zerolog/log"
)

var vipsOnce sync.Once

// startVips 初始化 libvips，进程内只执行一次
func startVips() {
	vipsOnce.Do(func() {
		vips.LoggingSettings(func(domain string, level vips.LogLevel, msg string) {
			log.Debug().Str("domain", domain).Msg(msg)
		}, vips.LogLevelWarning)
		vips.Startup(nil)
	})
}

// vipsBackend 基于 libvips 的原生实现
type vipsBackend struct {
	quality int
}

func newVipsBackend(quality int) *vipsBackend {
	startVips()
	return &vipsBackend{quality: quality}
}

func (b *vipsBackend) Name() string { return "ImageMagickPHP" }

func (b *vipsBackend) Generate(ctx context.Context, src string, targets []Target) ([]Target, error) {
	var done []Target
	var errs []error
	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := b.generateOne(src, t); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t.Size.Name, err))
			continue
		}
		done = append(done, t)
	}
	return done, errors.Join(errs...)
}

func (b *vipsBackend) generateOne(src string, t Target) error {
	img, err := vips.NewImageFromFile(src)
	if err != nil {
		return fmt.Errorf("load source: %w", err)
	}
	defer img.Close()

	if err := img.AutoRotate(); err != nil {
		return fmt.Errorf("auto rotate: %w", err)
	}

	if t.Size.Square {
		err = img.Thumbnail(t.Size.Width, t.Size.Height, vips.InterestingCentre)
	} else {
		err = img.ThumbnailWithSize(t.Size.Width, t.Size.Height, vips.InterestingNone, vips.SizeDown)
	}
	if err != nil {
		return fmt.Errorf("thumbnail: %w", err)
	}

	params := vips.NewJpegExportParams()
	params.Quality = b.quality
	params.StripMetadata = true
	data, _, err := img.ExportJpeg(params)
	if err != nil {
		return fmt.Errorf("export jpeg: %w", err)
	}
	return os.WriteFile(t.Path, data, 0644)
}
