package image

import (
	"context"
	"errors"
	"fmt"
	stdimage "image"

	"github.com/disintegration/imaging"
)

// imagingBackend 进程内纯 Go 实现，对应 GD
type imagingBackend struct {
	quality int
}

func newImagingBackend(quality int) *imagingBackend {
	return &imagingBackend{quality: quality}
}

func (b *imagingBackend) Name() string { return "GD" }

func (b *imagingBackend) Generate(ctx context.Context, src string, targets []Target) ([]Target, error) {
	img, err := imaging.Open(src, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode source: %w", err)
	}

	var done []Target
	var errs []error
	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		if err := imaging.Save(resize(img, t), t.Path, imaging.JPEGQuality(b.quality)); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t.Size.Name, err))
			continue
		}
		done = append(done, t)
	}
	return done, errors.Join(errs...)
}

// resize 方形尺寸居中裁剪，其余尺寸等比缩放到框内
func resize(img stdimage.Image, t Target) stdimage.Image {
	if t.Size.Square {
		return imaging.Fill(img, t.Size.Width, t.Size.Height, imaging.Center, imaging.Lanczos)
	}
	return imaging.Fit(img, t.Size.Width, t.Size.Height, imaging.Lanczos)
}
