package image

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// magickBackend 调用 ImageMagick 命令行
type magickBackend struct {
	bin     string
	quality int
}

func newMagickBackend(bin string, quality int) *magickBackend {
	return &magickBackend{bin: bin, quality: quality}
}

func (b *magickBackend) Name() string { return "ImageMagick" }

func (b *magickBackend) Generate(ctx context.Context, src string, targets []Target) ([]Target, error) {
	var done []Target
	var errs []error
	for _, t := range targets {
		cmd := exec.CommandContext(ctx, b.bin, b.args(src, t)...)
		var stderr bytes.Buffer
		cmd.Stderr = &stderr

		if err := cmd.Run(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w: %s", t.Size.Name, err, strings.TrimSpace(stderr.String())))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		done = append(done, t)
	}
	return done, errors.Join(errs...)
}

// args 方形尺寸先填满再居中裁剪，其余尺寸只缩小不放大
func (b *magickBackend) args(src string, t Target) []string {
	geometry := strconv.Itoa(t.Size.Width) + "x" + strconv.Itoa(t.Size.Height)
	args := []string{src + "[0]", "-auto-orient", "-strip"}
	if t.Size.Square {
		args = append(args, "-resize", geometry+"^", "-gravity", "center", "-extent", geometry)
	} else {
		args = append(args, "-resize", geometry+">")
	}
	return append(args, "-quality", strconv.Itoa(b.quality), "jpg:"+t.Path)
}
