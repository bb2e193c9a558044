package image

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingContainer 保存前未设置 container_guid
	ErrMissingContainer = errors.New("image container_guid must be set before save")
	// ErrAlreadyStored 图片已持有原图文件，不能再次上传
	ErrAlreadyStored = errors.New("image already has a stored file")
	// ErrNotOwner 非图片所有者
	ErrNotOwner = errors.New("not the owner of this image")
)

// StorageWriteError 原图落盘失败
type StorageWriteError struct {
	Path string
	Err  error
}

func (e *StorageWriteError) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.Path, e.Err)
}

func (e *StorageWriteError) Unwrap() error {
	return e.Err
}

// ThumbnailError 缩略图生成失败，不影响保存结果
type ThumbnailError struct {
	Missing []string // 未生成的尺寸名称
	Err     error
}

func (e *ThumbnailError) Error() string {
	return fmt.Sprintf("thumbnail generation failed for [%s]: %v", strings.Join(e.Missing, ","), e.Err)
}

func (e *ThumbnailError) Unwrap() error {
	return e.Err
}
