// Package validator 校验上传图片的格式、大小与像素预算
package validator

import (
	"errors"
	"fmt"
	"image"
	"os"
	"strings"
	"sync"

	// 注册头部解码器
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/anoixa/tidypics/config"
)

// Kind 校验失败类别
type Kind string

const (
	KindTransportError    Kind = "TransportError"
	KindUnsupportedFormat Kind = "UnsupportedFormat"
	KindFileTooLarge      Kind = "FileTooLarge"
	KindDecodedTooLarge   Kind = "DecodedTooLarge"
)

// 传输层错误码，与常见上传错误码保持一致
const (
	UploadOK          = 0
	UploadErrIniSize  = 1
	UploadErrFormSize = 2
	UploadErrPartial  = 3
	UploadErrNoFile   = 4
)

// ValidationError 上传校验错误
type ValidationError struct {
	Kind    Kind
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// KindOf 返回错误对应的校验类别，非校验错误返回空字符串
func KindOf(err error) Kind {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Kind
	}
	return ""
}

// UploadData 一次上传的原始元数据
type UploadData struct {
	Name    string // 客户端文件名
	Type    string // 声明的 MIME 类型
	Size    int64  // 声明的字节数
	TmpPath string // 临时文件路径
	Error   int    // 传输层错误码，0 表示成功
}

// Probe 头部探测结果
type Probe struct {
	Width  int
	Height int
	Format string
}

// Validator 上传校验器，配置可在运行时替换
type Validator struct {
	mu       sync.RWMutex
	settings config.UploadSettings
}

// New 创建校验器
func New(settings config.UploadSettings) *Validator {
	return &Validator{settings: settings}
}

// Update 替换校验配置
func (v *Validator) Update(settings config.UploadSettings) {
	v.mu.Lock()
	v.settings = settings
	v.mu.Unlock()
}

// Settings 返回当前配置
func (v *Validator) Settings() config.UploadSettings {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.settings
}

// Validate 依次执行传输、格式、大小、像素检查，遇到第一个失败即返回
func (v *Validator) Validate(data *UploadData) (*Probe, error) {
	settings := v.Settings()

	if data.Error != UploadOK {
		return nil, &ValidationError{Kind: KindTransportError, Message: transportMessage(data.Error)}
	}

	if !accepts(settings.AcceptedFormats, data.Type) {
		return nil, &ValidationError{
			Kind:    KindUnsupportedFormat,
			Message: fmt.Sprintf("%s is not an accepted image format", data.Type),
		}
	}

	if settings.MaxSizeBytes > 0 && data.Size > settings.MaxSizeBytes {
		return nil, &ValidationError{
			Kind:    KindFileTooLarge,
			Message: fmt.Sprintf("file size %d exceeds limit %d", data.Size, settings.MaxSizeBytes),
		}
	}

	probe, err := probeFile(data.TmpPath)
	if err != nil {
		return nil, &ValidationError{Kind: KindUnsupportedFormat, Message: err.Error()}
	}

	if settings.MaxPixels > 0 && int64(probe.Width)*int64(probe.Height) > settings.MaxPixels {
		return nil, &ValidationError{
			Kind: KindDecodedTooLarge,
			Message: fmt.Sprintf("image %dx%d exceeds pixel budget %d",
				probe.Width, probe.Height, settings.MaxPixels),
		}
	}

	return probe, nil
}

// probeFile 只解码图片头部获取尺寸
func probeFile(path string) (*Probe, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open upload: %w", err)
	}
	defer func() { _ = f.Close() }()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("cannot read image header: %w", err)
	}
	return &Probe{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}

func accepts(formats []string, mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if mimeType == "" {
		return false
	}
	for _, f := range formats {
		if strings.EqualFold(f, mimeType) {
			return true
		}
	}
	return false
}

func transportMessage(code int) string {
	switch code {
	case UploadErrIniSize, UploadErrFormSize:
		return "upload exceeded the server size limit"
	case UploadErrPartial:
		return "upload was only partially received"
	case UploadErrNoFile:
		return "no file was uploaded"
	default:
		return fmt.Sprintf("upload failed with code %d", code)
	}
}
