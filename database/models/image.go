package models

import (
	"time"

	"github.com/anoixa/tidypics/config"
)

// ImageState 图片生命周期状态
type ImageState string

const (
	ImageStateEmpty       ImageState = "empty"        // 记录已创建，尚无元数据
	ImageStateMetadataSet ImageState = "metadata_set" // 已写入上传元数据，文件未落盘
	ImageStateStored      ImageState = "stored"       // 原图已落盘，配额已计入
	ImageStateReady       ImageState = "ready"        // 缩略图已尝试生成
)

// HasFile 是否已持有原图文件
func (s ImageState) HasFile() bool {
	return s == ImageStateStored || s == ImageStateReady
}

// SimpleTypeImage 图片记录的 simple type
const SimpleTypeImage = "image"

type Image struct {
	ID            uint `gorm:"primaryKey;autoIncrement" json:"guid"`
	OwnerGUID     uint `gorm:"not null;index:idx_images_owner_state,priority:1" json:"owner_guid"`
	ContainerGUID uint `gorm:"not null;index" json:"container_guid"`

	Title            string `gorm:"type:varchar(255)" json:"title"`
	Description      string `gorm:"type:text" json:"description"`
	OriginalFilename string `gorm:"type:varchar(255)" json:"original_filename"`
	Filename         string `gorm:"type:varchar(512)" json:"filename"` // 原图存储路径
	SimpleType       string `gorm:"type:varchar(32)" json:"simple_type"`
	MimeType         string `gorm:"type:varchar(64)" json:"mime_type"`
	Size             int64  `gorm:"not null;default:0" json:"size"`
	Width            int    `json:"width"`
	Height           int    `json:"height"`

	// 派生缩略图存储路径，空字符串表示不存在
	Thumbnail  string `gorm:"type:varchar(512)" json:"thumbnail"`
	SmallThumb string `gorm:"type:varchar(512)" json:"smallthumb"`
	LargeThumb string `gorm:"type:varchar(512)" json:"largethumb"`

	// 原图 EXIF 摘要，格式不支持或没有 EXIF 时为空
	Exif    map[string]string `gorm:"serializer:json;type:text" json:"exif,omitempty"`
	TakenAt *time.Time        `json:"taken_at,omitempty"`

	State    ImageState `gorm:"type:varchar(20);not null;default:empty;index:idx_images_owner_state,priority:2" json:"state"`
	AccessID int        `gorm:"not null" json:"access_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DerivativePath 按尺寸名称返回派生图路径，未知尺寸返回空
func (i *Image) DerivativePath(size string) string {
	switch size {
	case config.SizeThumb:
		return i.Thumbnail
	case config.SizeSmall:
		return i.SmallThumb
	case config.SizeLarge:
		return i.LargeThumb
	default:
		return ""
	}
}

// SetDerivativePath 记录派生图路径，未知尺寸忽略
func (i *Image) SetDerivativePath(size, path string) {
	switch size {
	case config.SizeThumb:
		i.Thumbnail = path
	case config.SizeSmall:
		i.SmallThumb = path
	case config.SizeLarge:
		i.LargeThumb = path
	}
}

// DerivativePaths 返回所有非空派生图路径
func (i *Image) DerivativePaths() []string {
	var paths []string
	for _, p := range []string{i.Thumbnail, i.SmallThumb, i.LargeThumb} {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}
