package models

import "time"

// 访问级别
const (
	AccessPrivate  = 0
	AccessLoggedIn = 1
	AccessPublic   = 2
)

// 注解名称
const (
	AnnotationView     = "tp_view"
	AnnotationPhotoTag = "phototag"
)

// EntitySubtypeImage 图片实体子类型
const EntitySubtypeImage = "image"

// 注解值类型
const (
	ValueTypeInteger = "integer"
	ValueTypeText    = "text"
)

// Annotation 附着在实体上的键值记录
type Annotation struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	EntityGUID uint      `gorm:"not null;index:idx_annotation_entity,priority:1" json:"entity_guid"`
	Subtype    string    `gorm:"type:varchar(32);not null;default:image;index:idx_annotation_entity,priority:2" json:"subtype"`
	Name       string    `gorm:"type:varchar(64);not null;index:idx_annotation_entity,priority:3" json:"name"`
	Value      string    `gorm:"type:text" json:"value"`
	ValueType  string    `gorm:"type:varchar(16);not null;default:text" json:"value_type"`
	OwnerGUID  uint      `gorm:"not null;index" json:"owner_guid"`
	AccessID   int       `gorm:"not null" json:"access_id"` // 0 是合法取值，不设默认值
	CreatedAt  time.Time `json:"created_at"`
}
