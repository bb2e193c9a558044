package models

import "time"

// Batch 一次上传产生的图片分组，最后一个成员删除时随之删除
type Batch struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"guid"`
	OwnerGUID     uint      `gorm:"not null;index" json:"owner_guid"`
	ContainerGUID uint      `gorm:"not null;index" json:"container_guid"`
	CreatedAt     time.Time `json:"created_at"`
}
