package models

import "time"

type Album struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"guid"`
	OwnerGUID    uint   `gorm:"not null;index" json:"owner_guid"`
	Title        string `gorm:"type:varchar(100);not null" json:"title"`
	Description  string `gorm:"type:varchar(255)" json:"description"`
	CoverImageID *uint  `json:"cover_image_id"`

	Images []*Image `gorm:"many2many:album_images;" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
