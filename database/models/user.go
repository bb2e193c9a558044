package models

import "time"

// 用户类型
const (
	UserTypePerson = "person"
	UserTypeBot    = "bot"
	UserTypeSystem = "system"
)

type User struct {
	ID       uint   `gorm:"primaryKey;autoIncrement" json:"guid"`
	Username string `gorm:"type:varchar(64);uniqueIndex" json:"username"`
	Name     string `gorm:"type:varchar(128)" json:"name"`
	Type     string `gorm:"type:varchar(16);not null;default:person" json:"type"`

	// ImageRepoSize 已占用的图片存储字节数
	ImageRepoSize int64 `gorm:"not null;default:0" json:"image_repo_size"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsPerson 是否为真人账号
func (u *User) IsPerson() bool {
	return u != nil && u.Type == UserTypePerson
}
