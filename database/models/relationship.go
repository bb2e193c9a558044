package models

import "time"

// RelationshipBelongsToBatch 图片 -> 批次
const RelationshipBelongsToBatch = "belongs_to_batch"

// Relationship 实体间的有向关系 subject --name--> target
type Relationship struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	Name        string `gorm:"type:varchar(64);not null;uniqueIndex:idx_relationship,priority:1"`
	SubjectGUID uint   `gorm:"not null;uniqueIndex:idx_relationship,priority:2;index"`
	TargetGUID  uint   `gorm:"not null;uniqueIndex:idx_relationship,priority:3;index"`
	CreatedAt   time.Time
}
