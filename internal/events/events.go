// Package events 发布图片生命周期事件
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// 事件类型
const (
	TypeImageSaved   = "image.saved"
	TypeImageDeleted = "image.deleted"
)

// ImageEvent 图片生命周期事件
type ImageEvent struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	ImageGUID     uint      `json:"image_guid"`
	OwnerGUID     uint      `json:"owner_guid"`
	ContainerGUID uint      `json:"container_guid"`
	Size          int64     `json:"size"`
	Filename      string    `json:"filename,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// NewImageEvent 创建带唯一 ID 的事件
func NewImageEvent(eventType string, imageGUID, ownerGUID, containerGUID uint, size int64, filename string) ImageEvent {
	return ImageEvent{
		ID:            uuid.NewString(),
		Type:          eventType,
		ImageGUID:     imageGUID,
		OwnerGUID:     ownerGUID,
		ContainerGUID: containerGUID,
		Size:          size,
		Filename:      filename,
		OccurredAt:    time.Now().UTC(),
	}
}

// Publisher 事件发布者
type Publisher interface {
	Publish(ctx context.Context, event ImageEvent) error
	Close() error
}

// Nop 不发布任何事件
type Nop struct{}

func (Nop) Publish(context.Context, ImageEvent) error { return nil }
func (Nop) Close() error                              { return nil }
