package models

import "time"

// AIInteraction is an append-only log of one AI reply exchange: the prompt
// taken from the inbound event and the response that was sent back. Fallback
// marks degraded responses produced after the completion call was exhausted;
// they still count as responses for observability.
type AIInteraction struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"type:varchar(64);not null;index" json:"user_id"`
	Prompt    string    `gorm:"type:text;not null" json:"prompt"`
	Response  string    `gorm:"type:text;not null" json:"response"`
	Fallback  bool      `gorm:"default:false" json:"fallback"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
