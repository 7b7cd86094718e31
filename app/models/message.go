package models

import "time"

// Message is an append-only record of a text message received from a regular
// user. Rows are never mutated after creation.
type Message struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     string    `gorm:"type:varchar(64);not null;index" json:"user_id"`
	Text       string    `gorm:"type:text;not null" json:"text"`
	ReceivedAt time.Time `gorm:"not null;index" json:"received_at"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// AdminMessage is an append-only record of a message sent by the configured
// admin identity. Admin traffic is kept out of the user message table so it
// never shows up in forwarding or profile handling.
type AdminMessage struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     string    `gorm:"type:varchar(64);not null;index" json:"user_id"`
	Text       string    `gorm:"type:text;not null" json:"text"`
	ReceivedAt time.Time `gorm:"not null;index" json:"received_at"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}
