package models

import "time"

// UserProfile caches the display name fetched from the platform profile API.
// A profile is created at most once per user id (insert-if-absent) and never
// updated afterwards.
type UserProfile struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      string    `gorm:"type:varchar(64);not null;uniqueIndex:ux_user_profiles_user_id" json:"user_id"`
	DisplayName string    `gorm:"type:varchar(191);not null" json:"display_name"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}
