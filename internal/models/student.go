package models

import "time"

// Student is the learner profile attached to a user account. It carries the XP counters.
type Student struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	Level     int       `gorm:"not null" json:"level"`
	TotalXP   int       `gorm:"column:total_xp;not null" json:"total_xp"`
	CurrentXP int       `gorm:"column:current_xp;not null" json:"current_xp"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"user"`
}
