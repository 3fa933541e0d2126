package models

import "time"

// 跟进状态
const (
	FollowUpPending  = 0
	FollowUpNotified = 1
	FollowUpDone     = 2
)

type FollowUp struct {
	ID        int64     `gorm:"primaryKey;column:id"`
	LeadID    string    `gorm:"column:lead_id;size:64;index"`
	UserID    int64     `gorm:"column:user_id;index"`
	Content   string    `gorm:"column:content;size:512"`
	RemindAt  time.Time `gorm:"column:remind_at;index"`
	Status    int8      `gorm:"column:status;default:0"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (FollowUp) TableName() string {
	return "follow_ups"
}
