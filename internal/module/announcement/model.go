package announcement

import "time"

type Announcement struct {
	ID        int64  `gorm:"primaryKey"`
	Title     string `gorm:"size:128"`
	Content   string `gorm:"type:text"`
	AuthorID  int64  `gorm:"index"`
	Pinned    bool   `gorm:"default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Announcement) TableName() string {
	return "announcements"
}
