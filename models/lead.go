package models

import "time"

// 线索状态
const (
	LeadStatusUnassigned = 0 // 待分配，进入人工指派队列
	LeadStatusAssigned   = 1
	LeadStatusInvalid    = 2 // 无效线索，积分走退还流程
)

type Lead struct {
	ID             int64      `gorm:"primaryKey;column:id"`
	LeadID         string     `gorm:"column:lead_id;size:64;uniqueIndex"` // 外部系统线索号
	Source         string     `gorm:"column:source;size:32;index"`        // 抖音/小红书/安居客...
	LeadType       string     `gorm:"column:lead_type;size:32"`           // 普通/高意向...
	Community      string     `gorm:"column:community;size:64"`           // 意向楼盘
	Phone          string     `gorm:"column:phone;size:20"`
	Remark         string     `gorm:"column:remark;size:512"`
	Status         int8       `gorm:"column:status;default:0;index"`
	AssignedUserID *int64     `gorm:"column:assigned_user_id;index"`
	AssignedAt     *time.Time `gorm:"column:assigned_at"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at"`
}

func (Lead) TableName() string {
	return "leads"
}

type LeadAttachment struct {
	ID        int64     `gorm:"primaryKey;column:id"`
	LeadID    string    `gorm:"column:lead_id;size:64;index"`
	ObjectKey string    `gorm:"column:object_key;size:255"`
	FileName  string    `gorm:"column:file_name;size:255"`
	Size      int64     `gorm:"column:size"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (LeadAttachment) TableName() string {
	return "lead_attachments"
}
