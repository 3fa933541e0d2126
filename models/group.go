package models

import (
	"time"

	"gorm.io/datatypes"
)

// 分组内挑人策略
const (
	StrategyRoundRobin = "round_robin"
	StrategyRandom     = "random"
	StrategyLoadBased  = "load_based" // 当前在手线索最少者优先
)

type UserGroup struct {
	ID        int64                      `gorm:"primaryKey;column:id"`
	Name      string                     `gorm:"column:name;size:64"`
	Strategy  string                     `gorm:"column:strategy;size:16;default:round_robin"`
	Members   datatypes.JSONSlice[int64] `gorm:"column:members"`
	RRCursor  int                        `gorm:"column:rr_cursor;default:0"` // round_robin 游标
	CreatedAt time.Time                  `gorm:"column:created_at"`
	UpdatedAt time.Time                  `gorm:"column:updated_at"`
}

func (UserGroup) TableName() string {
	return "user_groups"
}
