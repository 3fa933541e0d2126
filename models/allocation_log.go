package models

import (
	"time"

	"gorm.io/datatypes"
)

// 分配方式
const (
	MethodRuleMatched        = "rule_matched"
	MethodManual             = "manual"
	MethodFailed             = "failed"
	MethodInsufficientPoints = "failed_insufficient_points"
)

// AllocationLog 每次分配尝试写且仅写一条，写入后不再修改
// 重新分配按 attempt 递增追加新行，历史尝试永远保留；
// (lead_id, attempt) 唯一索引挡掉同一次尝试的并发重复扣分
type AllocationLog struct {
	ID             int64          `gorm:"primaryKey;column:id"` // snowflake
	LeadID         string         `gorm:"column:lead_id;size:64;uniqueIndex:uk_lead_attempt"`
	Attempt        int            `gorm:"column:attempt;default:1;uniqueIndex:uk_lead_attempt"`
	AssignedUserID *int64         `gorm:"column:assigned_user_id;index"` // null 表示分配失败
	Method         string         `gorm:"column:allocation_method;size:32;index"`
	MatchedRuleID  *string        `gorm:"column:matched_rule_id;size:36"`
	CostRuleID     *string        `gorm:"column:cost_rule_id;size:36"`
	PointsCharged  *int           `gorm:"column:points_charged"`
	DebugInfo      datatypes.JSON `gorm:"column:debug_info"`
	CreatedAt      time.Time      `gorm:"column:created_at;autoCreateTime"`
}

func (AllocationLog) TableName() string {
	return "allocation_logs"
}
