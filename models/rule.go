package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// RuleConditions 规则匹配条件
// 各子句之间 AND；子句内部的取值集合 OR；空子句视为不限
type RuleConditions struct {
	Sources     []string     `json:"sources,omitempty"`
	LeadTypes   []string     `json:"lead_types,omitempty"`
	Communities []string     `json:"communities,omitempty"`
	Keywords    []string     `json:"keywords,omitempty"` // 对 remark 做区分大小写的子串匹配
	TimeWindows []TimeWindow `json:"time_windows,omitempty"`
}

// TimeWindow 投放时段，weekday 取 time.Weekday（0=周日）
// [StartHour, EndHour) 左闭右开；跨零点的窗口拆成两条配置
type TimeWindow struct {
	Weekdays  []int `json:"weekdays,omitempty"`
	StartHour int   `json:"start_hour"`
	EndHour   int   `json:"end_hour"`
}

type AllocationRule struct {
	ID         string         `gorm:"primaryKey;column:id;size:36"` // uuid
	Name       string         `gorm:"column:name;size:64"`
	Priority   int            `gorm:"column:priority;index"` // 数值越大越先匹配
	Active     bool           `gorm:"column:active;default:true;index"`
	Conditions datatypes.JSON `gorm:"column:conditions"`
	GroupID    int64          `gorm:"column:group_id"` // 命中后分给哪个分组
	CreatedAt  time.Time      `gorm:"column:created_at"`
	UpdatedAt  time.Time      `gorm:"column:updated_at"`
}

func (AllocationRule) TableName() string {
	return "simple_allocation_rules"
}

func (r *AllocationRule) ParseConditions() (*RuleConditions, error) {
	var cond RuleConditions
	if len(r.Conditions) == 0 {
		return &cond, nil
	}
	if err := json.Unmarshal(r.Conditions, &cond); err != nil {
		return nil, err
	}
	return &cond, nil
}

// CostAdjustments 动态加价：base + 来源加价 + 首个命中的关键词加价
type CostAdjustments struct {
	SourceDelta  map[string]int `json:"source_delta,omitempty"`
	KeywordDelta []KeywordDelta `json:"keyword_delta,omitempty"`
}

type KeywordDelta struct {
	Keyword string `json:"keyword"`
	Delta   int    `json:"delta"`
}

type PointsCostRule struct {
	ID          string         `gorm:"primaryKey;column:id;size:36"` // uuid
	Name        string         `gorm:"column:name;size:64"`
	Priority    int            `gorm:"column:priority;index"`
	Active      bool           `gorm:"column:active;default:true;index"`
	BaseCost    int            `gorm:"column:base_cost"` // >= 0
	Conditions  datatypes.JSON `gorm:"column:conditions"`
	Adjustments datatypes.JSON `gorm:"column:adjustments"`
	CreatedAt   time.Time      `gorm:"column:created_at"`
	UpdatedAt   time.Time      `gorm:"column:updated_at"`
}

func (PointsCostRule) TableName() string {
	return "lead_points_cost"
}

func (r *PointsCostRule) ParseConditions() (*RuleConditions, error) {
	var cond RuleConditions
	if len(r.Conditions) == 0 {
		return &cond, nil
	}
	if err := json.Unmarshal(r.Conditions, &cond); err != nil {
		return nil, err
	}
	return &cond, nil
}

func (r *PointsCostRule) ParseAdjustments() (*CostAdjustments, error) {
	var adj CostAdjustments
	if len(r.Adjustments) == 0 {
		return &adj, nil
	}
	if err := json.Unmarshal(r.Adjustments, &adj); err != nil {
		return nil, err
	}
	return &adj, nil
}
