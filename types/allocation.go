package types

// AllocateLeadReq 线索分配请求
// manual_user_id 传了就是显式人工指派，跳过规则匹配但照常扣分
type AllocateLeadReq struct {
	LeadID       string `json:"lead_id" binding:"required"`
	Source       string `json:"source" binding:"required"`
	LeadType     string `json:"lead_type" binding:"required"`
	Community    string `json:"community"`
	Remark       string `json:"remark"`
	ManualUserID *int64 `json:"manual_user_id"`
}

// AllocateLeadResp 分配决策，成败都返回，细节看 debug_info
type AllocateLeadResp struct {
	Success          bool           `json:"success"`
	AssignedUserID   *int64         `json:"assigned_user_id"`
	AllocationMethod string         `json:"allocation_method"` // rule_matched / manual / failed / failed_insufficient_points
	MatchedRuleID    *string        `json:"matched_rule_id"`
	CostRuleID       *string        `json:"cost_rule_id"`
	PointsCharged    *int           `json:"points_charged"`
	DebugInfo        map[string]any `json:"debug_info"`
}

// ReallocateLeadReq 显式重新分配：先退回原扣分再重跑
type ReallocateLeadReq struct {
	LeadID       string `json:"lead_id" binding:"required"`
	ManualUserID *int64 `json:"manual_user_id"`
}

type AllocationLogItem struct {
	ID               int64          `json:"id"`
	LeadID           string         `json:"lead_id"`
	Attempt          int            `json:"attempt"`
	AssignedUserID   *int64         `json:"assigned_user_id"`
	AllocationMethod string         `json:"allocation_method"`
	MatchedRuleID    *string        `json:"matched_rule_id"`
	CostRuleID       *string        `json:"cost_rule_id"`
	PointsCharged    *int           `json:"points_charged"`
	DebugInfo        map[string]any `json:"debug_info"`
	CreatedAt        string         `json:"created_at"`
}

type ListAllocationLogsReq struct {
	Method string `form:"method"`
	Cursor int64  `form:"cursor"`
	Limit  int    `form:"limit,default=20"`
}

type ListAllocationLogsResp struct {
	Logs       []AllocationLogItem `json:"logs"`
	NextCursor int64               `json:"next_cursor"`
	HasMore    bool                `json:"has_more"`
}
