package types

// PointsAccount 账户概览
type PointsAccount struct {
	Balance     int64 `json:"balance"`      // 当前可用积分余额
	TotalEarned int64 `json:"total_earned"` // 历史累计获得
	TotalUsed   int64 `json:"total_used"`   // 历史累计使用
}

// PointsTxnItem 单条流水记录详情
type PointsTxnItem struct {
	ID        int64  `json:"id"`
	Delta     int64  `json:"delta"`   // 变动数值（正数为入账，负数为支出）
	Balance   int64  `json:"balance"` // 变动后的余额快照
	Reason    string `json:"reason"`
	LeadID    string `json:"lead_id,omitempty"`
	Remark    string `json:"remark"`
	CreatedAt string `json:"created_at"`
}

type ListPointsTxnReq struct {
	Action string `form:"action" binding:"omitempty,oneof=income expense"`
	Cursor int64  `form:"cursor"`
	Limit  int    `form:"limit,default=10"`
}

type ListPointsTxnResp struct {
	Records    []PointsTxnItem `json:"records"`
	NextCursor int64           `json:"next_cursor"`
	HasMore    bool            `json:"has_more"`
}

// AdjustPointsReq 后台人工调整积分
type AdjustPointsReq struct {
	UserID int64  `json:"user_id" binding:"required"`
	Amount int64  `json:"amount" binding:"required"` // 正数加分，负数扣分
	Remark string `json:"remark" binding:"required"`
}
