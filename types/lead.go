package types

// CreateLeadReq 线索录入，录入成功后同步触发分配
type CreateLeadReq struct {
	LeadID    string `json:"lead_id" binding:"required"`
	Source    string `json:"source" binding:"required"`
	LeadType  string `json:"lead_type" binding:"required"`
	Community string `json:"community"`
	Phone     string `json:"phone"`
	Remark    string `json:"remark"`
}

type LeadItem struct {
	ID             int64  `json:"id"`
	LeadID         string `json:"lead_id"`
	Source         string `json:"source"`
	LeadType       string `json:"lead_type"`
	Community      string `json:"community"`
	Phone          string `json:"phone"`
	Remark         string `json:"remark"`
	Status         int8   `json:"status"`
	AssignedUserID *int64 `json:"assigned_user_id"`
	CreatedAt      string `json:"created_at"`
}

type ListLeadsReq struct {
	UserID int64 `form:"user_id"`
	Status int   `form:"status,default=-1"`
	Cursor int64 `form:"cursor"`
	Limit  int   `form:"limit,default=20"`
}

type ListLeadsResp struct {
	Leads      []LeadItem `json:"leads"`
	NextCursor int64      `json:"next_cursor"`
	HasMore    bool       `json:"has_more"`
}

type InvalidateLeadReq struct {
	LeadID string `json:"lead_id" binding:"required"`
	Remark string `json:"remark"`
}

type AttachmentItem struct {
	ID        int64  `json:"id"`
	LeadID    string `json:"lead_id"`
	FileName  string `json:"file_name"`
	URL       string `json:"url"`
	CreatedAt string `json:"created_at"`
}
