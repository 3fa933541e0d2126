package types

type CreateFollowUpReq struct {
	LeadID   string `json:"lead_id" binding:"required"`
	Content  string `json:"content" binding:"required"`
	RemindAt string `json:"remind_at" binding:"required"` // 2006-01-02 15:04:05
}

type FollowUpItem struct {
	ID       int64  `json:"id"`
	LeadID   string `json:"lead_id"`
	UserID   int64  `json:"user_id"`
	Content  string `json:"content"`
	RemindAt string `json:"remind_at"`
	Status   int8   `json:"status"`
}
