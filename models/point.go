package models

import "time"

type PointsWallet struct {
	ID          uint64    `gorm:"primaryKey;column:id"`
	UserID      int64     `gorm:"column:user_id;uniqueIndex"`
	Balance     int64     `gorm:"column:balance;default:0"` // 恒 >= 0
	TotalEarned uint64    `gorm:"column:total_earned;default:0"`
	TotalUsed   uint64    `gorm:"column:total_used;default:0"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (PointsWallet) TableName() string {
	return "points_wallets"
}

// 积分变动原因
const (
	ReasonAllocationDebit = "allocation_debit"
	ReasonRollbackRefund  = "rollback_refund"
	ReasonManualAdjust    = "manual_adjust"
)

// PointsTransaction 只追加流水，任何用户的流水 delta 之和恒等于钱包余额
type PointsTransaction struct {
	ID        int64     `gorm:"primaryKey;column:id"` // snowflake
	UserID    int64     `gorm:"column:user_id;index:idx_user_id"`
	Delta     int64     `gorm:"column:delta"`   // 变动数额（正负）
	Balance   int64     `gorm:"column:balance"` // 变动后余额快照
	Reason    string    `gorm:"column:reason;size:32;index"`
	LeadID    string    `gorm:"column:lead_id;size:64;index:idx_lead_id"`
	Remark    string    `gorm:"column:remark;size:255"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (PointsTransaction) TableName() string {
	return "points_transactions"
}
