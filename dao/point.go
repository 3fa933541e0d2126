package dao

import (
	"context"

	"Anju/models"

	"gorm.io/gorm"
)

type Point struct {
	Repo[models.PointsWallet]
}

func NewPoint(db *gorm.DB) *Point {
	return &Point{
		Repo: NewRepo[models.PointsWallet](db),
	}
}

func (p *Point) GetWallet(ctx context.Context, userID int64) (*models.PointsWallet, error) {
	var wallet models.PointsWallet
	err := p.Db.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error
	return &wallet, err
}

// CreateWallet 初始化钱包（针对新用户）
func (p *Point) CreateWallet(ctx context.Context, userID int64, initialPoints int64) error {
	wallet := &models.PointsWallet{
		UserID:      userID,
		Balance:     initialPoints,
		TotalEarned: uint64(initialPoints),
		TotalUsed:   0,
	}
	return p.Db.WithContext(ctx).Create(wallet).Error
}

func (p *Point) CreateTransaction(ctx context.Context, txn *models.PointsTransaction) error {
	return p.Db.WithContext(ctx).Create(txn).Error
}

// DebitBalance 条件扣减，余额不足时不命中任何行
// gorm.Expr 保证并发下的原子加减；受影响行数为 0 即余额不足
func (p *Point) DebitBalance(ctx context.Context, userID int64, amount int64) (int64, error) {
	result := p.Db.WithContext(ctx).Model(&models.PointsWallet{}).
		Where("user_id = ? AND balance >= ?", userID, amount).
		Updates(map[string]interface{}{
			"balance":    gorm.Expr("balance - ?", amount),
			"total_used": gorm.Expr("total_used + ?", amount),
		})
	return result.RowsAffected, result.Error
}

func (p *Point) CreditBalance(ctx context.Context, userID int64, amount int64) (int64, error) {
	result := p.Db.WithContext(ctx).Model(&models.PointsWallet{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"balance":      gorm.Expr("balance + ?", amount),
			"total_earned": gorm.Expr("total_earned + ?", amount),
		})
	return result.RowsAffected, result.Error
}

// FindDebitByLead 某条线索最近一次扣分流水，退分时以它的数额为准
// 重新分配会产生多笔扣分，始终退最新那笔
func (p *Point) FindDebitByLead(ctx context.Context, leadID string) (*models.PointsTransaction, error) {
	var txn models.PointsTransaction
	err := p.Db.WithContext(ctx).
		Where("lead_id = ? AND reason = ?", leadID, models.ReasonAllocationDebit).
		Order("id DESC").
		First(&txn).Error
	return &txn, err
}

// HasRefundSince 指定扣分流水之后是否已有退款（snowflake id 单调递增）
func (p *Point) HasRefundSince(ctx context.Context, leadID string, debitID int64) (bool, error) {
	var count int64
	err := p.Db.WithContext(ctx).Model(&models.PointsTransaction{}).
		Where("lead_id = ? AND reason = ? AND id > ?", leadID, models.ReasonRollbackRefund, debitID).
		Count(&count).Error
	return count > 0, err
}

// SumDeltas 用户全部流水之和，审计时应恒等于钱包余额
func (p *Point) SumDeltas(ctx context.Context, userID int64) (int64, error) {
	var sum struct {
		Total int64
	}
	err := p.Db.WithContext(ctx).Model(&models.PointsTransaction{}).
		Select("IFNULL(SUM(delta), 0) AS total").
		Where("user_id = ?", userID).
		Scan(&sum).Error
	return sum.Total, err
}

// ListTransactions 分页筛选查询
func (p *Point) ListTransactions(ctx context.Context, userID int64, action string, cursor int64, limit int) ([]models.PointsTransaction, error) {
	var txns []models.PointsTransaction
	query := p.Db.WithContext(ctx).Where("user_id = ?", userID)

	switch action {
	case "income":
		query = query.Where("delta > ?", 0)
	case "expense":
		query = query.Where("delta < ?", 0)
	}

	if cursor > 0 {
		query = query.Where("id < ?", cursor)
	}

	err := query.Order("id DESC").Limit(limit).Find(&txns).Error
	return txns, err
}
