package service

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"Anju/dao"
	"Anju/models"
	"Anju/pkg/snowflake"
	"Anju/types"

	cmap "github.com/orcaman/concurrent-map/v2"
	"gorm.io/gorm"
)

// PointService 积分台账
// 钱包余额恒 >= 0，且恒等于该用户全部流水 delta 之和；
// 同一用户的借贷串行（进程内互斥 + 条件 UPDATE 兜底），跨用户完全并行
type PointService struct {
	DB       *gorm.DB
	PointDAO *dao.Point

	locks cmap.ConcurrentMap[string, *sync.Mutex]
}

var _ IPointService = (*PointService)(nil)

type IPointService interface {
	Debit(ctx context.Context, userID int64, amount int64, reason string, leadID string, remark string) (*types.PointsAccount, error)
	Credit(ctx context.Context, userID int64, amount int64, reason string, leadID string, remark string) (*types.PointsAccount, error)
	RefundForLead(ctx context.Context, leadID string, remark string) (*types.PointsAccount, error)
	ManualAdjust(ctx context.Context, userID int64, amount int64, remark string) (*types.PointsAccount, error)

	// 查询
	GetAccount(ctx context.Context, userID int64) (*types.PointsAccount, error)
	ListTransactions(ctx context.Context, userID int64, action string, cursor int64, limit int) (*types.ListPointsTxnResp, error)
}

func NewPointService(db *gorm.DB, pointDAO *dao.Point) *PointService {
	return &PointService{
		DB:       db,
		PointDAO: pointDAO,
		locks:    cmap.New[*sync.Mutex](),
	}
}

// WithUserLock 同一用户的钱包操作互斥，分配编排器跨事务复用
func (p *PointService) WithUserLock(userID int64, fn func() error) error {
	key := strconv.FormatInt(userID, 10)
	mu, _ := p.locks.Get(key)
	if mu == nil {
		p.locks.SetIfAbsent(key, &sync.Mutex{})
		mu, _ = p.locks.Get(key)
	}
	mu.Lock()
	defer mu.Unlock()
	return fn()
}

func (p *PointService) Debit(ctx context.Context, userID int64, amount int64, reason string, leadID string, remark string) (*types.PointsAccount, error) {
	if amount < 0 {
		return nil, errors.New("扣分数额不能为负")
	}

	var account types.PointsAccount
	err := p.WithUserLock(userID, func() error {
		return p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if _, err := p.DebitTx(ctx, tx, userID, amount, reason, leadID, remark); err != nil {
				return err
			}
			return p.fillAccount(ctx, tx, userID, &account)
		})
	})
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// DebitTx 事务内扣分：余额检查和扣减是同一条条件 UPDATE，不足时零改动
// 成功时在同一事务里追加流水，调用方负责提交/回滚
func (p *PointService) DebitTx(ctx context.Context, tx *gorm.DB, userID int64, amount int64, reason string, leadID string, remark string) (int64, error) {
	txDAO := dao.NewPoint(tx)

	if amount > 0 {
		rows, err := txDAO.DebitBalance(ctx, userID, amount)
		if err != nil {
			return 0, err
		}
		if rows == 0 {
			// 没命中行：钱包不存在视同余额 0，统一按余额不足处理
			return 0, ErrInsufficientPoints
		}
	}

	wallet, err := txDAO.GetWallet(ctx, userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, err
		}
		// amount == 0 且还没开户：补一个零余额钱包，保证流水有账可对
		if err := txDAO.CreateWallet(ctx, userID, 0); err != nil {
			return 0, err
		}
		wallet = &models.PointsWallet{UserID: userID}
	}

	txn := &models.PointsTransaction{
		ID:      snowflake.GenID(),
		UserID:  userID,
		Delta:   -amount,
		Balance: wallet.Balance,
		Reason:  reason,
		LeadID:  leadID,
		Remark:  remark,
	}
	if err := txDAO.CreateTransaction(ctx, txn); err != nil {
		return 0, err
	}
	return wallet.Balance, nil
}

func (p *PointService) Credit(ctx context.Context, userID int64, amount int64, reason string, leadID string, remark string) (*types.PointsAccount, error) {
	if amount < 0 {
		return nil, errors.New("加分数额不能为负")
	}

	var account types.PointsAccount
	err := p.WithUserLock(userID, func() error {
		return p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if _, err := p.CreditTx(ctx, tx, userID, amount, reason, leadID, remark); err != nil {
				return err
			}
			return p.fillAccount(ctx, tx, userID, &account)
		})
	})
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (p *PointService) CreditTx(ctx context.Context, tx *gorm.DB, userID int64, amount int64, reason string, leadID string, remark string) (int64, error) {
	txDAO := dao.NewPoint(tx)

	rows, err := txDAO.CreditBalance(ctx, userID, amount)
	if err != nil {
		return 0, err
	}
	if rows == 0 {
		// 新用户自动开户，开户失败必须中断，防止有流水没账户
		if err := txDAO.CreateWallet(ctx, userID, amount); err != nil {
			return 0, err
		}
	}

	wallet, err := txDAO.GetWallet(ctx, userID)
	if err != nil {
		return 0, err
	}

	txn := &models.PointsTransaction{
		ID:      snowflake.GenID(),
		UserID:  userID,
		Delta:   amount,
		Balance: wallet.Balance,
		Reason:  reason,
		LeadID:  leadID,
		Remark:  remark,
	}
	if err := txDAO.CreateTransaction(ctx, txn); err != nil {
		return 0, err
	}
	return wallet.Balance, nil
}

// RefundForLead 按原扣分流水的数额退分，不重新计价
// 费用规则事后改动不影响退款数额
// 查重和入账在同一把用户锁、同一个事务里，并发作废只会退一次
func (p *PointService) RefundForLead(ctx context.Context, leadID string, remark string) (*types.PointsAccount, error) {
	debit, err := p.PointDAO.FindDebitByLead(ctx, leadID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoRefundableDebit
		}
		return nil, err
	}

	var account types.PointsAccount
	err = p.WithUserLock(debit.UserID, func() error {
		return p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			refunded, err := dao.NewPoint(tx).HasRefundSince(ctx, leadID, debit.ID)
			if err != nil {
				return err
			}
			if refunded {
				return ErrAlreadyRefunded
			}
			if _, err := p.CreditTx(ctx, tx, debit.UserID, -debit.Delta,
				models.ReasonRollbackRefund, leadID, remark); err != nil {
				return err
			}
			return p.fillAccount(ctx, tx, debit.UserID, &account)
		})
	})
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (p *PointService) ManualAdjust(ctx context.Context, userID int64, amount int64, remark string) (*types.PointsAccount, error) {
	if amount == 0 {
		return nil, errors.New("调整数额不能为 0")
	}
	if amount > 0 {
		return p.Credit(ctx, userID, amount, models.ReasonManualAdjust, "", remark)
	}
	return p.Debit(ctx, userID, -amount, models.ReasonManualAdjust, "", remark)
}

func (p *PointService) GetAccount(ctx context.Context, userID int64) (*types.PointsAccount, error) {
	wallet, err := p.PointDAO.GetWallet(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 没记录说明还没开户，返回初始状态
			return &types.PointsAccount{}, nil
		}
		return nil, err
	}
	return &types.PointsAccount{
		Balance:     wallet.Balance,
		TotalEarned: int64(wallet.TotalEarned),
		TotalUsed:   int64(wallet.TotalUsed),
	}, nil
}

func (p *PointService) ListTransactions(ctx context.Context, userID int64, action string, cursor int64, limit int) (*types.ListPointsTxnResp, error) {
	if limit <= 0 {
		limit = 10
	}
	txns, err := p.PointDAO.ListTransactions(ctx, userID, action, cursor, limit+1)
	if err != nil {
		return nil, err
	}

	resp := &types.ListPointsTxnResp{
		Records: make([]types.PointsTxnItem, 0),
	}

	if len(txns) > limit {
		resp.HasMore = true
		txns = txns[:limit]
		resp.NextCursor = txns[len(txns)-1].ID
	}

	for _, t := range txns {
		resp.Records = append(resp.Records, types.PointsTxnItem{
			ID:        t.ID,
			Delta:     t.Delta,
			Balance:   t.Balance,
			Reason:    t.Reason,
			LeadID:    t.LeadID,
			Remark:    t.Remark,
			CreatedAt: t.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return resp, nil
}

func (p *PointService) fillAccount(ctx context.Context, tx *gorm.DB, userID int64, account *types.PointsAccount) error {
	wallet, err := dao.NewPoint(tx).GetWallet(ctx, userID)
	if err != nil {
		return err
	}
	account.Balance = wallet.Balance
	account.TotalEarned = int64(wallet.TotalEarned)
	account.TotalUsed = int64(wallet.TotalUsed)
	return nil
}
