package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"Anju/dao"
	"Anju/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&models.SalesUser{},
		&models.Lead{},
		&models.LeadAttachment{},
		&models.AllocationRule{},
		&models.PointsCostRule{},
		&models.UserGroup{},
		&models.PointsWallet{},
		&models.PointsTransaction{},
		&models.AllocationLog{},
		&models.FollowUp{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestPointService(t *testing.T) (*PointService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	return NewPointService(db, dao.NewPoint(db)), db
}

func mustBalance(t *testing.T, svc *PointService, userID int64) int64 {
	t.Helper()
	account, err := svc.GetAccount(context.Background(), userID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	return account.Balance
}

// 余额恒等于全部流水 delta 之和
func assertLedgerConsistent(t *testing.T, svc *PointService, userID int64) {
	t.Helper()
	sum, err := svc.PointDAO.SumDeltas(context.Background(), userID)
	if err != nil {
		t.Fatalf("sum deltas: %v", err)
	}
	if balance := mustBalance(t, svc, userID); balance != sum {
		t.Fatalf("ledger drift: balance=%d sum(delta)=%d", balance, sum)
	}
}

func TestPointService_CreditThenDebit(t *testing.T) {
	svc, _ := newTestPointService(t)
	ctx := context.Background()

	account, err := svc.Credit(ctx, 1, 100, models.ReasonManualAdjust, "", "初始充值")
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if account.Balance != 100 || account.TotalEarned != 100 {
		t.Fatalf("unexpected account after credit: %+v", account)
	}

	account, err = svc.Debit(ctx, 1, 30, models.ReasonAllocationDebit, "L1", "分配扣分")
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if account.Balance != 70 || account.TotalUsed != 30 {
		t.Fatalf("unexpected account after debit: %+v", account)
	}
	assertLedgerConsistent(t, svc, 1)
}

func TestPointService_InsufficientLeavesNoTrace(t *testing.T) {
	svc, db := newTestPointService(t)
	ctx := context.Background()

	if _, err := svc.Credit(ctx, 1, 20, models.ReasonManualAdjust, "", "充值"); err != nil {
		t.Fatalf("credit: %v", err)
	}

	_, err := svc.Debit(ctx, 1, 50, models.ReasonAllocationDebit, "L1", "扣分")
	if !errors.Is(err, ErrInsufficientPoints) {
		t.Fatalf("expected ErrInsufficientPoints, got %v", err)
	}

	// 失败的扣分不留任何痕迹：余额不动、没有流水
	if balance := mustBalance(t, svc, 1); balance != 20 {
		t.Fatalf("balance mutated on failed debit: %d", balance)
	}
	var count int64
	db.Model(&models.PointsTransaction{}).Where("lead_id = ?", "L1").Count(&count)
	if count != 0 {
		t.Fatalf("failed debit must not write a transaction, found %d", count)
	}
	assertLedgerConsistent(t, svc, 1)
}

func TestPointService_DebitMissingWallet(t *testing.T) {
	svc, _ := newTestPointService(t)

	// 没开过户视同余额 0
	_, err := svc.Debit(context.Background(), 42, 10, models.ReasonAllocationDebit, "L1", "")
	if !errors.Is(err, ErrInsufficientPoints) {
		t.Fatalf("expected ErrInsufficientPoints, got %v", err)
	}
}

func TestPointService_RefundForLead(t *testing.T) {
	svc, _ := newTestPointService(t)
	ctx := context.Background()

	if _, err := svc.Credit(ctx, 1, 100, models.ReasonManualAdjust, "", "充值"); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if _, err := svc.Debit(ctx, 1, 35, models.ReasonAllocationDebit, "L1", "扣分"); err != nil {
		t.Fatalf("debit: %v", err)
	}

	account, err := svc.RefundForLead(ctx, "L1", "线索作废")
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if account.Balance != 100 {
		t.Fatalf("refund should restore balance, got %d", account.Balance)
	}

	// 幂等：同一笔扣分只退一次
	if _, err := svc.RefundForLead(ctx, "L1", "再退"); !errors.Is(err, ErrAlreadyRefunded) {
		t.Fatalf("expected ErrAlreadyRefunded, got %v", err)
	}
	assertLedgerConsistent(t, svc, 1)
}

func TestPointService_RefundWithoutDebit(t *testing.T) {
	svc, _ := newTestPointService(t)
	if _, err := svc.RefundForLead(context.Background(), "nope", ""); !errors.Is(err, ErrNoRefundableDebit) {
		t.Fatalf("expected ErrNoRefundableDebit, got %v", err)
	}
}

func TestPointService_RefundUsesOriginalAmount(t *testing.T) {
	svc, _ := newTestPointService(t)
	ctx := context.Background()

	if _, err := svc.Credit(ctx, 1, 100, models.ReasonManualAdjust, "", "充值"); err != nil {
		t.Fatalf("credit: %v", err)
	}
	// 扣 40 分，即使之后计价规则变了，退款也按原额 40 退
	if _, err := svc.Debit(ctx, 1, 40, models.ReasonAllocationDebit, "L1", "原价"); err != nil {
		t.Fatalf("debit: %v", err)
	}

	account, err := svc.RefundForLead(ctx, "L1", "退还")
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if account.Balance != 100 {
		t.Fatalf("expected original amount refunded, balance %d", account.Balance)
	}
}

func TestPointService_ManualAdjust(t *testing.T) {
	svc, _ := newTestPointService(t)
	ctx := context.Background()

	if _, err := svc.ManualAdjust(ctx, 1, 0, "零"); err == nil {
		t.Fatal("zero adjust must be rejected")
	}

	account, err := svc.ManualAdjust(ctx, 1, 50, "活动奖励")
	if err != nil {
		t.Fatalf("adjust up: %v", err)
	}
	if account.Balance != 50 {
		t.Fatalf("expected 50, got %d", account.Balance)
	}

	account, err = svc.ManualAdjust(ctx, 1, -20, "违规扣减")
	if err != nil {
		t.Fatalf("adjust down: %v", err)
	}
	if account.Balance != 30 {
		t.Fatalf("expected 30, got %d", account.Balance)
	}
	assertLedgerConsistent(t, svc, 1)
}

// 同一用户并发扣分：余额不透支，成败数量正好对上
func TestPointService_ConcurrentDebits(t *testing.T) {
	svc, _ := newTestPointService(t)
	ctx := context.Background()

	if _, err := svc.Credit(ctx, 1, 100, models.ReasonManualAdjust, "", "充值"); err != nil {
		t.Fatalf("credit: %v", err)
	}

	const workers = 20
	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		succeeded    int
		insufficient int
	)
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := svc.Debit(ctx, 1, 10, models.ReasonAllocationDebit, "", "并发扣分")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrInsufficientPoints):
				insufficient++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 10 || insufficient != 10 {
		t.Fatalf("expected 10 success / 10 insufficient, got %d / %d", succeeded, insufficient)
	}
	if balance := mustBalance(t, svc, 1); balance != 0 {
		t.Fatalf("expected zero balance, got %d", balance)
	}
	assertLedgerConsistent(t, svc, 1)
}

// 同一线索并发退款：只有一笔退成，其余拿到已退错误
func TestPointService_ConcurrentRefunds(t *testing.T) {
	svc, _ := newTestPointService(t)
	ctx := context.Background()

	if _, err := svc.Credit(ctx, 1, 100, models.ReasonManualAdjust, "", "充值"); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if _, err := svc.Debit(ctx, 1, 35, models.ReasonAllocationDebit, "L1", "扣分"); err != nil {
		t.Fatalf("debit: %v", err)
	}

	const workers = 8
	start := make(chan struct{})
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		refunded int
		rejected int
	)
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			_, err := svc.RefundForLead(ctx, "L1", "并发作废")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				refunded++
			case errors.Is(err, ErrAlreadyRefunded):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if refunded != 1 || rejected != workers-1 {
		t.Fatalf("expected exactly one refund, got %d refunded / %d rejected", refunded, rejected)
	}
	if balance := mustBalance(t, svc, 1); balance != 100 {
		t.Fatalf("expected balance restored once to 100, got %d", balance)
	}
	assertLedgerConsistent(t, svc, 1)
}

func TestPointService_ListTransactions(t *testing.T) {
	svc, _ := newTestPointService(t)
	ctx := context.Background()

	if _, err := svc.Credit(ctx, 1, 100, models.ReasonManualAdjust, "", "充值"); err != nil {
		t.Fatalf("credit: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := svc.Debit(ctx, 1, 10, models.ReasonAllocationDebit, "L1", "扣"); err != nil {
			t.Fatalf("debit: %v", err)
		}
	}

	resp, err := svc.ListTransactions(ctx, 1, "expense", 0, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(resp.Records) != 2 || !resp.HasMore {
		t.Fatalf("expected 2 records with more, got %d hasMore=%v", len(resp.Records), resp.HasMore)
	}
	for _, r := range resp.Records {
		if r.Delta >= 0 {
			t.Fatalf("expense filter returned income row: %+v", r)
		}
	}

	// 游标翻页
	next, err := svc.ListTransactions(ctx, 1, "expense", resp.NextCursor, 10)
	if err != nil {
		t.Fatalf("list next: %v", err)
	}
	if len(next.Records) != 1 || next.HasMore {
		t.Fatalf("expected final page with 1 record, got %d", len(next.Records))
	}
}
