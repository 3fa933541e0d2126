package service

import (
	"context"
	"errors"
	"testing"

	"Anju/config"
	"Anju/dao"
	"Anju/dao/cache"
	"Anju/models"
	"Anju/types"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type allocFixture struct {
	db     *gorm.DB
	svc    *AllocationService
	points *PointService
	leads  *dao.LeadDAO
}

func newAllocFixture(t *testing.T) *allocFixture {
	t.Helper()
	db := newTestDB(t)

	points := NewPointService(db, dao.NewPoint(db))
	rules := NewRuleService(dao.NewRule(db), dao.NewGroup(db), cache.NewRuleCache(nil, nil))
	leads := dao.NewLeadDAO(db)

	svc := NewAllocationService(
		&config.AllocationConfig{DefaultStrategy: models.StrategyRoundRobin, DefaultCost: 10},
		db,
		rules,
		dao.NewGroup(db),
		leads,
		dao.NewAllocationLog(db),
		dao.NewUsers(db),
		points,
		NoopNotifier{},
	)
	return &allocFixture{db: db, svc: svc, points: points, leads: leads}
}

func (f *allocFixture) seedUser(t *testing.T, id int64, balance int64) {
	t.Helper()
	user := &models.SalesUser{ID: id, Name: "销售", Mobile: "1380000" + string(rune('0'+id%10)) + "000", Role: models.RoleSales, Status: models.UserStatusActive}
	if err := f.db.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if balance > 0 {
		if _, err := f.points.Credit(context.Background(), id, balance, models.ReasonManualAdjust, "", "初始积分"); err != nil {
			t.Fatalf("seed balance: %v", err)
		}
	}
}

func (f *allocFixture) seedGroup(t *testing.T, id int64, strategy string, members ...int64) {
	t.Helper()
	group := &models.UserGroup{ID: id, Name: "测试组", Strategy: strategy, Members: datatypes.NewJSONSlice(members)}
	if err := f.db.Create(group).Error; err != nil {
		t.Fatalf("seed group: %v", err)
	}
}

func (f *allocFixture) seedAllocRule(t *testing.T, id string, priority int, groupID int64, cond models.RuleConditions) {
	t.Helper()
	rule := allocRule(t, id, priority, groupID, cond)
	if err := f.db.Create(&rule).Error; err != nil {
		t.Fatalf("seed alloc rule: %v", err)
	}
}

func (f *allocFixture) seedCostRule(t *testing.T, id string, priority int, base int, cond models.RuleConditions, adj models.CostAdjustments) {
	t.Helper()
	rule := costRule(t, id, priority, base, cond, adj)
	if err := f.db.Create(&rule).Error; err != nil {
		t.Fatalf("seed cost rule: %v", err)
	}
}

func (f *allocFixture) seedLead(t *testing.T, id int64, leadID, source, leadType, remark string) {
	t.Helper()
	lead := &models.Lead{ID: id, LeadID: leadID, Source: source, LeadType: leadType, Remark: remark, Status: models.LeadStatusUnassigned}
	if err := f.db.Create(lead).Error; err != nil {
		t.Fatalf("seed lead: %v", err)
	}
}

func TestAllocate_RuleMatched(t *testing.T) {
	f := newAllocFixture(t)
	ctx := context.Background()

	f.seedUser(t, 1, 100)
	f.seedGroup(t, 1, models.StrategyRoundRobin, 1)
	f.seedAllocRule(t, "ar1", 10, 1, models.RuleConditions{Sources: []string{"抖音"}})
	f.seedCostRule(t, "cr1", 10, 10, models.RuleConditions{},
		models.CostAdjustments{SourceDelta: map[string]int{"抖音": 15}})
	f.seedLead(t, 100, "L1", "抖音", "普通", "")

	resp, err := f.svc.Allocate(ctx, &types.AllocateLeadReq{
		LeadID: "L1", Source: "抖音", LeadType: "普通",
	})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}

	if !resp.Success || resp.AllocationMethod != models.MethodRuleMatched {
		t.Fatalf("unexpected resp: %+v", resp)
	}
	if resp.AssignedUserID == nil || *resp.AssignedUserID != 1 {
		t.Fatalf("expected user 1, got %v", resp.AssignedUserID)
	}
	if resp.MatchedRuleID == nil || *resp.MatchedRuleID != "ar1" {
		t.Fatalf("expected rule ar1, got %v", resp.MatchedRuleID)
	}
	// 抖音加价：10 + 15
	if resp.PointsCharged == nil || *resp.PointsCharged != 25 {
		t.Fatalf("expected 25 points charged, got %v", resp.PointsCharged)
	}

	account, _ := f.points.GetAccount(ctx, 1)
	if account.Balance != 75 {
		t.Fatalf("expected balance 75, got %d", account.Balance)
	}

	lead, err := f.leads.FindByLeadID(ctx, "L1")
	if err != nil || lead.AssignedUserID == nil || *lead.AssignedUserID != 1 {
		t.Fatalf("lead not assigned: %+v err=%v", lead, err)
	}
	if lead.Status != models.LeadStatusAssigned {
		t.Fatalf("expected assigned status, got %d", lead.Status)
	}

	var logs []models.AllocationLog
	f.db.Where("lead_id = ?", "L1").Find(&logs)
	if len(logs) != 1 {
		t.Fatalf("exactly one log expected, got %d", len(logs))
	}
}

func TestAllocate_InsufficientPoints(t *testing.T) {
	f := newAllocFixture(t)
	ctx := context.Background()

	f.seedUser(t, 1, 5)
	f.seedGroup(t, 1, models.StrategyRoundRobin, 1)
	f.seedAllocRule(t, "ar1", 10, 1, models.RuleConditions{})
	f.seedCostRule(t, "cr1", 10, 30, models.RuleConditions{}, models.CostAdjustments{})
	f.seedLead(t, 100, "L1", "抖音", "普通", "")

	resp, err := f.svc.Allocate(ctx, &types.AllocateLeadReq{
		LeadID: "L1", Source: "抖音", LeadType: "普通",
	})
	if err != nil {
		t.Fatalf("insufficient points is not an error: %v", err)
	}

	if resp.Success || resp.AllocationMethod != models.MethodInsufficientPoints {
		t.Fatalf("unexpected resp: %+v", resp)
	}
	if resp.AssignedUserID != nil || resp.PointsCharged != nil {
		t.Fatalf("no assignment should survive: %+v", resp)
	}

	// 日志在案，钱包和流水毫发无损
	var logs []models.AllocationLog
	f.db.Where("lead_id = ?", "L1").Find(&logs)
	if len(logs) != 1 || logs[0].Method != models.MethodInsufficientPoints {
		t.Fatalf("expected one insufficient log, got %+v", logs)
	}
	var txnCount int64
	f.db.Model(&models.PointsTransaction{}).Where("lead_id = ?", "L1").Count(&txnCount)
	if txnCount != 0 {
		t.Fatalf("failed attempt must not write transactions, got %d", txnCount)
	}
	account, _ := f.points.GetAccount(ctx, 1)
	if account.Balance != 5 {
		t.Fatalf("balance must be untouched, got %d", account.Balance)
	}

	lead, _ := f.leads.FindByLeadID(ctx, "L1")
	if lead.AssignedUserID != nil {
		t.Fatal("lead must stay unassigned")
	}
}

func TestAllocate_NoMatchingRule(t *testing.T) {
	f := newAllocFixture(t)
	ctx := context.Background()

	f.seedAllocRule(t, "ar1", 10, 1, models.RuleConditions{Sources: []string{"小红书"}})
	f.seedLead(t, 100, "L1", "安居客", "普通", "")

	resp, err := f.svc.Allocate(ctx, &types.AllocateLeadReq{
		LeadID: "L1", Source: "安居客", LeadType: "普通",
	})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if resp.Success || resp.AllocationMethod != models.MethodFailed {
		t.Fatalf("unexpected resp: %+v", resp)
	}
	if resp.DebugInfo["reason"] != "no_matching_rule" {
		t.Fatalf("expected no_matching_rule reason, got %v", resp.DebugInfo["reason"])
	}

	var count int64
	f.db.Model(&models.AllocationLog{}).Where("lead_id = ?", "L1").Count(&count)
	if count != 1 {
		t.Fatalf("failed attempt still gets a log, got %d", count)
	}
}

func TestAllocate_EmptyGroup(t *testing.T) {
	f := newAllocFixture(t)
	ctx := context.Background()

	// 规则指向不存在的分组
	f.seedAllocRule(t, "ar1", 10, 404, models.RuleConditions{})
	f.seedLead(t, 100, "L1", "抖音", "普通", "")

	resp, err := f.svc.Allocate(ctx, &types.AllocateLeadReq{
		LeadID: "L1", Source: "抖音", LeadType: "普通",
	})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if resp.Success || resp.AllocationMethod != models.MethodFailed {
		t.Fatalf("unexpected resp: %+v", resp)
	}
	if resp.DebugInfo["reason"] != "empty_group" {
		t.Fatalf("expected empty_group reason, got %v", resp.DebugInfo["reason"])
	}
}

func TestAllocate_DuplicateRejected(t *testing.T) {
	f := newAllocFixture(t)
	ctx := context.Background()

	f.seedUser(t, 1, 100)
	f.seedGroup(t, 1, models.StrategyRoundRobin, 1)
	f.seedAllocRule(t, "ar1", 10, 1, models.RuleConditions{})
	f.seedCostRule(t, "cr1", 10, 10, models.RuleConditions{}, models.CostAdjustments{})
	f.seedLead(t, 100, "L1", "抖音", "普通", "")

	req := &types.AllocateLeadReq{LeadID: "L1", Source: "抖音", LeadType: "普通"}
	if _, err := f.svc.Allocate(ctx, req); err != nil {
		t.Fatalf("first allocate: %v", err)
	}
	if _, err := f.svc.Allocate(ctx, req); !errors.Is(err, ErrDuplicateAllocation) {
		t.Fatalf("expected ErrDuplicateAllocation, got %v", err)
	}

	account, _ := f.points.GetAccount(ctx, 1)
	if account.Balance != 90 {
		t.Fatalf("repeat attempt must not double-charge, balance %d", account.Balance)
	}
}

func TestAllocate_Manual(t *testing.T) {
	f := newAllocFixture(t)
	ctx := context.Background()

	f.seedUser(t, 7, 50)
	f.seedLead(t, 100, "L1", "抖音", "普通", "")

	// 没配费用规则时走兜底扣分
	manual := int64(7)
	resp, err := f.svc.Allocate(ctx, &types.AllocateLeadReq{
		LeadID: "L1", Source: "抖音", LeadType: "普通", ManualUserID: &manual,
	})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if !resp.Success || resp.AllocationMethod != models.MethodManual {
		t.Fatalf("unexpected resp: %+v", resp)
	}
	if resp.MatchedRuleID != nil {
		t.Fatal("manual assignment skips rule matching")
	}
	if resp.PointsCharged == nil || *resp.PointsCharged != 10 {
		t.Fatalf("expected fallback cost 10, got %v", resp.PointsCharged)
	}

	account, _ := f.points.GetAccount(ctx, 7)
	if account.Balance != 40 {
		t.Fatalf("expected balance 40, got %d", account.Balance)
	}
}

func TestAllocate_ManualInactiveUser(t *testing.T) {
	f := newAllocFixture(t)
	ctx := context.Background()

	disabled := &models.SalesUser{ID: 9, Name: "停用", Mobile: "13800001111", Role: models.RoleSales, Status: models.UserStatusDisabled}
	if err := f.db.Create(disabled).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	f.seedLead(t, 100, "L1", "抖音", "普通", "")

	manual := int64(9)
	_, err := f.svc.Allocate(ctx, &types.AllocateLeadReq{
		LeadID: "L1", Source: "抖音", LeadType: "普通", ManualUserID: &manual,
	})
	if !errors.Is(err, ErrUserNotAllocatable) {
		t.Fatalf("expected ErrUserNotAllocatable, got %v", err)
	}

	// 入参校验失败不算一次尝试，不留日志
	var count int64
	f.db.Model(&models.AllocationLog{}).Where("lead_id = ?", "L1").Count(&count)
	if count != 0 {
		t.Fatalf("invalid manual request must not log, got %d", count)
	}
}

func TestAllocate_RoundRobinRotation(t *testing.T) {
	f := newAllocFixture(t)
	ctx := context.Background()

	for _, id := range []int64{1, 2, 3} {
		f.seedUser(t, id, 100)
	}
	f.seedGroup(t, 1, models.StrategyRoundRobin, 1, 2, 3)
	f.seedAllocRule(t, "ar1", 10, 1, models.RuleConditions{})
	f.seedCostRule(t, "cr1", 10, 10, models.RuleConditions{}, models.CostAdjustments{})

	assigned := make(map[int64]int)
	for i, leadID := range []string{"L1", "L2", "L3"} {
		f.seedLead(t, int64(100+i), leadID, "抖音", "普通", "")
		resp, err := f.svc.Allocate(ctx, &types.AllocateLeadReq{
			LeadID: leadID, Source: "抖音", LeadType: "普通",
		})
		if err != nil || !resp.Success {
			t.Fatalf("allocate %s: %v %+v", leadID, err, resp)
		}
		assigned[*resp.AssignedUserID]++
	}

	// 三条线索轮满一圈，每人正好一条
	if len(assigned) != 3 {
		t.Fatalf("round robin should rotate through all members, got %v", assigned)
	}
}

func TestAllocate_LoadBased(t *testing.T) {
	f := newAllocFixture(t)
	ctx := context.Background()

	f.seedUser(t, 1, 100)
	f.seedUser(t, 2, 100)
	f.seedGroup(t, 1, models.StrategyLoadBased, 1, 2)
	f.seedAllocRule(t, "ar1", 10, 1, models.RuleConditions{})
	f.seedCostRule(t, "cr1", 10, 10, models.RuleConditions{}, models.CostAdjustments{})

	// 用户 1 已有两条在手线索
	uid := int64(1)
	for i, leadID := range []string{"old1", "old2"} {
		lead := &models.Lead{ID: int64(10 + i), LeadID: leadID, Source: "抖音", Status: models.LeadStatusAssigned, AssignedUserID: &uid}
		if err := f.db.Create(lead).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	f.seedLead(t, 100, "L1", "抖音", "普通", "")
	resp, err := f.svc.Allocate(ctx, &types.AllocateLeadReq{
		LeadID: "L1", Source: "抖音", LeadType: "普通",
	})
	if err != nil || !resp.Success {
		t.Fatalf("allocate: %v %+v", err, resp)
	}
	if *resp.AssignedUserID != 2 {
		t.Fatalf("load_based should pick the idle user, got %d", *resp.AssignedUserID)
	}
}

func TestAllocate_InactiveMemberSkipped(t *testing.T) {
	f := newAllocFixture(t)
	ctx := context.Background()

	f.seedUser(t, 1, 100)
	disabled := &models.SalesUser{ID: 2, Name: "停用", Mobile: "13800002222", Role: models.RoleSales, Status: models.UserStatusDisabled}
	if err := f.db.Create(disabled).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	f.seedGroup(t, 1, models.StrategyRoundRobin, 1, 2)
	f.seedAllocRule(t, "ar1", 10, 1, models.RuleConditions{})
	f.seedCostRule(t, "cr1", 10, 10, models.RuleConditions{}, models.CostAdjustments{})

	// 连发两条，停用成员一条都不该拿到
	for i, leadID := range []string{"L1", "L2"} {
		f.seedLead(t, int64(100+i), leadID, "抖音", "普通", "")
		resp, err := f.svc.Allocate(ctx, &types.AllocateLeadReq{
			LeadID: leadID, Source: "抖音", LeadType: "普通",
		})
		if err != nil || !resp.Success {
			t.Fatalf("allocate %s: %v %+v", leadID, err, resp)
		}
		if *resp.AssignedUserID != 1 {
			t.Fatalf("disabled member must be skipped, got %d", *resp.AssignedUserID)
		}
	}
}

func TestReallocate(t *testing.T) {
	f := newAllocFixture(t)
	ctx := context.Background()

	f.seedUser(t, 1, 100)
	f.seedUser(t, 2, 100)
	f.seedGroup(t, 1, models.StrategyRoundRobin, 1)
	f.seedAllocRule(t, "ar1", 10, 1, models.RuleConditions{})
	f.seedCostRule(t, "cr1", 10, 20, models.RuleConditions{}, models.CostAdjustments{})
	f.seedLead(t, 100, "L1", "抖音", "普通", "")

	if _, err := f.svc.Allocate(ctx, &types.AllocateLeadReq{
		LeadID: "L1", Source: "抖音", LeadType: "普通",
	}); err != nil {
		t.Fatalf("allocate: %v", err)
	}

	manual := int64(2)
	resp, err := f.svc.Reallocate(ctx, &types.ReallocateLeadReq{LeadID: "L1", ManualUserID: &manual})
	if err != nil {
		t.Fatalf("reallocate: %v", err)
	}
	if !resp.Success || *resp.AssignedUserID != 2 {
		t.Fatalf("unexpected resp: %+v", resp)
	}

	// 原销售的扣分退回，新销售按新一轮计价扣分
	a1, _ := f.points.GetAccount(ctx, 1)
	if a1.Balance != 100 {
		t.Fatalf("user 1 should be refunded, balance %d", a1.Balance)
	}
	a2, _ := f.points.GetAccount(ctx, 2)
	if a2.Balance != 80 {
		t.Fatalf("user 2 should be charged 20, balance %d", a2.Balance)
	}

	// 两次尝试各留一条日志，首轮的审计痕迹原封不动
	var logs []models.AllocationLog
	f.db.Where("lead_id = ?", "L1").Order("attempt ASC").Find(&logs)
	if len(logs) != 2 {
		t.Fatalf("expected both attempts logged, got %d", len(logs))
	}
	if logs[0].Attempt != 1 || logs[0].Method != models.MethodRuleMatched {
		t.Fatalf("first attempt must stay intact: %+v", logs[0])
	}
	if logs[0].MatchedRuleID == nil || *logs[0].MatchedRuleID != "ar1" {
		t.Fatalf("first attempt lost its matched rule: %+v", logs[0])
	}
	if logs[1].Attempt != 2 || logs[1].Method != models.MethodManual {
		t.Fatalf("second attempt should be manual: %+v", logs[1])
	}

	// 单条查询返回最近一次尝试
	item, err := f.svc.GetLog(ctx, "L1")
	if err != nil {
		t.Fatalf("get log: %v", err)
	}
	if item.Attempt != 2 || item.AllocationMethod != models.MethodManual {
		t.Fatalf("latest attempt expected, got %+v", item)
	}
	history, err := f.svc.GetLogHistory(ctx, "L1")
	if err != nil || len(history) != 2 {
		t.Fatalf("full history expected, got %v err=%v", history, err)
	}

	lead, _ := f.leads.FindByLeadID(ctx, "L1")
	if lead.AssignedUserID == nil || *lead.AssignedUserID != 2 {
		t.Fatalf("lead ownership not moved: %+v", lead)
	}
}

// 作废已退过分的线索再重新分配，原销售不能再被退一次
func TestReallocate_AfterRefund(t *testing.T) {
	f := newAllocFixture(t)
	ctx := context.Background()

	f.seedUser(t, 1, 100)
	f.seedUser(t, 2, 100)
	f.seedGroup(t, 1, models.StrategyRoundRobin, 1)
	f.seedAllocRule(t, "ar1", 10, 1, models.RuleConditions{})
	f.seedCostRule(t, "cr1", 10, 20, models.RuleConditions{}, models.CostAdjustments{})
	f.seedLead(t, 100, "L1", "抖音", "普通", "")

	if _, err := f.svc.Allocate(ctx, &types.AllocateLeadReq{
		LeadID: "L1", Source: "抖音", LeadType: "普通",
	}); err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if _, err := f.points.RefundForLead(ctx, "L1", "线索作废"); err != nil {
		t.Fatalf("refund: %v", err)
	}

	manual := int64(2)
	if _, err := f.svc.Reallocate(ctx, &types.ReallocateLeadReq{LeadID: "L1", ManualUserID: &manual}); err != nil {
		t.Fatalf("reallocate: %v", err)
	}

	a1, _ := f.points.GetAccount(ctx, 1)
	if a1.Balance != 100 {
		t.Fatalf("user 1 must not be refunded twice, balance %d", a1.Balance)
	}
	assertLedgerConsistent(t, f.points, 1)
}

func TestReallocate_UnknownLead(t *testing.T) {
	f := newAllocFixture(t)
	if _, err := f.svc.Reallocate(context.Background(), &types.ReallocateLeadReq{LeadID: "nope"}); !errors.Is(err, ErrLeadNotFound) {
		t.Fatalf("expected ErrLeadNotFound, got %v", err)
	}
}

func TestAllocate_PriorityOrder(t *testing.T) {
	f := newAllocFixture(t)
	ctx := context.Background()

	f.seedUser(t, 1, 100)
	f.seedUser(t, 2, 100)
	f.seedGroup(t, 1, models.StrategyRoundRobin, 1)
	f.seedGroup(t, 2, models.StrategyRoundRobin, 2)
	// 两条都能命中，优先级高的先匹配
	f.seedAllocRule(t, "low", 1, 1, models.RuleConditions{})
	f.seedAllocRule(t, "high", 99, 2, models.RuleConditions{})
	f.seedCostRule(t, "cr1", 10, 10, models.RuleConditions{}, models.CostAdjustments{})
	f.seedLead(t, 100, "L1", "抖音", "普通", "")

	resp, err := f.svc.Allocate(ctx, &types.AllocateLeadReq{
		LeadID: "L1", Source: "抖音", LeadType: "普通",
	})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if *resp.MatchedRuleID != "high" || *resp.AssignedUserID != 2 {
		t.Fatalf("higher priority rule must win: %+v", resp)
	}
}

// 游标条件更新推进：每次推进拿到的值互不相同，落库值等于推进次数
func TestGroupAdvanceCursor(t *testing.T) {
	f := newAllocFixture(t)
	ctx := context.Background()

	f.seedGroup(t, 1, models.StrategyRoundRobin, 1)
	groups := dao.NewGroup(f.db)

	seen := make(map[int]bool)
	for i := 0; i < 5; i++ {
		cursor, err := groups.AdvanceCursor(ctx, 1)
		if err != nil {
			t.Fatalf("advance: %v", err)
		}
		if seen[cursor] {
			t.Fatalf("cursor %d handed out twice", cursor)
		}
		seen[cursor] = true
		if cursor != i {
			t.Fatalf("expected cursor %d, got %d", i, cursor)
		}
	}

	group, err := groups.GetByID(ctx, 1)
	if err != nil {
		t.Fatalf("get group: %v", err)
	}
	if group.RRCursor != 5 {
		t.Fatalf("stored cursor should be 5, got %d", group.RRCursor)
	}
}
