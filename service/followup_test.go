package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"Anju/dao"
	"Anju/models"
	"Anju/types"
)

func newFollowUpFixture(t *testing.T) (*FollowUpService, *allocFixture) {
	t.Helper()
	f := newAllocFixture(t)
	svc := NewFollowUpService(dao.NewFollowUpDAO(f.db), f.leads, NoopNotifier{})
	return svc, f
}

func TestFollowUpService_Create(t *testing.T) {
	svc, f := newFollowUpFixture(t)
	ctx := context.Background()

	f.seedLead(t, 1, "L1", "抖音", "普通", "")

	remindAt := time.Now().Add(time.Hour).Format("2006-01-02 15:04:05")
	item, err := svc.Create(ctx, 7, &types.CreateFollowUpReq{
		LeadID: "L1", Content: "电话回访", RemindAt: remindAt,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if item.Status != models.FollowUpPending || item.UserID != 7 {
		t.Fatalf("unexpected item: %+v", item)
	}

	list, err := svc.ListByLead(ctx, "L1")
	if err != nil || len(list) != 1 {
		t.Fatalf("expected 1 follow-up, got %d err=%v", len(list), err)
	}
}

func TestFollowUpService_CreateValidation(t *testing.T) {
	svc, _ := newFollowUpFixture(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, 7, &types.CreateFollowUpReq{
		LeadID: "L1", Content: "x", RemindAt: "明天下午",
	}); err == nil {
		t.Fatal("bad remind_at must be rejected")
	}

	remindAt := time.Now().Add(time.Hour).Format("2006-01-02 15:04:05")
	if _, err := svc.Create(ctx, 7, &types.CreateFollowUpReq{
		LeadID: "nope", Content: "x", RemindAt: remindAt,
	}); !errors.Is(err, ErrLeadNotFound) {
		t.Fatalf("expected ErrLeadNotFound, got %v", err)
	}
}

func TestFollowUpService_BootstrapHorizon(t *testing.T) {
	svc, f := newFollowUpFixture(t)
	ctx := context.Background()

	f.seedLead(t, 1, "L1", "抖音", "普通", "")

	near, err := svc.Create(ctx, 7, &types.CreateFollowUpReq{
		LeadID: "L1", Content: "一小时后", RemindAt: time.Now().Add(time.Hour).Format("2006-01-02 15:04:05"),
	})
	if err != nil {
		t.Fatalf("create near: %v", err)
	}
	far, err := svc.Create(ctx, 7, &types.CreateFollowUpReq{
		LeadID: "L1", Content: "下周", RemindAt: time.Now().Add(7*24*time.Hour).Format("2006-01-02 15:04:05"),
	})
	if err != nil {
		t.Fatalf("create far: %v", err)
	}
	done, err := svc.Create(ctx, 7, &types.CreateFollowUpReq{
		LeadID: "L1", Content: "已完成", RemindAt: time.Now().Add(2*time.Hour).Format("2006-01-02 15:04:05"),
	})
	if err != nil {
		t.Fatalf("create done: %v", err)
	}
	if err := svc.Done(ctx, done.ID); err != nil {
		t.Fatalf("done: %v", err)
	}

	// 装载查询只捞窗口内未提醒的
	due, err := dao.NewFollowUpDAO(f.db).ListDueBefore(ctx, time.Now().Add(24*time.Hour))
	if err != nil {
		t.Fatalf("list due: %v", err)
	}
	if len(due) != 1 || due[0].ID != near.ID {
		t.Fatalf("expected only the near pending reminder, got %+v", due)
	}
	if due[0].ID == far.ID {
		t.Fatal("far reminder must stay out of the recovery window")
	}

	if err := svc.Bootstrap(ctx); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
}

func TestFollowUpService_Done(t *testing.T) {
	svc, f := newFollowUpFixture(t)
	ctx := context.Background()

	f.seedLead(t, 1, "L1", "抖音", "普通", "")
	remindAt := time.Now().Add(time.Hour).Format("2006-01-02 15:04:05")
	item, err := svc.Create(ctx, 7, &types.CreateFollowUpReq{
		LeadID: "L1", Content: "回访", RemindAt: remindAt,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Done(ctx, item.ID); err != nil {
		t.Fatalf("done: %v", err)
	}

	list, _ := svc.ListByLead(ctx, "L1")
	if list[0].Status != models.FollowUpDone {
		t.Fatalf("expected done status, got %d", list[0].Status)
	}
}
