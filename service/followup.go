package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"Anju/dao"
	"Anju/models"
	"Anju/pkg/log"
	"Anju/pkg/snowflake"
	"Anju/pkg/timewheel"
	"Anju/types"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 恢复窗口：Bootstrap 只把这个窗口内到期的提醒装进时间轮，
// 更远的由后台定期补装，免得时间轮里堆满几个月后的任务
const remindHorizon = 24 * time.Hour

// FollowUpService 跟进提醒：到点通过时间轮触发通知
// 提醒属于尽力而为，进程重启后由 Bootstrap 从库里恢复未触发的任务
type FollowUpService struct {
	FollowUpDAO *dao.FollowUpDAO
	LeadDAO     *dao.LeadDAO
	Notifier    INotifier

	wheel      *timewheel.SimpleTimeWheel[int64]
	rescanOnce sync.Once
}

var _ IFollowUpService = (*FollowUpService)(nil)

type IFollowUpService interface {
	Create(ctx context.Context, userID int64, req *types.CreateFollowUpReq) (*types.FollowUpItem, error)
	ListByLead(ctx context.Context, leadID string) ([]types.FollowUpItem, error)
	Done(ctx context.Context, id int64) error
	// Bootstrap 启动时恢复待提醒任务，常驻进程调用一次
	Bootstrap(ctx context.Context) error
}

func NewFollowUpService(followUpDAO *dao.FollowUpDAO, leadDAO *dao.LeadDAO, notifier INotifier) *FollowUpService {
	s := &FollowUpService{
		FollowUpDAO: followUpDAO,
		LeadDAO:     leadDAO,
		Notifier:    notifier,
	}
	s.wheel = timewheel.NewSimpleTimeWheel[int64](1*time.Second, 600, s.onRemind)
	go s.wheel.Start()
	return s
}

func (s *FollowUpService) Create(ctx context.Context, userID int64, req *types.CreateFollowUpReq) (*types.FollowUpItem, error) {
	remindAt, err := time.ParseInLocation("2006-01-02 15:04:05", req.RemindAt, time.Local)
	if err != nil {
		return nil, errors.New("remind_at 格式错误，应为 2006-01-02 15:04:05")
	}

	if _, err := s.LeadDAO.FindByLeadID(ctx, req.LeadID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLeadNotFound
		}
		return nil, err
	}

	item := &models.FollowUp{
		ID:       snowflake.GenID(),
		LeadID:   req.LeadID,
		UserID:   userID,
		Content:  req.Content,
		RemindAt: remindAt,
		Status:   models.FollowUpPending,
	}
	if err := s.FollowUpDAO.Create(ctx, item); err != nil {
		return nil, err
	}

	s.schedule(item)

	return &types.FollowUpItem{
		ID:       item.ID,
		LeadID:   item.LeadID,
		UserID:   item.UserID,
		Content:  item.Content,
		RemindAt: item.RemindAt.Format("2006-01-02 15:04:05"),
		Status:   item.Status,
	}, nil
}

func (s *FollowUpService) ListByLead(ctx context.Context, leadID string) ([]types.FollowUpItem, error) {
	items, err := s.FollowUpDAO.ListByLead(ctx, leadID)
	if err != nil {
		return nil, err
	}
	resp := make([]types.FollowUpItem, 0, len(items))
	for _, f := range items {
		resp = append(resp, types.FollowUpItem{
			ID:       f.ID,
			LeadID:   f.LeadID,
			UserID:   f.UserID,
			Content:  f.Content,
			RemindAt: f.RemindAt.Format("2006-01-02 15:04:05"),
			Status:   f.Status,
		})
	}
	return resp, nil
}

func (s *FollowUpService) Done(ctx context.Context, id int64) error {
	s.wheel.Remove(strconv.FormatInt(id, 10))
	return s.FollowUpDAO.UpdateStatus(ctx, id, models.FollowUpDone)
}

func (s *FollowUpService) Bootstrap(ctx context.Context) error {
	if err := s.loadDue(ctx); err != nil {
		return err
	}
	s.rescanOnce.Do(func() {
		go s.rescanLoop()
	})
	return nil
}

func (s *FollowUpService) loadDue(ctx context.Context) error {
	items, err := s.FollowUpDAO.ListDueBefore(ctx, time.Now().Add(remindHorizon))
	if err != nil {
		return err
	}
	// 同一个 key 重复 Add 会覆盖旧任务，补装是幂等的
	for i := range items {
		s.schedule(&items[i])
	}
	log.L.Info("follow-up reminders loaded", zap.Int("count", len(items)))
	return nil
}

func (s *FollowUpService) rescanLoop() {
	ticker := time.NewTicker(remindHorizon / 2)
	defer ticker.Stop()
	for range ticker.C {
		if err := s.loadDue(context.Background()); err != nil {
			log.L.Error("reload follow-up reminders failed", zap.Error(err))
		}
	}
}

func (s *FollowUpService) schedule(item *models.FollowUp) {
	delay := time.Until(item.RemindAt)
	if delay < time.Second {
		delay = time.Second
	}
	s.wheel.Add(strconv.FormatInt(item.ID, 10), item.ID, delay)
}

func (s *FollowUpService) onRemind(wheel *timewheel.SimpleTimeWheel[int64], key string, id int64) {
	ctx := context.Background()

	item, err := s.FollowUpDAO.FindByID(ctx, id)
	if err != nil {
		log.L.Error("load follow-up failed", zap.Int64("id", id), zap.Error(err))
		return
	}
	if item.Status != models.FollowUpPending {
		return
	}

	s.Notifier.Notify(ctx, NotifyEvent{
		Type:    NotifyFollowUpDue,
		UserID:  item.UserID,
		LeadID:  item.LeadID,
		Content: "跟进提醒：" + item.Content,
	})

	if err := s.FollowUpDAO.UpdateStatus(ctx, id, models.FollowUpNotified); err != nil {
		log.L.Error("update follow-up status failed", zap.Int64("id", id), zap.Error(err))
	}
}
