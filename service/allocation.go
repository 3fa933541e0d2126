package service

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"strings"
	"time"

	"Anju/config"
	"Anju/dao"
	"Anju/models"
	"Anju/pkg/log"
	"Anju/pkg/snowflake"
	"Anju/types"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AllocationService 分配编排：规则匹配 → 选人 → 扣分 → 落日志
// 每次分配尝试不论成败写且仅写一条 AllocationLog；
// 日志、扣分流水、钱包扣减、线索回写在同一事务里，要么全有要么全无
type AllocationService struct {
	Config   *config.AllocationConfig
	DB       *gorm.DB
	Rules    IRuleService
	GroupDAO *dao.Group
	LeadDAO  *dao.LeadDAO
	LogDAO   *dao.AllocationLog
	UserDAO  *dao.Users
	Points   *PointService
	Notifier INotifier
}

var _ IAllocationService = (*AllocationService)(nil)

type IAllocationService interface {
	Allocate(ctx context.Context, req *types.AllocateLeadReq) (*types.AllocateLeadResp, error)
	Reallocate(ctx context.Context, req *types.ReallocateLeadReq) (*types.AllocateLeadResp, error)
	GetLog(ctx context.Context, leadID string) (*types.AllocationLogItem, error)
	GetLogHistory(ctx context.Context, leadID string) ([]types.AllocationLogItem, error)
	ListLogs(ctx context.Context, req *types.ListAllocationLogsReq) (*types.ListAllocationLogsResp, error)
}

func NewAllocationService(
	cfg *config.AllocationConfig,
	db *gorm.DB,
	rules IRuleService,
	groupDAO *dao.Group,
	leadDAO *dao.LeadDAO,
	logDAO *dao.AllocationLog,
	userDAO *dao.Users,
	points *PointService,
	notifier INotifier,
) *AllocationService {
	return &AllocationService{
		Config:   cfg,
		DB:       db,
		Rules:    rules,
		GroupDAO: groupDAO,
		LeadDAO:  leadDAO,
		LogDAO:   logDAO,
		UserDAO:  userDAO,
		Points:   points,
		Notifier: notifier,
	}
}

// allocOutcome 一次分配尝试的内部结果，写日志和拼响应共用
type allocOutcome struct {
	method        string
	assignedUser  *int64
	matchedRuleID *string
	costRuleID    *string
	pointsCharged *int
	debug         map[string]any
}

func (s *AllocationService) Allocate(ctx context.Context, req *types.AllocateLeadReq) (*types.AllocateLeadResp, error) {
	// 首次尝试唯一：同一线索重复调用直接拒绝，防止重复扣分
	// 并发竞争由 allocation_logs (lead_id, attempt) 唯一索引兜底
	exists, err := s.LogDAO.ExistsForLead(ctx, req.LeadID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateAllocation
	}
	return s.allocate(ctx, req, 1)
}

// allocate 执行一次编号为 attempt 的分配尝试，重新分配走 attempt+1 进来
func (s *AllocationService) allocate(ctx context.Context, req *types.AllocateLeadReq, attempt int) (*types.AllocateLeadResp, error) {
	attrs := LeadAttrs{
		LeadID:    req.LeadID,
		Source:    req.Source,
		LeadType:  req.LeadType,
		Community: req.Community,
		Remark:    req.Remark,
	}
	if lead, err := s.LeadDAO.FindByLeadID(ctx, req.LeadID); err == nil {
		attrs.CreatedAt = lead.CreatedAt
	}

	now := time.Now()
	outcome := allocOutcome{debug: map[string]any{}}

	costRules, err := s.Rules.ActiveCostRules(ctx)
	if err != nil {
		return nil, err
	}
	costRes := MatchCostRule(costRules, attrs, now)
	if costRes.TiedPriority {
		log.L.Warn("cost rule priority tie, resolved by id asc",
			zap.String("rule_id", costRes.Rule.ID), zap.Int("priority", costRes.Rule.Priority))
	}
	outcome.debug["cost_rules"] = costRes.Trace

	cost := s.Config.DefaultCost
	if costRes.Rule != nil {
		cost = costRes.Cost
		id := costRes.Rule.ID
		outcome.costRuleID = &id
		outcome.debug["cost_breakdown"] = map[string]int{
			"base":    costRes.BaseCost,
			"source":  costRes.SourceDelta,
			"keyword": costRes.KeywordDelta,
		}
	} else {
		outcome.debug["cost_fallback"] = cost
	}

	if req.ManualUserID != nil {
		// 显式人工指派：跳过规则匹配，照常扣分
		if err := s.resolveManual(ctx, *req.ManualUserID, &outcome); err != nil {
			return nil, err
		}
	} else {
		if err := s.resolveByRules(ctx, attrs, now, &outcome); err != nil {
			return nil, err
		}
	}

	resp, err := s.commit(ctx, req.LeadID, attempt, cost, &outcome)
	if err != nil {
		return nil, err
	}

	if resp.Success && resp.AssignedUserID != nil {
		s.Notifier.Notify(ctx, NotifyEvent{
			Type:    NotifyLeadAssigned,
			UserID:  *resp.AssignedUserID,
			LeadID:  req.LeadID,
			Content: "新线索已分配：" + req.LeadID,
		})
	}
	return resp, nil
}

func (s *AllocationService) resolveManual(ctx context.Context, userID int64, outcome *allocOutcome) error {
	active, err := s.UserDAO.IsActive(ctx, userID)
	if err != nil {
		return err
	}
	if !active {
		return ErrUserNotAllocatable
	}
	outcome.method = models.MethodManual
	outcome.assignedUser = &userID
	outcome.debug["manual_user_id"] = userID
	return nil
}

func (s *AllocationService) resolveByRules(ctx context.Context, attrs LeadAttrs, now time.Time, outcome *allocOutcome) error {
	rules, err := s.Rules.ActiveAllocationRules(ctx)
	if err != nil {
		return err
	}

	matchRes := MatchAllocationRule(rules, attrs, now)
	outcome.debug["allocation_rules"] = matchRes.Trace

	if matchRes.Rule == nil {
		outcome.method = models.MethodFailed
		outcome.debug["reason"] = "no_matching_rule"
		return nil
	}

	if matchRes.TiedPriority {
		log.L.Warn("allocation rule priority tie, resolved by id asc",
			zap.String("rule_id", matchRes.Rule.ID), zap.Int("priority", matchRes.Rule.Priority))
		outcome.debug["priority_tie"] = true
	}

	ruleID := matchRes.Rule.ID
	outcome.matchedRuleID = &ruleID

	target, strategy, err := s.pickMember(ctx, matchRes.Rule.GroupID)
	if err != nil {
		if errors.Is(err, ErrEmptyGroup) {
			outcome.method = models.MethodFailed
			outcome.debug["reason"] = "empty_group"
			return nil
		}
		return err
	}

	outcome.method = models.MethodRuleMatched
	outcome.assignedUser = &target
	outcome.debug["strategy"] = strategy
	return nil
}

// pickMember 按分组配置的策略挑人，只在活跃成员里挑
func (s *AllocationService) pickMember(ctx context.Context, groupID int64) (int64, string, error) {
	group, err := s.GroupDAO.GetByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, "", ErrEmptyGroup
		}
		return 0, "", err
	}

	members, err := s.UserDAO.ListActive(ctx, group.Members)
	if err != nil {
		return 0, "", err
	}
	if len(members) == 0 {
		return 0, "", ErrEmptyGroup
	}

	strategy := group.Strategy
	if strategy == "" {
		strategy = s.Config.DefaultStrategy
	}

	switch strategy {
	case models.StrategyRandom:
		return members[rand.Intn(len(members))].ID, strategy, nil

	case models.StrategyLoadBased:
		best := members[0].ID
		bestLoad := int64(-1)
		for _, m := range members {
			load, err := s.LeadDAO.CountOpenLeads(ctx, m.ID)
			if err != nil {
				return 0, "", err
			}
			if bestLoad < 0 || load < bestLoad {
				best = m.ID
				bestLoad = load
			}
		}
		return best, strategy, nil

	default:
		// round_robin：游标只增，读侧取模
		cursor, err := s.GroupDAO.AdvanceCursor(ctx, groupID)
		if err != nil {
			return 0, "", err
		}
		return members[cursor%len(members)].ID, models.StrategyRoundRobin, nil
	}
}

// commit 落盘：日志必写；命中时扣分 + 回写线索归属
// 余额不足不是错误，降级成 failed_insufficient_points 记录在案
func (s *AllocationService) commit(ctx context.Context, leadID string, attempt int, cost int, outcome *allocOutcome) (*types.AllocateLeadResp, error) {
	runTx := func() error {
		return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if outcome.assignedUser != nil {
				_, err := s.Points.DebitTx(ctx, tx, *outcome.assignedUser, int64(cost),
					models.ReasonAllocationDebit, leadID, "线索分配扣分")
				switch {
				case errors.Is(err, ErrInsufficientPoints):
					outcome.debug["required_points"] = cost
					outcome.method = models.MethodInsufficientPoints
					outcome.assignedUser = nil
				case err != nil:
					return err
				default:
					c := cost
					outcome.pointsCharged = &c
					if err := dao.NewLeadDAO(tx).Assign(ctx, leadID, *outcome.assignedUser); err != nil {
						return err
					}
				}
			}

			debugJSON, err := json.Marshal(outcome.debug)
			if err != nil {
				return err
			}
			entry := &models.AllocationLog{
				ID:             snowflake.GenID(),
				LeadID:         leadID,
				Attempt:        attempt,
				AssignedUserID: outcome.assignedUser,
				Method:         outcome.method,
				MatchedRuleID:  outcome.matchedRuleID,
				CostRuleID:     outcome.costRuleID,
				PointsCharged:  outcome.pointsCharged,
				DebugInfo:      datatypes.JSON(debugJSON),
			}
			if err := dao.NewAllocationLog(tx).Create(ctx, entry); err != nil {
				if isDuplicateKey(err) {
					return ErrDuplicateAllocation
				}
				return err
			}
			return nil
		})
	}

	var err error
	if outcome.assignedUser != nil {
		err = s.Points.WithUserLock(*outcome.assignedUser, runTx)
	} else {
		err = runTx()
	}
	if err != nil {
		return nil, err
	}

	return &types.AllocateLeadResp{
		Success:          outcome.assignedUser != nil,
		AssignedUserID:   outcome.assignedUser,
		AllocationMethod: outcome.method,
		MatchedRuleID:    outcome.matchedRuleID,
		CostRuleID:       outcome.costRuleID,
		PointsCharged:    outcome.pointsCharged,
		DebugInfo:        outcome.debug,
	}, nil
}

// Reallocate 显式重新分配：退回原扣分、解除归属，再追加一次完整分配
// 历史日志不删不改，新尝试以 attempt+1 追加，完整保留每次决策的审计痕迹
func (s *AllocationService) Reallocate(ctx context.Context, req *types.ReallocateLeadReq) (*types.AllocateLeadResp, error) {
	lead, err := s.LeadDAO.FindByLeadID(ctx, req.LeadID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLeadNotFound
		}
		return nil, err
	}

	prev, err := s.LogDAO.FindByLeadID(ctx, req.LeadID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("该线索没有首次分配记录，请直接走分配")
		}
		return nil, err
	}

	rollback := func() error {
		return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if prev.AssignedUserID != nil && prev.PointsCharged != nil && *prev.PointsCharged > 0 {
				txDAO := dao.NewPoint(tx)
				debit, err := txDAO.FindDebitByLead(ctx, req.LeadID)
				if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
					return err
				}
				if err == nil {
					// 线索作废等路径可能已经退过，这里不重复退
					refunded, err := txDAO.HasRefundSince(ctx, req.LeadID, debit.ID)
					if err != nil {
						return err
					}
					if !refunded {
						if _, err := s.Points.CreditTx(ctx, tx, debit.UserID, -debit.Delta,
							models.ReasonRollbackRefund, req.LeadID, "重新分配退还"); err != nil {
							return err
						}
					}
				}
			}
			return dao.NewLeadDAO(tx).Unassign(ctx, req.LeadID, models.LeadStatusUnassigned)
		})
	}

	if prev.AssignedUserID != nil {
		err = s.Points.WithUserLock(*prev.AssignedUserID, rollback)
	} else {
		err = rollback()
	}
	if err != nil {
		return nil, err
	}

	return s.allocate(ctx, &types.AllocateLeadReq{
		LeadID:       lead.LeadID,
		Source:       lead.Source,
		LeadType:     lead.LeadType,
		Community:    lead.Community,
		Remark:       lead.Remark,
		ManualUserID: req.ManualUserID,
	}, prev.Attempt+1)
}

func (s *AllocationService) GetLog(ctx context.Context, leadID string) (*types.AllocationLogItem, error) {
	entry, err := s.LogDAO.FindByLeadID(ctx, leadID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLeadNotFound
		}
		return nil, err
	}
	return toLogItem(entry), nil
}

// GetLogHistory 一条线索的全部分配尝试，含被重新分配覆盖的那些
func (s *AllocationService) GetLogHistory(ctx context.Context, leadID string) ([]types.AllocationLogItem, error) {
	logs, err := s.LogDAO.ListForLead(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if len(logs) == 0 {
		return nil, ErrLeadNotFound
	}
	items := make([]types.AllocationLogItem, 0, len(logs))
	for i := range logs {
		items = append(items, *toLogItem(&logs[i]))
	}
	return items, nil
}

func (s *AllocationService) ListLogs(ctx context.Context, req *types.ListAllocationLogsReq) (*types.ListAllocationLogsResp, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}

	logs, err := s.LogDAO.ListByMethod(ctx, req.Method, req.Cursor, limit+1)
	if err != nil {
		return nil, err
	}

	resp := &types.ListAllocationLogsResp{Logs: make([]types.AllocationLogItem, 0)}
	if len(logs) > limit {
		resp.HasMore = true
		logs = logs[:limit]
		resp.NextCursor = logs[len(logs)-1].ID
	}
	for i := range logs {
		resp.Logs = append(resp.Logs, *toLogItem(&logs[i]))
	}
	return resp, nil
}

func toLogItem(entry *models.AllocationLog) *types.AllocationLogItem {
	var debug map[string]any
	if len(entry.DebugInfo) > 0 {
		_ = json.Unmarshal(entry.DebugInfo, &debug)
	}
	return &types.AllocationLogItem{
		ID:               entry.ID,
		LeadID:           entry.LeadID,
		Attempt:          entry.Attempt,
		AssignedUserID:   entry.AssignedUserID,
		AllocationMethod: entry.Method,
		MatchedRuleID:    entry.MatchedRuleID,
		CostRuleID:       entry.CostRuleID,
		PointsCharged:    entry.PointsCharged,
		DebugInfo:        debug,
		CreatedAt:        entry.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint failed")
}
