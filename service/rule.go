package service

import (
	"context"
	"encoding/json"
	"fmt"

	"Anju/dao"
	"Anju/dao/cache"
	"Anju/models"
	"Anju/types"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// RuleService 分配规则与费用规则的管理面
// 分配引擎读活跃规则走缓存，管理端任何改动都打掉缓存
type RuleService struct {
	RuleDAO   *dao.Rule
	GroupDAO  *dao.Group
	RuleCache *cache.RuleCache
}

var _ IRuleService = (*RuleService)(nil)

type IRuleService interface {
	ActiveAllocationRules(ctx context.Context) ([]models.AllocationRule, error)
	ActiveCostRules(ctx context.Context) ([]models.PointsCostRule, error)

	CreateAllocationRule(ctx context.Context, req *types.SaveAllocationRuleReq) (*types.AllocationRuleItem, error)
	UpdateAllocationRule(ctx context.Context, id string, req *types.SaveAllocationRuleReq) error
	DeleteAllocationRule(ctx context.Context, id string) error
	ListAllocationRules(ctx context.Context) ([]types.AllocationRuleItem, error)

	CreateCostRule(ctx context.Context, req *types.SaveCostRuleReq) (*types.CostRuleItem, error)
	UpdateCostRule(ctx context.Context, id string, req *types.SaveCostRuleReq) error
	DeleteCostRule(ctx context.Context, id string) error
	ListCostRules(ctx context.Context) ([]types.CostRuleItem, error)

	CreateGroup(ctx context.Context, req *types.SaveGroupReq) (*types.GroupItem, error)
	UpdateGroup(ctx context.Context, id int64, req *types.SaveGroupReq) error
	ListGroups(ctx context.Context) ([]types.GroupItem, error)
}

func NewRuleService(ruleDAO *dao.Rule, groupDAO *dao.Group, ruleCache *cache.RuleCache) *RuleService {
	return &RuleService{RuleDAO: ruleDAO, GroupDAO: groupDAO, RuleCache: ruleCache}
}

func (s *RuleService) ActiveAllocationRules(ctx context.Context) ([]models.AllocationRule, error) {
	if rules, ok := s.RuleCache.GetAllocationRules(ctx); ok {
		return rules, nil
	}
	rules, err := s.RuleDAO.ListActiveAllocationRules(ctx)
	if err != nil {
		return nil, err
	}
	s.RuleCache.SetAllocationRules(ctx, rules)
	return rules, nil
}

func (s *RuleService) ActiveCostRules(ctx context.Context) ([]models.PointsCostRule, error) {
	if rules, ok := s.RuleCache.GetCostRules(ctx); ok {
		return rules, nil
	}
	rules, err := s.RuleDAO.ListActiveCostRules(ctx)
	if err != nil {
		return nil, err
	}
	s.RuleCache.SetCostRules(ctx, rules)
	return rules, nil
}

// validateConditions 管理端入口处拦掉配不出来的时间窗口
// 起止都为 0 表示全天，只按 weekdays 过滤
func validateConditions(cond *models.RuleConditions) error {
	for _, w := range cond.TimeWindows {
		for _, d := range w.Weekdays {
			if d < 0 || d > 6 {
				return fmt.Errorf("%w: weekday %d 超出 0-6", ErrInvalidTimeWindow, d)
			}
		}
		if w.StartHour == 0 && w.EndHour == 0 {
			continue
		}
		if w.StartHour < 0 || w.EndHour > 24 || w.EndHour <= w.StartHour {
			return fmt.Errorf("%w: 小时区间 [%d, %d) 无效", ErrInvalidTimeWindow, w.StartHour, w.EndHour)
		}
	}
	return nil
}

func (s *RuleService) CreateAllocationRule(ctx context.Context, req *types.SaveAllocationRuleReq) (*types.AllocationRuleItem, error) {
	if err := validateConditions(&req.Conditions); err != nil {
		return nil, err
	}
	cond, err := json.Marshal(req.Conditions)
	if err != nil {
		return nil, err
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	rule := &models.AllocationRule{
		ID:         uuid.NewString(),
		Name:       req.Name,
		Priority:   req.Priority,
		Active:     active,
		Conditions: datatypes.JSON(cond),
		GroupID:    req.GroupID,
	}
	if err := s.RuleDAO.CreateAllocationRule(ctx, rule); err != nil {
		return nil, err
	}
	s.RuleCache.Invalidate(ctx)

	return toAllocationRuleItem(rule), nil
}

func (s *RuleService) UpdateAllocationRule(ctx context.Context, id string, req *types.SaveAllocationRuleReq) error {
	if err := validateConditions(&req.Conditions); err != nil {
		return err
	}
	cond, err := json.Marshal(req.Conditions)
	if err != nil {
		return err
	}

	updates := map[string]any{
		"name":       req.Name,
		"priority":   req.Priority,
		"conditions": datatypes.JSON(cond),
		"group_id":   req.GroupID,
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}
	if err := s.RuleDAO.UpdateAllocationRule(ctx, id, updates); err != nil {
		return err
	}
	s.RuleCache.Invalidate(ctx)
	return nil
}

func (s *RuleService) DeleteAllocationRule(ctx context.Context, id string) error {
	if err := s.RuleDAO.DeleteAllocationRule(ctx, id); err != nil {
		return err
	}
	s.RuleCache.Invalidate(ctx)
	return nil
}

func (s *RuleService) ListAllocationRules(ctx context.Context) ([]types.AllocationRuleItem, error) {
	rules, err := s.RuleDAO.ListAllocationRules(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]types.AllocationRuleItem, 0, len(rules))
	for i := range rules {
		items = append(items, *toAllocationRuleItem(&rules[i]))
	}
	return items, nil
}

func (s *RuleService) CreateCostRule(ctx context.Context, req *types.SaveCostRuleReq) (*types.CostRuleItem, error) {
	if err := validateConditions(&req.Conditions); err != nil {
		return nil, err
	}
	cond, err := json.Marshal(req.Conditions)
	if err != nil {
		return nil, err
	}
	adj, err := json.Marshal(req.Adjustments)
	if err != nil {
		return nil, err
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	rule := &models.PointsCostRule{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Priority:    req.Priority,
		Active:      active,
		BaseCost:    req.BaseCost,
		Conditions:  datatypes.JSON(cond),
		Adjustments: datatypes.JSON(adj),
	}
	if err := s.RuleDAO.CreateCostRule(ctx, rule); err != nil {
		return nil, err
	}
	s.RuleCache.Invalidate(ctx)

	return toCostRuleItem(rule), nil
}

func (s *RuleService) UpdateCostRule(ctx context.Context, id string, req *types.SaveCostRuleReq) error {
	if err := validateConditions(&req.Conditions); err != nil {
		return err
	}
	cond, err := json.Marshal(req.Conditions)
	if err != nil {
		return err
	}
	adj, err := json.Marshal(req.Adjustments)
	if err != nil {
		return err
	}

	updates := map[string]any{
		"name":        req.Name,
		"priority":    req.Priority,
		"base_cost":   req.BaseCost,
		"conditions":  datatypes.JSON(cond),
		"adjustments": datatypes.JSON(adj),
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}
	if err := s.RuleDAO.UpdateCostRule(ctx, id, updates); err != nil {
		return err
	}
	s.RuleCache.Invalidate(ctx)
	return nil
}

func (s *RuleService) DeleteCostRule(ctx context.Context, id string) error {
	if err := s.RuleDAO.DeleteCostRule(ctx, id); err != nil {
		return err
	}
	s.RuleCache.Invalidate(ctx)
	return nil
}

func (s *RuleService) ListCostRules(ctx context.Context) ([]types.CostRuleItem, error) {
	rules, err := s.RuleDAO.ListCostRules(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]types.CostRuleItem, 0, len(rules))
	for i := range rules {
		items = append(items, *toCostRuleItem(&rules[i]))
	}
	return items, nil
}

func toAllocationRuleItem(rule *models.AllocationRule) *types.AllocationRuleItem {
	cond, err := rule.ParseConditions()
	if err != nil {
		cond = &models.RuleConditions{}
	}
	return &types.AllocationRuleItem{
		ID:         rule.ID,
		Name:       rule.Name,
		Priority:   rule.Priority,
		Active:     rule.Active,
		Conditions: *cond,
		GroupID:    rule.GroupID,
		CreatedAt:  rule.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func toCostRuleItem(rule *models.PointsCostRule) *types.CostRuleItem {
	cond, err := rule.ParseConditions()
	if err != nil {
		cond = &models.RuleConditions{}
	}
	adj, err := rule.ParseAdjustments()
	if err != nil {
		adj = &models.CostAdjustments{}
	}
	return &types.CostRuleItem{
		ID:          rule.ID,
		Name:        rule.Name,
		Priority:    rule.Priority,
		Active:      rule.Active,
		BaseCost:    rule.BaseCost,
		Conditions:  *cond,
		Adjustments: *adj,
		CreatedAt:   rule.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func (s *RuleService) CreateGroup(ctx context.Context, req *types.SaveGroupReq) (*types.GroupItem, error) {
	strategy := req.Strategy
	if strategy == "" {
		strategy = models.StrategyRoundRobin
	}
	group := &models.UserGroup{
		Name:     req.Name,
		Strategy: strategy,
		Members:  datatypes.NewJSONSlice(req.Members),
	}
	if err := s.GroupDAO.Create(ctx, group); err != nil {
		return nil, err
	}
	return &types.GroupItem{
		ID:       group.ID,
		Name:     group.Name,
		Strategy: group.Strategy,
		Members:  req.Members,
	}, nil
}

func (s *RuleService) UpdateGroup(ctx context.Context, id int64, req *types.SaveGroupReq) error {
	updates := map[string]any{
		"name":    req.Name,
		"members": datatypes.NewJSONSlice(req.Members),
	}
	if req.Strategy != "" {
		updates["strategy"] = req.Strategy
	}
	return s.GroupDAO.Update(ctx, id, updates)
}

func (s *RuleService) ListGroups(ctx context.Context) ([]types.GroupItem, error) {
	groups, err := s.GroupDAO.List(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]types.GroupItem, 0, len(groups))
	for _, g := range groups {
		items = append(items, types.GroupItem{
			ID:       g.ID,
			Name:     g.Name,
			Strategy: g.Strategy,
			Members:  []int64(g.Members),
		})
	}
	return items, nil
}
