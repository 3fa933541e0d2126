package dao

import (
	"context"

	"Anju/models"

	"gorm.io/gorm"
)

type Rule struct {
	Db *gorm.DB
}

func NewRule(db *gorm.DB) *Rule {
	return &Rule{Db: db}
}

// ListActiveAllocationRules 活跃分配规则，priority 降序、id 升序
// 同优先级按 id 升序是约定的决胜顺序，匹配方依赖这个次序做贪心选择
func (r *Rule) ListActiveAllocationRules(ctx context.Context) ([]models.AllocationRule, error) {
	var rules []models.AllocationRule
	err := r.Db.WithContext(ctx).
		Where("active = ?", true).
		Order("priority DESC, id ASC").
		Find(&rules).Error
	return rules, err
}

func (r *Rule) ListActiveCostRules(ctx context.Context) ([]models.PointsCostRule, error) {
	var rules []models.PointsCostRule
	err := r.Db.WithContext(ctx).
		Where("active = ?", true).
		Order("priority DESC, id ASC").
		Find(&rules).Error
	return rules, err
}

func (r *Rule) ListAllocationRules(ctx context.Context) ([]models.AllocationRule, error) {
	var rules []models.AllocationRule
	err := r.Db.WithContext(ctx).Order("priority DESC, id ASC").Find(&rules).Error
	return rules, err
}

func (r *Rule) ListCostRules(ctx context.Context) ([]models.PointsCostRule, error) {
	var rules []models.PointsCostRule
	err := r.Db.WithContext(ctx).Order("priority DESC, id ASC").Find(&rules).Error
	return rules, err
}

func (r *Rule) GetAllocationRule(ctx context.Context, id string) (*models.AllocationRule, error) {
	var rule models.AllocationRule
	err := r.Db.WithContext(ctx).First(&rule, "id = ?", id).Error
	return &rule, err
}

func (r *Rule) GetCostRule(ctx context.Context, id string) (*models.PointsCostRule, error) {
	var rule models.PointsCostRule
	err := r.Db.WithContext(ctx).First(&rule, "id = ?", id).Error
	return &rule, err
}

func (r *Rule) CreateAllocationRule(ctx context.Context, rule *models.AllocationRule) error {
	return r.Db.WithContext(ctx).Create(rule).Error
}

func (r *Rule) CreateCostRule(ctx context.Context, rule *models.PointsCostRule) error {
	return r.Db.WithContext(ctx).Create(rule).Error
}

func (r *Rule) UpdateAllocationRule(ctx context.Context, id string, updates map[string]any) error {
	return r.Db.WithContext(ctx).Model(&models.AllocationRule{}).
		Where("id = ?", id).Updates(updates).Error
}

func (r *Rule) UpdateCostRule(ctx context.Context, id string, updates map[string]any) error {
	return r.Db.WithContext(ctx).Model(&models.PointsCostRule{}).
		Where("id = ?", id).Updates(updates).Error
}

func (r *Rule) DeleteAllocationRule(ctx context.Context, id string) error {
	return r.Db.WithContext(ctx).Delete(&models.AllocationRule{}, "id = ?", id).Error
}

func (r *Rule) DeleteCostRule(ctx context.Context, id string) error {
	return r.Db.WithContext(ctx).Delete(&models.PointsCostRule{}, "id = ?", id).Error
}
