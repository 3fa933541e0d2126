package dao

import (
	"context"

	"Anju/models"

	"gorm.io/gorm"
)

type AllocationLog struct {
	Repo[models.AllocationLog]
}

func NewAllocationLog(db *gorm.DB) *AllocationLog {
	return &AllocationLog{Repo: NewRepo[models.AllocationLog](db)}
}

func (a *AllocationLog) ExistsForLead(ctx context.Context, leadID string) (bool, error) {
	return a.IsExist(ctx, "lead_id = ?", leadID)
}

// FindByLeadID 最近一次尝试的日志
func (a *AllocationLog) FindByLeadID(ctx context.Context, leadID string) (*models.AllocationLog, error) {
	var entry models.AllocationLog
	err := a.Db.WithContext(ctx).
		Where("lead_id = ?", leadID).
		Order("attempt DESC").
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListForLead 全部尝试，按 attempt 升序
func (a *AllocationLog) ListForLead(ctx context.Context, leadID string) ([]models.AllocationLog, error) {
	var logs []models.AllocationLog
	err := a.Db.WithContext(ctx).
		Where("lead_id = ?", leadID).
		Order("attempt ASC").
		Find(&logs).Error
	return logs, err
}

// ListByMethod 分配结果查询，method 为空表示全部
func (a *AllocationLog) ListByMethod(ctx context.Context, method string, cursor int64, limit int) ([]models.AllocationLog, error) {
	var logs []models.AllocationLog
	query := a.Db.WithContext(ctx)

	if method != "" {
		query = query.Where("allocation_method = ?", method)
	}
	if cursor > 0 {
		query = query.Where("id < ?", cursor)
	}

	err := query.Order("id DESC").Limit(limit).Find(&logs).Error
	return logs, err
}
