package dao

import (
	"context"
	"time"

	"Anju/models"

	"gorm.io/gorm"
)

type FollowUpDAO struct {
	Repo[models.FollowUp]
}

func NewFollowUpDAO(db *gorm.DB) *FollowUpDAO {
	return &FollowUpDAO{Repo: NewRepo[models.FollowUp](db)}
}

// ListDueBefore 恢复/补装用：捞出还没提醒且提醒时间在 deadline 之前的跟进
func (f *FollowUpDAO) ListDueBefore(ctx context.Context, deadline time.Time) ([]models.FollowUp, error) {
	var items []models.FollowUp
	err := f.Db.WithContext(ctx).
		Where("status = ? AND remind_at <= ?", models.FollowUpPending, deadline).
		Find(&items).Error
	return items, err
}

func (f *FollowUpDAO) UpdateStatus(ctx context.Context, id int64, status int8) error {
	return f.Db.WithContext(ctx).Model(&models.FollowUp{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (f *FollowUpDAO) ListByLead(ctx context.Context, leadID string) ([]models.FollowUp, error) {
	var items []models.FollowUp
	err := f.Db.WithContext(ctx).
		Where("lead_id = ?", leadID).
		Order("id DESC").
		Find(&items).Error
	return items, err
}
