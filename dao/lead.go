package dao

import (
	"context"
	"time"

	"Anju/models"

	"gorm.io/gorm"
)

type LeadDAO struct {
	Repo[models.Lead]
}

func NewLeadDAO(db *gorm.DB) *LeadDAO {
	return &LeadDAO{Repo: NewRepo[models.Lead](db)}
}

func (l *LeadDAO) FindByLeadID(ctx context.Context, leadID string) (*models.Lead, error) {
	return l.FindByWhere(ctx, "lead_id = ?", leadID)
}

// Assign 分配成功后的回写
func (l *LeadDAO) Assign(ctx context.Context, leadID string, userID int64) error {
	now := time.Now()
	return l.Db.WithContext(ctx).Model(&models.Lead{}).
		Where("lead_id = ?", leadID).
		Updates(map[string]interface{}{
			"assigned_user_id": userID,
			"assigned_at":      now,
			"status":           models.LeadStatusAssigned,
		}).Error
}

// Unassign 线索作废/重新分配前解除归属
func (l *LeadDAO) Unassign(ctx context.Context, leadID string, status int8) error {
	return l.Db.WithContext(ctx).Model(&models.Lead{}).
		Where("lead_id = ?", leadID).
		Updates(map[string]interface{}{
			"assigned_user_id": nil,
			"assigned_at":      nil,
			"status":           status,
		}).Error
}

// CountOpenLeads 用户当前在手（已分配且有效）的线索数，load_based 策略用
func (l *LeadDAO) CountOpenLeads(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := l.Db.WithContext(ctx).Model(&models.Lead{}).
		Where("assigned_user_id = ? AND status = ?", userID, models.LeadStatusAssigned).
		Count(&count).Error
	return count, err
}

// ListLeads 游标分页，status < 0 表示不筛选状态
func (l *LeadDAO) ListLeads(ctx context.Context, userID int64, status int, cursor int64, limit int) ([]models.Lead, error) {
	var leads []models.Lead
	query := l.Db.WithContext(ctx)

	if userID > 0 {
		query = query.Where("assigned_user_id = ?", userID)
	}
	if status >= 0 {
		query = query.Where("status = ?", status)
	}
	if cursor > 0 {
		query = query.Where("id < ?", cursor)
	}

	err := query.Order("id DESC").Limit(limit).Find(&leads).Error
	return leads, err
}

// ListUnassigned 人工指派队列
func (l *LeadDAO) ListUnassigned(ctx context.Context, cursor int64, limit int) ([]models.Lead, error) {
	return l.ListLeads(ctx, 0, models.LeadStatusUnassigned, cursor, limit)
}

func (l *LeadDAO) CreateAttachment(ctx context.Context, att *models.LeadAttachment) error {
	return l.Db.WithContext(ctx).Create(att).Error
}

func (l *LeadDAO) ListAttachments(ctx context.Context, leadID string) ([]models.LeadAttachment, error) {
	var atts []models.LeadAttachment
	err := l.Db.WithContext(ctx).Where("lead_id = ?", leadID).Order("id DESC").Find(&atts).Error
	return atts, err
}

func (l *LeadDAO) FindAttachment(ctx context.Context, id int64) (*models.LeadAttachment, error) {
	var att models.LeadAttachment
	if err := l.Db.WithContext(ctx).First(&att, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &att, nil
}

func (l *LeadDAO) DeleteAttachment(ctx context.Context, id int64) error {
	return l.Db.WithContext(ctx).Delete(&models.LeadAttachment{}, "id = ?", id).Error
}
