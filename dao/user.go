package dao

import (
	"context"

	"Anju/models"

	"gorm.io/gorm"
)

type Users struct {
	Repo[models.SalesUser]
}

func NewUsers(db *gorm.DB) *Users {
	return &Users{
		Repo: NewRepo[models.SalesUser](db),
	}
}

// FindByMobile 手机号查询
func (u *Users) FindByMobile(ctx context.Context, mobile string) (*models.SalesUser, error) {
	return u.Repo.FindByWhere(ctx, "mobile = ?", mobile)
}

func (u *Users) IsActive(ctx context.Context, id int64) (bool, error) {
	return u.IsExist(ctx, "id = ? AND status = ?", id, models.UserStatusActive)
}

// ListActive 活跃成员，按 id 稳定排序，round_robin 依赖这个次序
func (u *Users) ListActive(ctx context.Context, ids []int64) ([]models.SalesUser, error) {
	var users []models.SalesUser
	err := u.Db.WithContext(ctx).
		Where("id IN ? AND status = ?", ids, models.UserStatusActive).
		Order("id ASC").
		Find(&users).Error
	return users, err
}

func (u *Users) UpdateById(ctx context.Context, id int64, data map[string]any) error {
	if id <= 0 {
		return gorm.ErrRecordNotFound
	}
	return u.Db.WithContext(ctx).
		Model(&models.SalesUser{}).
		Where("id = ?", id).
		Updates(data).Error
}
