package announcement

import (
	"context"

	"gorm.io/gorm"
)

// Repository 接口定义
type Repository interface {
	Create(ctx context.Context, a *Announcement) error
	FindByID(ctx context.Context, id int64) (*Announcement, error)
	List(ctx context.Context, limit int) ([]Announcement, error)
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository 构造函数
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, a *Announcement) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *repository) FindByID(ctx context.Context, id int64) (*Announcement, error) {
	var a Announcement
	err := r.db.WithContext(ctx).First(&a, id).Error
	return &a, err
}

// List 置顶优先，其余按时间倒序
func (r *repository) List(ctx context.Context, limit int) ([]Announcement, error) {
	var list []Announcement
	err := r.db.WithContext(ctx).
		Order("pinned DESC, id DESC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&Announcement{}, id).Error
}
