package dao

import (
	"context"

	"gorm.io/gorm"
)

// Repo 泛型基础仓储，各业务 DAO 内嵌复用
type Repo[T any] struct {
	Db *gorm.DB
}

func NewRepo[T any](db *gorm.DB) Repo[T] {
	return Repo[T]{Db: db}
}

func (r Repo[T]) Create(ctx context.Context, item *T) error {
	return r.Db.WithContext(ctx).Create(item).Error
}

func (r Repo[T]) FindByID(ctx context.Context, id any) (*T, error) {
	var item T
	err := r.Db.WithContext(ctx).First(&item, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r Repo[T]) FindByWhere(ctx context.Context, where string, args ...any) (*T, error) {
	var item T
	err := r.Db.WithContext(ctx).Where(where, args...).First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r Repo[T]) FindAll(ctx context.Context, where string, args ...any) ([]T, error) {
	var items []T
	query := r.Db.WithContext(ctx)
	if where != "" {
		query = query.Where(where, args...)
	}
	err := query.Find(&items).Error
	return items, err
}

func (r Repo[T]) IsExist(ctx context.Context, where string, args ...any) (bool, error) {
	var count int64
	var model T
	err := r.Db.WithContext(ctx).Model(&model).Where(where, args...).Limit(1).Count(&count).Error
	return count > 0, err
}

func (r Repo[T]) Delete(ctx context.Context, id any) error {
	var model T
	return r.Db.WithContext(ctx).Delete(&model, "id = ?", id).Error
}

// WithTx 返回绑定到事务的仓储副本
func (r Repo[T]) WithTx(tx *gorm.DB) Repo[T] {
	return Repo[T]{Db: tx}
}
