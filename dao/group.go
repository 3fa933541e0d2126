package dao

import (
	"context"
	"errors"

	"Anju/models"

	"gorm.io/gorm"
)

type Group struct {
	Repo[models.UserGroup]
}

func NewGroup(db *gorm.DB) *Group {
	return &Group{Repo: NewRepo[models.UserGroup](db)}
}

func (g *Group) GetByID(ctx context.Context, id int64) (*models.UserGroup, error) {
	return g.FindByID(ctx, id)
}

// AdvanceCursor 推进 round_robin 游标，返回本次使用的游标值
// 取模放在读侧，游标只增，避免成员变动时回绕出错
// 条件更新做乐观并发控制，两次并发推进不会拿到同一个游标
func (g *Group) AdvanceCursor(ctx context.Context, groupID int64) (int, error) {
	for i := 0; i < 5; i++ {
		group, err := g.FindByID(ctx, groupID)
		if err != nil {
			return 0, err
		}
		res := g.Db.WithContext(ctx).Model(&models.UserGroup{}).
			Where("id = ? AND rr_cursor = ?", groupID, group.RRCursor).
			Update("rr_cursor", group.RRCursor+1)
		if res.Error != nil {
			return 0, res.Error
		}
		if res.RowsAffected == 1 {
			return group.RRCursor, nil
		}
	}
	return 0, errors.New("rr_cursor 竞争重试超限")
}

func (g *Group) List(ctx context.Context) ([]models.UserGroup, error) {
	return g.FindAll(ctx, "")
}

func (g *Group) Update(ctx context.Context, id int64, updates map[string]any) error {
	return g.Db.WithContext(ctx).Model(&models.UserGroup{}).
		Where("id = ?", id).Updates(updates).Error
}
