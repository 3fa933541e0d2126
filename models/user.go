package models

import "time"

// 用户角色
const (
	RoleAdmin = "admin"
	RoleSales = "sales"
)

// 用户状态
const (
	UserStatusActive   = 1
	UserStatusDisabled = 0
)

type SalesUser struct {
	ID        int64     `gorm:"primaryKey;column:id"`
	Name      string    `gorm:"column:name;size:64"`
	Mobile    string    `gorm:"column:mobile;size:20;uniqueIndex"`
	Password  string    `gorm:"column:password;size:255" json:"-"`
	Role      string    `gorm:"column:role;size:16;default:sales"`
	Status    int8      `gorm:"column:status;default:1"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (SalesUser) TableName() string {
	return "sales_users"
}
