package models

import (
	"time"
)

const OperatorTable = "grd_operators"

// 访问级别
const (
	LevelReader     = 1 // 只读：战备报告
	LevelCustodian  = 2 // 借用、箱柜、签署人
	LevelSupervisor = 3 // 全部权限
)

// Operator 系统操作员（登录账号）
type Operator struct {
	ID           string `gorm:"primaryKey;type:uuid" json:"id"`
	Username     string `gorm:"uniqueIndex;size:150;not null" json:"username"`
	PasswordHash string `gorm:"size:100;not null" json:"-"`
	Name         string `gorm:"size:100;not null" json:"name"`
	Identity     string `gorm:"size:20;not null" json:"identity"`
	Function     string `gorm:"size:100" json:"function,omitempty"`
	AccessLevel  int    `gorm:"not null" json:"accessLevel"`

	LastLoginAt *time.Time `gorm:"index" json:"lastLoginAt,omitempty"`
	LastSeenAt  *time.Time `gorm:"index" json:"lastSeenAt,omitempty"`
	LoginCount  int64      `gorm:"not null;default:0" json:"loginCount"`
	LastLoginIP string     `gorm:"size:45" json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Operator) TableName() string {
	return OperatorTable
}
