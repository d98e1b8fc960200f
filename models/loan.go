// models/loan.go
package models

import "time"

const (
	LoanTable        = "grd_loans"
	LoanItemTable    = "grd_loan_items"
	LoanHistoryTable = "grd_loan_history"
)

// 借用状态标签，与历史记录一致
const (
	LoanActivated   = "Activated"
	LoanDeactivated = "Deactivated"
	LoanReactivated = "Reactivated"
	LoanCancelled   = "Cancelled"
)

// Loan 一张借用单（cautela），可包含多件物资
type Loan struct {
	ID          string     `gorm:"type:uuid;primaryKey" json:"id"`
	IsActive    bool       `gorm:"not null;index" json:"isActive"`
	Status      string     `gorm:"size:20;not null" json:"status"` // 最近一次历史标签
	ClientID    string     `gorm:"type:uuid;index;not null" json:"clientId"`
	OperatorID  string     `gorm:"type:uuid;index;not null" json:"operatorId"`
	Destination string     `gorm:"size:200;not null" json:"destination"`
	CreatedAt   time.Time  `gorm:"index;not null" json:"createdAt"`
	ReturnedAt  *time.Time `json:"returnedAt,omitempty"`
	UpdatedAt   time.Time  `json:"updatedAt"`

	Client   *Client       `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Operator *Operator     `gorm:"foreignKey:OperatorID" json:"operator,omitempty"`
	Items    []LoanItem    `gorm:"foreignKey:LoanID" json:"items,omitempty"`
	History  []LoanHistory `gorm:"foreignKey:LoanID" json:"history,omitempty"`
}

// LoanItem 借用单明细；创建后不可修改
type LoanItem struct {
	ID         string    `gorm:"type:uuid;primaryKey" json:"id"`
	LoanID     string    `gorm:"type:uuid;index;not null" json:"loanId"`
	MaterialID string    `gorm:"type:uuid;index;not null" json:"materialId"`
	Quantity   int       `gorm:"not null" json:"quantity"`
	Material   *Material `gorm:"foreignKey:MaterialID" json:"material,omitempty"`
}

// LoanHistory 只追加的审计记录；操作员被删除后 OperatorID 置空
type LoanHistory struct {
	ID         string    `gorm:"type:uuid;primaryKey" json:"id"`
	LoanID     string    `gorm:"type:uuid;index;not null" json:"loanId"`
	Status     string    `gorm:"size:20;not null" json:"status"`
	CreatedAt  time.Time `gorm:"index;not null" json:"createdAt"`
	OperatorID *string   `gorm:"type:uuid;index" json:"operatorId,omitempty"`
	Operator   *Operator `gorm:"foreignKey:OperatorID" json:"operator,omitempty"`
}

func (Loan) TableName() string        { return LoanTable }
func (LoanItem) TableName() string    { return LoanItemTable }
func (LoanHistory) TableName() string { return LoanHistoryTable }
