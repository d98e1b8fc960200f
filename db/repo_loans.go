package db

import (
	"context"
	"strings"

	"guardiao/models"

	"gorm.io/gorm"
)

func (r *Repo) GetLoan(ctx context.Context, id string) (*models.Loan, error) {
	var l models.Loan
	err := r.DB.WithContext(ctx).
		Preload("Client").
		Preload("Operator").
		Preload("Items.Material").
		Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("History.Operator").
		First(&l, "id = ?", id).Error
	if err != nil {
		return nil, notFound("loan", err)
	}
	return &l, nil
}

type LoanQuery struct {
	Filter     string // "", "all", "active", "inactive"
	ClientName string
	Page       int
	Size       int
}

type PagedLoans struct {
	Total int64         `json:"total"`
	Items []models.Loan `json:"items"`
}

// ListLoans 借用单列表，新的在前
func (r *Repo) ListLoans(ctx context.Context, q LoanQuery) (*PagedLoans, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Size <= 0 || q.Size > 200 {
		q.Size = 50
	}
	switch q.Filter {
	case "", "all", "active", "inactive":
	default:
		return nil, invalid("unknown loan filter %q", q.Filter)
	}
	filter := func(tx *gorm.DB) *gorm.DB {
		switch q.Filter {
		case "active":
			tx = tx.Where(models.LoanTable+".is_active = ?", true)
		case "inactive":
			tx = tx.Where(models.LoanTable+".is_active = ?", false)
		}
		if s := strings.TrimSpace(q.ClientName); s != "" {
			tx = tx.Joins("JOIN "+models.ClientTable+" c ON c.id = "+models.LoanTable+".client_id").
				Where("LOWER(c.name) LIKE ?", "%"+strings.ToLower(s)+"%")
		}
		return tx
	}

	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.Loan{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, err
	}
	var loans []models.Loan
	if err := r.DB.WithContext(ctx).Model(&models.Loan{}).Scopes(filter).
		Preload("Client").
		Order(models.LoanTable + ".created_at DESC").
		Offset((q.Page - 1) * q.Size).
		Limit(q.Size).
		Find(&loans).Error; err != nil {
		return nil, err
	}
	return &PagedLoans{Total: total, Items: loans}, nil
}
