package db

import (
	"context"
	"strings"

	"guardiao/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ClientInput struct {
	Name         string `json:"name" binding:"required"`
	Identity     string `json:"identity" binding:"required"`
	CPF          string `json:"cpf"`
	MilitaryUnit string `json:"militaryUnit"`
	IsActive     *bool  `json:"isActive,omitempty"`
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func cpfTaken(tx *gorm.DB, cpf *string, exceptID string) error {
	if cpf == nil {
		return nil
	}
	var n int64
	if err := tx.Model(&models.Client{}).
		Where("cpf = ? AND id <> ?", *cpf, exceptID).
		Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return conflict("client", "cpf %s already registered", *cpf)
	}
	return nil
}

func (r *Repo) CreateClient(ctx context.Context, in ClientInput) (*models.Client, error) {
	cl := &models.Client{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(in.Name),
		Identity:     strings.TrimSpace(in.Identity),
		CPF:          optional(in.CPF),
		MilitaryUnit: strings.TrimSpace(in.MilitaryUnit),
		IsActive:     true,
	}
	if cl.Name == "" {
		return nil, invalid("client name is required")
	}
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := cpfTaken(tx, cl.CPF, cl.ID); err != nil {
			return err
		}
		return tx.Create(cl).Error
	})
	if err != nil {
		return nil, err
	}
	return cl, nil
}

func (r *Repo) FindClientByID(ctx context.Context, id string) (*models.Client, error) {
	var cl models.Client
	if err := r.DB.WithContext(ctx).First(&cl, "id = ?", id).Error; err != nil {
		return nil, notFound("client", err)
	}
	return &cl, nil
}

// ListClients 按姓名、所属单位模糊过滤
func (r *Repo) ListClients(ctx context.Context, name, unit string) ([]models.Client, error) {
	tx := r.DB.WithContext(ctx).Model(&models.Client{})
	if s := strings.TrimSpace(name); s != "" {
		tx = tx.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(s)+"%")
	}
	if s := strings.TrimSpace(unit); s != "" {
		tx = tx.Where("LOWER(military_unit) LIKE ?", "%"+strings.ToLower(s)+"%")
	}
	var cs []models.Client
	err := tx.Order("name").Find(&cs).Error
	return cs, err
}

// SearchActiveClients 借用表单的联想查询，最多 10 条
func (r *Repo) SearchActiveClients(ctx context.Context, name string) ([]models.Client, error) {
	var cs []models.Client
	err := r.DB.WithContext(ctx).
		Where("is_active = ? AND LOWER(name) LIKE ?", true, "%"+strings.ToLower(strings.TrimSpace(name))+"%").
		Order("name").
		Limit(10).
		Find(&cs).Error
	return cs, err
}

func (r *Repo) UpdateClient(ctx context.Context, id string, in ClientInput) (*models.Client, error) {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cl models.Client
		if err := tx.First(&cl, "id = ?", id).Error; err != nil {
			return notFound("client", err)
		}
		cpf := optional(in.CPF)
		if err := cpfTaken(tx, cpf, cl.ID); err != nil {
			return err
		}
		update := map[string]any{
			"name":          strings.TrimSpace(in.Name),
			"identity":      strings.TrimSpace(in.Identity),
			"cpf":           cpf,
			"military_unit": strings.TrimSpace(in.MilitaryUnit),
		}
		if in.IsActive != nil {
			update["is_active"] = *in.IsActive
		}
		return tx.Model(&models.Client{}).Where("id = ?", cl.ID).Updates(update).Error
	})
	if err != nil {
		return nil, err
	}
	return r.FindClientByID(ctx, id)
}

// ToggleClient 启用/停用借用人
func (r *Repo) ToggleClient(ctx context.Context, id string) (*models.Client, error) {
	res := r.DB.WithContext(ctx).Model(&models.Client{}).
		Where("id = ?", id).
		Update("is_active", gorm.Expr("NOT is_active"))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, notFound("client", gorm.ErrRecordNotFound)
	}
	return r.FindClientByID(ctx, id)
}

// DeleteClient 连同其全部借用单一起删除，每张单先冲销库存
func (r *Repo) DeleteClient(ctx context.Context, id string) error {
	var removed int
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cl models.Client
		if err := tx.First(&cl, "id = ?", id).Error; err != nil {
			return notFound("client", err)
		}
		var loans []models.Loan
		if err := lockForUpdate(tx).Where("client_id = ?", id).Order("created_at").Find(&loans).Error; err != nil {
			return err
		}
		for i := range loans {
			if err := r.deleteLoanTx(tx, &loans[i]); err != nil {
				return err
			}
		}
		removed = len(loans)
		return tx.Delete(&models.Client{}, "id = ?", id).Error
	})
	if err != nil {
		return err
	}
	r.Log.Info("client deleted", zap.String("client_id", id), zap.Int("loans_removed", removed))
	return nil
}
