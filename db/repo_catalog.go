package db

import (
	"context"
	"strings"

	"guardiao/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Categories

type CategoryInput struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func categoryNameTaken(tx *gorm.DB, name, exceptID string) error {
	var n int64
	if err := tx.Model(&models.Category{}).Where("name = ? AND id <> ?", name, exceptID).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return conflict("category", "%q already exists", name)
	}
	return nil
}

func (r *Repo) CreateCategory(ctx context.Context, in CategoryInput) (*models.Category, error) {
	c := &models.Category{ID: uuid.NewString(), Name: strings.TrimSpace(in.Name), Description: in.Description}
	if c.Name == "" {
		return nil, invalid("category name is required")
	}
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := categoryNameTaken(tx, c.Name, c.ID); err != nil {
			return err
		}
		return tx.Create(c).Error
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *Repo) ListCategories(ctx context.Context, q string) ([]models.Category, error) {
	tx := r.DB.WithContext(ctx).Model(&models.Category{})
	if s := strings.TrimSpace(q); s != "" {
		tx = tx.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(s)+"%")
	}
	var cs []models.Category
	err := tx.Order("name").Find(&cs).Error
	return cs, err
}

func (r *Repo) UpdateCategory(ctx context.Context, id string, in CategoryInput) (*models.Category, error) {
	name := strings.TrimSpace(in.Name)
	var c models.Category
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&c, "id = ?", id).Error; err != nil {
			return notFound("category", err)
		}
		if err := categoryNameTaken(tx, name, id); err != nil {
			return err
		}
		c.Name, c.Description = name, in.Description
		return tx.Save(&c).Error
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// DeleteCategory 删除类别与其下所有物资
func (r *Repo) DeleteCategory(ctx context.Context, id string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Category
		if err := tx.First(&c, "id = ?", id).Error; err != nil {
			return notFound("category", err)
		}
		var ids []string
		if err := tx.Model(&models.Material{}).Where("category_id = ?", id).Pluck("id", &ids).Error; err != nil {
			return err
		}
		for _, mid := range ids {
			if err := deleteMaterialTx(tx, mid); err != nil {
				return err
			}
		}
		return tx.Delete(&models.Category{}, "id = ?", id).Error
	})
}

// Cases

type CaseInput struct {
	Description string `json:"description" binding:"required"`
	Responsible string `json:"responsible" binding:"required"`
	Seal        string `json:"seal" binding:"required"`
}

func sealTaken(tx *gorm.DB, seal, exceptID string) error {
	var n int64
	if err := tx.Model(&models.Case{}).Where("seal = ? AND id <> ?", seal, exceptID).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return conflict("case", "seal %q already in use", seal)
	}
	return nil
}

func (r *Repo) CreateCase(ctx context.Context, in CaseInput) (*models.Case, error) {
	c := &models.Case{
		ID:          uuid.NewString(),
		Description: strings.TrimSpace(in.Description),
		Responsible: strings.TrimSpace(in.Responsible),
		Seal:        strings.TrimSpace(in.Seal),
	}
	if c.Seal == "" {
		return nil, invalid("seal is required")
	}
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := sealTaken(tx, c.Seal, c.ID); err != nil {
			return err
		}
		return tx.Create(c).Error
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListCases 描述、负责人、封条号任一匹配
func (r *Repo) ListCases(ctx context.Context, q string) ([]models.Case, error) {
	tx := r.DB.WithContext(ctx).Model(&models.Case{})
	if s := strings.TrimSpace(q); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		tx = tx.Where("LOWER(description) LIKE ? OR LOWER(responsible) LIKE ? OR LOWER(seal) LIKE ?", like, like, like)
	}
	var cs []models.Case
	err := tx.Order("created_at DESC").Find(&cs).Error
	return cs, err
}

func (r *Repo) UpdateCase(ctx context.Context, id string, in CaseInput) (*models.Case, error) {
	var c models.Case
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&c, "id = ?", id).Error; err != nil {
			return notFound("case", err)
		}
		seal := strings.TrimSpace(in.Seal)
		if err := sealTaken(tx, seal, id); err != nil {
			return err
		}
		c.Description = strings.TrimSpace(in.Description)
		c.Responsible = strings.TrimSpace(in.Responsible)
		c.Seal = seal
		return tx.Save(&c).Error
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repo) DeleteCase(ctx context.Context, id string) error {
	res := r.DB.WithContext(ctx).Delete(&models.Case{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound("case", gorm.ErrRecordNotFound)
	}
	return nil
}

// Signers / signer roles

type NameInput struct {
	Name string `json:"name" binding:"required"`
}

func (r *Repo) CreateSigner(ctx context.Context, name string) (*models.Signer, error) {
	s := &models.Signer{ID: uuid.NewString(), Name: strings.TrimSpace(name)}
	if s.Name == "" {
		return nil, invalid("name is required")
	}
	return s, r.DB.WithContext(ctx).Create(s).Error
}

func (r *Repo) ListSigners(ctx context.Context) ([]models.Signer, error) {
	var ss []models.Signer
	err := r.DB.WithContext(ctx).Order("name").Find(&ss).Error
	return ss, err
}

func (r *Repo) RenameSigner(ctx context.Context, id, name string) (*models.Signer, error) {
	var s models.Signer
	if err := r.DB.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, notFound("signer", err)
	}
	s.Name = strings.TrimSpace(name)
	return &s, r.DB.WithContext(ctx).Save(&s).Error
}

// DeleteSigner 被报告引用的签署人不能删除
func (r *Repo) DeleteSigner(ctx context.Context, id string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.ReadinessReport{}).
			Where("signer1_id = ? OR signer2_id = ? OR signer3_id = ?", id, id, id).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return conflict("signer", "signed %d readiness reports", n)
		}
		res := tx.Delete(&models.Signer{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return notFound("signer", gorm.ErrRecordNotFound)
		}
		return nil
	})
}

func (r *Repo) CreateSignerRole(ctx context.Context, name string) (*models.SignerRole, error) {
	s := &models.SignerRole{ID: uuid.NewString(), Name: strings.TrimSpace(name)}
	if s.Name == "" {
		return nil, invalid("name is required")
	}
	return s, r.DB.WithContext(ctx).Create(s).Error
}

func (r *Repo) ListSignerRoles(ctx context.Context) ([]models.SignerRole, error) {
	var ss []models.SignerRole
	err := r.DB.WithContext(ctx).Order("name").Find(&ss).Error
	return ss, err
}

func (r *Repo) RenameSignerRole(ctx context.Context, id, name string) (*models.SignerRole, error) {
	var s models.SignerRole
	if err := r.DB.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, notFound("signer role", err)
	}
	s.Name = strings.TrimSpace(name)
	return &s, r.DB.WithContext(ctx).Save(&s).Error
}

func (r *Repo) DeleteSignerRole(ctx context.Context, id string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.ReadinessReport{}).
			Where("role1_id = ? OR role2_id = ? OR role3_id = ?", id, id, id).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return conflict("signer role", "used by %d readiness reports", n)
		}
		res := tx.Delete(&models.SignerRole{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return notFound("signer role", gorm.ErrRecordNotFound)
		}
		return nil
	})
}
