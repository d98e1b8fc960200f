package db

import (
	"context"
	"errors"
	"sort"
	"strings"

	"guardiao/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type RegisterMaterialInput struct {
	Name       string `json:"name" binding:"required"`
	CategoryID string `json:"categoryId" binding:"omitempty,uuid"` // 可空，不归类
	Serial     string `json:"serial"`     // 非空 = 有序列号的唯一件
	Quantity   int    `json:"quantity"`   // 无序列号时的登记数量
}

// RegisterMaterial 登记物资。
// 有序列号：新建 total=1/available=1。
// 无序列号：同名同类别已存在则累加 total 与 available，否则新建。
// merged 表示是否并入了已有记录。
// 类别为空时物资不归类，合并也只在未归类的同名物资间进行。
func (r *Repo) RegisterMaterial(ctx context.Context, in RegisterMaterialInput) (m *models.Material, merged bool, err error) {
	name := strings.TrimSpace(in.Name)
	serial := strings.TrimSpace(in.Serial)
	if name == "" {
		return nil, false, invalid("material name is required")
	}
	if serial == "" && in.Quantity <= 0 {
		return nil, false, invalid("quantity must be positive")
	}

	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		catID, err := resolveCategory(tx, in.CategoryID)
		if err != nil {
			return err
		}

		if serial != "" {
			var n int64
			if err := tx.Model(&models.Material{}).Where("serial = ?", serial).Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				return conflict("material", "serial %q already registered", serial)
			}
			m = &models.Material{
				ID:                uuid.NewString(),
				CategoryID:        catID,
				Name:              name,
				Serial:            &serial,
				HasSerial:         true,
				QuantityTotal:     1,
				QuantityAvailable: 1,
			}
			return tx.Create(m).Error
		}

		var existing models.Material
		err = lockForUpdate(tx).
			Scopes(inCategory(catID)).
			Where("name = ? AND has_serial = ?", name, false).
			First(&existing).Error
		switch {
		case err == nil:
			if err := tx.Model(&models.Material{}).
				Where("id = ?", existing.ID).
				Updates(map[string]any{
					"quantity_total":     gorm.Expr("quantity_total + ?", in.Quantity),
					"quantity_available": gorm.Expr("quantity_available + ?", in.Quantity),
				}).Error; err != nil {
				return err
			}
			merged = true
			m = &existing
			return tx.First(m, "id = ?", existing.ID).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			m = &models.Material{
				ID:                uuid.NewString(),
				CategoryID:        catID,
				Name:              name,
				QuantityTotal:     in.Quantity,
				QuantityAvailable: in.Quantity,
			}
			return tx.Create(m).Error
		default:
			return err
		}
	})
	if err != nil {
		return nil, false, err
	}
	r.Log.Info("material registered",
		zap.String("material_id", m.ID),
		zap.Bool("serialized", m.HasSerial),
		zap.Bool("merged", merged),
	)
	return m, merged, nil
}

// resolveCategory 空 id 表示不归类；非空时类别必须存在
func resolveCategory(tx *gorm.DB, id string) (*string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	var cat models.Category
	if err := tx.First(&cat, "id = ?", id).Error; err != nil {
		return nil, notFound("category", err)
	}
	return &cat.ID, nil
}

func inCategory(catID *string) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if catID == nil {
			return tx.Where("category_id IS NULL")
		}
		return tx.Where("category_id = ?", *catID)
	}
}

func (r *Repo) FindMaterialByID(ctx context.Context, id string) (*models.Material, error) {
	var m models.Material
	if err := r.DB.WithContext(ctx).Preload("Category").First(&m, "id = ?", id).Error; err != nil {
		return nil, notFound("material", err)
	}
	return &m, nil
}

type UpdateMaterialInput struct {
	Name       string  `json:"name" binding:"required"`
	CategoryID string  `json:"categoryId" binding:"omitempty,uuid"`
	Serial     *string `json:"serial,omitempty"`
	Quantity   *int    `json:"quantity,omitempty"`
}

// UpdateMaterial 修改名称、类别；有序列号的可改序列号文本，无序列号的可改总数。
// 是否有序列号创建后不可变。改完后按生效借用重新对账。
func (r *Repo) UpdateMaterial(ctx context.Context, id string, in UpdateMaterialInput) (*models.Material, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("material name is required")
	}
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m models.Material
		if err := lockForUpdate(tx).First(&m, "id = ?", id).Error; err != nil {
			return notFound("material", err)
		}
		catID, err := resolveCategory(tx, in.CategoryID)
		if err != nil {
			return err
		}
		update := map[string]any{"name": name, "category_id": catID}

		if m.HasSerial {
			if in.Quantity != nil && *in.Quantity != 1 {
				return invalid("serialized materials always have a total of 1")
			}
			if in.Serial != nil {
				serial := strings.TrimSpace(*in.Serial)
				if serial == "" {
					return invalid("a serialized material cannot drop its serial")
				}
				var n int64
				if err := tx.Model(&models.Material{}).
					Where("serial = ? AND id <> ?", serial, m.ID).
					Count(&n).Error; err != nil {
					return err
				}
				if n > 0 {
					return conflict("material", "serial %q already registered", serial)
				}
				update["serial"] = serial
			}
		} else {
			if in.Serial != nil && strings.TrimSpace(*in.Serial) != "" {
				return invalid("a fungible material cannot become serialized")
			}
			var n int64
			if err := tx.Model(&models.Material{}).
				Scopes(inCategory(catID)).
				Where("name = ? AND has_serial = ? AND id <> ?", name, false, m.ID).
				Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				return conflict("material", "%q already exists in that category", name)
			}
			if in.Quantity != nil {
				if *in.Quantity < m.QuantityLoaned {
					return conflict(m.Name, "total %d is below the %d units on loan", *in.Quantity, m.QuantityLoaned)
				}
				update["quantity_total"] = *in.Quantity
				m.QuantityTotal = *in.Quantity
			}
		}

		if err := tx.Model(&models.Material{}).Where("id = ?", m.ID).Updates(update).Error; err != nil {
			return err
		}
		return r.reconcile(tx, &m)
	})
	if err != nil {
		return nil, err
	}
	return r.FindMaterialByID(ctx, id)
}

// DeleteMaterial 删除物资及引用它的借用明细
func (r *Repo) DeleteMaterial(ctx context.Context, id string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteMaterialTx(tx, id)
	})
}

func deleteMaterialTx(tx *gorm.DB, id string) error {
	res := tx.Delete(&models.LoanItem{}, "material_id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	res = tx.Delete(&models.Material{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound("material", gorm.ErrRecordNotFound)
	}
	return nil
}

type MaterialQuery struct {
	CategoryID string
	Q          string
}

type MaterialGroup struct {
	CategoryID string            `json:"categoryId,omitempty"`
	Category   string            `json:"category"`
	Materials  []models.Material `json:"materials"`
}

// ListMaterials 按类别分组，类别名排序；没有物资的类别不出现
func (r *Repo) ListMaterials(ctx context.Context, q MaterialQuery) ([]MaterialGroup, error) {
	tx := r.DB.WithContext(ctx).Model(&models.Material{}).Preload("Category")
	if q.CategoryID != "" {
		tx = tx.Where("category_id = ?", q.CategoryID)
	}
	if s := strings.TrimSpace(q.Q); s != "" {
		tx = tx.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(s)+"%")
	}
	var ms []models.Material
	if err := tx.Order("name").Find(&ms).Error; err != nil {
		return nil, err
	}

	byCat := map[string]*MaterialGroup{}
	for _, m := range ms {
		key := deref(m.CategoryID)
		g, ok := byCat[key]
		if !ok {
			g = &MaterialGroup{CategoryID: key}
			if m.Category != nil {
				g.Category = m.Category.Name
			}
			byCat[key] = g
		}
		g.Materials = append(g.Materials, m)
	}
	groups := make([]MaterialGroup, 0, len(byCat))
	for _, g := range byCat {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Category < groups[j].Category })
	return groups, nil
}

type LoanableMaterial struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Serial    *string `json:"serial,omitempty"`
	HasSerial bool    `json:"hasSerial"`
	Available int     `json:"available"`
}

// SearchLoanable 可借的物资：无序列号且有余量，或有序列号且不在生效借用中
func (r *Repo) SearchLoanable(ctx context.Context, name, serial string) ([]LoanableMaterial, error) {
	activeSub := r.DB.
		Table(models.LoanItemTable+" li").
		Select("1").
		Joins("JOIN "+models.LoanTable+" l ON l.id = li.loan_id").
		Where("li.material_id = m.id AND l.is_active = ?", true)

	qry := r.DB.WithContext(ctx).
		Table(models.MaterialTable+" m").
		Select("m.id, m.name, m.serial, m.has_serial, m.quantity_total - m.quantity_loaned AS available").
		Where("(m.has_serial = ? AND m.quantity_total - m.quantity_loaned > 0) OR (m.has_serial = ? AND NOT EXISTS (?))",
			false, true, activeSub)
	if s := strings.TrimSpace(name); s != "" {
		qry = qry.Where("LOWER(m.name) LIKE ?", "%"+strings.ToLower(s)+"%")
	}
	if s := strings.TrimSpace(serial); s != "" {
		qry = qry.Where("LOWER(m.serial) LIKE ?", "%"+strings.ToLower(s)+"%")
	}

	var rows []LoanableMaterial
	if err := qry.Order("m.name").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		if rows[i].HasSerial {
			rows[i].Available = 1
		}
	}
	return rows, nil
}
