// db/repo_reconcile.go
package db

import (
	"context"
	"strings"
	"time"

	"guardiao/metrics"
	"guardiao/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 物资库存对账。available/loaned 只在这里写：
// 登记、借出、状态变更后的对账、删除借用单前的冲销。

// activeRefs 统计引用该物资的生效借用明细数
func activeRefs(tx *gorm.DB, materialID string) (int64, error) {
	var n int64
	err := tx.Table(models.LoanItemTable+" li").
		Joins("JOIN "+models.LoanTable+" l ON l.id = li.loan_id").
		Where("li.material_id = ? AND l.is_active = ?", materialID, true).
		Count(&n).Error
	return n, err
}

// activeQuantity 生效借用明细的数量合计
func activeQuantity(tx *gorm.DB, materialID string) (int, error) {
	var total int64
	err := tx.Table(models.LoanItemTable+" li").
		Joins("JOIN "+models.LoanTable+" l ON l.id = li.loan_id").
		Where("li.material_id = ? AND l.is_active = ?", materialID, true).
		Select("COALESCE(SUM(li.quantity), 0)").
		Scan(&total).Error
	return int(total), err
}

// clamp 把计数压回 [0, total]，每次压回都记日志与指标
func (r *Repo) clamp(op string, m *models.Material) {
	fix := func(field string, v *int, lo, hi int) {
		if *v >= lo && *v <= hi {
			return
		}
		r.Log.Warn("material counter out of range, clamped",
			zap.String("op", op),
			zap.String("material_id", m.ID),
			zap.String("field", field),
			zap.Int("value", *v),
			zap.Int("total", m.QuantityTotal),
		)
		metrics.Clamp(op, field)
		if *v < lo {
			*v = lo
		} else {
			*v = hi
		}
	}
	fix("loaned", &m.QuantityLoaned, 0, m.QuantityTotal)
	fix("available", &m.QuantityAvailable, 0, m.QuantityTotal)
}

func saveCounters(tx *gorm.DB, m *models.Material) error {
	return tx.Model(&models.Material{}).
		Where("id = ?", m.ID).
		Updates(map[string]any{
			"quantity_available": m.QuantityAvailable,
			"quantity_loaned":    m.QuantityLoaned,
		}).Error
}

// reconcile 按当前生效借用重新计算计数并保存。调用方负责加锁与事务。
func (r *Repo) reconcile(tx *gorm.DB, m *models.Material) error {
	if m.HasSerial {
		n, err := activeRefs(tx, m.ID)
		if err != nil {
			return err
		}
		m.QuantityTotal = 1
		if n > 0 {
			m.QuantityAvailable, m.QuantityLoaned = 0, 1
		} else {
			m.QuantityAvailable, m.QuantityLoaned = 1, 0
		}
	} else {
		loaned, err := activeQuantity(tx, m.ID)
		if err != nil {
			return err
		}
		m.QuantityLoaned = loaned
		m.QuantityAvailable = m.QuantityTotal - loaned
		r.clamp("reconcile", m)
	}
	return saveCounters(tx, m)
}

// ReconcileMaterial 单独对一件物资做对账，重复调用结果不变
func (r *Repo) ReconcileMaterial(ctx context.Context, materialID string) (*models.Material, error) {
	var m models.Material
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&m, "id = ?", materialID).Error; err != nil {
			return notFound("material", err)
		}
		return r.reconcile(tx, &m)
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

type LoanItemInput struct {
	MaterialID string `json:"materialId" binding:"required,uuid"`
	Quantity   int    `json:"quantity"`
}

type CreateLoanInput struct {
	ClientID    string          `json:"clientId" binding:"required,uuid"`
	OperatorID  string          `json:"-"`
	Destination string          `json:"destination" binding:"required"`
	ReturnedAt  *time.Time      `json:"returnedAt,omitempty"`
	Items       []LoanItemInput `json:"items" binding:"required,dive"`
}

func appendHistory(tx *gorm.DB, loanID, status string, operatorID *string) (*models.LoanHistory, error) {
	h := &models.LoanHistory{
		ID:         uuid.NewString(),
		LoanID:     loanID,
		Status:     status,
		CreatedAt:  time.Now().UTC(),
		OperatorID: operatorID,
	}
	if err := tx.Create(h).Error; err != nil {
		return nil, err
	}
	return h, nil
}

// CreateLoan 原子操作 = 建单 → 按输入顺序逐件锁定、校验、扣减 → 写明细。
// 任一件失败，整单回滚。
func (r *Repo) CreateLoan(ctx context.Context, in CreateLoanInput) (*models.Loan, error) {
	if len(in.Items) == 0 {
		return nil, invalid("a loan needs at least one material")
	}
	dest := strings.TrimSpace(in.Destination)
	if dest == "" {
		return nil, invalid("destination is required")
	}
	for _, it := range in.Items {
		if it.Quantity <= 0 {
			return nil, invalid("quantity for material %s must be positive", it.MaterialID)
		}
	}

	var loan *models.Loan
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cl models.Client
		if err := tx.First(&cl, "id = ?", in.ClientID).Error; err != nil {
			return notFound("client", err)
		}
		if !cl.IsActive {
			return conflict("client", "%s is inactive", cl.Name)
		}
		var op models.Operator
		if err := tx.First(&op, "id = ?", in.OperatorID).Error; err != nil {
			return notFound("operator", err)
		}

		now := time.Now().UTC()
		l := &models.Loan{
			ID:          uuid.NewString(),
			IsActive:    true,
			Status:      models.LoanActivated,
			ClientID:    cl.ID,
			OperatorID:  op.ID,
			Destination: dest,
			CreatedAt:   now,
			ReturnedAt:  in.ReturnedAt,
		}
		if err := tx.Create(l).Error; err != nil {
			return err
		}

		for _, it := range in.Items {
			var m models.Material
			if err := lockForUpdate(tx).First(&m, "id = ?", it.MaterialID).Error; err != nil {
				return notFound("material", err)
			}
			qty := it.Quantity
			if m.HasSerial {
				qty = 1
				n, err := activeRefs(tx, m.ID)
				if err != nil {
					return err
				}
				if n > 0 {
					return conflict(m.Name, "serialized item %s is already on an active loan", deref(m.Serial))
				}
				if err := tx.Model(&models.Material{}).
					Where("id = ?", m.ID).
					Updates(map[string]any{"quantity_available": 0, "quantity_loaned": 1}).Error; err != nil {
					return err
				}
			} else {
				if m.QuantityAvailable < qty {
					return conflict(m.Name, "only %d available, %d requested", m.QuantityAvailable, qty)
				}
				// 条件扣减：并发下 available 已被别的请求占用时不会扣成负数
				res := tx.Model(&models.Material{}).
					Where("id = ? AND quantity_available >= ?", m.ID, qty).
					Updates(map[string]any{
						"quantity_available": gorm.Expr("quantity_available - ?", qty),
						"quantity_loaned":    gorm.Expr("quantity_loaned + ?", qty),
					})
				if res.Error != nil {
					return res.Error
				}
				if res.RowsAffected == 0 {
					return conflict(m.Name, "stock changed while loaning, %d requested", qty)
				}
			}

			li := models.LoanItem{
				ID:         uuid.NewString(),
				LoanID:     l.ID,
				MaterialID: m.ID,
				Quantity:   qty,
			}
			if err := tx.Create(&li).Error; err != nil {
				return err
			}
			l.Items = append(l.Items, li)
		}

		h, err := appendHistory(tx, l.ID, models.LoanActivated, &op.ID)
		if err != nil {
			return err
		}
		l.History = []models.LoanHistory{*h}
		loan = l
		return nil
	})
	if err != nil {
		if IsConflict(err) {
			metrics.LoanConflict()
		}
		return nil, err
	}
	metrics.LoanTransition(models.LoanActivated)
	r.Log.Info("loan created",
		zap.String("loan_id", loan.ID),
		zap.String("client_id", loan.ClientID),
		zap.Int("items", len(loan.Items)),
	)
	return loan, nil
}

type LoanAction string

const (
	ActionDeactivate LoanAction = "deactivate"
	ActionReactivate LoanAction = "reactivate"
	ActionCancel     LoanAction = "cancel"
)

// nextStatus 校验状态迁移；被取消的借用单是终态
func nextStatus(l *models.Loan, action LoanAction) (active bool, status string, err error) {
	cancelled := l.Status == models.LoanCancelled
	switch action {
	case ActionDeactivate:
		if !l.IsActive {
			return false, "", conflict("loan", "already inactive")
		}
		return false, models.LoanDeactivated, nil
	case ActionReactivate:
		if l.IsActive {
			return false, "", conflict("loan", "already active")
		}
		if cancelled {
			return false, "", conflict("loan", "cancelled loans cannot be reactivated")
		}
		return true, models.LoanReactivated, nil
	case ActionCancel:
		if cancelled {
			return false, "", conflict("loan", "already cancelled")
		}
		return false, models.LoanCancelled, nil
	}
	return false, "", invalid("unknown loan action %q", action)
}

// checkReactivation 与建单相同的校验：序列号物资不能同时在两张生效单上，
// 数量型物资的可用数必须够这张单的需求
func checkReactivation(tx *gorm.DB, m *models.Material, qty int) error {
	if m.HasSerial {
		n, err := activeRefs(tx, m.ID)
		if err != nil {
			return err
		}
		if n > 0 {
			return conflict(m.Name, "serialized item %s is on another active loan", deref(m.Serial))
		}
		return nil
	}
	if m.QuantityAvailable < qty {
		return conflict(m.Name, "only %d available, %d needed to reactivate", m.QuantityAvailable, qty)
	}
	return nil
}

// ChangeLoanStatus 切换 is_active → 对所有相关物资对账 → 追加历史，同一事务
func (r *Repo) ChangeLoanStatus(ctx context.Context, loanID string, action LoanAction, operatorID string) (*models.Loan, error) {
	var status string
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var l models.Loan
		if err := lockForUpdate(tx).First(&l, "id = ?", loanID).Error; err != nil {
			return notFound("loan", err)
		}
		var op models.Operator
		if err := tx.First(&op, "id = ?", operatorID).Error; err != nil {
			return notFound("operator", err)
		}
		active, next, err := nextStatus(&l, action)
		if err != nil {
			return err
		}

		var items []models.LoanItem
		if err := tx.Where("loan_id = ?", l.ID).Order("material_id").Find(&items).Error; err != nil {
			return err
		}
		var materialIDs []string
		demand := map[string]int{}
		for _, it := range items {
			if _, ok := demand[it.MaterialID]; !ok {
				materialIDs = append(materialIDs, it.MaterialID)
			}
			demand[it.MaterialID] += it.Quantity
		}

		// 先锁定全部物资；重新生效前要确认停用期间没被别的借用单占走
		materials := make([]models.Material, len(materialIDs))
		for i, id := range materialIDs {
			if err := lockForUpdate(tx).First(&materials[i], "id = ?", id).Error; err != nil {
				return notFound("material", err)
			}
			if active {
				if err := checkReactivation(tx, &materials[i], demand[id]); err != nil {
					return err
				}
			}
		}

		if err := tx.Model(&models.Loan{}).
			Where("id = ?", l.ID).
			Updates(map[string]any{"is_active": active, "status": next}).Error; err != nil {
			return err
		}
		for i := range materials {
			if err := r.reconcile(tx, &materials[i]); err != nil {
				return err
			}
		}

		if _, err := appendHistory(tx, l.ID, next, &op.ID); err != nil {
			return err
		}
		status = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.LoanTransition(status)
	r.Log.Info("loan status changed", zap.String("loan_id", loanID), zap.String("status", status))
	return r.GetLoan(ctx, loanID)
}

// reverseLoanItems 删除前冲销：按每条明细的数量把物资还回去。
// 只冲销生效中的借用单，已停用的在停用时已经对过账。
func (r *Repo) reverseLoanItems(tx *gorm.DB, l *models.Loan) error {
	if !l.IsActive {
		return nil
	}
	var items []models.LoanItem
	if err := tx.Where("loan_id = ?", l.ID).Order("id").Find(&items).Error; err != nil {
		return err
	}
	for _, it := range items {
		var m models.Material
		if err := lockForUpdate(tx).First(&m, "id = ?", it.MaterialID).Error; err != nil {
			return notFound("material", err)
		}
		if m.HasSerial {
			m.QuantityAvailable, m.QuantityLoaned = 1, 0
		} else {
			m.QuantityLoaned -= it.Quantity
			m.QuantityAvailable += it.Quantity
			r.clamp("delete", &m)
		}
		if err := saveCounters(tx, &m); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repo) deleteLoanTx(tx *gorm.DB, l *models.Loan) error {
	if err := r.reverseLoanItems(tx, l); err != nil {
		return err
	}
	if err := tx.Where("loan_id = ?", l.ID).Delete(&models.LoanHistory{}).Error; err != nil {
		return err
	}
	if err := tx.Where("loan_id = ?", l.ID).Delete(&models.LoanItem{}).Error; err != nil {
		return err
	}
	return tx.Delete(&models.Loan{}, "id = ?", l.ID).Error
}

// DeleteLoan 两步：先冲销物资计数，再删除借用单及其明细、历史
func (r *Repo) DeleteLoan(ctx context.Context, loanID string) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var l models.Loan
		if err := lockForUpdate(tx).First(&l, "id = ?", loanID).Error; err != nil {
			return notFound("loan", err)
		}
		return r.deleteLoanTx(tx, &l)
	})
	if err != nil {
		return err
	}
	r.Log.Info("loan deleted", zap.String("loan_id", loanID))
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
