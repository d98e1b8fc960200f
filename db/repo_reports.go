// db/repo_reports.go
package db

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"guardiao/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 战备报告快照：按类别、按物资名聚合当前库存

type SnapshotMaterial struct {
	Name           string         `json:"name"`
	TotalExisting  int            `json:"totalExisting"`
	TotalInReserve int            `json:"totalInReserve"`
	TotalLoaned    int            `json:"totalLoaned"`
	Destinations   map[string]int `json:"destinations"`
}

type SnapshotCategory struct {
	Category  string             `json:"category"`
	Materials []SnapshotMaterial `json:"materials"`
}

type Snapshot struct {
	GeneratedAt time.Time          `json:"generatedAt"`
	Categories  []SnapshotCategory `json:"categories"`
	Cases       []models.Case      `json:"cases"`
}

type activeLine struct {
	MaterialID  string
	Destination string
	Quantity    int
}

func (r *Repo) ReadinessSnapshot(ctx context.Context) (*Snapshot, error) {
	return r.snapshot(r.DB.WithContext(ctx))
}

func (r *Repo) snapshot(tx *gorm.DB) (*Snapshot, error) {
	var cats []models.Category
	if err := tx.Order("name").Find(&cats).Error; err != nil {
		return nil, err
	}
	var ms []models.Material
	if err := tx.Order("name").Find(&ms).Error; err != nil {
		return nil, err
	}
	var lines []activeLine
	if err := tx.Table(models.LoanItemTable+" li").
		Select("li.material_id, l.destination, li.quantity").
		Joins("JOIN "+models.LoanTable+" l ON l.id = li.loan_id").
		Where("l.is_active = ?", true).
		Scan(&lines).Error; err != nil {
		return nil, err
	}
	var cases []models.Case
	if err := tx.Order("created_at").Find(&cases).Error; err != nil {
		return nil, err
	}

	onLoan := map[string]bool{}
	// 物资 ID → 目的地 → 数量
	destByMaterial := map[string]map[string]int{}
	for _, ln := range lines {
		onLoan[ln.MaterialID] = true
		d := destByMaterial[ln.MaterialID]
		if d == nil {
			d = map[string]int{}
			destByMaterial[ln.MaterialID] = d
		}
		d[ln.Destination] += ln.Quantity
	}

	type bucket struct {
		order []string
		rows  map[string]*SnapshotMaterial
	}
	byCat := map[string]*bucket{}
	for _, m := range ms {
		key := deref(m.CategoryID)
		b := byCat[key]
		if b == nil {
			b = &bucket{rows: map[string]*SnapshotMaterial{}}
			byCat[key] = b
		}
		row := b.rows[m.Name]
		if row == nil {
			row = &SnapshotMaterial{Name: m.Name, Destinations: map[string]int{}}
			b.rows[m.Name] = row
			b.order = append(b.order, m.Name)
		}
		if m.HasSerial {
			row.TotalExisting++
			if onLoan[m.ID] {
				row.TotalLoaned++
			} else {
				row.TotalInReserve++
			}
		} else {
			row.TotalExisting += m.QuantityTotal
			row.TotalInReserve += m.QuantityAvailable
			row.TotalLoaned += m.QuantityLoaned
		}
		for dest, q := range destByMaterial[m.ID] {
			row.Destinations[dest] += q
		}
	}

	collect := func(name string, b *bucket) SnapshotCategory {
		sc := SnapshotCategory{Category: name, Materials: []SnapshotMaterial{}}
		if b == nil {
			return sc
		}
		for _, n := range b.order {
			sc.Materials = append(sc.Materials, *b.rows[n])
		}
		return sc
	}
	snap := &Snapshot{GeneratedAt: time.Now().UTC(), Cases: cases}
	for _, c := range cats {
		snap.Categories = append(snap.Categories, collect(c.Name, byCat[c.ID]))
	}
	if b := byCat[""]; b != nil {
		snap.Categories = append(snap.Categories, collect("", b))
	}
	return snap, nil
}

type Signature struct {
	SignerID string `json:"signerId" binding:"required,uuid"`
	RoleID   string `json:"roleId" binding:"required,uuid"`
}

type CreateReportInput struct {
	Seal       string       `json:"seal" binding:"required"`
	Signatures [3]Signature `json:"signatures" binding:"dive"`
}

// CreateReport 生成下一号战备报告，并把当前快照存档
func (r *Repo) CreateReport(ctx context.Context, in CreateReportInput) (*models.ReadinessReport, error) {
	seal := strings.TrimSpace(in.Seal)
	if seal == "" {
		return nil, invalid("seal is required")
	}
	var rep *models.ReadinessReport
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, s := range in.Signatures {
			var n int64
			if err := tx.Model(&models.Signer{}).Where("id = ?", s.SignerID).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return fmt.Errorf("signer %d %w", i+1, ErrNotFound)
			}
			if err := tx.Model(&models.SignerRole{}).Where("id = ?", s.RoleID).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return fmt.Errorf("signer role %d %w", i+1, ErrNotFound)
			}
		}

		snap, err := r.snapshot(tx)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("encode snapshot: %w", err)
		}

		var last int
		if err := tx.Model(&models.ReadinessReport{}).
			Select("COALESCE(MAX(number), 0)").
			Scan(&last).Error; err != nil {
			return err
		}
		now := time.Now().UTC()
		rep = &models.ReadinessReport{
			ID:        uuid.NewString(),
			Date:      now,
			Number:    last + 1,
			Seal:      seal,
			Signer1ID: in.Signatures[0].SignerID,
			Role1ID:   in.Signatures[0].RoleID,
			Signer2ID: in.Signatures[1].SignerID,
			Role2ID:   in.Signatures[1].RoleID,
			Signer3ID: in.Signatures[2].SignerID,
			Role3ID:   in.Signatures[2].RoleID,
			Snapshot:  datatypes.JSON(raw),
			CreatedAt: now,
		}
		return tx.Create(rep).Error
	})
	if err != nil {
		return nil, err
	}
	r.Log.Info("readiness report generated", zap.Int("number", rep.Number))
	return rep, nil
}

func withSigners(tx *gorm.DB) *gorm.DB {
	return tx.Preload("Signer1").Preload("Role1").
		Preload("Signer2").Preload("Role2").
		Preload("Signer3").Preload("Role3")
}

func (r *Repo) GetReport(ctx context.Context, id string) (*models.ReadinessReport, error) {
	var rep models.ReadinessReport
	if err := withSigners(r.DB.WithContext(ctx)).First(&rep, "id = ?", id).Error; err != nil {
		return nil, notFound("readiness report", err)
	}
	return &rep, nil
}

// ListReports 不带快照内容，新的在前
func (r *Repo) ListReports(ctx context.Context) ([]models.ReadinessReport, error) {
	var reps []models.ReadinessReport
	err := r.DB.WithContext(ctx).
		Omit("snapshot").
		Order("number DESC").
		Find(&reps).Error
	return reps, err
}

func (r *Repo) DeleteReport(ctx context.Context, id string) error {
	res := r.DB.WithContext(ctx).Delete(&models.ReadinessReport{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound("readiness report", gorm.ErrRecordNotFound)
	}
	return nil
}

// 归档浏览：年 → 月 → 当月报告

type YearCount struct {
	Year  int   `json:"year"`
	Total int64 `json:"total"`
}

type MonthCount struct {
	Month     int    `json:"month"`
	MonthName string `json:"monthName"`
	Total     int64  `json:"total"`
}

func (r *Repo) reportDates(tx *gorm.DB) ([]time.Time, error) {
	var dates []time.Time
	err := tx.Model(&models.ReadinessReport{}).Pluck("date", &dates).Error
	return dates, err
}

// ReportYears 有报告的年份，近的在前
func (r *Repo) ReportYears(ctx context.Context) ([]YearCount, error) {
	dates, err := r.reportDates(r.DB.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	counts := map[int]int64{}
	for _, d := range dates {
		counts[d.UTC().Year()]++
	}
	out := make([]YearCount, 0, len(counts))
	for y, n := range counts {
		out = append(out, YearCount{Year: y, Total: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year > out[j].Year })
	return out, nil
}

func yearBounds(year int) (time.Time, time.Time) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(1, 0, 0)
}

// ReportMonths 某年有报告的月份，月份名按 lang 输出
func (r *Repo) ReportMonths(ctx context.Context, year int, lang string) ([]MonthCount, error) {
	from, to := yearBounds(year)
	dates, err := r.reportDates(r.DB.WithContext(ctx).Where("date >= ? AND date < ?", from, to))
	if err != nil {
		return nil, err
	}
	counts := map[time.Month]int64{}
	for _, d := range dates {
		counts[d.UTC().Month()]++
	}
	out := make([]MonthCount, 0, len(counts))
	for m, n := range counts {
		out = append(out, MonthCount{Month: int(m), MonthName: MonthName(m, lang), Total: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}

func (r *Repo) ReportsInMonth(ctx context.Context, year, month int) ([]models.ReadinessReport, error) {
	if month < 1 || month > 12 {
		return nil, invalid("month must be between 1 and 12")
	}
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	var reps []models.ReadinessReport
	err := r.DB.WithContext(ctx).
		Omit("snapshot").
		Where("date >= ? AND date < ?", from, from.AddDate(0, 1, 0)).
		Order("date DESC").
		Find(&reps).Error
	return reps, err
}

var monthsPT = [...]string{
	"janeiro", "fevereiro", "março", "abril", "maio", "junho",
	"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
}

// MonthName 月份名；lang 为 "en" 时用英文，其余用葡萄牙语
func MonthName(m time.Month, lang string) string {
	if m < time.January || m > time.December {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(lang), "en") {
		return m.String()
	}
	return monthsPT[m-1]
}
