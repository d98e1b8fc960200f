package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"guardiao/app"
	"guardiao/db"
	"guardiao/export"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// ReportController 战备快照与报告归档
type ReportController struct{ *Srv }

func NewReportController(s *Srv) *ReportController { return &ReportController{Srv: s} }

// GET /api/readiness  当前快照，不落库
func (rc *ReportController) Snapshot(c *gin.Context) {
	snap, err := rc.Repo.ReadinessSnapshot(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// POST /api/reports
func (rc *ReportController) CreateReport(c *gin.Context) {
	var in db.CreateReportInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	rep, err := rc.Repo.CreateReport(c.Request.Context(), in)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, app.H{"report": rep})
}

func (rc *ReportController) ListReports(c *gin.Context) {
	reps, err := rc.Repo.ListReports(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"reports": reps})
}

func (rc *ReportController) GetReport(c *gin.Context) {
	rep, err := rc.Repo.GetReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"report": rep})
}

func (rc *ReportController) DeleteReport(c *gin.Context) {
	if err := rc.Repo.DeleteReport(c.Request.Context(), c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// GET /api/reports/archive
func (rc *ReportController) Years(c *gin.Context) {
	ys, err := rc.Repo.ReportYears(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"years": ys})
}

// GET /api/reports/archive/:year?lang=pt|en
func (rc *ReportController) Months(c *gin.Context) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "invalid year"})
		return
	}
	ms, err := rc.Repo.ReportMonths(c.Request.Context(), year, c.DefaultQuery("lang", "pt"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"year": year, "months": ms})
}

// GET /api/reports/archive/:year/:month
func (rc *ReportController) InMonth(c *gin.Context) {
	year, err1 := strconv.Atoi(c.Param("year"))
	month, err2 := strconv.Atoi(c.Param("month"))
	if err1 != nil || err2 != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "invalid year or month"})
		return
	}
	reps, err := rc.Repo.ReportsInMonth(c.Request.Context(), year, month)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"reports": reps})
}

// GET /api/readiness/export  当前快照导出 xlsx
func (rc *ReportController) ExportSnapshot(c *gin.Context) {
	snap, err := rc.Repo.ReadinessSnapshot(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	f, err := export.Readiness(export.Header{Date: snap.GeneratedAt.Format("2006-01-02")}, snap)
	if err != nil {
		respondErr(c, err)
		return
	}
	writeXLSX(c, f, "pronto_"+snap.GeneratedAt.Format("20060102")+".xlsx")
}

// GET /api/reports/:id/export  按存档快照导出
func (rc *ReportController) ExportReport(c *gin.Context) {
	rep, err := rc.Repo.GetReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	var snap db.Snapshot
	if err := json.Unmarshal(rep.Snapshot, &snap); err != nil {
		respondErr(c, fmt.Errorf("decode snapshot of report %d: %w", rep.Number, err))
		return
	}
	f, err := export.Readiness(export.Header{
		Number: rep.Number,
		Date:   rep.Date.In(time.UTC).Format("2006-01-02"),
		Seal:   rep.Seal,
	}, &snap)
	if err != nil {
		respondErr(c, err)
		return
	}
	writeXLSX(c, f, fmt.Sprintf("pronto_%d.xlsx", rep.Number))
}

func writeXLSX(c *gin.Context, f *excelize.File, filename string) {
	defer f.Close()
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Status(http.StatusOK)
	if err := f.Write(c.Writer); err != nil {
		_ = c.Error(err)
	}
}
