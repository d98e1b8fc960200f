// controllers/loan_controller.go
package controllers

import (
	"net/http"
	"strconv"

	"guardiao/app"
	"guardiao/db"

	"github.com/gin-gonic/gin"
)

type LoanController struct{ *Srv }

func NewLoanController(s *Srv) *LoanController { return &LoanController{Srv: s} }

// POST /api/loans
func (lc *LoanController) CreateLoan(c *gin.Context) {
	var in db.CreateLoanInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	in.OperatorID = operatorID(c)

	loan, err := lc.Repo.CreateLoan(c.Request.Context(), in)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, app.H{"loan": loan})
}

// GET /api/loans?filter=active|inactive|all&client=&page=&size=
func (lc *LoanController) ListLoans(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "50"))
	res, err := lc.Repo.ListLoans(c.Request.Context(), db.LoanQuery{
		Filter:     c.Query("filter"),
		ClientName: c.Query("client"),
		Page:       page,
		Size:       size,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"total": res.Total, "loans": res.Items})
}

// GET /api/loans/:id
func (lc *LoanController) GetLoan(c *gin.Context) {
	loan, err := lc.Repo.GetLoan(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"loan": loan})
}

// POST /api/loans/:id/status  {"action":"deactivate|reactivate|cancel"}
func (lc *LoanController) ChangeStatus(c *gin.Context) {
	var in struct {
		Action string `json:"action" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	loan, err := lc.Repo.ChangeLoanStatus(c.Request.Context(), c.Param("id"), db.LoanAction(in.Action), operatorID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"loan": loan})
}

// DELETE /api/loans/:id
func (lc *LoanController) DeleteLoan(c *gin.Context) {
	if err := lc.Repo.DeleteLoan(c.Request.Context(), c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}
