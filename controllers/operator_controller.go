package controllers

import (
	"net/http"

	"guardiao/app"
	"guardiao/db"
	"guardiao/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type OperatorController struct {
	repo    *db.Repo
	appSess *session.AppSessionStore
	log     *zap.Logger
}

func GetOperatorController(s *Srv) *OperatorController {
	return &OperatorController{repo: s.Repo, appSess: s.AppSess, log: s.Log}
}

// GET /api/operators
func (oc *OperatorController) ListOperators(c *gin.Context) {
	ops, err := oc.repo.ListOperators(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{"operators": ops})
}

// GET /api/operators/:id
func (oc *OperatorController) GetOperator(c *gin.Context) {
	op, err := oc.repo.FindOperatorByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, app.H{"error": "operator not found"})
		return
	}
	c.JSON(http.StatusOK, app.H{"operator": op})
}

// POST /api/operators
func (oc *OperatorController) CreateOperator(c *gin.Context) {
	var in db.OperatorInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	op, err := oc.repo.CreateOperator(c.Request.Context(), in)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, app.H{"operator": op})
}

// PUT /api/operators/:id
func (oc *OperatorController) UpdateOperator(c *gin.Context) {
	id := c.Param("id")
	var in db.OperatorInput
	in.Username = "-" // 用户名不可改，绕过 binding
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	before, err := oc.repo.FindOperatorByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, app.H{"error": "operator not found"})
		return
	}
	op, err := oc.repo.UpdateOperator(c.Request.Context(), id, in)
	if err != nil {
		respondErr(c, err)
		return
	}
	// 降级或改密码后旧会话作废
	if in.Password != "" || op.AccessLevel < before.AccessLevel {
		if err := oc.appSess.RevokeAllForOperator(c.Request.Context(), id); err != nil {
			oc.log.Warn("revoke sessions", zap.String("operator_id", id), zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, app.H{"operator": op})
}

// DELETE /api/operators/:id
func (oc *OperatorController) DeleteOperator(c *gin.Context) {
	id := c.Param("id")

	// 不允许删除自己，避免锁死
	if operatorID(c) == id {
		c.JSON(http.StatusBadRequest, app.H{"error": "cannot delete yourself"})
		return
	}
	if err := oc.repo.DeleteOperator(c.Request.Context(), id); err != nil {
		respondErr(c, err)
		return
	}
	// 撤销该操作员的所有登录会话
	_ = oc.appSess.RevokeAllForOperator(c.Request.Context(), id)
	c.JSON(http.StatusOK, app.H{"ok": true})
}
