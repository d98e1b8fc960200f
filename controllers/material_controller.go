package controllers

import (
	"net/http"

	"guardiao/app"
	"guardiao/db"

	"github.com/gin-gonic/gin"
)

type MaterialController struct{ *Srv }

func NewMaterialController(s *Srv) *MaterialController { return &MaterialController{Srv: s} }

// POST /api/materials
func (mc *MaterialController) RegisterMaterial(c *gin.Context) {
	var in db.RegisterMaterialInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	m, merged, err := mc.Repo.RegisterMaterial(c.Request.Context(), in)
	if err != nil {
		respondErr(c, err)
		return
	}
	status := http.StatusCreated
	if merged {
		status = http.StatusOK
	}
	c.JSON(status, app.H{"material": m, "merged": merged})
}

// GET /api/materials?category=&q=
func (mc *MaterialController) ListMaterials(c *gin.Context) {
	groups, err := mc.Repo.ListMaterials(c.Request.Context(), db.MaterialQuery{
		CategoryID: c.Query("category"),
		Q:          c.Query("q"),
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"groups": groups})
}

// GET /api/materials/loanable?name=&serial=
func (mc *MaterialController) SearchLoanable(c *gin.Context) {
	rows, err := mc.Repo.SearchLoanable(c.Request.Context(), c.Query("name"), c.Query("serial"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"materials": rows})
}

// GET /api/materials/:id
func (mc *MaterialController) GetMaterial(c *gin.Context) {
	m, err := mc.Repo.FindMaterialByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"material": m})
}

// PUT /api/materials/:id
func (mc *MaterialController) UpdateMaterial(c *gin.Context) {
	var in db.UpdateMaterialInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	m, err := mc.Repo.UpdateMaterial(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"material": m})
}

// POST /api/materials/:id/reconcile
func (mc *MaterialController) Reconcile(c *gin.Context) {
	m, err := mc.Repo.ReconcileMaterial(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"material": m})
}

// DELETE /api/materials/:id
func (mc *MaterialController) DeleteMaterial(c *gin.Context) {
	if err := mc.Repo.DeleteMaterial(c.Request.Context(), c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}
