package controllers

import (
	"net/http"

	"guardiao/app"
	"guardiao/db"

	"github.com/gin-gonic/gin"
)

// CatalogController 类别、装备箱、签署人与签署职务
type CatalogController struct{ *Srv }

func NewCatalogController(s *Srv) *CatalogController { return &CatalogController{Srv: s} }

// --- categories ---

func (cc *CatalogController) ListCategories(c *gin.Context) {
	cs, err := cc.Repo.ListCategories(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"categories": cs})
}

func (cc *CatalogController) CreateCategory(c *gin.Context) {
	var in db.CategoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	cat, err := cc.Repo.CreateCategory(c.Request.Context(), in)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, app.H{"category": cat})
}

func (cc *CatalogController) UpdateCategory(c *gin.Context) {
	var in db.CategoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	cat, err := cc.Repo.UpdateCategory(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"category": cat})
}

// DELETE /api/categories/:id  其下物资一并删除
func (cc *CatalogController) DeleteCategory(c *gin.Context) {
	if err := cc.Repo.DeleteCategory(c.Request.Context(), c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// --- cases ---

func (cc *CatalogController) ListCases(c *gin.Context) {
	cs, err := cc.Repo.ListCases(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"cases": cs})
}

func (cc *CatalogController) CreateCase(c *gin.Context) {
	var in db.CaseInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	cs, err := cc.Repo.CreateCase(c.Request.Context(), in)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, app.H{"case": cs})
}

func (cc *CatalogController) UpdateCase(c *gin.Context) {
	var in db.CaseInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	cs, err := cc.Repo.UpdateCase(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"case": cs})
}

func (cc *CatalogController) DeleteCase(c *gin.Context) {
	if err := cc.Repo.DeleteCase(c.Request.Context(), c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// --- signers / roles ---

func (cc *CatalogController) ListSigners(c *gin.Context) {
	ss, err := cc.Repo.ListSigners(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"signers": ss})
}

func (cc *CatalogController) CreateSigner(c *gin.Context) {
	var in db.NameInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	s, err := cc.Repo.CreateSigner(c.Request.Context(), in.Name)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, app.H{"signer": s})
}

func (cc *CatalogController) RenameSigner(c *gin.Context) {
	var in db.NameInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	s, err := cc.Repo.RenameSigner(c.Request.Context(), c.Param("id"), in.Name)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"signer": s})
}

func (cc *CatalogController) DeleteSigner(c *gin.Context) {
	if err := cc.Repo.DeleteSigner(c.Request.Context(), c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}

func (cc *CatalogController) ListSignerRoles(c *gin.Context) {
	rs, err := cc.Repo.ListSignerRoles(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"roles": rs})
}

func (cc *CatalogController) CreateSignerRole(c *gin.Context) {
	var in db.NameInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	r, err := cc.Repo.CreateSignerRole(c.Request.Context(), in.Name)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, app.H{"role": r})
}

func (cc *CatalogController) RenameSignerRole(c *gin.Context) {
	var in db.NameInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	r, err := cc.Repo.RenameSignerRole(c.Request.Context(), c.Param("id"), in.Name)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"role": r})
}

func (cc *CatalogController) DeleteSignerRole(c *gin.Context) {
	if err := cc.Repo.DeleteSignerRole(c.Request.Context(), c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}
