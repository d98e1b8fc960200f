package controllers

import (
	"net/http"

	"guardiao/app"
	"guardiao/db"

	"github.com/gin-gonic/gin"
)

type ClientController struct{ *Srv }

func NewClientController(s *Srv) *ClientController { return &ClientController{Srv: s} }

// GET /api/clients?name=&unit=
func (cc *ClientController) ListClients(c *gin.Context) {
	cs, err := cc.Repo.ListClients(c.Request.Context(), c.Query("name"), c.Query("unit"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"clients": cs})
}

// GET /api/clients/search?name=  借用表单联想
func (cc *ClientController) SearchActive(c *gin.Context) {
	cs, err := cc.Repo.SearchActiveClients(c.Request.Context(), c.Query("name"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"clients": cs})
}

func (cc *ClientController) GetClient(c *gin.Context) {
	cl, err := cc.Repo.FindClientByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"client": cl})
}

func (cc *ClientController) CreateClient(c *gin.Context) {
	var in db.ClientInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	cl, err := cc.Repo.CreateClient(c.Request.Context(), in)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, app.H{"client": cl})
}

func (cc *ClientController) UpdateClient(c *gin.Context) {
	var in db.ClientInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	cl, err := cc.Repo.UpdateClient(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"client": cl})
}

// POST /api/clients/:id/toggle
func (cc *ClientController) ToggleClient(c *gin.Context) {
	cl, err := cc.Repo.ToggleClient(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"client": cl})
}

// DELETE /api/clients/:id  连同借用单
func (cc *ClientController) DeleteClient(c *gin.Context) {
	if err := cc.Repo.DeleteClient(c.Request.Context(), c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}
