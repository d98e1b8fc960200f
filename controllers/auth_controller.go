package controllers

import (
	"net/http"
	"time"

	"guardiao/app"

	"github.com/gin-gonic/gin"
)

// POST /auth/login
func (s *Srv) Login(c *gin.Context) {
	var in struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	op, err := s.Repo.Authenticate(c.Request.Context(), in.Username, in.Password)
	if err != nil {
		respondErr(c, err)
		return
	}
	if err := s.issueSession(c.Request.Context(), c.Writer, op.ID, c.ClientIP()); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"operator": op})
}

// POST /auth/logout
func (s *Srv) Logout(c *gin.Context) {
	if ck, err := c.Request.Cookie(app.AppSessionCookie); err == nil && ck.Value != "" {
		_ = s.AppSess.Delete(c.Request.Context(), ck.Value)
	}
	s.setAppCookie(c.Writer, "", -time.Second) // MaxAge<0 删除
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// GET /auth/whoami
func (s *Srv) WhoAmI(c *gin.Context) {
	op, err := s.Repo.FindOperatorByID(c.Request.Context(), operatorID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"operator": op})
}
