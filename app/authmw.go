package app

import (
	"errors"
	"net/http"

	"guardiao/db"
	"guardiao/session"

	"github.com/gin-gonic/gin"
)

const AppSessionCookie = "guardiao_session"

// context 键
const (
	CtxOperatorID  = "operatorID"
	CtxUsername    = "username"
	CtxAccessLevel = "accessLevel"
)

func AuthRequired(appSess *session.AppSessionStore, repo *db.Repo) gin.HandlerFunc {
	return func(c *gin.Context) {
		ck, err := c.Request.Cookie(AppSessionCookie)
		if err != nil || ck.Value == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}
		as, err := appSess.Get(c.Request.Context(), ck.Value)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "invalid session"})
			return
		}

		// 操作员可能已被删除或改级别，每次都以库里为准
		op, err := repo.FindOperatorByID(c.Request.Context(), as.OperatorID)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				_ = appSess.Delete(c.Request.Context(), ck.Value)
				c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, H{"error": "internal error"})
			return
		}
		c.Set(CtxOperatorID, op.ID)
		c.Set(CtxUsername, op.Username)
		c.Set(CtxAccessLevel, op.AccessLevel)

		c.Next()
	}
}

// MinLevel 要求访问级别不低于 n；必须挂在 AuthRequired 之后
func MinLevel(n int) gin.HandlerFunc {
	return func(c *gin.Context) {
		lvl := c.GetInt(CtxAccessLevel)
		if lvl == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}
		if lvl < n {
			c.AbortWithStatusJSON(http.StatusForbidden, H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
