// controllers/srv.go
package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"guardiao/app"
	"guardiao/db"
	"guardiao/session"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Srv struct {
	Repo      *db.Repo
	AppSess   *session.AppSessionStore
	WebOrigin string
	Cfg       app.Config
	Log       *zap.Logger
}

func GetSrv(a *app.App) *Srv {
	return &Srv{
		Repo:      db.NewRepo(a.DB, a.Log),
		AppSess:   a.AppSessions(),
		WebOrigin: a.Config.WebOrigin,
		Cfg:       a.Config,
		Log:       a.Log,
	}
}

// --- helpers ---

// 统一设置业务会话 Cookie
func (s *Srv) setAppCookie(w http.ResponseWriter, sessionID string, maxAge time.Duration) {
	secure := strings.HasPrefix(s.WebOrigin, "https://")
	http.SetCookie(w, &http.Cookie{
		Name:     app.AppSessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
		MaxAge:   int(maxAge / time.Second),
	})
}

// 登录成功：记录登录信息 + 创建会话
func (s *Srv) issueSession(ctx context.Context, w http.ResponseWriter, operatorID, ip string) error {
	if err := s.Repo.TouchOperatorLogin(ctx, operatorID, ip); err != nil {
		s.Log.Warn("touch login", zap.String("operator_id", operatorID), zap.Error(err))
	}
	id := uuid.NewString()
	if err := s.AppSess.Create(ctx, id, operatorID); err != nil {
		return err
	}
	s.setAppCookie(w, id, s.AppSess.TTL())
	return nil
}

// respondErr 把 db 层错误映射为 HTTP 状态
func respondErr(c *gin.Context, err error) {
	var ce *db.ConflictError
	switch {
	case errors.As(err, &ce):
		c.JSON(http.StatusConflict, app.H{"error": ce.Error()})
	case errors.Is(err, db.ErrNotFound):
		c.JSON(http.StatusNotFound, app.H{"error": err.Error()})
	case errors.Is(err, db.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
	case errors.Is(err, db.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, app.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, app.H{"error": "internal error"})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
}

// operatorID 由 AuthRequired 放入
func operatorID(c *gin.Context) string { return c.GetString(app.CtxOperatorID) }
