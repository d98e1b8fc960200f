// app/idmw.go
package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ValidIDParam 路径里的 :name 不是 uuid 时直接 404，不再交给数据库
func ValidIDParam(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if v := c.Param(name); v != "" {
			if _, err := uuid.Parse(v); err != nil {
				c.AbortWithStatusJSON(http.StatusNotFound, H{"error": name + " not found"})
				return
			}
		}
		c.Next()
	}
}
