// app/seenmw.go
package app

import (
	"time"

	"guardiao/db"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// TouchLastSeen 每个操作员在 throttle 内最多写一次 last_seen_at
func TouchLastSeen(repo *db.Repo, rdb *redis.Client, throttle time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		oid := c.GetString(CtxOperatorID)
		if oid == "" {
			c.Next()
			return
		}

		key := "grd:lastseen:" + oid
		if ok, _ := rdb.SetNX(c, key, "1", throttle).Result(); ok {
			// 不阻塞请求
			if err := repo.TouchOperatorSeen(c, oid); err != nil {
				repo.Log.Warn("touch last seen", zap.String("operator_id", oid), zap.Error(err))
			}
		}
		c.Next()
	}
}
