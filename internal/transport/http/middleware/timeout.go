package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	resp "go-gin-gorm-accounts/internal/transport/http/response"
)

// Timeout 给下游（DB 查询）设置截止时间
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			resp.Abort(c, resp.CodeTimeout, "timeout")
		}
	}
}
