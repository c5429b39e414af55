package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"go-gin-gorm-accounts/internal/core/access"
	"go-gin-gorm-accounts/internal/core/errs"
	resp "go-gin-gorm-accounts/internal/transport/http/response"
)

const (
	KeyDecision = "access_decision"
	KeyEmail    = "email"
)

// Authorize 按路由策略鉴权；通过后把 Principal 放进 request context
func Authorize(g *access.Gate, p access.Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		who, err := g.Check(c.GetHeader("Authorization"), p)
		if err != nil {
			code := errs.CodeOf(err)
			c.Set(KeyDecision, err.Error())
			accessDenied.WithLabelValues(c.FullPath(), strconv.Itoa(code)).Inc()
			resp.Abort(c, code, err.Error())
			return
		}
		if who != nil {
			c.Request = c.Request.WithContext(access.WithPrincipal(c.Request.Context(), who))
			c.Set(KeyEmail, who.Email)
		}
		c.Next()
	}
}
