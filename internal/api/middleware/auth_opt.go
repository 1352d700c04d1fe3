package middleware

import (
	"Insightful/internal/pkg/logger"
	"Insightful/internal/pkg/security"

	"github.com/gin-gonic/gin"
)

// AuthOptionalMiddleware 可选鉴权：Token 有效则注入身份，否则按匿名访客处理（user_id 为 0）
func AuthOptionalMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(logger.UserIDKey, uint64(0))

		if token, ok := bearerToken(c); ok {
			if claims, err := security.ValidateToken(token); err == nil {
				setIdentity(c, claims)
			}
		}

		c.Next()
	}
}
