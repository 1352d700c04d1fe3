package middleware

import (
	"Insightful/internal/pkg/response"
	log "log/slog"

	"github.com/gin-gonic/gin"
)

// CheckRoles 要求当前用户至少拥有一个指定角色，需挂在 AuthMiddleware 之后
func CheckRoles(requiredRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := currentClaims(c)
		if claims == nil || !claims.HasAnyRole(requiredRoles...) {
			log.WarnContext(c.Request.Context(), "role check denied",
				"path", c.FullPath(), "required", requiredRoles)
			response.Fail(c, response.Forbidden, "权限不足：无权访问该资源")
			c.Abort()
			return
		}
		c.Next()
	}
}
