package middleware

import (
	"Insightful/internal/pkg/logger"
	"Insightful/internal/pkg/security"
	"context"
	"strings"

	"github.com/gin-gonic/gin"
)

const claimsKey = "claims"

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	return token, token != ""
}

// setIdentity 身份同时写入 gin.Context 与请求 ctx，后者供日志附带 user_id
func setIdentity(c *gin.Context, claims *security.UserClaims) {
	c.Set(logger.UserIDKey, claims.UserID)
	c.Set(claimsKey, claims)
	ctx := context.WithValue(c.Request.Context(), logger.UserIDKey, claims.UserID)
	c.Request = c.Request.WithContext(ctx)
}

func currentClaims(c *gin.Context) *security.UserClaims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*security.UserClaims)
	return claims
}
