package security

import (
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

// UserClaims Token 中携带的身份，角色由账号服务签发时写入
type UserClaims struct {
	UserID uint64   `json:"user_id"`
	Roles  []string `json:"roles"`
	jwt.RegisteredClaims
}

func (c *UserClaims) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if slices.Contains(c.Roles, r) {
			return true
		}
	}
	return false
}
