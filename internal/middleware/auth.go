package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"Lee_Moderation/internal/model"
	"Lee_Moderation/internal/pkg"
)

const (
	ContextUserIDKey = "user_id"
	ContextRoleKey   = "role"
)

// Sessions redis 中保存的当前有效 token
type Sessions interface {
	GetUserToken(ctx context.Context, userID uint64) (string, error)
	ExtendUserToken(ctx context.Context, userID uint64) error
}

// AuthMiddleware 校验 access token；sessions 不为空时还要求 token 是该用户当前唯一的登录态
func AuthMiddleware(tokens *pkg.TokenIssuer, sessions Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "missing authorization header"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "invalid authorization format"})
			return
		}
		tokenStr := parts[1]

		claims, err := tokens.ParseAccess(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "invalid or expired token"})
			return
		}

		if sessions != nil {
			// redis校验是否是正确的token
			origin, err := sessions.GetUserToken(c.Request.Context(), claims.UserID)
			if err != nil || origin != tokenStr {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "Account has been logging elsewhere"})
				return
			}
			// 校验通过后更新过期时间
			if err = sessions.ExtendUserToken(c.Request.Context(), claims.UserID); err != nil {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"msg": err.Error()})
				return
			}
		}

		c.Set(ContextUserIDKey, claims.UserID)
		c.Set(ContextRoleKey, model.Role(claims.Role))
		c.Next()
	}
}

// RequireRole 角色低于 min 时直接 403
func RequireRole(min model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := c.Get(ContextRoleKey)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "unauthorized"})
			return
		}
		if r, _ := role.(model.Role); r < min {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"msg": "forbidden"})
			return
		}
		c.Next()
	}
}
