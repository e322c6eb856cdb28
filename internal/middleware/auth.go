// Package middleware 提供了处理 HTTP 请求的中间件。
package middleware

import (
	"net/http"
	"strings"

	"aira-go/pkg/database"
	"aira-go/pkg/log"
	"aira-go/pkg/token"

	"github.com/gin-gonic/gin"
)

// 存入 Gin 上下文的键名。
const (
	ContextKeyClaims = "claims"
	ContextKeyUserID = "userID"
	ContextKeyToken  = "accessToken"
)

// AuthMiddleware 创建一个 Gin 中间件，用于 JWT 认证。
// 它从请求头中提取 token，验证签名和有效期，并将 claims 与用户 ID 存入上下文。
// 这里只验证 token 本身，不查库确认用户仍然存在，由各业务接口自行处理。
func AuthMiddleware(jwtManager *token.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		// Token 以 "Bearer <token>" 的形式提供，需要提取出 token 本身
		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, bearerPrefix)

		claims, err := jwtManager.VerifyToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		// 已登出的 token 在 Redis 黑名单中，未配置 Redis 时跳过该检查
		if database.RDB != nil {
			exists, rerr := database.RDB.Exists(c.Request.Context(), "blacklist:"+tokenString).Result()
			if rerr != nil {
				// Redis 故障时放行但留下痕迹，黑名单只是尽力而为
				log.Errorf("failed to check token blacklist: %v", rerr)
			} else if exists > 0 {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token has been revoked"})
				return
			}
		}

		c.Set(ContextKeyClaims, claims)
		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyToken, tokenString)

		c.Next()
	}
}

// CurrentUserID 从上下文中取出认证用户的 ID。未经认证中间件的路由返回 false。
func CurrentUserID(c *gin.Context) (uint, bool) {
	value, ok := c.Get(ContextKeyUserID)
	if !ok {
		return 0, false
	}
	userID, ok := value.(uint)
	return userID, ok
}
