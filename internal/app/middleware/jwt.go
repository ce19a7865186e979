package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"house-rent-service/internal/domain/models"
	"house-rent-service/internal/domain/services"
	"house-rent-service/internal/error/code"
	"house-rent-service/internal/error/response"
)

const (
	// ContextUserID 当前账号ID，类型为uint
	ContextUserID = "userID"
	// ContextRole 当前账号角色
	ContextRole = "role"
)

var jwtService services.InterfaceJWTService

// InitAuthMiddleware 初始化认证中间件
func InitAuthMiddleware(svc services.InterfaceJWTService) {
	jwtService = svc
}

// extractToken 从授权头中提取token
func extractToken(authHeader string) string {
	// 检查并移除 "Bearer " 前缀
	if len(authHeader) > 7 && strings.HasPrefix(authHeader, "Bearer ") {
		return authHeader[7:]
	}
	return authHeader
}

// authenticate 校验令牌并把账号信息写入上下文，roles 为空时不限制角色
func authenticate(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.FailWithMessage(c, code.ErrTokenInvalid, "缺少Authorization请求头", nil)
			c.Abort()
			return
		}
		if jwtService == nil {
			response.ServerError(c)
			c.Abort()
			return
		}

		claims, err := jwtService.ExtractClaims(extractToken(authHeader))
		if err != nil {
			response.FailWithMessage(c, code.ErrTokenInvalid, "无效的令牌: "+err.Error(), nil)
			c.Abort()
			return
		}

		if len(roles) > 0 {
			allowed := false
			for _, role := range roles {
				if claims.Role == role {
					allowed = true
					break
				}
			}
			if !allowed {
				response.Fail(c, code.ErrForbidden, nil)
				c.Abort()
				return
			}
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}

// AuthenticateUser 验证房东或管理员身份
func AuthenticateUser() gin.HandlerFunc {
	return authenticate(models.RoleLandlord, models.RoleAdmin)
}

// AuthenticateSystemAdmin 验证系统管理员权限
func AuthenticateSystemAdmin() gin.HandlerFunc {
	return authenticate(models.RoleAdmin)
}

// GetUserID 获取当前账号ID，未认证时返回0
func GetUserID(c *gin.Context) uint {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return 0
	}
	id, _ := v.(uint)
	return id
}
