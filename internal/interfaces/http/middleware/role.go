package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Roles carried in access tokens
const (
	RoleCustomer = "customer"
	RoleVendor   = "vendor"
	RoleAdmin    = "admin"
)

// RoleConfig holds configuration for role middleware
type RoleConfig struct {
	Logger *zap.Logger
	// OnDenied replaces the default 403 response
	OnDenied func(c *gin.Context, required []string)
}

// RequireRole lets the request through when the caller holds one of roles.
// Admins pass every role check.
func RequireRole(roles ...string) gin.HandlerFunc {
	return RequireRoleWithConfig(RoleConfig{}, roles...)
}

// RequireRoleWithConfig is RequireRole with custom config
func RequireRoleWithConfig(cfg RoleConfig, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil {
			denyRole(c, cfg, roles, "No authentication claims found")
			return
		}
		if claims.Role != RoleAdmin && !claims.HasRole(roles...) {
			denyRole(c, cfg, roles, "Caller lacks required role")
			return
		}
		c.Next()
	}
}

// RequireVendor requires a vendor token that carries a vendor profile
func RequireVendor() gin.HandlerFunc {
	return RequireVendorWithConfig(RoleConfig{})
}

// RequireVendorWithConfig is RequireVendor with custom config
func RequireVendorWithConfig(cfg RoleConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil || claims.GetVendorUUID() == nil {
			denyRole(c, cfg, []string{RoleVendor}, "No vendor profile on token")
			return
		}
		c.Next()
	}
}

// RequireRegistered rejects guest accounts
func RequireRegistered() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil || claims.Guest {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "GUEST_ACCOUNT",
					"message": "Claim your account to continue",
				},
			})
			return
		}
		c.Next()
	}
}

// IsAdmin reports whether the caller is an administrator
func IsAdmin(c *gin.Context) bool {
	claims := GetJWTClaims(c)
	return claims != nil && claims.Role == RoleAdmin
}

func denyRole(c *gin.Context, cfg RoleConfig, required []string, reason string) {
	if cfg.OnDenied != nil {
		cfg.OnDenied(c, required)
		return
	}
	if cfg.Logger != nil {
		fields := []zap.Field{
			zap.String("reason", reason),
			zap.Strings("required_roles", required),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
		}
		if claims := GetJWTClaims(c); claims != nil {
			fields = append(fields, zap.String("user_id", claims.UserID), zap.String("role", claims.Role))
		}
		cfg.Logger.Warn("Role check failed", fields...)
	}

	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "ERR_FORBIDDEN",
			"message": "Access denied: insufficient role",
		},
	})
}
