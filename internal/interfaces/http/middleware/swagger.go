package middleware

import (
	"net/http"
	"net/netip"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/marketplace/backend/internal/interfaces/http/dto"
)

// SwaggerConfig controls who can read the API documentation
type SwaggerConfig struct {
	Enabled     bool
	RequireAuth bool
	// AdminOnly additionally requires an admin token; implies RequireAuth
	AdminOnly bool
	// AllowedIPs holds addresses or CIDR prefixes; empty allows every client
	AllowedIPs []string
}

// SwaggerProtection guards /swagger. A disabled endpoint answers 404 so its
// existence is not advertised; the IP allowlist is checked before any token.
func SwaggerProtection(cfg SwaggerConfig, jwtMiddleware gin.HandlerFunc) gin.HandlerFunc {
	allowed := parseAllowlist(cfg.AllowedIPs)
	requireAuth := cfg.RequireAuth || cfg.AdminOnly

	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.AbortWithStatusJSON(http.StatusNotFound,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeNotFound, "API documentation is not available", GetRequestID(c)))
			return
		}

		if len(cfg.AllowedIPs) > 0 && !allowed.contains(clientAddr(c)) {
			c.AbortWithStatusJSON(http.StatusForbidden,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeForbidden, "Access to API documentation is restricted", GetRequestID(c)))
			return
		}

		if requireAuth && jwtMiddleware != nil {
			jwtMiddleware(c)
			if c.IsAborted() {
				return
			}
			if cfg.AdminOnly {
				if claims := GetJWTClaims(c); claims == nil || claims.Role != RoleAdmin {
					c.AbortWithStatusJSON(http.StatusForbidden,
						dto.NewErrorResponseWithRequestID(dto.ErrCodeForbidden, "API documentation is limited to administrators", GetRequestID(c)))
					return
				}
			}
		}

		c.Next()
	}
}

type allowlist struct {
	addrs    []netip.Addr
	prefixes []netip.Prefix
}

// parseAllowlist skips malformed entries; config validation reports them
func parseAllowlist(entries []string) allowlist {
	var l allowlist
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if strings.Contains(entry, "/") {
			if p, err := netip.ParsePrefix(entry); err == nil {
				l.prefixes = append(l.prefixes, p.Masked())
			}
			continue
		}
		if a, err := netip.ParseAddr(entry); err == nil {
			l.addrs = append(l.addrs, a.Unmap())
		}
	}
	return l
}

func (l allowlist) contains(addr netip.Addr) bool {
	if !addr.IsValid() {
		return false
	}
	addr = addr.Unmap()
	for _, a := range l.addrs {
		if a == addr {
			return true
		}
	}
	for _, p := range l.prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// clientAddr uses gin's trusted-proxy aware ClientIP, then RemoteAddr
func clientAddr(c *gin.Context) netip.Addr {
	if a, err := netip.ParseAddr(c.ClientIP()); err == nil {
		return a
	}
	if ap, err := netip.ParseAddrPort(c.Request.RemoteAddr); err == nil {
		return ap.Addr()
	}
	a, _ := netip.ParseAddr(c.Request.RemoteAddr)
	return a
}
