package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"placement-backend/internal/shared/auth"
	"placement-backend/internal/shared/server/respond"
)

const (
	userIDKey    = "userId"
	userRoleKey  = "userRole"
	principalKey = "principal"
)

// PrincipalKind discriminates the two account shapes.
type PrincipalKind string

const (
	KindStudent PrincipalKind = "student"
	KindCompany PrincipalKind = "company"
)

// ParseKind maps a role claim to a PrincipalKind.
func ParseKind(raw string) (PrincipalKind, bool) {
	switch PrincipalKind(strings.ToLower(strings.TrimSpace(raw))) {
	case KindStudent:
		return KindStudent, true
	case KindCompany:
		return KindCompany, true
	default:
		return "", false
	}
}

// Principal is the caller identity resolved once per request. ID is the id of
// the student or company row.
type Principal struct {
	Kind PrincipalKind
	ID   string
}

// Auth validates bearer JWTs and stores the caller Principal in context.
// Outside production, X-User-Id and X-User-Role headers are accepted instead.
func Auth(env string) gin.HandlerFunc {
	devHeaders := !isProduction(env)
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader != "" {
			if !strings.HasPrefix(authHeader, "Bearer ") {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}

			token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
			if token == "" {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}

			claims, err := auth.VerifyJWT(token)
			if err != nil {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}
			kind, ok := ParseKind(claims.Role)
			if !ok {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "unknown role", nil)
				return
			}
			setPrincipal(c, Principal{Kind: kind, ID: claims.Sub})
			c.Next()
			return
		}

		if devHeaders {
			id := strings.TrimSpace(c.GetHeader("X-User-Id"))
			kind, ok := ParseKind(c.GetHeader("X-User-Role"))
			if id != "" && ok {
				setPrincipal(c, Principal{Kind: kind, ID: id})
				c.Next()
				return
			}
		}

		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
	}
}

// RequireRole rejects callers whose principal is not of kind.
func RequireRole(kind PrincipalKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFromContext(c)
		if !ok {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
			return
		}
		if p.Kind != kind {
			respond.Error(c, http.StatusForbidden, "forbidden", "this route requires a "+string(kind)+" account", nil)
			return
		}
		c.Next()
	}
}

func setPrincipal(c *gin.Context, p Principal) {
	c.Set(principalKey, p)
	c.Set(userIDKey, p.ID)
	c.Set(userRoleKey, string(p.Kind))
}

// PrincipalFromContext fetches the principal set by the auth middleware.
func PrincipalFromContext(c *gin.Context) (Principal, bool) {
	if c == nil {
		return Principal{}, false
	}
	val, ok := c.Get(principalKey)
	if !ok {
		return Principal{}, false
	}
	p, ok := val.(Principal)
	return p, ok
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

func isProduction(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "production" || env == "prod"
}
