package middleware

import (
	"net/http"

	"github.com/platinummonkey/clerk-fapi-go/pkg/httputil"
)

// RequireOrganization creates middleware that rejects sessions without an
// active organization
func RequireOrganization() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetSessionClaims(r)
			if claims == nil {
				httputil.WriteForbidden(w, "authentication required")
				return
			}

			if claims.OrganizationID == "" {
				httputil.WriteForbidden(w, "active organization required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireOrganizationRole creates middleware that checks for a specific
// organization role
func RequireOrganizationRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetSessionClaims(r)
			if claims == nil {
				httputil.WriteForbidden(w, "authentication required")
				return
			}

			if claims.OrganizationID == "" {
				httputil.WriteForbidden(w, "active organization required")
				return
			}

			if claims.OrganizationRole != role {
				httputil.WriteForbidden(w, "insufficient organization role")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireOrganizationPermission creates middleware that checks for a specific
// organization permission
func RequireOrganizationPermission(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetSessionClaims(r)
			if claims == nil {
				httputil.WriteForbidden(w, "authentication required")
				return
			}

			for _, p := range claims.OrganizationPermissions {
				if p == permission {
					next.ServeHTTP(w, r)
					return
				}
			}

			httputil.WriteForbidden(w, "missing organization permission")
		})
	}
}
