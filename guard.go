package rescuelink

import (
	"net/http"
	"strings"

	"github.com/rapid8/rescuelink/config"
)

const (
	authTokenCookie = "authToken"
	userRoleCookie  = "userRole"
)

// withRouteGuard enforces the auth cookies on protected path prefixes.
// Requests without a token are sent to /signin; authenticated requests
// whose role is not allowed for the prefix go to /unauthorized. Everything
// else passes through untouched.
func withRouteGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g := config.Config.Guard
		path := r.URL.Path
		if !hasPrefixIn(path, g.Protected) {
			next.ServeHTTP(w, r)
			return
		}

		tok, err := r.Cookie(authTokenCookie)
		if err != nil || tok.Value == "" {
			http.Redirect(w, r, "/signin", http.StatusFound)
			return
		}

		role := ""
		if c, err := r.Cookie(userRoleCookie); err == nil {
			role = c.Value
		}
		for prefix, roles := range g.RoleRoutes {
			if strings.HasPrefix(path, prefix) && !containsRole(roles, role) {
				http.Redirect(w, r, "/unauthorized", http.StatusFound)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

func hasPrefixIn(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func containsRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
