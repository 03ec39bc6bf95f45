// Package middleware provides the editor server's route guard.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// ContextKey is a typed key for context values to avoid collisions.
type ContextKey string

// tokenKey is the context key for the access token of a guarded request.
const tokenKey ContextKey = "accessToken"

// AccessTokenCookie mirrors the stored access token for browser clients.
const AccessTokenCookie = "access_token"

// Paths the guard treats specially
const (
	LoginPath   = "/auth/login"
	HomePath    = "/cv"
	redirectKey = "redirect"
)

var (
	protectedPrefixes = []string{"/cv", "/cover-letters"}
	authPages         = []string{"/auth/login", "/auth/register"}
)

// TokenChecker decides whether a presented token is still usable.
type TokenChecker interface {
	Valid(token string) bool
}

// TokenCheckerFunc adapts a function to TokenChecker.
type TokenCheckerFunc func(token string) bool

// Valid implements TokenChecker.
func (f TokenCheckerFunc) Valid(token string) bool { return f(token) }

// RouteGuard redirects anonymous requests for protected pages to the login
// page, remembering the requested path, and sends authenticated users away
// from the login and register pages. A nil checker accepts any non-empty token.
func RouteGuard(checker TokenChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token != "" && checker != nil && !checker.Valid(token) {
				token = ""
			}

			switch {
			case token == "" && IsProtected(r.URL.Path):
				redirect(w, r, LoginRedirect(r.URL.Path))
				return
			case token != "" && IsAuthPage(r.URL.Path) && r.Method == http.MethodGet:
				redirect(w, r, HomePath)
				return
			}

			if token != "" {
				r = r.WithContext(context.WithValue(r.Context(), tokenKey, token))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func redirect(w http.ResponseWriter, r *http.Request, to string) {
	status := http.StatusFound
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		status = http.StatusSeeOther
	}
	http.Redirect(w, r, to, status)
}

// TokenFromRequest returns the access token from the cookie, falling back to
// a Bearer Authorization header. It returns "" when neither is present.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(AccessTokenCookie); err == nil && c.Value != "" {
		return c.Value
	}

	// Handle case-insensitive "Bearer" prefix
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// GetToken returns the access token the guard accepted for this request.
func GetToken(r *http.Request) (string, error) {
	token, ok := r.Context().Value(tokenKey).(string)
	if !ok || token == "" {
		return "", fmt.Errorf("access token not found in request context")
	}
	return token, nil
}

// IsProtected reports whether path requires a logged-in user.
func IsProtected(path string) bool {
	return matchesAny(path, protectedPrefixes)
}

// IsAuthPage reports whether path is the login or register page.
func IsAuthPage(path string) bool {
	return matchesAny(path, authPages)
}

func matchesAny(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// LoginRedirect returns the login URL that sends the user back to path afterwards.
func LoginRedirect(path string) string {
	return LoginPath + "?" + url.Values{redirectKey: {path}}.Encode()
}

// SafeRedirect returns target when it is a local absolute path, otherwise HomePath.
func SafeRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.Contains(target, `\`) {
		return HomePath
	}
	return target
}
