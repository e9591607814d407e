package api

import (
	"net/http"
	"strings"

	"github.com/kalambet/jobportal/internal/auth"
)

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return "", false
	}
	tok := strings.TrimSpace(h[len(prefix):])
	return tok, tok != ""
}

// SessionAuth resolves an optional bearer token to the session it was issued
// for and stores it in the request context. Requests without a token pass
// through anonymously; an unknown token is rejected.
func SessionAuth(sessions *auth.Sessions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, ok := bearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			sc, found := sessions.Lookup(tok)
			if !found {
				httpError(w, http.StatusUnauthorized, "authentication_error", "invalid or expired bearer token")
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), sc)))
		})
	}
}

// RequireRole rejects requests whose session does not hold role.
func RequireRole(role auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !authorize(w, r, role) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// authorize writes 401 or 403 and reports false unless the request's session
// holds role. An empty role admits everyone.
func authorize(w http.ResponseWriter, r *http.Request, role auth.Role) bool {
	if role == "" {
		return true
	}
	sc, ok := auth.FromContext(r.Context())
	if !ok || !sc.Authenticated() {
		httpError(w, http.StatusUnauthorized, "authentication_error", "sign in as %s to continue", role)
		return false
	}
	if !sc.Has(role) {
		httpError(w, http.StatusForbidden, "permission_error", "this action requires the %s role", role)
		return false
	}
	return true
}
