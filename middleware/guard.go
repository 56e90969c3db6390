package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	goPortal "github.com/MrEthical07/goPortal"
)

// CookieName is the cookie carrying the session token.
const CookieName = "portal_session"

type sessionContextKey struct{}

// SessionFromContext returns the session resolved by Guard or Session.
// Requests that went through neither get Anonymous.
func SessionFromContext(ctx context.Context) goPortal.Session {
	sess, ok := ctx.Value(sessionContextKey{}).(goPortal.Session)
	if !ok {
		return goPortal.Anonymous
	}
	return sess
}

// WithSession stores sess in ctx.
func WithSession(ctx context.Context, sess goPortal.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// Guard resolves the session and runs the route guard on the request path.
// Browsers are redirected with 303; clients asking for JSON get 401 (login
// required) or 403 (wrong role, unknown path) with the redirect target.
func Guard(portal *goPortal.Portal) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if portal == nil {
				http.Error(w, "portal unavailable", http.StatusServiceUnavailable)
				return
			}

			sess := portal.SessionFromToken(r.Context(), TokenFromRequest(r))
			d := portal.Navigate(r.Context(), sess, r.URL.RequestURI())
			if !d.Render() {
				writeRedirect(w, r, d)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

// Session resolves the session into the request context without guarding.
func Session(portal *goPortal.Portal) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := goPortal.Anonymous
			if portal != nil {
				sess = portal.SessionFromToken(r.Context(), TokenFromRequest(r))
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

// TokenFromRequest returns the session token of r, or "".
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	token, _ := bearerToken(r.Header.Get("Authorization"))
	return token
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

// WantsJSON reports whether the client asked for a JSON answer.
func WantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeRedirect(w http.ResponseWriter, r *http.Request, d goPortal.Decision) {
	location := d.Location()
	if !WantsJSON(r) {
		http.Redirect(w, r, location, http.StatusSeeOther)
		return
	}

	status, code := http.StatusForbidden, "redirect"
	switch d.Target {
	case goPortal.PathLogin:
		status, code = http.StatusUnauthorized, "authentication_required"
	case goPortal.PathNotFound:
		status, code = http.StatusNotFound, "not_found"
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Location", location)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":    code,
		"redirect": location,
	})
}
