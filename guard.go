package goPortal

import (
	"net/url"
	"strings"
)

// DecisionKind is the outcome class of a navigation decision.
type DecisionKind uint8

const (
	// DecisionRender lets the requested screen through.
	DecisionRender DecisionKind = iota
	// DecisionRedirect sends the visitor to Decision.Target.
	DecisionRedirect
)

func (k DecisionKind) String() string {
	if k == DecisionRedirect {
		return "redirect"
	}
	return "render"
}

// Decision is the result of guarding one navigation.
//
// ReturnTo is only set on redirects to the login screen; it carries the
// originally requested path so the visitor can be sent back after login.
type Decision struct {
	Kind     DecisionKind
	Target   string
	ReturnTo string
}

// Render reports whether the screen may be shown.
func (d Decision) Render() bool {
	return d.Kind == DecisionRender
}

// Location renders the redirect URL, including the return path when present.
// It is empty for render decisions.
func (d Decision) Location() string {
	if d.Kind != DecisionRedirect {
		return ""
	}
	if d.ReturnTo == "" {
		return d.Target
	}
	q := url.Values{}
	q.Set("redirect_uri", d.ReturnTo)
	return d.Target + "?" + q.Encode()
}

func render() Decision {
	return Decision{Kind: DecisionRender}
}

func redirectTo(target string) Decision {
	return Decision{Kind: DecisionRedirect, Target: target}
}

// Guard decides whether the screen described by route may be rendered for
// sess at currentPath. It is a pure function of its arguments.
//
// Rules, first match wins:
//  1. public route, authenticated session: redirect home.
//  2. protected route, no session: redirect to login carrying currentPath.
//  3. role outside a non-empty AllowedRoles: redirect home, unless the
//     visitor is already standing on that home path.
//  4. render.
func Guard(route RouteDescriptor, sess Session, currentPath string) Decision {
	if route.Unguarded {
		return render()
	}

	role := sess.Role()
	home := ResolveHome(role)

	if route.Public && sess.Authenticated {
		return redirectTo(home)
	}

	if !route.Public && !sess.Authenticated {
		d := redirectTo(PathLogin)
		d.ReturnTo = SafeRedirectPath(currentPath)
		return d
	}

	if sess.Authenticated && !route.AllowedRoles.Empty() && !route.AllowedRoles.Has(role) {
		if normalizePath(currentPath) == home {
			return render()
		}
		return redirectTo(home)
	}

	return render()
}

// Navigate resolves path against table and guards it. Paths that match no
// route redirect to the not-found screen for authenticated sessions and to
// login otherwise.
func Navigate(table *RouteTable, sess Session, path string) Decision {
	route, ok := table.Match(path)
	if !ok {
		if sess.Authenticated {
			return redirectTo(PathNotFound)
		}
		return redirectTo(PathLogin)
	}
	return Guard(route, sess, path)
}

// PostLoginTarget picks where a freshly authenticated session goes: back to
// returnTo when it is a safe path the session may render, home otherwise.
func PostLoginTarget(table *RouteTable, sess Session, returnTo string) string {
	home := ResolveHome(sess.Role())
	candidate := SafeRedirectPath(returnTo)
	if candidate == "/" || strings.TrimSpace(returnTo) == "" {
		return home
	}
	if Navigate(table, sess, candidate).Render() {
		return candidate
	}
	return home
}

// SafeRedirectPath ensures candidate is a same-origin relative path starting
// with "/". Anything else becomes "/".
func SafeRedirectPath(candidate string) string {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return "/"
	}
	if strings.HasPrefix(candidate, "//") || strings.HasPrefix(candidate, `/\`) {
		return "/"
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") {
		return "/"
	}
	return candidate
}
