package server

import (
	"net/http"

	goPortal "github.com/MrEthical07/goPortal"
	"github.com/MrEthical07/goPortal/middleware"
)

type loginRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	RedirectURI string `json:"redirectUri,omitempty"`
}

type sessionResponse struct {
	Authenticated bool           `json:"authenticated"`
	User          *goPortal.User `json:"user,omitempty"`
	Role          string         `json:"role,omitempty"`
	Home          string         `json:"home"`
	Redirect      string         `json:"redirect,omitempty"`
	Token         string         `json:"token,omitempty"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := s.portal.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		status, code := errorStatus(err)
		msg := ""
		switch status {
		case http.StatusTooManyRequests:
			msg = goPortal.MessageRateLimited
		case http.StatusBadGateway, http.StatusServiceUnavailable:
			msg = goPortal.MessageTryLater
		}
		writeError(w, status, code, msg)
		return
	}

	s.setSessionCookie(w, res.Token)
	writeJSON(w, http.StatusOK, sessionResponse{
		Authenticated: true,
		User:          res.Session.User,
		Role:          res.Session.Role().String(),
		Home:          res.Redirect,
		Redirect:      s.portal.PostLoginTarget(res.Session, req.RedirectURI),
		Token:         res.Token,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.portal.Logout(r.Context(), middleware.TokenFromRequest(r)); err != nil {
		status, code := errorStatus(err)
		writeError(w, status, code, goPortal.MessageTryLater)
		return
	}
	s.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, sessionResponse{Home: goPortal.PathLogin, Redirect: goPortal.PathLogin})
}

func (s *Server) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	n, err := s.portal.LogoutAll(r.Context(), middleware.TokenFromRequest(r))
	if err != nil {
		status, code := errorStatus(err)
		writeError(w, status, code, goPortal.MessageTryLater)
		return
	}
	s.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]any{"revoked": n, "redirect": goPortal.PathLogin})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	resp := sessionResponse{
		Authenticated: sess.Authenticated,
		User:          sess.User,
		Home:          goPortal.ResolveHome(sess.Role()),
	}
	if sess.Authenticated {
		resp.Role = sess.Role().String()
	} else {
		resp.Home = goPortal.PathLogin
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.portal.Config().Session.TTL.Seconds()),
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
