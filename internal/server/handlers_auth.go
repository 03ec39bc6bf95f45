package server

import (
	"net/http"
	"net/url"
	"time"

	"github.com/jonathan/cv-builder/internal/api"
	"github.com/jonathan/cv-builder/internal/auth"
	"github.com/jonathan/cv-builder/internal/server/middleware"
	"github.com/jonathan/cv-builder/internal/types"
	"github.com/jonathan/cv-builder/internal/validation"
)

// unverifiedPath is where a user with an unverified email is sent.
const unverifiedPath = "/unverified"

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"message":  "POST email and password to /auth/login",
		"redirect": middleware.SafeRedirect(r.URL.Query().Get("redirect")),
	})
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"message": "Create an account with `cvbuilder auth register`",
	})
}

// handleLogin proxies the credentials to the backend, stores the issued tokens
// and mirrors the access token in a cookie. The response names the page to
// continue to: the requested redirect, or the verification notice when the
// backend reports an unverified email.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil {
		s.errorResponse(w, &ErrBadRequest{Message: "login is not available on this server"})
		return
	}

	var req types.LoginRequest
	if err := decodeJSON(r, &req, false); err != nil {
		s.errorResponse(w, err)
		return
	}
	if err := validation.Struct(&req); err != nil {
		s.errorResponse(w, err)
		return
	}

	resp, err := s.auth.Login(r.Context(), &req)
	if err != nil {
		if api.IsUnverified(err) {
			s.jsonResponse(w, http.StatusForbidden, errorBody{
				Error:    api.UnverifiedDetail,
				Redirect: unverifiedPath + "?" + url.Values{"email": {req.Email}}.Encode(),
			})
			return
		}
		s.errorResponse(w, err)
		return
	}

	if err := s.session.Login(r.Context(), resp); err != nil {
		s.errorResponse(w, err)
		return
	}
	http.SetCookie(w, s.tokenCookie(resp.Tokens().AccessToken))
	s.log.Info().Msg("user logged in")

	s.jsonResponse(w, http.StatusOK, map[string]string{
		"redirect": middleware.SafeRedirect(r.URL.Query().Get("redirect")),
	})
}

// handleLogout ends the backend session and removes the cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Logout(r.Context()); err != nil {
		s.errorResponse(w, err)
		return
	}
	cookie := s.tokenCookie("")
	cookie.MaxAge = -1
	http.SetCookie(w, cookie)
	w.WriteHeader(http.StatusNoContent)
}

// tokenCookie mirrors an access token. The cookie expires with the token
// when it carries an expiry.
func (s *Server) tokenCookie(token string) *http.Cookie {
	c := &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	if exp, ok := auth.Expiry(token); ok {
		c.Expires = exp.UTC()
		c.MaxAge = max(1, int(time.Until(exp).Seconds()))
	}
	return c
}
