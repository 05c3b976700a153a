package web

import (
	"context"
	"net/http"
	"strings"

	log "github.com/go-pkgz/lgr"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/cozummakina/montaj/app/ledger"
)

// basicAuthUser is the user name accepted in basic auth for API clients
const basicAuthUser = "admin"

type accessKey struct{}

// accessFrom returns access level set by authMiddleware, viewer if missing
func accessFrom(ctx context.Context) ledger.Access {
	if a, ok := ctx.Value(accessKey{}).(ledger.Access); ok {
		return a
	}
	return ledger.AccessViewer
}

// authMiddleware resolves access level of the request from the session cookie or basic auth.
// Requests are never rejected here, anonymous users get viewer access.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		access := ledger.AccessViewer
		if s.isAdmin(r) {
			access = ledger.AccessAdmin
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), accessKey{}, access)))
	})
}

func (s *Server) isAdmin(r *http.Request) bool {
	if s.passwordHash == "" {
		return false
	}
	if cookie, err := r.Cookie(authCookie); err == nil && s.validSession(cookie.Value) {
		return true
	}
	if username, password, ok := r.BasicAuth(); ok && username == basicAuthUser {
		if err := bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(password)); err == nil {
			return true
		}
		log.Printf("[WARN] invalid basic auth from %s", r.RemoteAddr)
	}
	return false
}

// handleLoginForm displays the login form
func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if accessFrom(r.Context()).IsAdmin() {
		http.Redirect(w, r, s.url("/"), http.StatusSeeOther)
		return
	}
	s.renderLogin(w, http.StatusOK, "")
}

// handleLogin processes the login form submission
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.passwordHash == "" {
		s.renderLogin(w, http.StatusForbidden, "Yönetici girişi kapalı")
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	password := r.FormValue("password")
	if password == "" {
		s.renderLogin(w, http.StatusUnauthorized, "Şifre gerekli")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(password)); err != nil {
		log.Printf("[WARN] failed login from %s", r.RemoteAddr)
		s.renderLogin(w, http.StatusUnauthorized, "Hatalı şifre")
		return
	}

	token := s.newSession()
	http.SetCookie(w, &http.Cookie{
		Name:     authCookie,
		Value:    token,
		Path:     s.cookiePath(),
		MaxAge:   int(s.loginTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https",
	})
	log.Printf("[INFO] admin logged in from %s", r.RemoteAddr)
	http.Redirect(w, r, s.url("/"), http.StatusSeeOther)
}

// handleLogout drops the session and clears the auth cookie
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(authCookie); err == nil {
		s.dropSession(cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     authCookie,
		Value:    "",
		Path:     s.cookiePath(),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https",
	})
	http.Redirect(w, r, s.url("/"), http.StatusSeeOther)
}

func (s *Server) renderLogin(w http.ResponseWriter, status int, errMsg string) {
	data := struct {
		Error        string
		BaseURL      string
		LoginEnabled bool
	}{Error: errMsg, BaseURL: s.baseURL, LoginEnabled: s.passwordHash != ""}
	s.renderStatus(w, status, "login", "login.html", data)
}

// newSession registers a random session token valid for loginTTL
func (s *Server) newSession() string {
	token := uuid.NewString()
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	now := s.now()
	for t, exp := range s.sessions {
		if !now.Before(exp) {
			delete(s.sessions, t)
		}
	}
	s.sessions[token] = now.Add(s.loginTTL)
	return token
}

func (s *Server) validSession(token string) bool {
	if strings.TrimSpace(token) == "" {
		return false
	}
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	exp, ok := s.sessions[token]
	if !ok {
		return false
	}
	if !s.now().Before(exp) {
		delete(s.sessions, token)
		return false
	}
	return true
}

func (s *Server) dropSession(token string) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	delete(s.sessions, token)
}
