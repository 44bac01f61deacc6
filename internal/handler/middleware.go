package handler

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"

	appI18n "github.com/rmehran/campuschat/internal/i18n"
	"github.com/rmehran/campuschat/internal/model"
)

const (
	sessionCookieName = "chat_session"
	csrfCookieName    = "csrf_token"
)

type tokenCtxKey struct{}

// sessionToken returns the session cookie token attached by the
// session middleware.
func sessionToken(r *http.Request) string {
	t, _ := r.Context().Value(tokenCtxKey{}).(string)
	return t
}

// sessionMiddleware resolves the browser's session from its cookie,
// creating one on first visit, and injects both the session and a
// localizer for the session's language into the request context.
func (h *Handler) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var (
			token string
			sess  *model.Session
		)

		if cookie, err := r.Cookie(sessionCookieName); err == nil {
			if s, ok := h.sessions.Get(cookie.Value); ok {
				token, sess = cookie.Value, s
			}
		}
		if sess == nil {
			token, sess = h.sessions.Create()
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookieName,
				Value:    token,
				Path:     "/",
				HttpOnly: true,
				Secure:   h.config.SecureCookies,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := model.ContextWithSession(r.Context(), sess)
		ctx = context.WithValue(ctx, tokenCtxKey{}, token)
		ctx = appI18n.WithLocalizer(ctx, appI18n.NewLocalizer(string(sess.Language)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func generateCSRFToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// csrfMiddleware implements the double-submit pattern: every response
// rotates the token cookie, and every mutating request must echo the
// current token in its form body.
func (h *Handler) csrfMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			cookie, err := r.Cookie(csrfCookieName)
			if err != nil || cookie.Value == "" {
				slog.Warn("CSRF cookie missing")
				http.Error(w, "csrf token missing", http.StatusForbidden)
				return
			}
			formToken := r.FormValue("csrf_token")
			if formToken == "" {
				slog.Warn("CSRF form token missing")
				http.Error(w, "csrf token missing", http.StatusForbidden)
				return
			}
			if len(formToken) != len(cookie.Value) ||
				subtle.ConstantTimeCompare([]byte(formToken), []byte(cookie.Value)) != 1 {
				slog.Warn("CSRF token mismatch")
				http.Error(w, "invalid csrf token", http.StatusForbidden)
				return
			}
		}

		token, err := generateCSRFToken()
		if err != nil {
			slog.Error("failed to generate CSRF token", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:     csrfCookieName,
			Value:    token,
			Path:     "/",
			HttpOnly: false,
			Secure:   h.config.SecureCookies,
			SameSite: http.SameSiteLaxMode,
		})

		ctx := model.ContextWithCSRFToken(r.Context(), token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func render(w http.ResponseWriter, r *http.Request, component templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := component.Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}
