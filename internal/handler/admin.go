package handler

import (
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/rmehran/campuschat/internal/handler/views"
	appI18n "github.com/rmehran/campuschat/internal/i18n"
	"github.com/rmehran/campuschat/internal/model"
)

func (h *Handler) adminEnabled() bool {
	return len(h.config.AdminPasswordHash) > 0
}

func (h *Handler) handleAdminLoginPage(w http.ResponseWriter, r *http.Request) {
	if !h.adminEnabled() {
		http.NotFound(w, r)
		return
	}
	render(w, r, views.AdminLoginPage(""))
}

func (h *Handler) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	if !h.adminEnabled() {
		http.NotFound(w, r)
		return
	}

	password := r.FormValue("password")
	if err := bcrypt.CompareHashAndPassword(h.config.AdminPasswordHash, []byte(password)); err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		render(w, r, views.AdminLoginPage(appI18n.T(r.Context(), "LoginError")))
		return
	}

	sess := model.SessionFromContext(r.Context())
	sess.IsAdmin = true
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func (h *Handler) handleAdminLogout(w http.ResponseWriter, r *http.Request) {
	sess := model.SessionFromContext(r.Context())
	sess.IsAdmin = false
	redirectHome(w, r)
}

// handleAdminPage shows roster, session, and archive counts plus the
// state of the external services.
func (h *Handler) handleAdminPage(w http.ResponseWriter, r *http.Request) {
	sess := model.SessionFromContext(r.Context())
	if !h.adminEnabled() {
		http.NotFound(w, r)
		return
	}
	if !sess.IsAdmin {
		http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
		return
	}

	stats := views.AdminStats{
		Roster:         h.roster.Stats(),
		ActiveSessions: h.sessions.Len(),
		AIOK:           h.ai.Available(),
		SpeechOK:       h.speech.Available(),
	}
	if h.archive != nil {
		if n, err := h.archive.Count(); err == nil {
			stats.ArchivedMessages = n
		}
		if n, err := h.archive.SessionCount(); err == nil {
			stats.ArchivedSessions = n
		}
	}
	render(w, r, views.AdminPage(stats, ""))
}

// handleAdminReload forces a fresh read of the roster workbook.
func (h *Handler) handleAdminReload(w http.ResponseWriter, r *http.Request) {
	sess := model.SessionFromContext(r.Context())
	if !h.adminEnabled() || !sess.IsAdmin {
		http.NotFound(w, r)
		return
	}

	if _, err := h.roster.Reload(); err != nil {
		slog.Error("roster reload failed", "error", err)
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}

	stats := views.AdminStats{
		Roster:         h.roster.Stats(),
		ActiveSessions: h.sessions.Len(),
		AIOK:           h.ai.Available(),
		SpeechOK:       h.speech.Available(),
	}
	render(w, r, views.AdminPage(stats, appI18n.T(r.Context(), "RosterReloaded")))
}
