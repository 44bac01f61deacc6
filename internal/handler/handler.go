package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rmehran/campuschat/internal/ai"
	"github.com/rmehran/campuschat/internal/archive"
	"github.com/rmehran/campuschat/internal/flow"
	"github.com/rmehran/campuschat/internal/handler/views"
	"github.com/rmehran/campuschat/internal/model"
	"github.com/rmehran/campuschat/internal/roster"
	"github.com/rmehran/campuschat/internal/session"
	"github.com/rmehran/campuschat/internal/speech"
)

// Config holds handler-level settings.
type Config struct {
	SecureCookies bool

	// SetupProblems, when non-empty, sends every request to the setup
	// screen instead of the conversation.
	SetupProblems []string

	// AdminPasswordHash is the bcrypt hash of the diagnostics password.
	// Empty disables the diagnostics pages.
	AdminPasswordHash []byte
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	sessions *session.Store
	flow     *flow.Controller
	roster   *roster.Store
	ai       *ai.Client
	speech   *speech.Client
	archive  *archive.Archive
	config   Config
}

// New creates a new Handler. archive may be nil.
func New(s *session.Store, f *flow.Controller, r *roster.Store, a *ai.Client, sp *speech.Client, ar *archive.Archive, cfg Config) *Handler {
	return &Handler{sessions: s, flow: f, roster: r, ai: a, speech: sp, archive: ar, config: cfg}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Handle("/static/*", staticHandler())

	r.Group(func(r chi.Router) {
		r.Use(h.sessionMiddleware)
		r.Use(h.csrfMiddleware)

		r.Get("/", h.handleIndex)
		r.Post("/path", h.handlePath)
		r.Post("/student-id", h.handleStudentID)
		r.Post("/code", h.handleCode)
		r.Post("/module", h.handleModule)
		r.Post("/coursework", h.handleCoursework)
		r.Post("/chat", h.handleChat)
		r.Post("/chat/clear", h.handleClearChat)
		r.Post("/module/change", h.handleChangeModule)
		r.Post("/back", h.handleBack)
		r.Post("/reset", h.handleReset)
		r.Post("/language", h.handleLanguage)
		r.Post("/audio/toggle", h.handleAudioToggle)
		r.Post("/voice", h.handleVoice)
		r.Get("/audio/{key}", h.handleAudio)

		r.Get("/admin/login", h.handleAdminLoginPage)
		r.Post("/admin/login", h.handleAdminLogin)
		r.Get("/admin", h.handleAdminPage)
		r.Post("/admin/reload", h.handleAdminReload)
		r.Post("/admin/logout", h.handleAdminLogout)
	})
}

// handleIndex renders whatever screen the session is on. Every POST
// redirects back here, so refreshing never resubmits a form.
func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	if len(h.config.SetupProblems) > 0 {
		render(w, r, views.SetupPage(h.config.SetupProblems))
		return
	}

	sess := model.SessionFromContext(r.Context())
	switch sess.Step {
	case model.StepStudentID:
		render(w, r, views.StudentIDPage(sess))
	case model.StepCode:
		render(w, r, views.CodePage(sess))
	case model.StepModule:
		render(w, r, views.ModulePage(sess))
	case model.StepCoursework:
		render(w, r, views.CourseworkPage(sess))
	case model.StepChat:
		render(w, r, views.ChatPage(sess))
	case model.StepEthicsChat:
		render(w, r, views.EthicsChatPage(sess))
	default:
		render(w, r, views.WelcomePage(sess))
	}
}

func (h *Handler) handlePath(w http.ResponseWriter, r *http.Request) {
	sess := model.SessionFromContext(r.Context())
	h.flow.ChoosePath(r.Context(), sess, model.Path(r.FormValue("path")))
	redirectHome(w, r)
}

func (h *Handler) handleStudentID(w http.ResponseWriter, r *http.Request) {
	sess := model.SessionFromContext(r.Context())
	h.flow.SubmitStudentID(r.Context(), sess, r.FormValue("student_id"))
	redirectHome(w, r)
}

func (h *Handler) handleCode(w http.ResponseWriter, r *http.Request) {
	sess := model.SessionFromContext(r.Context())
	h.flow.SubmitCode(r.Context(), sess, r.FormValue("code"))
	redirectHome(w, r)
}

func (h *Handler) handleModule(w http.ResponseWriter, r *http.Request) {
	sess := model.SessionFromContext(r.Context())
	h.flow.SelectModule(r.Context(), sess, r.FormValue("module"), r.FormValue("file"))
	redirectHome(w, r)
}

func (h *Handler) handleCoursework(w http.ResponseWriter, r *http.Request) {
	sess := model.SessionFromContext(r.Context())
	h.flow.SelectCoursework(r.Context(), sess, model.CourseworkType(r.FormValue("type")))
	redirectHome(w, r)
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	sess := model.SessionFromContext(r.Context())
	token := sessionToken(r)
	h.flow.Ask(r.Context(), sess, token, r.FormValue("question"))
	redirectHome(w, r)
}

func (h *Handler) handleClearChat(w http.ResponseWriter, r *http.Request) {
	sess := model.SessionFromContext(r.Context())
	h.flow.ClearChat(sess)
	redirectHome(w, r)
}

func (h *Handler) handleChangeModule(w http.ResponseWriter, r *http.Request) {
	sess := model.SessionFromContext(r.Context())
	h.flow.ChangeModule(sess)
	redirectHome(w, r)
}

func (h *Handler) handleBack(w http.ResponseWriter, r *http.Request) {
	sess := model.SessionFromContext(r.Context())
	h.flow.Back(sess)
	redirectHome(w, r)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	sess := model.SessionFromContext(r.Context())
	h.flow.Reset(sess)
	redirectHome(w, r)
}

func (h *Handler) handleLanguage(w http.ResponseWriter, r *http.Request) {
	sess := model.SessionFromContext(r.Context())
	h.flow.SetLanguage(sess, model.Language(r.FormValue("lang")))
	redirectHome(w, r)
}

func (h *Handler) handleAudioToggle(w http.ResponseWriter, r *http.Request) {
	sess := model.SessionFromContext(r.Context())
	h.flow.ToggleAudio(sess)
	redirectHome(w, r)
}

func (h *Handler) handleVoice(w http.ResponseWriter, r *http.Request) {
	sess := model.SessionFromContext(r.Context())
	h.flow.SetVoice(sess, r.FormValue("voice"))
	redirectHome(w, r)
}

// handleAudio serves cached narration audio for one chat message.
func (h *Handler) handleAudio(w http.ResponseWriter, r *http.Request) {
	sess := model.SessionFromContext(r.Context())
	key := chi.URLParam(r, "key")

	audio, ok := sess.AudioCache[key]
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if _, err := w.Write(audio); err != nil {
		slog.Debug("audio write aborted", "key", key, "error", err)
	}
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
