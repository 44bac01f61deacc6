// Package flow drives the guided conversation. The controller is the
// only code that moves a session between steps; handlers translate
// HTTP requests into controller calls and render whatever step the
// session lands on.
package flow

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rmehran/campuschat/internal/ai"
	"github.com/rmehran/campuschat/internal/archive"
	"github.com/rmehran/campuschat/internal/document"
	"github.com/rmehran/campuschat/internal/i18n"
	"github.com/rmehran/campuschat/internal/model"
	"github.com/rmehran/campuschat/internal/roster"
	"github.com/rmehran/campuschat/internal/speech"
)

// Config carries the flow policy knobs.
type Config struct {
	// EthicsRequiresAuth gates the ethics track behind the same
	// credential check as coursework.
	EthicsRequiresAuth bool

	// WarnPartialLoad surfaces a notice when some files of an
	// "all materials" selection could not be read.
	WarnPartialLoad bool

	// EthicsDoc is the file name of the ethics guidance document,
	// resolved against the data directory.
	EthicsDoc string
}

// Controller owns the step transitions for every session.
type Controller struct {
	roster  *roster.Store
	docs    *document.Loader
	ai      *ai.Client
	speech  *speech.Client
	archive *archive.Archive
	cfg     Config

	ethicsOnce sync.Once
	ethicsText string
}

// New wires a controller. archive may be nil when transcript archiving
// is disabled.
func New(r *roster.Store, d *document.Loader, a *ai.Client, sp *speech.Client, ar *archive.Archive, cfg Config) *Controller {
	return &Controller{roster: r, docs: d, ai: a, speech: sp, archive: ar, cfg: cfg}
}

// ChoosePath handles the welcome-screen choice. Both tracks go through
// identification unless the ethics track is configured open.
func (c *Controller) ChoosePath(ctx context.Context, sess *model.Session, path model.Path) {
	if path != model.PathEthics && path != model.PathCoursework {
		return
	}
	sess.ClearError()
	sess.SelectedPath = path

	if path == model.PathEthics && !c.cfg.EthicsRequiresAuth {
		sess.Step = model.StepEthicsChat
		return
	}
	sess.Step = model.StepStudentID
}

// SubmitStudentID records the entered ID and advances to the code
// screen. A blank ID keeps the session where it is with an error.
func (c *Controller) SubmitStudentID(ctx context.Context, sess *model.Session, studentID string) {
	studentID = strings.ToUpper(strings.TrimSpace(studentID))
	if studentID == "" {
		sess.SetError(i18n.T(ctx, "StudentIDRequired"))
		return
	}
	sess.ClearError()
	sess.StudentID = studentID
	sess.Step = model.StepCode
}

// SubmitCode checks the access code against the roster. On success the
// session advances to the track it chose; on failure it stays on the
// code screen with a per-cause error message.
func (c *Controller) SubmitCode(ctx context.Context, sess *model.Session, code string) {
	code = strings.TrimSpace(code)
	if code == "" {
		sess.SetError(i18n.T(ctx, "AccessCodeRequired"))
		return
	}

	rec, credErr := c.roster.ValidateCredentials(sess.StudentID, code)
	if credErr != nil {
		sess.SetError(i18n.Td(ctx, credErr.Key, credErr.Data))
		return
	}

	sess.ClearError()
	sess.Student = rec
	sess.AccessCode = code

	if sess.SelectedPath == model.PathEthics {
		sess.Step = model.StepEthicsChat
		return
	}
	sess.Step = model.StepModule
}

// SelectModule records the student's document choice for a module. An
// empty fileName selects the "all materials" aggregate. Any previous
// document, transcript, and audio are discarded.
func (c *Controller) SelectModule(ctx context.Context, sess *model.Session, moduleName, fileName string) {
	if sess.Student == nil {
		sess.SetError(i18n.T(ctx, "SetupError"))
		return
	}
	docs, ok := sess.Student.Modules[moduleName]
	if !ok || len(docs) == 0 {
		sess.SetError(i18n.T(ctx, "NoModulesFound"))
		return
	}

	sel := &model.ModuleSelection{
		ModuleName: moduleName,
		Programme:  sess.Student.Programme,
	}
	if fileName == "" {
		sel.AllFiles = true
		sel.Documents = docs
	} else {
		for _, d := range docs {
			if d.FileName == fileName {
				sel.Documents = []model.DocumentDescriptor{d}
				break
			}
		}
		if len(sel.Documents) == 0 {
			sess.SetError(i18n.T(ctx, "NoModulesFound"))
			return
		}
	}

	sess.ClearError()
	sess.Selection = sel
	sess.Document = nil
	sess.ClearChat()
	sess.Step = model.StepCoursework
}

// SelectCoursework records the help type and opens the chat. The
// selected documents are loaded here so the first question does not
// pay the extraction cost.
func (c *Controller) SelectCoursework(ctx context.Context, sess *model.Session, ct model.CourseworkType) {
	if !ct.Valid() {
		return
	}
	if sess.Selection == nil {
		sess.SetError(i18n.T(ctx, "NoModulesFound"))
		return
	}

	sess.ClearError()
	sess.Coursework = ct
	sess.Step = model.StepChat
	c.ensureDocument(ctx, sess)
}

// ensureDocument loads the selected documents if they are not in the
// session yet. A failed load leaves the chat usable; the completion
// client answers with its no-documents notice until a load succeeds.
func (c *Controller) ensureDocument(ctx context.Context, sess *model.Session) {
	if sess.Document != nil || sess.Selection == nil {
		return
	}
	doc, err := c.docs.Load(*sess.Selection)
	if err != nil {
		slog.Error("document load failed",
			"module", sess.Selection.ModuleName, "error", err)
		sess.ErrorMessage = i18n.T(ctx, "DocumentLoadFailed")
		return
	}
	sess.Document = doc

	if c.cfg.WarnPartialLoad && len(doc.Meta.SkippedFiles) > 0 {
		sess.ErrorMessage = i18n.Td(ctx, "PartialLoadWarning",
			map[string]any{"Files": strings.Join(doc.Meta.SkippedFiles, ", ")})
	}
}

// EthicsDocument returns the ethics guidance text, loading it once per
// process. Missing guidance degrades to an empty string; the advisor
// still answers from general knowledge.
func (c *Controller) EthicsDocument() string {
	c.ethicsOnce.Do(func() {
		if c.cfg.EthicsDoc == "" {
			return
		}
		text, _, err := c.docs.LoadFile(c.cfg.EthicsDoc)
		if err != nil {
			slog.Warn("ethics document unavailable",
				"file", c.cfg.EthicsDoc, "error", err)
			return
		}
		c.ethicsText = text
	})
	return c.ethicsText
}

// Ask appends the question to the transcript, obtains an answer for
// the session's current track, archives both messages, and caches
// narration audio for the answer when audio is enabled.
func (c *Controller) Ask(ctx context.Context, sess *model.Session, sessionToken, question string) {
	question = strings.TrimSpace(question)
	if question == "" {
		return
	}
	if sess.Step != model.StepChat && sess.Step != model.StepEthicsChat {
		return
	}
	sess.ClearError()

	userMsg := model.Message{Role: model.RoleUser, Content: question, Timestamp: time.Now()}
	sess.Transcript = append(sess.Transcript, userMsg)

	var answer string
	if sess.Step == model.StepChat {
		c.ensureDocument(ctx, sess)
	}
	if sess.Step == model.StepEthicsChat {
		studentID, programme := "", ""
		if sess.Student != nil {
			studentID = sess.Student.StudentID
			programme = sess.Student.Programme
		}
		answer = c.ai.AnswerEthics(ctx, question, c.EthicsDocument(), studentID, programme, sess.Language)
	} else {
		answer = c.ai.AnswerCoursework(ctx, question, sess.Document, sess.Language)
	}

	assistantMsg := model.Message{Role: model.RoleAssistant, Content: answer, Timestamp: time.Now()}
	sess.Transcript = append(sess.Transcript, assistantMsg)

	c.archiveMessage(sess, sessionToken, userMsg)
	c.archiveMessage(sess, sessionToken, assistantMsg)

	if sess.AudioEnabled && c.speech.Available() {
		key := model.AudioKey(len(sess.Transcript)-1, assistantMsg)
		if audio, ok := c.speech.Synthesize(ctx, answer, sess.Voice); ok {
			sess.AudioCache[key] = audio
		}
	}
}

func (c *Controller) archiveMessage(sess *model.Session, token string, msg model.Message) {
	if c.archive == nil {
		return
	}
	module := ""
	if sess.Selection != nil {
		module = sess.Selection.ModuleName
	} else if sess.Step == model.StepEthicsChat {
		module = "Ethics"
	}
	if err := c.archive.Record(token, sess.StudentID, module, msg); err != nil {
		slog.Error("transcript archive write failed", "error", err)
	}
}

// Back moves one screen backwards. The welcome screen has nowhere to
// go. The ethics chat returns to the code screen when it was entered
// through identification, otherwise to the welcome choice.
func (c *Controller) Back(sess *model.Session) {
	sess.ClearError()
	switch sess.Step {
	case model.StepStudentID:
		sess.Step = model.StepWelcome
	case model.StepCode:
		sess.Step = model.StepStudentID
	case model.StepModule:
		sess.Step = model.StepCode
	case model.StepCoursework:
		sess.Step = model.StepModule
	case model.StepChat:
		sess.Step = model.StepCoursework
	case model.StepEthicsChat:
		if c.cfg.EthicsRequiresAuth && sess.IsAuthenticated() {
			sess.Step = model.StepCode
		} else {
			sess.Step = model.StepWelcome
		}
	}
}

// ChangeModule returns an authenticated student to module selection,
// discarding the chat and the loaded document.
func (c *Controller) ChangeModule(sess *model.Session) {
	if !sess.IsAuthenticated() {
		return
	}
	sess.ClearError()
	sess.Selection = nil
	sess.Coursework = ""
	sess.Document = nil
	sess.ClearChat()
	sess.Step = model.StepModule
}

// Reset starts the conversation over, keeping language and audio
// preferences.
func (c *Controller) Reset(sess *model.Session) {
	sess.Reset()
}

// ClearChat empties the transcript in place.
func (c *Controller) ClearChat(sess *model.Session) {
	sess.ClearChat()
}

// SetLanguage switches the session language. Unknown codes are
// ignored.
func (c *Controller) SetLanguage(sess *model.Session, lang model.Language) {
	if !lang.Valid() {
		return
	}
	sess.Language = lang
}

// ToggleAudio flips narration on or off.
func (c *Controller) ToggleAudio(sess *model.Session) {
	sess.AudioEnabled = !sess.AudioEnabled
}

// SetVoice selects the narration voice. Unknown voices are ignored.
func (c *Controller) SetVoice(sess *model.Session, voice string) {
	if !speech.ValidVoice(voice) {
		return
	}
	sess.Voice = voice
}
