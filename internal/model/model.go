package model

import (
	"context"
	"fmt"
	"time"
)

// Step identifies the current screen of the guided conversation.
// Only the flow controller mutates a session's step.
type Step string

const (
	StepWelcome    Step = "welcome"
	StepStudentID  Step = "student_id"
	StepCode       Step = "code"
	StepModule     Step = "module"
	StepCoursework Step = "coursework"
	StepChat       Step = "chat"
	StepEthicsChat Step = "ethics_chat"
)

// Path is the assistance track picked on the welcome screen.
type Path string

const (
	PathEthics     Path = "ethics"
	PathCoursework Path = "coursework"
)

// Language is one of the supported UI and answer languages.
type Language string

const (
	LangEnglish Language = "en"
	LangArabic  Language = "ar"
	LangFrench  Language = "fr"
	LangSpanish Language = "es"
)

// SupportedLanguages lists the selectable languages in display order.
func SupportedLanguages() []Language {
	return []Language{LangEnglish, LangArabic, LangFrench, LangSpanish}
}

// Name returns the full English name of the language, used in prompts.
func (l Language) Name() string {
	switch l {
	case LangArabic:
		return "Arabic"
	case LangFrench:
		return "French"
	case LangSpanish:
		return "Spanish"
	default:
		return "English"
	}
}

// Valid reports whether l is one of the supported language codes.
func (l Language) Valid() bool {
	switch l {
	case LangEnglish, LangArabic, LangFrench, LangSpanish:
		return true
	}
	return false
}

// Label returns the native-script selector label for the language.
func (l Language) Label() string {
	switch l {
	case LangArabic:
		return "العربية"
	case LangFrench:
		return "Français"
	case LangSpanish:
		return "Español"
	default:
		return "English"
	}
}

// CourseworkType tags the kind of help the student asked for.
type CourseworkType string

const (
	CourseworkAssignment CourseworkType = "assignment"
	CourseworkReading    CourseworkType = "reading"
	CourseworkConcepts   CourseworkType = "concepts"
	CourseworkExam       CourseworkType = "exam"
	CourseworkGeneral    CourseworkType = "general"
)

// CourseworkTypes lists the selectable coursework types in display order.
func CourseworkTypes() []CourseworkType {
	return []CourseworkType{
		CourseworkAssignment,
		CourseworkReading,
		CourseworkConcepts,
		CourseworkExam,
		CourseworkGeneral,
	}
}

// Valid reports whether ct is a known coursework type.
func (ct CourseworkType) Valid() bool {
	for _, t := range CourseworkTypes() {
		if ct == t {
			return true
		}
	}
	return false
}

// TitleKey returns the locale key for the coursework type's title.
func (ct CourseworkType) TitleKey() string {
	switch ct {
	case CourseworkAssignment:
		return "AssignmentQuestions"
	case CourseworkReading:
		return "ReadingMaterials"
	case CourseworkConcepts:
		return "ConceptsTheory"
	case CourseworkExam:
		return "ExamPreparation"
	default:
		return "GeneralQuestions"
	}
}

// DescKey returns the locale key for the coursework type's description.
func (ct CourseworkType) DescKey() string {
	return ct.TitleKey() + "Desc"
}

// ExampleQuestions returns sample questions shown in the chat screen.
func (ct CourseworkType) ExampleQuestions() []string {
	switch ct {
	case CourseworkAssignment:
		return []string{
			"What are the key requirements for this assignment?",
			"How should I structure my report?",
			"What citation format should I use?",
			"What are the assessment criteria?",
		}
	case CourseworkReading:
		return []string{
			"Can you summarize the main concepts in this module?",
			"What are the key theories I should understand?",
			"Which readings are most important for the exam?",
		}
	case CourseworkConcepts:
		return []string{
			"Can you explain this concept in simple terms?",
			"What are some real-world examples of this concept?",
			"Why is this concept important in the field?",
		}
	case CourseworkExam:
		return []string{
			"What topics are likely to be on the exam?",
			"Can you create practice questions for me?",
			"What are the key points I should remember?",
		}
	default:
		return []string{
			"What are the learning objectives for this module?",
			"How can I improve my understanding of this subject?",
			"How does this module connect to my overall programme?",
		}
	}
}

// DocumentDescriptor identifies one document: its file, owning module,
// and display labels. Immutable once built by the roster.
type DocumentDescriptor struct {
	ModuleName     string
	Programme      string
	FileName       string
	CourseworkType string
	DisplayName    string
}

// StudentRecord is one student's roster entry.
type StudentRecord struct {
	StudentID   string
	Code        int
	Programme   string
	Modules     map[string][]DocumentDescriptor
	ModuleNames []string // insertion order of Modules keys
}

// ModuleSelection captures the student's document choice: a single
// descriptor, or the "all materials" aggregate for a module.
type ModuleSelection struct {
	ModuleName string
	Programme  string
	AllFiles   bool
	Documents  []DocumentDescriptor
}

// Label returns the selection's display name.
func (ms ModuleSelection) Label() string {
	if ms.AllFiles {
		return "All " + ms.ModuleName + " Materials"
	}
	if len(ms.Documents) > 0 {
		return ms.Documents[0].DisplayName
	}
	return ms.ModuleName
}

// DocumentMeta aggregates extraction counts for a loaded document.
type DocumentMeta struct {
	Pages        int
	Paragraphs   int
	Tables       int
	Words        int
	Chars        int
	FileType     string
	Files        []string
	SkippedFiles []string
}

// Document is the text loaded for the current chat, plus where it came
// from. Cleared whenever the student changes module.
type Document struct {
	Text      string
	Meta      DocumentMeta
	Selection ModuleSelection
}

// Role is a chat message role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one transcript entry.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// AudioKey derives the audio-cache key for the message at index i.
func AudioKey(i int, m Message) string {
	return fmt.Sprintf("msg_%d_%d", i, m.Timestamp.UnixMilli())
}

// Session holds everything about one browser's conversation. It lives
// in process memory only and is threaded explicitly through the flow
// controller; nothing outside the controller changes Step.
type Session struct {
	Step         Step
	Language     Language
	SelectedPath Path
	StudentID    string
	AccessCode   string
	Student      *StudentRecord
	Selection    *ModuleSelection
	Coursework   CourseworkType
	Document     *Document
	Transcript   []Message
	AudioCache   map[string][]byte
	ErrorMessage string
	RetryCount   int
	AudioEnabled bool
	Voice        string
	IsAdmin      bool
	CreatedAt    time.Time
}

// NewSession returns a session at the welcome step with defaults.
func NewSession() *Session {
	return &Session{
		Step:         StepWelcome,
		Language:     LangEnglish,
		AudioCache:   map[string][]byte{},
		AudioEnabled: true,
		Voice:        "alloy",
		CreatedAt:    time.Now(),
	}
}

// Reset returns the session to the welcome step. Language and audio
// preferences persist across resets; everything else is cleared.
func (s *Session) Reset() {
	s.Step = StepWelcome
	s.SelectedPath = ""
	s.StudentID = ""
	s.AccessCode = ""
	s.Student = nil
	s.Selection = nil
	s.Coursework = ""
	s.Document = nil
	s.Transcript = nil
	s.AudioCache = map[string][]byte{}
	s.ClearError()
}

// ClearChat drops the transcript and cached audio, keeping everything
// else (auth, module selection, loaded document).
func (s *Session) ClearChat() {
	s.Transcript = nil
	s.AudioCache = map[string][]byte{}
}

// SetError records a validation error and bumps the retry counter.
func (s *Session) SetError(msg string) {
	s.ErrorMessage = msg
	s.RetryCount++
}

// ClearError clears the error message and retry counter.
func (s *Session) ClearError() {
	s.ErrorMessage = ""
	s.RetryCount = 0
}

// IsAuthenticated reports whether credentials were checked successfully.
func (s *Session) IsAuthenticated() bool {
	return s.StudentID != "" && s.Student != nil
}

type sessionCtxKey struct{}

// ContextWithSession stores the active session in the request context.
func ContextWithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, s)
}

// SessionFromContext retrieves the active session from context, or nil.
func SessionFromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionCtxKey{}).(*Session)
	return s
}

type csrfCtxKey struct{}

// ContextWithCSRFToken stores the CSRF token in context.
func ContextWithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfCtxKey{}, token)
}

// CSRFTokenFromContext retrieves the CSRF token from context.
func CSRFTokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(csrfCtxKey{}).(string)
	return t
}
