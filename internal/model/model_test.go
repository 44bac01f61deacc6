package model

import (
	"testing"
	"time"
)

func TestResetPreservesLanguageAndAudio(t *testing.T) {
	s := NewSession()
	s.Language = LangArabic
	s.AudioEnabled = false
	s.Voice = "nova"
	s.Step = StepChat
	s.SelectedPath = PathCoursework
	s.StudentID = "A00034131"
	s.Student = &StudentRecord{StudentID: "A00034131", Code: 1234}
	s.Transcript = []Message{{Role: RoleUser, Content: "hi", Timestamp: time.Now()}}
	s.AudioCache["k"] = []byte{1, 2, 3}
	s.SetError("bad code")

	s.Reset()

	if s.Step != StepWelcome {
		t.Errorf("Step = %q, want welcome", s.Step)
	}
	if s.Language != LangArabic {
		t.Errorf("Language = %q, want ar", s.Language)
	}
	if s.AudioEnabled {
		t.Error("AudioEnabled should persist as false")
	}
	if s.Voice != "nova" {
		t.Errorf("Voice = %q, want nova", s.Voice)
	}
	if s.StudentID != "" || s.Student != nil || s.SelectedPath != "" {
		t.Error("auth state should be cleared")
	}
	if len(s.Transcript) != 0 || len(s.AudioCache) != 0 {
		t.Error("chat state should be cleared")
	}
	if s.ErrorMessage != "" || s.RetryCount != 0 {
		t.Error("error state should be cleared")
	}
}

func TestClearChatKeepsSelection(t *testing.T) {
	s := NewSession()
	s.Step = StepChat
	s.Selection = &ModuleSelection{ModuleName: "CS101"}
	s.Document = &Document{Text: "text"}
	s.Transcript = []Message{{Role: RoleUser, Content: "q"}}
	s.AudioCache["k"] = []byte{1}

	s.ClearChat()

	if len(s.Transcript) != 0 || len(s.AudioCache) != 0 {
		t.Error("transcript and audio cache should be empty")
	}
	if s.Selection == nil || s.Document == nil || s.Step != StepChat {
		t.Error("selection, document, and step should survive a chat clear")
	}
}

func TestSetErrorIncrementsRetry(t *testing.T) {
	s := NewSession()
	s.SetError("first")
	s.SetError("second")
	if s.RetryCount != 2 {
		t.Errorf("RetryCount = %d, want 2", s.RetryCount)
	}
	if s.ErrorMessage != "second" {
		t.Errorf("ErrorMessage = %q, want 'second'", s.ErrorMessage)
	}
	s.ClearError()
	if s.RetryCount != 0 || s.ErrorMessage != "" {
		t.Error("ClearError should zero both fields")
	}
}

func TestModuleSelectionLabel(t *testing.T) {
	single := ModuleSelection{
		ModuleName: "CS101",
		Documents:  []DocumentDescriptor{{DisplayName: "Lecture Notes"}},
	}
	if got := single.Label(); got != "Lecture Notes" {
		t.Errorf("Label() = %q, want 'Lecture Notes'", got)
	}

	all := ModuleSelection{ModuleName: "CS101", AllFiles: true}
	if got := all.Label(); got != "All CS101 Materials" {
		t.Errorf("Label() = %q, want 'All CS101 Materials'", got)
	}
}

func TestAudioKeyStable(t *testing.T) {
	ts := time.UnixMilli(1700000000000)
	m := Message{Role: RoleAssistant, Content: "a", Timestamp: ts}
	if got := AudioKey(3, m); got != "msg_3_1700000000000" {
		t.Errorf("AudioKey = %q", got)
	}
}

func TestLanguageValid(t *testing.T) {
	for _, l := range SupportedLanguages() {
		if !l.Valid() {
			t.Errorf("%q should be valid", l)
		}
	}
	if Language("de").Valid() {
		t.Error("de should not be valid")
	}
}
