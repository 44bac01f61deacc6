// Package views holds the templ templates for every screen. Run
// `templ generate` after editing the .templ files.
package views

import (
	"fmt"

	"github.com/rmehran/campuschat/internal/model"
	"github.com/rmehran/campuschat/internal/roster"
)

// AdminStats feeds the diagnostics page.
type AdminStats struct {
	Roster           roster.Stats
	ActiveSessions   int
	ArchivedMessages int
	ArchivedSessions int
	AIOK             bool
	SpeechOK         bool
}

// dir returns the HTML text direction attribute for a language.
func dir(lang model.Language) string {
	if lang == model.LangArabic {
		return "rtl"
	}
	return "ltr"
}

// progress returns the "step n of 5" position for the header.
func progress(step model.Step) int {
	switch step {
	case model.StepStudentID:
		return 2
	case model.StepCode:
		return 3
	case model.StepModule:
		return 4
	case model.StepCoursework, model.StepChat, model.StepEthicsChat:
		return 5
	default:
		return 1
	}
}

func itoa(n int) string {
	return fmt.Sprintf("%d", n)
}
