package flow

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/rmehran/campuschat/internal/ai"
	"github.com/rmehran/campuschat/internal/archive"
	"github.com/rmehran/campuschat/internal/document"
	"github.com/rmehran/campuschat/internal/i18n"
	"github.com/rmehran/campuschat/internal/model"
	"github.com/rmehran/campuschat/internal/roster"
	"github.com/rmehran/campuschat/internal/speech"
)

const fixtureDocXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Data mining finds patterns in large datasets.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Clustering groups similar records together.</w:t></w:r></w:p>
  </w:body>
</w:document>`

func writeDocx(t *testing.T, dir, name string) {
	t.Helper()
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("creating %s: %v", name, err)
	}
	defer f.Close()
	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("zip entry: %v", err)
	}
	if _, err := w.Write([]byte(fixtureDocXML)); err != nil {
		t.Fatalf("writing zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}
}

func writeRoster(t *testing.T, path string, rows [][]any) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	header := []any{"Student ID", "Code", "Programme", "Module", "PDF File"}
	all := append([][]any{header}, rows...)
	for i, row := range all {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("setting row: %v", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("saving roster: %v", err)
	}
}

type fixture struct {
	ctrl *Controller
	arch *archive.Archive
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	dir := t.TempDir()

	writeDocx(t, dir, "DataMining_Coursework1.docx")
	writeDocx(t, dir, "DataMining_Lecture_Notes.docx")
	writeDocx(t, dir, "ethics_guidance.docx")

	rosterPath := filepath.Join(dir, "roster.xlsx")
	writeRoster(t, rosterPath, [][]any{
		{"A123", 4321, "MSc Artificial Intelligence", "Data Mining", "DataMining_Coursework1.docx"},
		{"A123", 4321, "MSc Artificial Intelligence", "Data Mining", "DataMining_Lecture_Notes.docx"},
		{"A123", 4321, "MSc Artificial Intelligence", "Machine Learning", "missing_file.docx"},
	})

	if cfg.EthicsDoc == "" {
		cfg.EthicsDoc = "ethics_guidance.docx"
	}

	arch, err := archive.New(filepath.Join(dir, "archive.db"))
	if err != nil {
		t.Fatalf("opening archive: %v", err)
	}
	t.Cleanup(func() { arch.Close() })

	ctrl := New(
		roster.New(rosterPath),
		document.NewLoader(dir),
		ai.New("", "", "gpt-4o-mini", ai.DefaultMaxTokens, ai.DefaultTemperature),
		speech.New("", "", "tts-1", "alloy"),
		arch,
		cfg,
	)
	return &fixture{ctrl: ctrl, arch: arch}
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	if err := i18n.Init("en"); err != nil {
		t.Fatalf("i18n init: %v", err)
	}
	return i18n.WithLocalizer(context.Background(), i18n.NewLocalizer("en"))
}

// Walks a session to the module screen with valid credentials.
func authenticate(t *testing.T, ctx context.Context, c *Controller, sess *model.Session) {
	t.Helper()
	c.ChoosePath(ctx, sess, model.PathCoursework)
	c.SubmitStudentID(ctx, sess, "a123")
	c.SubmitCode(ctx, sess, "4321")
	if sess.Step != model.StepModule {
		t.Fatalf("authentication did not reach module screen, step = %v (error %q)",
			sess.Step, sess.ErrorMessage)
	}
}

func TestChoosePath(t *testing.T) {
	ctx := testCtx(t)
	fx := newFixture(t, Config{EthicsRequiresAuth: true})
	sess := model.NewSession()

	fx.ctrl.ChoosePath(ctx, sess, model.PathCoursework)
	if sess.Step != model.StepStudentID {
		t.Errorf("coursework path step = %v, want student_id", sess.Step)
	}

	sess = model.NewSession()
	fx.ctrl.ChoosePath(ctx, sess, model.PathEthics)
	if sess.Step != model.StepStudentID {
		t.Errorf("gated ethics path step = %v, want student_id", sess.Step)
	}

	sess = model.NewSession()
	fx.ctrl.ChoosePath(ctx, sess, model.Path("unknown"))
	if sess.Step != model.StepWelcome {
		t.Errorf("unknown path moved the session to %v", sess.Step)
	}
}

func TestOpenEthicsPath(t *testing.T) {
	ctx := testCtx(t)
	fx := newFixture(t, Config{EthicsRequiresAuth: false})
	sess := model.NewSession()

	fx.ctrl.ChoosePath(ctx, sess, model.PathEthics)
	if sess.Step != model.StepEthicsChat {
		t.Errorf("open ethics path step = %v, want ethics_chat", sess.Step)
	}
}

func TestSubmitStudentID(t *testing.T) {
	ctx := testCtx(t)
	fx := newFixture(t, Config{EthicsRequiresAuth: true})
	sess := model.NewSession()
	fx.ctrl.ChoosePath(ctx, sess, model.PathCoursework)

	fx.ctrl.SubmitStudentID(ctx, sess, "   ")
	if sess.Step != model.StepStudentID {
		t.Errorf("blank ID advanced to %v", sess.Step)
	}
	if sess.ErrorMessage == "" || sess.RetryCount != 1 {
		t.Errorf("blank ID: error %q, retries %d", sess.ErrorMessage, sess.RetryCount)
	}

	fx.ctrl.SubmitStudentID(ctx, sess, "  a123  ")
	if sess.StudentID != "A123" {
		t.Errorf("StudentID = %q, want normalized A123", sess.StudentID)
	}
	if sess.Step != model.StepCode {
		t.Errorf("valid ID step = %v, want code", sess.Step)
	}
	if sess.ErrorMessage != "" || sess.RetryCount != 0 {
		t.Errorf("error state not cleared: %q, retries %d", sess.ErrorMessage, sess.RetryCount)
	}
}

func TestSubmitCode(t *testing.T) {
	ctx := testCtx(t)
	fx := newFixture(t, Config{EthicsRequiresAuth: true})

	tests := []struct {
		name     string
		code     string
		wantStep model.Step
		wantErr  bool
	}{
		{"non-numeric stays put", "12AB", model.StepCode, true},
		{"wrong code stays put", "9999", model.StepCode, true},
		{"empty stays put", "", model.StepCode, true},
		{"correct code advances", "4321", model.StepModule, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := model.NewSession()
			fx.ctrl.ChoosePath(ctx, sess, model.PathCoursework)
			fx.ctrl.SubmitStudentID(ctx, sess, "A123")

			fx.ctrl.SubmitCode(ctx, sess, tt.code)
			if sess.Step != tt.wantStep {
				t.Errorf("step = %v, want %v", sess.Step, tt.wantStep)
			}
			if tt.wantErr {
				if sess.ErrorMessage == "" {
					t.Error("expected an error message")
				}
				if sess.RetryCount != 1 {
					t.Errorf("retries = %d, want 1", sess.RetryCount)
				}
				if sess.Student != nil {
					t.Error("failed check attached a student record")
				}
			} else {
				if sess.Student == nil || sess.Student.StudentID != "A123" {
					t.Errorf("student record not attached: %+v", sess.Student)
				}
			}
		})
	}
}

func TestEthicsPathAfterAuth(t *testing.T) {
	ctx := testCtx(t)
	fx := newFixture(t, Config{EthicsRequiresAuth: true})
	sess := model.NewSession()

	fx.ctrl.ChoosePath(ctx, sess, model.PathEthics)
	fx.ctrl.SubmitStudentID(ctx, sess, "A123")
	fx.ctrl.SubmitCode(ctx, sess, "4321")
	if sess.Step != model.StepEthicsChat {
		t.Errorf("ethics track after auth step = %v, want ethics_chat", sess.Step)
	}
}

func TestSelectModule(t *testing.T) {
	ctx := testCtx(t)
	fx := newFixture(t, Config{EthicsRequiresAuth: true})
	sess := model.NewSession()
	authenticate(t, ctx, fx.ctrl, sess)

	fx.ctrl.SelectModule(ctx, sess, "Data Mining", "")
	if sess.Step != model.StepCoursework {
		t.Fatalf("step = %v, want coursework", sess.Step)
	}
	if sess.Selection == nil || !sess.Selection.AllFiles || len(sess.Selection.Documents) != 2 {
		t.Errorf("unexpected selection: %+v", sess.Selection)
	}

	fx.ctrl.SelectModule(ctx, sess, "Data Mining", "DataMining_Coursework1.docx")
	if sess.Selection.AllFiles || len(sess.Selection.Documents) != 1 {
		t.Errorf("single-file selection wrong: %+v", sess.Selection)
	}

	before := sess.Step
	fx.ctrl.SelectModule(ctx, sess, "No Such Module", "")
	if sess.ErrorMessage == "" || sess.Step != before {
		t.Errorf("unknown module: error %q, step %v", sess.ErrorMessage, sess.Step)
	}
}

func TestSelectCourseworkLoadsDocument(t *testing.T) {
	ctx := testCtx(t)
	fx := newFixture(t, Config{EthicsRequiresAuth: true, WarnPartialLoad: true})
	sess := model.NewSession()
	authenticate(t, ctx, fx.ctrl, sess)
	fx.ctrl.SelectModule(ctx, sess, "Data Mining", "")

	fx.ctrl.SelectCoursework(ctx, sess, model.CourseworkConcepts)
	if sess.Step != model.StepChat {
		t.Fatalf("step = %v, want chat", sess.Step)
	}
	if sess.Coursework != model.CourseworkConcepts {
		t.Errorf("coursework = %v", sess.Coursework)
	}
	if sess.Document == nil {
		t.Fatal("document not loaded")
	}
	if len(sess.Document.Meta.Files) != 2 {
		t.Errorf("loaded %d files, want 2", len(sess.Document.Meta.Files))
	}
	if sess.ErrorMessage != "" {
		t.Errorf("unexpected warning: %q", sess.ErrorMessage)
	}
}

func TestSelectCourseworkPartialLoadWarning(t *testing.T) {
	ctx := testCtx(t)
	fx := newFixture(t, Config{EthicsRequiresAuth: true, WarnPartialLoad: true})
	sess := model.NewSession()
	authenticate(t, ctx, fx.ctrl, sess)

	// Machine Learning's only file does not exist on disk.
	fx.ctrl.SelectModule(ctx, sess, "Machine Learning", "")
	fx.ctrl.SelectCoursework(ctx, sess, model.CourseworkGeneral)

	if sess.Step != model.StepChat {
		t.Fatalf("step = %v, want chat", sess.Step)
	}
	if sess.Document != nil {
		t.Error("document set despite total load failure")
	}
	if sess.ErrorMessage == "" {
		t.Error("load failure produced no message")
	}
}

func TestAskRecordsTranscript(t *testing.T) {
	ctx := testCtx(t)
	fx := newFixture(t, Config{EthicsRequiresAuth: true})
	sess := model.NewSession()
	authenticate(t, ctx, fx.ctrl, sess)
	fx.ctrl.SelectModule(ctx, sess, "Data Mining", "")
	fx.ctrl.SelectCoursework(ctx, sess, model.CourseworkConcepts)

	fx.ctrl.Ask(ctx, sess, "tok-1", "What is clustering?")

	if len(sess.Transcript) != 2 {
		t.Fatalf("transcript length = %d, want 2", len(sess.Transcript))
	}
	if sess.Transcript[0].Role != model.RoleUser || sess.Transcript[0].Content != "What is clustering?" {
		t.Errorf("unexpected user message: %+v", sess.Transcript[0])
	}
	// No API key configured, so the answer is the translated notice.
	want := i18n.T(ctx, "ApiKeyMissing")
	if sess.Transcript[1].Role != model.RoleAssistant || sess.Transcript[1].Content != want {
		t.Errorf("assistant message = %+v, want %q", sess.Transcript[1], want)
	}

	count, err := fx.arch.Count()
	if err != nil {
		t.Fatalf("archive count: %v", err)
	}
	if count != 2 {
		t.Errorf("archived %d messages, want 2", count)
	}

	// Speech is unconfigured, so no audio was cached.
	if len(sess.AudioCache) != 0 {
		t.Errorf("audio cache has %d entries, want 0", len(sess.AudioCache))
	}
}

func TestAskIgnoresBlankAndWrongStep(t *testing.T) {
	ctx := testCtx(t)
	fx := newFixture(t, Config{EthicsRequiresAuth: true})
	sess := model.NewSession()

	fx.ctrl.Ask(ctx, sess, "tok-1", "question on the welcome screen")
	if len(sess.Transcript) != 0 {
		t.Errorf("welcome-screen question appended %d messages", len(sess.Transcript))
	}

	authenticate(t, ctx, fx.ctrl, sess)
	fx.ctrl.SelectModule(ctx, sess, "Data Mining", "")
	fx.ctrl.SelectCoursework(ctx, sess, model.CourseworkConcepts)

	fx.ctrl.Ask(ctx, sess, "tok-1", "   ")
	if len(sess.Transcript) != 0 {
		t.Errorf("blank question appended %d messages", len(sess.Transcript))
	}
}

func TestEthicsDocumentLoadedOnce(t *testing.T) {
	testCtx(t)
	fx := newFixture(t, Config{EthicsRequiresAuth: false})

	text := fx.ctrl.EthicsDocument()
	if text == "" {
		t.Fatal("ethics document empty")
	}
	if again := fx.ctrl.EthicsDocument(); again != text {
		t.Error("repeated load returned different text")
	}
}

func TestBack(t *testing.T) {
	ctx := testCtx(t)
	fx := newFixture(t, Config{EthicsRequiresAuth: true})
	sess := model.NewSession()
	authenticate(t, ctx, fx.ctrl, sess)
	fx.ctrl.SelectModule(ctx, sess, "Data Mining", "")
	fx.ctrl.SelectCoursework(ctx, sess, model.CourseworkConcepts)

	steps := []model.Step{
		model.StepCoursework, model.StepModule, model.StepCode,
		model.StepStudentID, model.StepWelcome,
	}
	for _, want := range steps {
		fx.ctrl.Back(sess)
		if sess.Step != want {
			t.Fatalf("Back landed on %v, want %v", sess.Step, want)
		}
	}
	fx.ctrl.Back(sess)
	if sess.Step != model.StepWelcome {
		t.Errorf("Back from welcome moved to %v", sess.Step)
	}
}

func TestBackFromEthicsChat(t *testing.T) {
	ctx := testCtx(t)

	fx := newFixture(t, Config{EthicsRequiresAuth: false})
	sess := model.NewSession()
	fx.ctrl.ChoosePath(ctx, sess, model.PathEthics)
	fx.ctrl.Back(sess)
	if sess.Step != model.StepWelcome {
		t.Errorf("open ethics Back landed on %v, want welcome", sess.Step)
	}

	fx = newFixture(t, Config{EthicsRequiresAuth: true})
	sess = model.NewSession()
	fx.ctrl.ChoosePath(ctx, sess, model.PathEthics)
	fx.ctrl.SubmitStudentID(ctx, sess, "A123")
	fx.ctrl.SubmitCode(ctx, sess, "4321")
	fx.ctrl.Back(sess)
	if sess.Step != model.StepCode {
		t.Errorf("authenticated ethics Back landed on %v, want code", sess.Step)
	}
}

func TestChangeModule(t *testing.T) {
	ctx := testCtx(t)
	fx := newFixture(t, Config{EthicsRequiresAuth: true})
	sess := model.NewSession()
	authenticate(t, ctx, fx.ctrl, sess)
	fx.ctrl.SelectModule(ctx, sess, "Data Mining", "")
	fx.ctrl.SelectCoursework(ctx, sess, model.CourseworkConcepts)
	fx.ctrl.Ask(ctx, sess, "tok-1", "What is clustering?")

	fx.ctrl.ChangeModule(sess)
	if sess.Step != model.StepModule {
		t.Errorf("step = %v, want module", sess.Step)
	}
	if sess.Selection != nil || sess.Document != nil || len(sess.Transcript) != 0 {
		t.Error("module change left stale state behind")
	}
	if sess.Student == nil {
		t.Error("module change dropped authentication")
	}
}

func TestPreferences(t *testing.T) {
	fx := newFixture(t, Config{EthicsRequiresAuth: true})
	sess := model.NewSession()

	fx.ctrl.SetLanguage(sess, model.LangArabic)
	if sess.Language != model.LangArabic {
		t.Errorf("language = %v", sess.Language)
	}
	fx.ctrl.SetLanguage(sess, model.Language("de"))
	if sess.Language != model.LangArabic {
		t.Error("unsupported language accepted")
	}

	fx.ctrl.SetVoice(sess, "nova")
	if sess.Voice != "nova" {
		t.Errorf("voice = %q", sess.Voice)
	}
	fx.ctrl.SetVoice(sess, "robot")
	if sess.Voice != "nova" {
		t.Error("unknown voice accepted")
	}

	fx.ctrl.ToggleAudio(sess)
	if sess.AudioEnabled {
		t.Error("audio still enabled after toggle")
	}
}
