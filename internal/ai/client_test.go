package ai

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/rmehran/campuschat/internal/i18n"
	"github.com/rmehran/campuschat/internal/model"
)

func langCtx(t *testing.T, lang model.Language) context.Context {
	t.Helper()
	if err := i18n.Init("en"); err != nil {
		t.Fatalf("i18n.Init: %v", err)
	}
	return i18n.WithLocalizer(context.Background(), i18n.NewLocalizer(string(lang)))
}

func testDoc(all bool) *model.Document {
	docs := []model.DocumentDescriptor{
		{ModuleName: "CS101", Programme: "Computing", FileName: "lecture_notes.pdf",
			CourseworkType: "Lecture Notes", DisplayName: "Lecture Notes"},
		{ModuleName: "CS101", Programme: "Computing", FileName: "coursework1_brief.pdf",
			CourseworkType: "Coursework 1", DisplayName: "Coursework1 Brief"},
	}
	if !all {
		docs = docs[:1]
	}
	return &model.Document{
		Text: "The module covers sorting algorithms and complexity analysis.",
		Selection: model.ModuleSelection{
			ModuleName: "CS101",
			Programme:  "Computing",
			AllFiles:   all,
			Documents:  docs,
		},
	}
}

// An unconfigured client must return the translated "not configured"
// message without attempting a network call, in every language.
func TestAnswerUnconfigured(t *testing.T) {
	c := New("", "", "gpt-3.5-turbo", 1500, 0.3)
	if c.Available() {
		t.Fatal("client with empty key should not be available")
	}

	for _, lang := range model.SupportedLanguages() {
		ctx := langCtx(t, lang)
		got := c.AnswerCoursework(ctx, "What is sorting?", testDoc(false), lang)
		if got == "" {
			t.Errorf("lang %s: empty answer", lang)
		}
		want := i18n.T(ctx, "ApiKeyMissing")
		if got != want {
			t.Errorf("lang %s: got %q, want %q", lang, got, want)
		}

		got = c.AnswerEthics(ctx, "What is virtue?", "doc text", "A1", "Computing", lang)
		if got != want {
			t.Errorf("lang %s ethics: got %q, want %q", lang, got, want)
		}
	}
}

func TestAnswerPreconditionOrder(t *testing.T) {
	ctx := langCtx(t, model.LangEnglish)
	c := New("test-key", "", "gpt-3.5-turbo", 1500, 0.3)

	got := c.AnswerCoursework(ctx, "question", &model.Document{}, model.LangEnglish)
	if got != i18n.T(ctx, "NoDocsError") {
		t.Errorf("empty document: got %q", got)
	}

	got = c.AnswerCoursework(ctx, "   ", testDoc(false), model.LangEnglish)
	if got != i18n.T(ctx, "EnterQuestion") {
		t.Errorf("blank question: got %q", got)
	}

	got = c.AnswerEthics(ctx, "\t\n", "doc text", "A1", "Computing", model.LangEnglish)
	if got != i18n.T(ctx, "EnterEthicsQuestion") {
		t.Errorf("blank ethics question: got %q", got)
	}
}

// The completion request must carry the configured sampling parameters;
// the defaults pin a low fixed temperature and a bounded answer length.
func TestChatRequestParameters(t *testing.T) {
	c := New("test-key", "", "gpt-4o-mini", DefaultMaxTokens, DefaultTemperature)

	req := c.newChatRequest("system text", "user question")
	if req.Model != "gpt-4o-mini" {
		t.Errorf("Model = %q", req.Model)
	}
	if req.Temperature != 0.3 {
		t.Errorf("Temperature = %v, want 0.3", req.Temperature)
	}
	if req.MaxTokens != 1500 {
		t.Errorf("MaxTokens = %d, want 1500", req.MaxTokens)
	}
	if len(req.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(req.Messages))
	}
	if req.Messages[0].Role != "system" || req.Messages[0].Content != "system text" {
		t.Errorf("system message = %+v", req.Messages[0])
	}
	if req.Messages[1].Role != "user" || req.Messages[1].Content != "user question" {
		t.Errorf("user message = %+v", req.Messages[1])
	}
}

// With the "all materials" aggregate, every constituent's display name
// must appear in the system prompt as a citation-eligible source.
func TestCourseworkPromptListsAllSources(t *testing.T) {
	prompt := buildCourseworkSystemPrompt(testDoc(true), model.LangEnglish)

	for _, name := range []string{"Lecture Notes", "Coursework1 Brief"} {
		if !strings.Contains(prompt, name) {
			t.Errorf("prompt missing source %q", name)
		}
	}
	if !strings.Contains(prompt, "**[Source: Document Name]**") {
		t.Error("prompt missing citation instruction for multi-document load")
	}
	if !strings.Contains(prompt, "Multiple documents loaded for CS101") {
		t.Error("prompt missing multi-document listing header")
	}
}

func TestCourseworkPromptSingleSource(t *testing.T) {
	prompt := buildCourseworkSystemPrompt(testDoc(false), model.LangEnglish)

	if !strings.Contains(prompt, "Document: Lecture Notes (Lecture Notes) - File: lecture_notes.pdf") {
		t.Errorf("prompt missing single-document line:\n%s", prompt)
	}
	if strings.Contains(prompt, "**[Source: Document Name]**") {
		t.Error("single-document prompt should not carry the citation instruction")
	}
	if !strings.Contains(prompt, "don't do the work for the student") {
		t.Error("prompt missing the academic-integrity directive")
	}
}

func TestCourseworkPromptTruncatesContent(t *testing.T) {
	doc := testDoc(false)
	doc.Text = strings.Repeat("a", MaxContentLength+500)
	prompt := buildCourseworkSystemPrompt(doc, model.LangEnglish)
	if strings.Contains(prompt, strings.Repeat("a", MaxContentLength+1)) {
		t.Error("document text should be truncated to MaxContentLength")
	}
}

// Truncation must not split a multi-byte rune; the cut backs off to the
// preceding rune boundary so the prompt stays valid UTF-8.
func TestTruncateContentRuneBoundary(t *testing.T) {
	// Leading ASCII byte puts the byte limit in the middle of a 2-byte rune.
	text := "a" + strings.Repeat("é", MaxContentLength)

	got := truncateContent(text)
	if len(got) > MaxContentLength {
		t.Errorf("len = %d, want <= %d", len(got), MaxContentLength)
	}
	if !utf8.ValidString(got) {
		t.Error("truncated text is not valid UTF-8")
	}
	if len(got) != MaxContentLength-1 {
		t.Errorf("len = %d, want %d (last 2-byte rune dropped)", len(got), MaxContentLength-1)
	}

	short := "short text"
	if truncateContent(short) != short {
		t.Error("text under the limit should be unchanged")
	}

	doc := testDoc(false)
	doc.Text = text
	prompt := buildCourseworkSystemPrompt(doc, model.LangEnglish)
	if !utf8.ValidString(prompt) {
		t.Error("coursework prompt contains invalid UTF-8 after truncation")
	}
}

func TestEthicsPromptContext(t *testing.T) {
	prompt := buildEthicsSystemPrompt("ethics text", "A00034131", "Computing", model.LangEnglish)

	if !strings.Contains(prompt, "Student ID: A00034131") {
		t.Error("prompt missing student ID")
	}
	if !strings.Contains(prompt, "Programme: Computing") {
		t.Error("prompt missing programme")
	}
	if !strings.Contains(prompt, "Reforming Modernity") {
		t.Error("prompt missing document framing")
	}
	if strings.Contains(prompt, "**[Source:") {
		t.Error("ethics prompt should not carry multi-source citation logic")
	}

	prompt = buildEthicsSystemPrompt("text", "", "", model.LangEnglish)
	if !strings.Contains(prompt, "Student ID: Unknown") {
		t.Error("missing student info should default to Unknown")
	}
}

func TestLanguageDirectives(t *testing.T) {
	tests := []struct {
		lang model.Language
		want string
	}{
		{model.LangEnglish, "Respond in English."},
		{model.LangArabic, "right to left"},
		{model.LangFrench, `"vous" form`},
		{model.LangSpanish, `"usted" form`},
	}
	for _, tt := range tests {
		got := languageDirective(tt.lang)
		if !strings.Contains(got, tt.want) {
			t.Errorf("languageDirective(%s) missing %q", tt.lang, tt.want)
		}
	}

	prompt := buildCourseworkSystemPrompt(testDoc(false), model.LangArabic)
	if !strings.Contains(prompt, "RESPOND ENTIRELY IN ARABIC") {
		t.Error("Arabic prompt missing language block")
	}
}

func TestLocalizedQuestion(t *testing.T) {
	if got := localizedQuestion("Why?", model.LangEnglish); got != "Why?" {
		t.Errorf("English question should be unchanged, got %q", got)
	}
	got := localizedQuestion("Why?", model.LangFrench)
	if got != "Please respond in French. Why?" {
		t.Errorf("localizedQuestion(fr) = %q", got)
	}
}
