package i18n

import (
	"context"
	"encoding/json"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	loc := NewLocalizer(lang)
	return WithLocalizer(context.Background(), loc)
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "AppTitle")
	if got != "University of Roehampton Assistant" {
		t.Errorf("T(AppTitle) = %q", got)
	}

	got = T(ctx, "Verify")
	if got != "Verify" {
		t.Errorf("T(Verify) = %q", got)
	}
}

func TestTranslateArabic(t *testing.T) {
	ctx := initLang(t, "ar")

	got := T(ctx, "WelcomeMessage")
	if got != "كيف يمكنني مساعدتك اليوم؟" {
		t.Errorf("T(WelcomeMessage) = %q", got)
	}
}

func TestTemplateData(t *testing.T) {
	ctx := initLang(t, "en")

	got := Td(ctx, "StudentNotFound", map[string]any{"StudentID": "A00034131"})
	if got != "Student ID 'A00034131' not found in database" {
		t.Errorf("Td(StudentNotFound) = %q", got)
	}
}

// Every key present in the English table must resolve to a non-empty
// string in every supported language, via the English fallback when the
// key is absent from that language's file.
func TestLocaleCompleteness(t *testing.T) {
	data, err := localeFS.ReadFile("locales/en.json")
	if err != nil {
		t.Fatalf("read en.json: %v", err)
	}
	var keys map[string]string
	if err := json.Unmarshal(data, &keys); err != nil {
		t.Fatalf("parse en.json: %v", err)
	}
	if len(keys) == 0 {
		t.Fatal("en.json has no keys")
	}

	for _, lang := range []string{"en", "ar", "fr", "es"} {
		ctx := initLang(t, lang)
		for key := range keys {
			got := Td(ctx, key, map[string]any{
				"StudentID": "X", "Module": "M", "Error": "E",
				"Files": "F", "Count": 1, "Step": 1, "Total": 5,
			})
			if got == "" {
				t.Errorf("lang %s: key %s resolved to empty string", lang, key)
			}
		}
	}
}

// PoweredBy exists only in en.json; non-English localizers must fall
// back to the English string rather than echoing the key.
func TestEnglishFallback(t *testing.T) {
	for _, lang := range []string{"ar", "fr", "es"} {
		ctx := initLang(t, lang)
		got := T(ctx, "PoweredBy")
		if got != "Powered by AI" {
			t.Errorf("lang %s: T(PoweredBy) = %q, want English fallback", lang, got)
		}
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "NonExistentKey")
	if got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want the key itself", got)
	}
}

func TestIsRTL(t *testing.T) {
	if !IsRTL("ar") {
		t.Error("ar should be RTL")
	}
	for _, lang := range []string{"en", "fr", "es"} {
		if IsRTL(lang) {
			t.Errorf("%s should not be RTL", lang)
		}
	}
}
