package speech

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCleanForTTSStripsMarkdown(t *testing.T) {
	got := CleanForTTS("**Bold** _text_ #Heading")
	for _, ch := range []string{"*", "_", "#"} {
		if strings.Contains(got, ch) {
			t.Errorf("cleaned text still contains %q: %q", ch, got)
		}
	}
	if !strings.Contains(got, "Bold") || !strings.Contains(got, "text") {
		t.Errorf("cleaned text lost content: %q", got)
	}
}

func TestCleanForTTS(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bold", "This is **important** news", "This is important news."},
		{"italic", "Read *carefully* here", "Read carefully here."},
		{"heading", "## Summary\nAll done", "Summary. All done."},
		{"inline code", "Run `go help` first", "Run go help first."},
		{"link keeps text", "See [the guide](https://example.com) now", "See the guide now."},
		{"newlines become pauses", "First line\n\nSecond line", "First line. Second line."},
		{"whitespace collapsed", "too   many    spaces", "too many spaces."},
		{"keeps question mark", "Are you sure?", "Are you sure?"},
		{"keeps exclamation", "Well done!", "Well done!"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanForTTS(tt.in); got != tt.want {
				t.Errorf("CleanForTTS(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCleanForTTSCodeFence(t *testing.T) {
	got := CleanForTTS("Before\n```\ncode here\n```\nAfter")
	if strings.Contains(got, "code here") {
		t.Errorf("fenced code should be dropped, got %q", got)
	}
	if !strings.Contains(got, "Before") || !strings.Contains(got, "After") {
		t.Errorf("surrounding text lost: %q", got)
	}
}

func TestPlayerHTMLRoundTrip(t *testing.T) {
	audio := []byte{0xFF, 0xF3, 0x01, 0x02, 0x03, 0x00, 0xAB}
	html := PlayerHTML(audio)

	const prefix = "data:audio/mp3;base64,"
	start := strings.Index(html, prefix)
	if start < 0 {
		t.Fatalf("player HTML missing data URI: %q", html)
	}
	rest := html[start+len(prefix):]
	end := strings.IndexByte(rest, '"')
	if end < 0 {
		t.Fatalf("unterminated src attribute: %q", html)
	}

	decoded, err := base64.StdEncoding.DecodeString(rest[:end])
	if err != nil {
		t.Fatalf("decoding embedded audio: %v", err)
	}
	if string(decoded) != string(audio) {
		t.Errorf("decoded audio differs: got %v, want %v", decoded, audio)
	}
}

func TestPlayerHTMLEmpty(t *testing.T) {
	if got := PlayerHTML(nil); got != "" {
		t.Errorf("PlayerHTML(nil) = %q, want empty", got)
	}
}

func TestSynthesizeUnconfigured(t *testing.T) {
	c := New("", "", "tts-1", "alloy")
	if c.Available() {
		t.Fatal("client without API key reports available")
	}
	audio, ok := c.Synthesize(context.Background(), "Hello there", "alloy")
	if ok || audio != nil {
		t.Errorf("unconfigured Synthesize = (%v, %v), want (nil, false)", audio, ok)
	}
}

// A configured base URL must redirect synthesis calls away from the
// default endpoint, matching the text-completion client.
func TestSynthesizeUsesBaseURL(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte("mp3 bytes"))
	}))
	defer srv.Close()

	c := New("test-key", srv.URL+"/v1", "tts-1", "alloy")
	if !c.Available() {
		t.Fatal("configured client reports unavailable")
	}
	audio, ok := c.Synthesize(context.Background(), "Hello there", "alloy")
	if !ok {
		t.Fatal("Synthesize against local endpoint failed")
	}
	if string(audio) != "mp3 bytes" {
		t.Errorf("audio = %q", audio)
	}
	if gotPath != "/v1/audio/speech" {
		t.Errorf("request path = %q, want /v1/audio/speech", gotPath)
	}
}

func TestVoices(t *testing.T) {
	for _, v := range Voices() {
		if !ValidVoice(v) {
			t.Errorf("listed voice %q not valid", v)
		}
		if VoiceLabel(v) == v {
			t.Errorf("voice %q has no label", v)
		}
	}
	if ValidVoice("robot") {
		t.Error("unknown voice accepted")
	}
}
