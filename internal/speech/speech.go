// Package speech wraps the hosted text-to-speech API. Synthesis
// failures are soft: the caller gets (nil, false) and shows no audio,
// never an error screen.
package speech

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Voice labels, keyed by the API voice name.
var voiceLabels = map[string]string{
	"alloy":   "Alloy (Neutral)",
	"echo":    "Echo (Male)",
	"fable":   "Fable (British Male)",
	"onyx":    "Onyx (Deep Male)",
	"nova":    "Nova (Female)",
	"shimmer": "Shimmer (Soft Female)",
}

// Voices lists the selectable voice names in display order.
func Voices() []string {
	return []string{"alloy", "echo", "fable", "onyx", "nova", "shimmer"}
}

// VoiceLabel returns the display label for a voice name.
func VoiceLabel(voice string) string {
	if l, ok := voiceLabels[voice]; ok {
		return l
	}
	return voice
}

// ValidVoice reports whether voice is one of the supported names.
func ValidVoice(voice string) bool {
	_, ok := voiceLabels[voice]
	return ok
}

var (
	boldRe    = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicRe  = regexp.MustCompile(`\*(.*?)\*`)
	underRe   = regexp.MustCompile(`_(.*?)_`)
	headingRe = regexp.MustCompile(`#+\s*`)
	fenceRe   = regexp.MustCompile("(?s)```.*?```")
	codeRe    = regexp.MustCompile("`([^`]+)`")
	linkRe    = regexp.MustCompile(`\[([^\]]+)\]\([^\)]+\)`)
	emojiRe   = regexp.MustCompile(`[🔑📄📚⚠️❌✅🤖🙋📊💾⏱️🔧🗑️🔄🔍🚨📝🎓📋🆔🔐]`)
	breaksRe  = regexp.MustCompile(`\n+`)
	spacesRe  = regexp.MustCompile(`\s+`)
)

// Client wraps the text-to-speech API.
type Client struct {
	api          *openai.Client
	model        string
	defaultVoice string
}

// New creates a speech client. An empty API key leaves it unavailable;
// the app then simply renders no audio. A non-empty baseURL overrides
// the default API endpoint.
func New(apiKey, baseURL, modelName, defaultVoice string) *Client {
	c := &Client{model: modelName, defaultVoice: defaultVoice}
	if apiKey == "" {
		slog.Warn("speech client not configured: API key missing")
		return c
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	c.api = openai.NewClientWithConfig(config)
	return c
}

// Available reports whether synthesis can be attempted.
func (c *Client) Available() bool {
	return c != nil && c.api != nil
}

// Synthesize converts text to MP3 audio. The text is cleaned of markup
// before dispatch. Returns (nil, false) when the client is unavailable,
// the text is empty, or the remote call fails.
func (c *Client) Synthesize(ctx context.Context, text, voice string) ([]byte, bool) {
	if !c.Available() {
		return nil, false
	}
	clean := CleanForTTS(text)
	if clean == "" {
		return nil, false
	}
	if !ValidVoice(voice) {
		voice = c.defaultVoice
	}

	resp, err := c.api.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(c.model),
		Input:          clean,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		slog.Error("speech synthesis failed", "voice", voice, "error", err)
		return nil, false
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		slog.Error("reading synthesized audio failed", "error", err)
		return nil, false
	}
	return audio, true
}

// CleanForTTS strips markdown markup and emoji so the narration does
// not read formatting characters aloud, collapses line breaks into
// sentence pauses, and ensures a closing punctuation mark.
func CleanForTTS(text string) string {
	if text == "" {
		return ""
	}

	text = fenceRe.ReplaceAllString(text, "")
	text = codeRe.ReplaceAllString(text, "$1")
	text = boldRe.ReplaceAllString(text, "$1")
	text = italicRe.ReplaceAllString(text, "$1")
	text = underRe.ReplaceAllString(text, "$1")
	text = headingRe.ReplaceAllString(text, "")
	text = linkRe.ReplaceAllString(text, "$1")
	text = emojiRe.ReplaceAllString(text, "")

	text = breaksRe.ReplaceAllString(text, ". ")
	text = spacesRe.ReplaceAllString(text, " ")

	text = strings.TrimSpace(text)
	if text != "" && !strings.HasSuffix(text, ".") &&
		!strings.HasSuffix(text, "!") && !strings.HasSuffix(text, "?") {
		text += "."
	}
	return text
}

// PlayerHTML renders an inline audio element with the bytes embedded
// as a base64 data URI, so cached audio replays without another
// request.
func PlayerHTML(audio []byte) string {
	if len(audio) == 0 {
		return ""
	}
	encoded := base64.StdEncoding.EncodeToString(audio)
	return fmt.Sprintf(
		`<audio controls class="audio-player"><source src="data:audio/mp3;base64,%s" type="audio/mpeg">Your browser does not support audio playback.</audio>`,
		encoded)
}
