// Package ai wraps the hosted chat-completion API. Every exported
// answer operation returns a display string: remote failures are
// converted to translated messages at this boundary and never cross it
// as errors.
package ai

import (
	"context"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/rmehran/campuschat/internal/i18n"
	"github.com/rmehran/campuschat/internal/model"
)

// MaxContentLength bounds the document text embedded in a prompt.
const MaxContentLength = 15000

// Answers stay close to the document text, so sampling runs at a low
// fixed temperature with a bounded completion length.
const (
	DefaultTemperature float32 = 0.3
	DefaultMaxTokens           = 1500
)

// Client wraps an OpenAI-compatible chat-completion API.
type Client struct {
	api         *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// New creates a completion client. An empty API key leaves the client
// unconfigured: Available reports false and answers degrade to a
// translated "not configured" message instead of failing the app.
func New(apiKey, baseURL, modelName string, maxTokens int, temperature float32) *Client {
	c := &Client{
		model:       modelName,
		maxTokens:   maxTokens,
		temperature: temperature,
	}
	if apiKey == "" {
		slog.Warn("AI client not configured: API key missing")
		return c
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	c.api = openai.NewClientWithConfig(config)
	return c
}

// Available reports whether the client can reach the API.
func (c *Client) Available() bool {
	return c != nil && c.api != nil
}

// AnswerCoursework answers a question about the loaded coursework
// document(s) in the session language.
func (c *Client) AnswerCoursework(ctx context.Context, question string, doc *model.Document, lang model.Language) string {
	if !c.Available() {
		return i18n.T(ctx, "ApiKeyMissing")
	}
	if doc == nil || strings.TrimSpace(doc.Text) == "" {
		return i18n.T(ctx, "NoDocsError")
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return i18n.T(ctx, "EnterQuestion")
	}

	system := buildCourseworkSystemPrompt(doc, lang)
	return c.complete(ctx, system, localizedQuestion(question, lang))
}

// AnswerEthics answers an ethics question grounded in the fixed ethics
// document, with the student's ID and programme as context.
func (c *Client) AnswerEthics(ctx context.Context, question, docText, studentID, programme string, lang model.Language) string {
	if !c.Available() {
		return i18n.T(ctx, "ApiKeyMissing")
	}
	if strings.TrimSpace(docText) == "" {
		return i18n.T(ctx, "NoDocsError")
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return i18n.T(ctx, "EnterEthicsQuestion")
	}

	system := buildEthicsSystemPrompt(docText, studentID, programme, lang)
	return c.complete(ctx, system, localizedQuestion(question, lang))
}

// newChatRequest builds the two-message exchange sent per question.
func (c *Client) newChatRequest(system, question string) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: question},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}
}

func (c *Client) complete(ctx context.Context, system, question string) string {
	resp, err := c.api.CreateChatCompletion(ctx, c.newChatRequest(system, question))
	if err != nil {
		slog.Error("completion call failed", "error", err)
		return i18n.Td(ctx, "ResponseError", map[string]any{"Error": err.Error()})
	}
	if len(resp.Choices) == 0 {
		return i18n.T(ctx, "NoResponseGenerated")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content)
}

// localizedQuestion prefixes a response-language instruction for
// non-English sessions.
func localizedQuestion(question string, lang model.Language) string {
	if lang == model.LangEnglish || lang == "" {
		return question
	}
	return "Please respond in " + lang.Name() + ". " + question
}
