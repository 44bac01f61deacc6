// Package config collects the runtime settings and classifies what is
// missing: some problems only degrade a feature, others send every
// visitor to the setup screen.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config is the resolved runtime configuration.
type Config struct {
	Addr       string
	DataDir    string
	RosterFile string
	EthicsDoc  string

	OpenAIKey     string
	OpenAIBaseURL string
	Model         string
	MaxTokens     int
	Temperature   float32

	TTSModel string
	TTSVoice string

	DefaultLang        string
	EthicsRequiresAuth bool
	WarnPartialLoad    bool
	SecureCookies      bool

	ArchiveDB     string
	AdminPassword string
}

// FromViper reads the configuration off a bound viper instance.
func FromViper(v *viper.Viper) Config {
	return Config{
		Addr:       v.GetString("addr"),
		DataDir:    v.GetString("data-dir"),
		RosterFile: v.GetString("roster"),
		EthicsDoc:  v.GetString("ethics-doc"),

		OpenAIKey:     v.GetString("openai-key"),
		OpenAIBaseURL: v.GetString("openai-url"),
		Model:         v.GetString("model"),
		MaxTokens:     v.GetInt("max-tokens"),
		Temperature:   float32(v.GetFloat64("temperature")),

		TTSModel: v.GetString("tts-model"),
		TTSVoice: v.GetString("tts-voice"),

		DefaultLang:        v.GetString("lang"),
		EthicsRequiresAuth: v.GetBool("ethics-requires-auth"),
		WarnPartialLoad:    v.GetBool("warn-partial-load"),
		SecureCookies:      v.GetBool("secure-cookies"),

		ArchiveDB:     v.GetString("archive-db"),
		AdminPassword: v.GetString("admin-password"),
	}
}

// Validate separates hard problems from degradations. Problems put the
// app into setup mode; warnings only disable a feature.
func (c Config) Validate() (problems, warnings []string) {
	if c.DataDir == "" {
		problems = append(problems, "data directory is not set")
	} else if fi, err := os.Stat(c.DataDir); err != nil || !fi.IsDir() {
		problems = append(problems, fmt.Sprintf("data directory %s is not accessible", c.DataDir))
	}

	if c.RosterFile == "" {
		problems = append(problems, "roster workbook path is not set")
	} else if _, err := os.Stat(c.RosterFile); err != nil {
		problems = append(problems, fmt.Sprintf("roster workbook %s is not accessible", c.RosterFile))
	}

	if c.OpenAIKey == "" {
		warnings = append(warnings, "OpenAI API key is not set: answers and narration are disabled")
	}
	if c.EthicsDoc == "" {
		warnings = append(warnings, "ethics document is not set: the ethics advisor answers without guidance material")
	}
	if c.AdminPassword == "" {
		warnings = append(warnings, "admin password is not set: the diagnostics page is disabled")
	}

	return problems, warnings
}
