// Package config resolves, parses, validates, and defaults paintbid configuration.
package config

import "time"

// Config is the fully materialized runtime configuration used by paintbid.
type Config struct {
	// UserID is the contractor account all CLI bid operations act as.
	UserID string `toml:"user_id"`

	API      APIConfig      `toml:"api"`
	AI       AIConfig       `toml:"ai"`
	Audio    AudioConfig    `toml:"audio"`
	Capture  CaptureConfig  `toml:"capture"`
	Estimate EstimateConfig `toml:"estimate"`
	Store    StoreConfig    `toml:"store"`
	Speech   SpeechConfig   `toml:"speech"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Bind string `toml:"bind"`
}

// AIConfig controls the inference and speech endpoints.
type AIConfig struct {
	TimeoutMS  int            `toml:"timeout_ms"`
	MaxRetries int            `toml:"max_retries"`
	Chat       ChatAIConfig   `toml:"chat"`
	Speech     SpeechAIConfig `toml:"speech"`
}

// ChatAIConfig selects the OpenAI-compatible chat completion endpoint.
type ChatAIConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKeyEnv string `toml:"api_key_env"`
	Model     string `toml:"model"`
}

// SpeechAIConfig selects the TTS and transcription endpoint.
type SpeechAIConfig struct {
	BaseURL         string `toml:"base_url"`
	APIKeyEnv       string `toml:"api_key_env"`
	TTSModel        string `toml:"tts_model"`
	TTSVoice        string `toml:"tts_voice"`
	TranscribeModel string `toml:"transcribe_model"`
}

// Timeout returns the per-request AI timeout.
func (c AIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input    string `toml:"input"`
	Fallback string `toml:"fallback"`
}

// CaptureConfig controls the external video capture command.
type CaptureConfig struct {
	Command       string `toml:"command"`
	OutputDir     string `toml:"output_dir"`
	MaxDurationMS int    `toml:"max_duration_ms"`
	JoinTimeoutMS int    `toml:"join_timeout_ms"`

	// Argv is the parsed form of Command; populated during load.
	Argv []string `toml:"-"`
}

// MaxDuration returns the recording ceiling for one session.
func (c CaptureConfig) MaxDuration() time.Duration {
	return time.Duration(c.MaxDurationMS) * time.Millisecond
}

// JoinTimeout bounds the wait for the capture file after the script ends.
func (c CaptureConfig) JoinTimeout() time.Duration {
	return time.Duration(c.JoinTimeoutMS) * time.Millisecond
}

// EstimateConfig carries pricing defaults for computed line items.
type EstimateConfig struct {
	WallRate float64 `toml:"wall_rate"`
}

// StoreConfig locates the bid database.
type StoreConfig struct {
	Path string `toml:"path"`
}

// SpeechConfig points at an optional local speech sidecar.
type SpeechConfig struct {
	Sidecar string `toml:"sidecar"`
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Message string
}
