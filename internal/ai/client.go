// Package ai wraps the OpenAI-compatible chat, vision, TTS, and transcription
// endpoints the estimating assistant depends on.
package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/paintbid/paintbid/internal/estimate"
)

// ErrUnavailable indicates the inference or speech endpoint could not serve
// the request. Sessions degrade gracefully when they observe it.
var ErrUnavailable = errors.New("inference service unavailable")

// ErrNotConfigured indicates no API key was present for the endpoint.
var ErrNotConfigured = errors.New("ai endpoint not configured")

// Config captures endpoint selection for both the chat and speech services.
// The chat endpoint only needs to be OpenAI-compatible; the xAI API works
// unchanged with a base URL override.
type Config struct {
	ChatBaseURL string
	ChatAPIKey  string
	ChatModel   string

	SpeechBaseURL   string
	SpeechAPIKey    string
	TTSModel        string
	TTSVoice        string
	TranscribeModel string

	Timeout    time.Duration
	MaxRetries int
}

// Client issues chat, vision, synthesis, and transcription requests.
type Client struct {
	cfg    Config
	chat   *openai.Client
	speech *openai.Client
}

// NewClient builds a client from endpoint config. Either endpoint may be left
// unconfigured; calls against it fail with ErrNotConfigured.
func NewClient(cfg Config) *Client {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}

	c := &Client{cfg: cfg}
	if cfg.ChatAPIKey != "" {
		c.chat = newSDKClient(cfg.ChatAPIKey, cfg.ChatBaseURL, cfg.Timeout)
	}
	if cfg.SpeechAPIKey != "" {
		c.speech = newSDKClient(cfg.SpeechAPIKey, cfg.SpeechBaseURL, cfg.Timeout)
	}
	return c
}

func newSDKClient(apiKey, baseURL string, timeout time.Duration) *openai.Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = strings.TrimRight(baseURL, "/")
	}
	httpClient := &http.Client{}
	if timeout > 0 {
		httpClient.Timeout = timeout
	}
	config.HTTPClient = httpClient
	return openai.NewClientWithConfig(config)
}

// Ask answers one mid-scan question inside the fixed domain context.
func (c *Client) Ask(ctx context.Context, question, domainContext string) (string, error) {
	if c.chat == nil {
		return "", ErrNotConfigured
	}

	req := openai.ChatCompletionRequest{
		Model: c.cfg.ChatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: chatSystemPrompt(domainContext)},
			{Role: openai.ChatMessageRoleUser, Content: question},
		},
		MaxTokens:   100,
		Temperature: 0.7,
	}

	var resp openai.ChatCompletionResponse
	err := c.retry(ctx, func() error {
		var callErr error
		resp, callErr = c.chat.CreateChatCompletion(ctx, req)
		return callErr
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", ErrUnavailable)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// SuggestItems proposes priced line items from a walkthrough transcript.
func (c *Client) SuggestItems(ctx context.Context, transcriptSummary string) ([]estimate.LineItem, error) {
	if c.chat == nil {
		return nil, ErrNotConfigured
	}

	req := openai.ChatCompletionRequest{
		Model: c.cfg.ChatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: estimatorSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: suggestItemsPrompt(transcriptSummary)},
		},
		Temperature: 0.7,
	}

	var resp openai.ChatCompletionResponse
	err := c.retry(ctx, func() error {
		var callErr error
		resp, callErr = c.chat.CreateChatCompletion(ctx, req)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty completion", ErrUnavailable)
	}

	suggestion, err := parseSuggestion(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	return suggestion.Items, nil
}

// Suggestion is the structured output of an image analysis.
type Suggestion struct {
	Items      []estimate.LineItem `json:"items"`
	Complexity string              `json:"complexity"`
}

// EstimateFromImage analyzes a room photo and returns prep-work line items
// plus an overall complexity rating.
func (c *Client) EstimateFromImage(ctx context.Context, imageBase64 string) (Suggestion, error) {
	if c.chat == nil {
		return Suggestion{}, ErrNotConfigured
	}

	req := openai.ChatCompletionRequest{
		Model: c.cfg.ChatModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    "data:image/jpeg;base64," + imageBase64,
							Detail: openai.ImageURLDetailHigh,
						},
					},
					{
						Type: openai.ChatMessagePartTypeText,
						Text: visionPrompt,
					},
				},
			},
		},
		Temperature: 0.7,
	}

	var resp openai.ChatCompletionResponse
	err := c.retry(ctx, func() error {
		var callErr error
		resp, callErr = c.chat.CreateChatCompletion(ctx, req)
		return callErr
	})
	if err != nil {
		return Suggestion{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return Suggestion{}, fmt.Errorf("%w: empty completion", ErrUnavailable)
	}
	return parseSuggestion(resp.Choices[0].Message.Content)
}

// SpeechFormat selects the synthesized audio container.
type SpeechFormat string

const (
	FormatPCM SpeechFormat = "pcm"
	FormatMP3 SpeechFormat = "mp3"
)

// Synthesize converts text to speech and returns the raw audio payload.
// FormatPCM yields 24kHz mono s16 suitable for direct playback.
func (c *Client) Synthesize(ctx context.Context, text string, format SpeechFormat) ([]byte, error) {
	if c.speech == nil {
		return nil, ErrNotConfigured
	}

	responseFormat := openai.SpeechResponseFormatPcm
	if format == FormatMP3 {
		responseFormat = openai.SpeechResponseFormatMp3
	}

	req := openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(c.cfg.TTSModel),
		Input:          text,
		Voice:          openai.SpeechVoice(c.cfg.TTSVoice),
		ResponseFormat: responseFormat,
	}

	var audio []byte
	err := c.retry(ctx, func() error {
		resp, callErr := c.speech.CreateSpeech(ctx, req)
		if callErr != nil {
			return callErr
		}
		defer resp.Close()
		audio, callErr = io.ReadAll(resp)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return audio, nil
}

// Transcribe converts a recorded audio clip to text. The filename hint tells
// the endpoint which container the payload uses.
func (c *Client) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	if c.speech == nil {
		return "", ErrNotConfigured
	}

	req := openai.AudioRequest{
		Model:    c.cfg.TranscribeModel,
		Reader:   audio,
		FilePath: filename,
	}

	var resp openai.AudioResponse
	err := c.retry(ctx, func() error {
		var callErr error
		resp, callErr = c.speech.CreateTranscription(ctx, req)
		return callErr
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return strings.TrimSpace(resp.Text), nil
}

// ChatConfigured reports whether the inference endpoint has credentials.
func (c *Client) ChatConfigured() bool {
	return c != nil && c.chat != nil
}

// SpeechConfigured reports whether the TTS/STT endpoint has credentials.
func (c *Client) SpeechConfigured() bool {
	return c != nil && c.speech != nil
}

// retry runs op with bounded exponential backoff, honoring ctx between tries.
func (c *Client) retry(ctx context.Context, op func() error) error {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(150*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}
	}
	return lastErr
}
