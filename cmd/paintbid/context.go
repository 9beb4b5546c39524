package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"

	"github.com/paintbid/paintbid/internal/ai"
	"github.com/paintbid/paintbid/internal/bids"
	"github.com/paintbid/paintbid/internal/config"
	"github.com/paintbid/paintbid/internal/logging"
)

// commandContext lazily shares config, logging, and clients across commands.
type commandContext struct {
	configFlag *string

	configOnce sync.Once
	loaded     config.Loaded
	configErr  error

	logOnce    sync.Once
	logRuntime logging.Runtime
	logErr     error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

// ensureConfig loads .env, resolves the config file, and prints warnings once.
func (c *commandContext) ensureConfig() (config.Loaded, error) {
	c.configOnce.Do(func() {
		_ = godotenv.Load()

		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		loaded, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		for _, warning := range loaded.Warnings {
			fmt.Fprintf(os.Stderr, "warning: %s\n", warning.Message)
		}
		c.loaded = loaded
	})
	return c.loaded, c.configErr
}

// logger returns the shared JSONL logger, degrading to a discard logger when
// the state directory is unwritable.
func (c *commandContext) logger() *slog.Logger {
	c.logOnce.Do(func() {
		c.logRuntime, c.logErr = logging.New()
		if c.logErr != nil {
			fmt.Fprintf(os.Stderr, "warning: logging disabled: %v\n", c.logErr)
		}
	})
	if c.logErr != nil {
		return slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return c.logRuntime.Logger
}

func (c *commandContext) close() {
	if c.logErr == nil {
		_ = c.logRuntime.Close()
	}
}

// aiClient builds the inference client from the loaded config, reading API
// keys from the configured environment variables.
func (c *commandContext) aiClient() (*ai.Client, error) {
	loaded, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	cfg := loaded.Config.AI
	return ai.NewClient(ai.Config{
		ChatBaseURL:     cfg.Chat.BaseURL,
		ChatAPIKey:      os.Getenv(cfg.Chat.APIKeyEnv),
		ChatModel:       cfg.Chat.Model,
		SpeechBaseURL:   cfg.Speech.BaseURL,
		SpeechAPIKey:    os.Getenv(cfg.Speech.APIKeyEnv),
		TTSModel:        cfg.Speech.TTSModel,
		TTSVoice:        cfg.Speech.TTSVoice,
		TranscribeModel: cfg.Speech.TranscribeModel,
		Timeout:         cfg.Timeout(),
		MaxRetries:      cfg.MaxRetries,
	}), nil
}

// openStore opens the bid database at the configured path.
func (c *commandContext) openStore() (*bids.Store, error) {
	loaded, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return bids.Open(loaded.Config.Store.Path)
}

// userID resolves the acting contractor account, preferring an explicit flag.
func (c *commandContext) userID(flagValue string) (string, error) {
	if strings.TrimSpace(flagValue) != "" {
		return strings.TrimSpace(flagValue), nil
	}
	loaded, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(loaded.Config.UserID) == "" {
		return "", fmt.Errorf("no user configured: set user_id in %s or pass --user", loaded.Path)
	}
	return strings.TrimSpace(loaded.Config.UserID), nil
}
