package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Loaded captures resolved config path, parsed values, and non-fatal warnings.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load resolves, reads, parses, and validates the runtime configuration.
func Load(explicitPath string) (Loaded, error) {
	resolvedPath, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	cfg := Default()
	exists := true

	content, err := os.ReadFile(resolvedPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return Loaded{}, fmt.Errorf("read config %q: %w", resolvedPath, err)
		}
		exists = false
	} else if err := toml.Unmarshal(content, &cfg); err != nil {
		return Loaded{}, fmt.Errorf("parse config %q: %w", resolvedPath, err)
	}

	warnings, err := materialize(&cfg)
	if err != nil {
		return Loaded{}, fmt.Errorf("config %q: %w", resolvedPath, err)
	}
	if !exists {
		warnings = append([]Warning{{
			Message: fmt.Sprintf("config file %q not found; using defaults", resolvedPath),
		}}, warnings...)
	}

	return Loaded{
		Path:     resolvedPath,
		Config:   cfg,
		Warnings: warnings,
		Exists:   exists,
	}, nil
}

// materialize resolves derived fields and fills path defaults from the state dir.
func materialize(cfg *Config) ([]Warning, error) {
	argv, err := parseArgv(cfg.Capture.Command)
	if err != nil {
		return nil, fmt.Errorf("capture.command: %w", err)
	}
	cfg.Capture.Argv = argv

	var warnings []Warning
	if cfg.Store.Path == "" || cfg.Capture.OutputDir == "" {
		stateDir, err := StateDir()
		if err != nil {
			return nil, err
		}
		if cfg.Store.Path == "" {
			cfg.Store.Path = filepath.Join(stateDir, "bids.db")
		}
		if cfg.Capture.OutputDir == "" {
			cfg.Capture.OutputDir = filepath.Join(stateDir, "captures")
		}
	}

	warnings = append(warnings, Validate(*cfg)...)
	if err := fatalValidation(*cfg); err != nil {
		return nil, err
	}
	return warnings, nil
}
