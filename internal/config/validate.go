package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Validate reports non-fatal configuration issues as warnings.
func Validate(cfg Config) []Warning {
	var warnings []Warning

	if strings.TrimSpace(cfg.UserID) == "" {
		warnings = append(warnings, Warning{Message: "user_id is empty; bid commands will require --user"})
	}
	if cfg.AI.TimeoutMS <= 0 {
		warnings = append(warnings, Warning{Message: "ai.timeout_ms is not positive; requests will use the client default"})
	}
	if cfg.Estimate.WallRate <= 0 {
		warnings = append(warnings, Warning{Message: "estimate.wall_rate is not positive; computed wall items will be free"})
	}
	if cfg.Capture.JoinTimeoutMS <= 0 {
		warnings = append(warnings, Warning{Message: "capture.join_timeout_ms is not positive; sessions will not wait for the capture file"})
	}

	return warnings
}

// fatalValidation rejects configurations the runtime cannot operate under.
func fatalValidation(cfg Config) error {
	if len(cfg.Capture.Argv) == 0 {
		return errors.New("capture.command is empty")
	}
	if cfg.Capture.MaxDurationMS <= 0 {
		return fmt.Errorf("capture.max_duration_ms must be positive, got %d", cfg.Capture.MaxDurationMS)
	}
	if bind := strings.TrimSpace(cfg.API.Bind); bind != "" {
		if _, _, err := net.SplitHostPort(bind); err != nil {
			return fmt.Errorf("api.bind %q is not host:port: %w", bind, err)
		}
	}
	return nil
}
