// Package doctor runs runtime readiness diagnostics for config, credentials,
// devices, capture tooling, and the bid store.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/paintbid/paintbid/internal/audio"
	"github.com/paintbid/paintbid/internal/bids"
	"github.com/paintbid/paintbid/internal/config"
	"github.com/paintbid/paintbid/internal/speech"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(cfg config.Loaded) Report {
	checks := []Check{}

	configMsg := fmt.Sprintf("loaded %q", cfg.Path)
	if !cfg.Exists {
		configMsg = fmt.Sprintf("no file at %q, using defaults", cfg.Path)
	}
	checks = append(checks, Check{Name: "config", Pass: true, Message: configMsg})

	checks = append(checks, checkEnv(cfg.Config.AI.Chat.APIKeyEnv, "ai.chat"))
	checks = append(checks, checkEnv(cfg.Config.AI.Speech.APIKeyEnv, "ai.speech"))
	checks = append(checks, checkCommand(cfg.Config.Capture.Argv, "capture_cmd"))
	checks = append(checks, checkOutputDir(cfg.Config.Capture.OutputDir))
	checks = append(checks, checkAudioSelection(cfg.Config))
	checks = append(checks, checkStore(cfg.Config.Store.Path))

	if strings.TrimSpace(cfg.Config.Speech.Sidecar) != "" {
		checks = append(checks, checkSidecar(cfg.Config.Speech.Sidecar))
	}

	return Report{Checks: checks}
}

// checkEnv validates that a named credential variable is set and non-empty.
func checkEnv(envName, checkName string) Check {
	if strings.TrimSpace(envName) == "" {
		return Check{Name: checkName, Pass: false, Message: "api_key_env is empty"}
	}
	if strings.TrimSpace(os.Getenv(envName)) == "" {
		return Check{Name: checkName, Pass: false, Message: fmt.Sprintf("%s is not set", envName)}
	}
	return Check{Name: checkName, Pass: true, Message: fmt.Sprintf("%s is set", envName)}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkOutputDir validates the capture directory can be created.
func checkOutputDir(dir string) Check {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Check{Name: "capture.output_dir", Pass: false, Message: err.Error()}
	}
	return Check{Name: "capture.output_dir", Pass: true, Message: fmt.Sprintf("writable at %q", dir)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(cfg config.Config) Check {
	selection, err := audio.SelectDevice(context.Background(), cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkStore opens the bid database, applying pending migrations.
func checkStore(path string) Check {
	store, err := bids.Open(path)
	if err != nil {
		return Check{Name: "store", Pass: false, Message: err.Error()}
	}
	defer store.Close()
	return Check{Name: "store", Pass: true, Message: fmt.Sprintf("opened %q", path)}
}

// checkSidecar probes the optional local speech service health endpoint.
func checkSidecar(addr string) Check {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := speech.CheckSidecar(ctx, addr, 2*time.Second); err != nil {
		return Check{Name: "speech.sidecar", Pass: false, Message: err.Error()}
	}
	return Check{Name: "speech.sidecar", Pass: true, Message: fmt.Sprintf("serving at %s", addr)}
}
