package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_STATE_HOME", t.TempDir())

	loaded, err := Load("")
	require.NoError(t, err)
	require.False(t, loaded.Exists)
	require.NotEmpty(t, loaded.Warnings)
	require.Contains(t, loaded.Warnings[0].Message, "using defaults")

	require.Equal(t, "127.0.0.1:8787", loaded.Config.API.Bind)
	require.Equal(t, "grok-beta", loaded.Config.AI.Chat.Model)
	require.Equal(t, "nova", loaded.Config.AI.Speech.TTSVoice)
	require.Equal(t, 2.50, loaded.Config.Estimate.WallRate)
	require.Equal(t, "ffmpeg", loaded.Config.Capture.Argv[0])
	require.NotEmpty(t, loaded.Config.Store.Path)
	require.NotEmpty(t, loaded.Config.Capture.OutputDir)
}

func TestLoadOverridesFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
user_id = "contractor-7"

[estimate]
wall_rate = 3.25

[capture]
command = "my-capture --fast"
max_duration_ms = 30000

[store]
path = "` + filepath.Join(dir, "bids.db") + `"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("XDG_STATE_HOME", t.TempDir())

	loaded, err := Load(path)
	require.NoError(t, err)
	require.True(t, loaded.Exists)
	require.Equal(t, "contractor-7", loaded.Config.UserID)
	require.Equal(t, 3.25, loaded.Config.Estimate.WallRate)
	require.Equal(t, []string{"my-capture", "--fast"}, loaded.Config.Capture.Argv)
	require.Equal(t, filepath.Join(dir, "bids.db"), loaded.Config.Store.Path)

	// Unset sections keep their defaults.
	require.Equal(t, "https://api.x.ai/v1", loaded.Config.AI.Chat.BaseURL)
}

func TestLoadRejectsBadConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", t.TempDir())

	badToml := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(badToml, []byte("this is not = toml ["), 0o600))
	_, err := Load(badToml)
	require.Error(t, err)

	emptyCommand := filepath.Join(dir, "empty.toml")
	require.NoError(t, os.WriteFile(emptyCommand, []byte("[capture]\ncommand = \"\"\n"), 0o600))
	_, err = Load(emptyCommand)
	require.ErrorContains(t, err, "capture.command is empty")

	badBind := filepath.Join(dir, "bind.toml")
	require.NoError(t, os.WriteFile(badBind, []byte("[api]\nbind = \"not-a-bind\"\n"), 0o600))
	_, err = Load(badBind)
	require.ErrorContains(t, err, "api.bind")
}

func TestValidateWarnings(t *testing.T) {
	cfg := Default()
	cfg.UserID = ""
	cfg.Estimate.WallRate = 0
	cfg.Capture.JoinTimeoutMS = 0

	warnings := Validate(cfg)
	messages := make([]string, len(warnings))
	for i, w := range warnings {
		messages[i] = w.Message
	}
	require.Contains(t, messages[0], "user_id is empty")

	joined := ""
	for _, m := range messages {
		joined += m + "\n"
	}
	require.Contains(t, joined, "wall_rate")
	require.Contains(t, joined, "join_timeout_ms")
}

func TestParseArgv(t *testing.T) {
	argv, err := parseArgv(`ffmpeg -i "/dev/video 0" -loglevel error`)
	require.NoError(t, err)
	require.Equal(t, []string{"ffmpeg", "-i", "/dev/video 0", "-loglevel", "error"}, argv)

	argv, err = parseArgv("  ")
	require.NoError(t, err)
	require.Nil(t, argv)

	argv, err = parseArgv("# commented out")
	require.NoError(t, err)
	require.Nil(t, argv)

	_, err = parseArgv(`ffmpeg "unterminated`)
	require.Error(t, err)

	_, err = parseArgv(`ffmpeg trailing\`)
	require.Error(t, err)
}

func TestDurationAccessors(t *testing.T) {
	cfg := Default()
	require.Equal(t, int64(60000), cfg.Capture.MaxDuration().Milliseconds())
	require.Equal(t, int64(5000), cfg.Capture.JoinTimeout().Milliseconds())
	require.Equal(t, int64(15000), cfg.AI.Timeout().Milliseconds())
}

func TestResolvePathPrefersExplicit(t *testing.T) {
	path, err := ResolvePath("/tmp/custom.toml")
	require.NoError(t, err)
	require.Equal(t, "/tmp/custom.toml", path)

	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	path, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join("/xdg", "paintbid", "config.toml"), path)
}
