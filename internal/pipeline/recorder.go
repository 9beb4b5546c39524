package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/paintbid/paintbid/internal/session"
)

// killGrace is how long a stopped capture process gets to finalize its
// container before it is killed outright.
const killGrace = 3 * time.Second

// Recorder drives an external capture command (ffmpeg by default) for the
// duration of one walkthrough. The finished file is delivered exactly once on
// the channel returned by Start.
type Recorder struct {
	argv      []string
	outputDir string
	logger    *slog.Logger

	mu        sync.Mutex
	cmd       *exec.Cmd
	output    string
	startedAt time.Time
	stopOnce  *sync.Once
	ceiling   *time.Timer
}

func NewRecorder(argv []string, outputDir string, logger *slog.Logger) *Recorder {
	return &Recorder{argv: argv, outputDir: outputDir, logger: logger}
}

// Start launches the capture command writing to a fresh output file. The
// recording stops at maxDuration even if Stop is never called.
func (r *Recorder) Start(_ context.Context, maxDuration time.Duration) (<-chan session.CaptureFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cmd != nil {
		return nil, fmt.Errorf("capture already running")
	}
	if len(r.argv) == 0 {
		return nil, fmt.Errorf("no capture command configured")
	}

	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create capture dir %q: %w", r.outputDir, err)
	}

	output := filepath.Join(r.outputDir, fmt.Sprintf("capture-%s.mp4", time.Now().Format("20060102-150405")))
	argv := append(append([]string(nil), r.argv...), output)

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start capture command %q: %w", argv[0], err)
	}

	r.cmd = cmd
	r.output = output
	r.startedAt = time.Now()
	r.stopOnce = &sync.Once{}
	r.ceiling = time.AfterFunc(maxDuration, func() {
		if r.logger != nil {
			r.logger.Info("capture duration ceiling reached")
		}
		r.signalStop()
	})

	files := make(chan session.CaptureFile, 1)
	go r.await(cmd, output, r.startedAt, files)

	if r.logger != nil {
		r.logger.Info("capture started", "command", argv[0], "output", output)
	}
	return files, nil
}

// await joins the capture process and delivers the finished file handle.
func (r *Recorder) await(cmd *exec.Cmd, output string, startedAt time.Time, files chan<- session.CaptureFile) {
	err := cmd.Wait()
	duration := time.Since(startedAt)

	r.mu.Lock()
	if r.cmd == cmd {
		r.cmd = nil
		if r.ceiling != nil {
			r.ceiling.Stop()
			r.ceiling = nil
		}
	}
	r.mu.Unlock()

	file := session.CaptureFile{URI: output, Duration: duration}
	if _, statErr := os.Stat(output); statErr != nil {
		if r.logger != nil {
			r.logger.Warn("capture produced no output file", "output", output, "error", statErr.Error())
		}
		file = session.CaptureFile{}
	} else if err != nil && r.logger != nil {
		// Interrupt-driven shutdown reports a nonzero exit; the file is
		// still usable once it exists.
		r.logger.Info("capture command exited", "error", err.Error())
	}

	files <- file
	close(files)
}

// Stop asks the capture command to finalize and exit. The file handle is
// delivered on the Start channel once the process is gone.
func (r *Recorder) Stop(_ context.Context) error {
	r.signalStop()
	return nil
}

// signalStop interrupts the capture process so it can finalize the container,
// escalating to a kill after a grace period.
func (r *Recorder) signalStop() {
	r.mu.Lock()
	cmd := r.cmd
	once := r.stopOnce
	r.mu.Unlock()

	if cmd == nil || cmd.Process == nil || once == nil {
		return
	}

	once.Do(func() {
		if err := cmd.Process.Signal(syscall.SIGINT); err != nil {
			return
		}
		time.AfterFunc(killGrace, func() {
			r.mu.Lock()
			still := r.cmd == cmd
			r.mu.Unlock()
			if still {
				_ = cmd.Process.Kill()
			}
		})
	})
}
