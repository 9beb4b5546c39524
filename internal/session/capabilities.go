package session

import (
	"context"
	"errors"
	"time"

	"github.com/paintbid/paintbid/internal/estimate"
)

var (
	// ErrPermissionDenied indicates the camera or microphone is unavailable;
	// the session cannot start and the error is surfaced immediately.
	ErrPermissionDenied = errors.New("capture device permission denied")
	// ErrNoActiveSession indicates a command arrived with no walkthrough running.
	ErrNoActiveSession = errors.New("no active walkthrough session")
)

// DeviceError reports a capture or playback failure mid-session. The session
// is cancelled and the partial result is still returned to the caller.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	return "device failure during " + e.Op + ": " + e.Err.Error()
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// CaptureFile is the finished recording handed back by the Recorder.
type CaptureFile struct {
	URI      string
	Duration time.Duration
}

// Recorder abstracts the video capture device. Start begins recording and
// returns a channel that delivers exactly one CaptureFile once the recording
// is finalized, whether by Stop, the duration ceiling, or device shutdown.
type Recorder interface {
	Start(ctx context.Context, maxDuration time.Duration) (<-chan CaptureFile, error)
	Stop(ctx context.Context) error
}

// Narrator speaks text aloud. Speak blocks until natural completion and
// returns nil; an explicit Stop resolves the in-flight Speak early, also
// without error.
type Narrator interface {
	Speak(ctx context.Context, text string) error
	Stop(ctx context.Context) error
}

// Listener captures one spoken question. StopAndTranscribe returns the empty
// string when no usable speech was recognized or the transcription service
// failed; it returns an error only for microphone device failures.
type Listener interface {
	Start(ctx context.Context) error
	StopAndTranscribe(ctx context.Context) (string, error)
	Cancel(ctx context.Context) error
}

// Advisor answers mid-scan questions and proposes line items from a finished
// walkthrough transcript.
type Advisor interface {
	Ask(ctx context.Context, question, domainContext string) (string, error)
	SuggestItems(ctx context.Context, transcriptSummary string) ([]estimate.LineItem, error)
}

// placeholderRecorder keeps session flow alive when no camera is wired.
type placeholderRecorder struct{}

func (placeholderRecorder) Start(context.Context, time.Duration) (<-chan CaptureFile, error) {
	ch := make(chan CaptureFile, 1)
	ch <- CaptureFile{}
	return ch, nil
}

func (placeholderRecorder) Stop(context.Context) error { return nil }

// placeholderNarrator completes every utterance instantly and silently.
type placeholderNarrator struct{}

func (placeholderNarrator) Speak(context.Context, string) error { return nil }
func (placeholderNarrator) Stop(context.Context) error          { return nil }

// placeholderListener never hears anything.
type placeholderListener struct{}

func (placeholderListener) Start(context.Context) error { return nil }
func (placeholderListener) StopAndTranscribe(context.Context) (string, error) {
	return "", nil
}
func (placeholderListener) Cancel(context.Context) error { return nil }

// placeholderAdvisor has no opinions.
type placeholderAdvisor struct{}

func (placeholderAdvisor) Ask(context.Context, string, string) (string, error) {
	return "", nil
}

func (placeholderAdvisor) SuggestItems(context.Context, string) ([]estimate.LineItem, error) {
	return nil, nil
}
