// Package session conducts the guided room walkthrough: scripted narration
// over a running video capture, a spoken question channel, and a single
// terminal result per run.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/paintbid/paintbid/internal/estimate"
	"github.com/paintbid/paintbid/internal/fsm"
	"github.com/paintbid/paintbid/internal/ipc"
	"github.com/paintbid/paintbid/internal/transcript"
	"github.com/paintbid/paintbid/internal/walkthrough"
)

// Result is the complete lifecycle output returned by one Run invocation.
type Result struct {
	State             fsm.State
	StepReached       int
	TranscriptSummary string
	SuggestedItems    []estimate.LineItem
	VideoURI          string
	VideoDuration     time.Duration
	Cancelled         bool
	Err               error
	StartedAt         time.Time
	FinishedAt        time.Time
}

// Capabilities bundles the device and inference collaborators one controller
// instance owns for its lifetime.
type Capabilities struct {
	Recorder  Recorder
	Narrator  Narrator
	Listener  Listener
	Advisor   Advisor
	Indicator Indicator
}

// Options tunes script and timing behavior; zero values take defaults.
type Options struct {
	Steps       []walkthrough.Step
	MaxDuration time.Duration
	JoinTimeout time.Duration
}

// Controller orchestrates walkthrough state transitions and side effects.
type Controller struct {
	logger    *slog.Logger
	recorder  Recorder
	narrator  Narrator
	listener  Listener
	advisor   Advisor
	indicator Indicator

	steps       []walkthrough.Step
	maxDuration time.Duration
	joinTimeout time.Duration

	mu            sync.RWMutex
	state         fsm.State
	stepIndex     int
	narrating     bool
	micOpen       bool
	lastAssistant string

	// asks carries mic-toggle requests; cancel travels out-of-band as a
	// closed channel so a pending ask can never displace it.
	asks       chan struct{}
	cancelled  chan struct{}
	cancelOnce sync.Once

	captureCh <-chan CaptureFile
	summary   *transcript.Summary
}

// NewController constructs a session controller with safe default fallbacks.
func NewController(logger *slog.Logger, caps Capabilities, opts Options) *Controller {
	if caps.Recorder == nil {
		caps.Recorder = placeholderRecorder{}
	}
	if caps.Narrator == nil {
		caps.Narrator = placeholderNarrator{}
	}
	if caps.Listener == nil {
		caps.Listener = placeholderListener{}
	}
	if caps.Advisor == nil {
		caps.Advisor = placeholderAdvisor{}
	}
	if caps.Indicator == nil {
		caps.Indicator = noopIndicator{}
	}
	if len(opts.Steps) == 0 {
		opts.Steps = walkthrough.Script()
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 60 * time.Second
	}
	if opts.JoinTimeout <= 0 {
		opts.JoinTimeout = 5 * time.Second
	}

	return &Controller{
		logger:      logger,
		recorder:    caps.Recorder,
		narrator:    caps.Narrator,
		listener:    caps.Listener,
		advisor:     caps.Advisor,
		indicator:   caps.Indicator,
		steps:       opts.Steps,
		maxDuration: opts.MaxDuration,
		joinTimeout: opts.JoinTimeout,
		state:       fsm.StateIdle,
		stepIndex:   -1,
		asks:        make(chan struct{}, 1),
		cancelled:   make(chan struct{}),
		summary:     &transcript.Summary{},
	}
}

// State returns the current FSM state snapshot.
func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// StepIndex returns the current step position, or -1 outside a run.
func (c *Controller) StepIndex() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stepIndex
}

// IsNarrationPlaying reports whether the speaker is actively held.
func (c *Controller) IsNarrationPlaying() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.narrating
}

// IsListening reports whether the microphone is actively held.
func (c *Controller) IsListening() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.micOpen
}

// transition applies one FSM event to the controller state.
func (c *Controller) transition(event fsm.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := fsm.Transition(c.state, event)
	if err != nil {
		return err
	}
	c.state = next
	if next == fsm.StateCancelled {
		c.stepIndex = -1
	}
	return nil
}

func (c *Controller) setStep(index int) {
	c.mu.Lock()
	c.stepIndex = index
	c.mu.Unlock()
}

// setNarrating flips the speaker-held flag; the mic must be released first.
func (c *Controller) setNarrating(on bool) {
	c.mu.Lock()
	if on {
		c.micOpen = false
	}
	c.narrating = on
	c.mu.Unlock()
}

// setMicOpen flips the mic-held flag; the speaker must be released first.
func (c *Controller) setMicOpen(on bool) {
	c.mu.Lock()
	if on {
		c.narrating = false
	}
	c.micOpen = on
	c.mu.Unlock()
}

func (c *Controller) setLastAssistant(text string) {
	c.mu.Lock()
	c.lastAssistant = text
	c.mu.Unlock()
}

// Run executes one walkthrough lifecycle from start to completion or
// cancellation. The result is produced exactly once.
func (c *Controller) Run(ctx context.Context) Result {
	result := Result{StartedAt: time.Now(), StepReached: -1}

	if err := c.transition(fsm.EventStart); err != nil {
		result.State = c.State()
		result.Err = err
		result.FinishedAt = time.Now()
		return result
	}

	captureCh, err := c.recorder.Start(ctx, c.maxDuration)
	if err != nil {
		c.indicator.ShowError(ctx, "Unable to start recording")
		_ = c.transition(fsm.EventCancel)
		result.State = c.State()
		result.Cancelled = true
		result.Err = fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		result.FinishedAt = time.Now()
		return result
	}
	c.captureCh = captureCh

	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 800*time.Millisecond)
		defer cancel()
		c.indicator.Hide(cleanupCtx)
	}()

	for i := range c.steps {
		c.setStep(i)
		result.StepReached = i
		outcome, cause := c.runStep(ctx, c.steps[i])
		if outcome == stepCancelled {
			return c.finishCancelled(cause, result)
		}
	}

	return c.finishCompleted(ctx, result)
}

type stepOutcome int

const (
	stepAdvance stepOutcome = iota
	stepCancelled
)

// runStep narrates one step and waits for both narration completion and the
// step floor before advancing. Question interrupts re-enter the same step;
// an interrupt pending at advance time wins over the advance.
func (c *Controller) runStep(ctx context.Context, step walkthrough.Step) (stepOutcome, error) {
	c.summary.AddNarration(step.Script)
	c.setLastAssistant(step.Script)
	c.indicator.ShowNarrating(ctx, string(step.ID), step.Script)

	c.setNarrating(true)
	speakDone := make(chan error, 1)
	go func(text string) { speakDone <- c.narrator.Speak(ctx, text) }(step.Script)

	floor := time.NewTimer(step.Floor)
	defer floor.Stop()

	spoken := false
	floored := step.Floor <= 0

	for {
		if spoken && floored {
			select {
			case <-c.cancelled:
				return stepCancelled, nil
			default:
			}
			select {
			case <-c.asks:
				if outcome, cause := c.handleQuestion(ctx); outcome == stepCancelled {
					return stepCancelled, cause
				}
			default:
				return stepAdvance, nil
			}
			continue
		}

		select {
		case <-ctx.Done():
			return stepCancelled, ctx.Err()

		case <-c.cancelled:
			return stepCancelled, nil

		case <-c.asks:
			if !spoken {
				// Interrupt: stop narration and wait for the stop to be
				// acknowledged before the mic may open.
				_ = c.narrator.Stop(ctx)
				if err := <-speakDone; err != nil {
					c.setNarrating(false)
					return stepCancelled, &DeviceError{Op: "narration", Err: err}
				}
				speakDone = nil
				spoken = true
				c.setNarrating(false)
			}
			if outcome, cause := c.handleQuestion(ctx); outcome == stepCancelled {
				return stepCancelled, cause
			}

		case err := <-speakDone:
			speakDone = nil
			spoken = true
			c.setNarrating(false)
			if err != nil {
				return stepCancelled, &DeviceError{Op: "narration", Err: err}
			}

		case <-floor.C:
			floored = true
		}
	}
}

// handleQuestion runs one listening/answer exchange and returns to the
// interrupted step. The mic stays open until the next ask command toggles it
// closed, or until cancellation.
func (c *Controller) handleQuestion(ctx context.Context) (stepOutcome, error) {
	if err := c.transition(fsm.EventAsk); err != nil {
		return stepAdvance, nil
	}

	c.indicator.ShowListening(ctx)
	c.setLastAssistant(walkthrough.ListeningPrompt)

	if err := c.listener.Start(ctx); err != nil {
		_ = c.transition(fsm.EventAnswered)
		return stepCancelled, &DeviceError{Op: "listening", Err: err}
	}
	c.setMicOpen(true)

wait:
	for {
		select {
		case <-ctx.Done():
			_ = c.listener.Cancel(context.Background())
			c.setMicOpen(false)
			return stepCancelled, ctx.Err()
		case <-c.cancelled:
			_ = c.listener.Cancel(context.Background())
			c.setMicOpen(false)
			return stepCancelled, nil
		case <-c.asks:
			break wait
		}
	}

	question, err := c.listener.StopAndTranscribe(ctx)
	c.setMicOpen(false)
	if err != nil {
		return stepCancelled, &DeviceError{Op: "listening", Err: err}
	}

	// A cancel that arrived while transcription was in flight still wins.
	select {
	case <-c.cancelled:
		return stepCancelled, nil
	default:
	}

	var reply string
	if strings.TrimSpace(question) == "" {
		reply = walkthrough.ClarificationPrompt
	} else {
		c.summary.AddQuestion(question)
		answer, askErr := c.advisor.Ask(ctx, question, walkthrough.DomainContext)
		if askErr != nil || strings.TrimSpace(answer) == "" {
			c.logWarn("inference unavailable for question", askErr)
			answer = walkthrough.InferenceFallback
		}
		c.summary.AddAnswer(answer)
		reply = answer
	}

	c.setLastAssistant(reply)
	c.indicator.ShowAnswer(ctx, reply)

	c.setNarrating(true)
	speakDone := make(chan error, 1)
	go func(text string) { speakDone <- c.narrator.Speak(ctx, text) }(reply)

	for {
		select {
		case <-ctx.Done():
			c.setNarrating(false)
			return stepCancelled, ctx.Err()
		case <-c.cancelled:
			c.setNarrating(false)
			return stepCancelled, nil
		case <-c.asks:
			// An ask while the answer is playing is dropped; the state guard
			// in requestAsk makes this a rare race, not a flow.
		case err := <-speakDone:
			c.setNarrating(false)
			if err != nil {
				return stepCancelled, &DeviceError{Op: "narration", Err: err}
			}
			_ = c.transition(fsm.EventAnswered)
			return stepAdvance, nil
		}
	}
}

// finishCompleted emits the terminal result for a fully narrated script.
func (c *Controller) finishCompleted(ctx context.Context, result Result) Result {
	_ = c.transition(fsm.EventFinish)
	c.indicator.ShowComplete(ctx)

	_ = c.recorder.Stop(context.Background())
	if file, ok := c.awaitCapture(); ok {
		result.VideoURI = file.URI
		result.VideoDuration = file.Duration
	}

	result.TranscriptSummary = c.summary.Render()

	suggested, err := c.advisor.SuggestItems(ctx, result.TranscriptSummary)
	if err != nil {
		c.logWarn("line item suggestion unavailable", err)
	} else {
		result.SuggestedItems = suggested
	}

	result.State = c.State()
	result.FinishedAt = time.Now()
	c.logResult(result)
	return result
}

// finishCancelled tears down all held devices and emits the partial result.
// Teardown is requested synchronously; underlying confirmations are not
// awaited beyond the capture join timeout.
func (c *Controller) finishCancelled(cause error, result Result) Result {
	stopCtx, cancel := context.WithTimeout(context.Background(), 800*time.Millisecond)
	defer cancel()

	_ = c.narrator.Stop(stopCtx)
	_ = c.listener.Cancel(stopCtx)
	_ = c.recorder.Stop(stopCtx)
	c.setNarrating(false)
	c.setMicOpen(false)

	_ = c.transition(fsm.EventCancel)

	if file, ok := c.awaitCapture(); ok {
		result.VideoURI = file.URI
		result.VideoDuration = file.Duration
	}

	result.TranscriptSummary = c.summary.Render()
	result.State = c.State()
	result.Cancelled = true
	result.Err = cause
	result.FinishedAt = time.Now()
	c.logResult(result)
	return result
}

// awaitCapture joins the capture-file handoff under the configured timeout.
// Completion may race the script end; a handle already delivered is consumed
// from the channel buffer either way.
func (c *Controller) awaitCapture() (CaptureFile, bool) {
	if c.captureCh == nil {
		return CaptureFile{}, false
	}

	timer := time.NewTimer(c.joinTimeout)
	defer timer.Stop()

	select {
	case file, ok := <-c.captureCh:
		if !ok || file.URI == "" {
			return CaptureFile{}, false
		}
		return file, true
	case <-timer.C:
		c.logWarn("capture file handoff timed out", nil)
		return CaptureFile{}, false
	}
}

// Handle serves IPC commands for the active session.
func (c *Controller) Handle(_ context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case "status":
		c.mu.RLock()
		defer c.mu.RUnlock()
		return ipc.Response{OK: true, State: string(c.state), Step: c.stepIndex, Message: c.lastAssistant}
	case "ask":
		return c.requestAsk()
	case "cancel":
		return c.requestCancel()
	default:
		return ipc.Response{OK: false, State: string(c.State()), Step: c.StepIndex(), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

// requestAsk enqueues an ask action when state permits it. During narration it
// opens the mic; while listening it closes the mic and processes the question.
func (c *Controller) requestAsk() ipc.Response {
	state := c.State()
	if state == fsm.StateIdle || fsm.Terminal(state) {
		return ipc.Response{OK: false, State: string(state), Step: c.StepIndex(), Error: ErrNoActiveSession.Error()}
	}

	select {
	case c.asks <- struct{}{}:
		return ipc.Response{OK: true, State: string(state), Step: c.StepIndex(), Message: "ask requested"}
	default:
		return ipc.Response{OK: true, State: string(state), Step: c.StepIndex(), Message: "ask already requested"}
	}
}

// requestCancel latches the cancel signal; cancelling a terminal or idle
// session is an acknowledged no-op. An acknowledged cancel is always
// delivered, regardless of pending asks or where the run loop is parked.
func (c *Controller) requestCancel() ipc.Response {
	state := c.State()
	if fsm.Terminal(state) {
		return ipc.Response{OK: true, State: string(state), Step: c.StepIndex(), Message: "already finished"}
	}
	if state == fsm.StateIdle {
		return ipc.Response{OK: true, State: string(state), Step: c.StepIndex(), Message: "nothing to cancel"}
	}

	select {
	case <-c.cancelled:
		return ipc.Response{OK: true, State: string(state), Step: c.StepIndex(), Message: "cancel already requested"}
	default:
	}
	c.cancelOnce.Do(func() { close(c.cancelled) })
	return ipc.Response{OK: true, State: string(state), Step: c.StepIndex(), Message: "cancel requested"}
}

func (c *Controller) logWarn(msg string, err error) {
	if c.logger == nil {
		return
	}
	if err != nil {
		c.logger.Warn(msg, "error", err.Error())
		return
	}
	c.logger.Warn(msg)
}

func (c *Controller) logResult(result Result) {
	if c.logger == nil {
		return
	}
	fields := []any{
		"state", result.State,
		"cancelled", result.Cancelled,
		"step_reached", result.StepReached,
		"video_uri", result.VideoURI,
		"suggested_items", len(result.SuggestedItems),
		"transcript_length", len(result.TranscriptSummary),
		"duration_ms", result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
	}
	if result.Err != nil {
		c.logger.Error("session ended with error", append(fields, "error", result.Err.Error())...)
		return
	}
	c.logger.Info("session complete", fields...)
}
