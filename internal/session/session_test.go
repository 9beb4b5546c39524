package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/paintbid/paintbid/internal/estimate"
	"github.com/paintbid/paintbid/internal/fsm"
	"github.com/paintbid/paintbid/internal/ipc"
	"github.com/paintbid/paintbid/internal/walkthrough"
)

type fakeRecorder struct {
	startErr  error
	file      CaptureFile
	noDeliver bool

	starts atomic.Int32
	stops  atomic.Int32
}

func (r *fakeRecorder) Start(context.Context, time.Duration) (<-chan CaptureFile, error) {
	if r.startErr != nil {
		return nil, r.startErr
	}
	r.starts.Add(1)
	ch := make(chan CaptureFile, 1)
	if !r.noDeliver {
		ch <- r.file
		close(ch)
	}
	return ch, nil
}

func (r *fakeRecorder) Stop(context.Context) error {
	r.stops.Add(1)
	return nil
}

// fakeNarrator blocks Speak for texts matching blockOn until Stop or ctx,
// and completes every other utterance instantly.
type fakeNarrator struct {
	blockOn  string
	speakErr error

	mu      sync.Mutex
	spoken  []string
	stopped chan struct{}
	stops   atomic.Int32
}

func newFakeNarrator(blockOn string) *fakeNarrator {
	return &fakeNarrator{blockOn: blockOn, stopped: make(chan struct{}, 8)}
}

func (n *fakeNarrator) Speak(ctx context.Context, text string) error {
	n.mu.Lock()
	n.spoken = append(n.spoken, text)
	n.mu.Unlock()

	if n.speakErr != nil {
		return n.speakErr
	}
	if n.blockOn != "" && text == n.blockOn {
		select {
		case <-n.stopped:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (n *fakeNarrator) Stop(context.Context) error {
	n.stops.Add(1)
	select {
	case n.stopped <- struct{}{}:
	default:
	}
	return nil
}

func (n *fakeNarrator) spokenTexts() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.spoken...)
}

type fakeListener struct {
	startErr      error
	transcript    string
	transcribeErr error

	// transcribeGate, when set, holds StopAndTranscribe until released.
	transcribeGate chan struct{}

	starts  atomic.Int32
	stops   atomic.Int32
	cancels atomic.Int32
}

func (l *fakeListener) Start(context.Context) error {
	if l.startErr != nil {
		return l.startErr
	}
	l.starts.Add(1)
	return nil
}

func (l *fakeListener) StopAndTranscribe(ctx context.Context) (string, error) {
	l.stops.Add(1)
	if l.transcribeGate != nil {
		select {
		case <-l.transcribeGate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return l.transcript, l.transcribeErr
}

func (l *fakeListener) Cancel(context.Context) error {
	l.cancels.Add(1)
	return nil
}

type fakeAdvisor struct {
	answer     string
	askErr     error
	items      []estimate.LineItem
	suggestErr error

	mu        sync.Mutex
	questions []string
}

func (a *fakeAdvisor) Ask(_ context.Context, question, _ string) (string, error) {
	a.mu.Lock()
	a.questions = append(a.questions, question)
	a.mu.Unlock()
	return a.answer, a.askErr
}

func (a *fakeAdvisor) SuggestItems(context.Context, string) ([]estimate.LineItem, error) {
	return a.items, a.suggestErr
}

func instantSteps(count int) []walkthrough.Step {
	steps := make([]walkthrough.Step, count)
	script := walkthrough.Script()
	for i := range steps {
		steps[i] = script[i%len(script)]
		steps[i].Floor = 0
	}
	return steps
}

func waitForState(t *testing.T, ctrl *Controller, desired fsm.State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ctrl.State() == desired {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for state %s (current=%s)", desired, ctrl.State())
}

func TestHandleStatusAndUnknownCommand(t *testing.T) {
	ctrl := NewController(nil, Capabilities{}, Options{})

	status := ctrl.Handle(context.Background(), ipc.Request{Command: "status"})
	require.True(t, status.OK)
	require.Equal(t, string(fsm.StateIdle), status.State)
	require.Equal(t, -1, status.Step)

	unknown := ctrl.Handle(context.Background(), ipc.Request{Command: "definitely-unknown"})
	require.False(t, unknown.OK)
	require.Contains(t, unknown.Error, "unknown command")
}

func TestAskAndCancelStateGuards(t *testing.T) {
	ctrl := NewController(nil, Capabilities{}, Options{})

	askFromIdle := ctrl.Handle(context.Background(), ipc.Request{Command: "ask"})
	require.False(t, askFromIdle.OK)
	require.Contains(t, askFromIdle.Error, "no active walkthrough")

	cancelFromIdle := ctrl.Handle(context.Background(), ipc.Request{Command: "cancel"})
	require.True(t, cancelFromIdle.OK)
	require.Equal(t, "nothing to cancel", cancelFromIdle.Message)

	ctrl.mu.Lock()
	ctrl.state = fsm.StateCompleted
	ctrl.mu.Unlock()

	cancelAfterFinish := ctrl.Handle(context.Background(), ipc.Request{Command: "cancel"})
	require.True(t, cancelAfterFinish.OK)
	require.Equal(t, "already finished", cancelAfterFinish.Message)
}

func TestRunCompletesScript(t *testing.T) {
	recorder := &fakeRecorder{file: CaptureFile{URI: "file:///tmp/scan.mp4", Duration: 42 * time.Second}}
	narrator := newFakeNarrator("")
	advisor := &fakeAdvisor{items: []estimate.LineItem{
		estimate.NewLineItem("Wall Painting (Standard)", 416, 2.50),
	}}

	ctrl := NewController(nil, Capabilities{
		Recorder: recorder,
		Narrator: narrator,
		Listener: &fakeListener{},
		Advisor:  advisor,
	}, Options{Steps: instantSteps(3), JoinTimeout: time.Second})

	result := ctrl.Run(context.Background())

	require.NoError(t, result.Err)
	require.False(t, result.Cancelled)
	require.Equal(t, fsm.StateCompleted, result.State)
	require.Equal(t, 2, result.StepReached)
	require.Equal(t, "file:///tmp/scan.mp4", result.VideoURI)
	require.Equal(t, 42*time.Second, result.VideoDuration)
	require.Len(t, result.SuggestedItems, 1)
	require.Contains(t, result.TranscriptSummary, "Assistant: ")
	require.Len(t, narrator.spokenTexts(), 3)
	require.GreaterOrEqual(t, recorder.stops.Load(), int32(1))
	require.False(t, result.FinishedAt.Before(result.StartedAt))
}

func TestRunRecorderStartFailure(t *testing.T) {
	recorder := &fakeRecorder{startErr: errors.New("camera busy")}
	ctrl := NewController(nil, Capabilities{Recorder: recorder}, Options{Steps: instantSteps(1)})

	result := ctrl.Run(context.Background())

	require.ErrorIs(t, result.Err, ErrPermissionDenied)
	require.True(t, result.Cancelled)
	require.Equal(t, fsm.StateCancelled, result.State)
}

func TestCancelDuringNarration(t *testing.T) {
	steps := instantSteps(1)
	recorder := &fakeRecorder{file: CaptureFile{URI: "file:///tmp/partial.mp4"}}
	narrator := newFakeNarrator(steps[0].Script)
	listener := &fakeListener{}

	ctrl := NewController(nil, Capabilities{
		Recorder: recorder,
		Narrator: narrator,
		Listener: listener,
		Advisor:  &fakeAdvisor{items: []estimate.LineItem{estimate.NewLineItem("x", 1, 1)}},
	}, Options{Steps: steps, JoinTimeout: time.Second})

	resultCh := make(chan Result, 1)
	go func() { resultCh <- ctrl.Run(context.Background()) }()

	waitForState(t, ctrl, fsm.StateNarrating)
	resp := ctrl.Handle(context.Background(), ipc.Request{Command: "cancel"})
	require.True(t, resp.OK)

	result := <-resultCh
	require.True(t, result.Cancelled)
	require.Equal(t, fsm.StateCancelled, result.State)
	require.Equal(t, -1, ctrl.StepIndex())
	require.Empty(t, result.SuggestedItems)
	require.GreaterOrEqual(t, recorder.stops.Load(), int32(1))
	require.GreaterOrEqual(t, listener.cancels.Load(), int32(1))

	again := ctrl.Handle(context.Background(), ipc.Request{Command: "cancel"})
	require.True(t, again.OK)
	require.Equal(t, "already finished", again.Message)
}

func TestAskToggleFlow(t *testing.T) {
	steps := instantSteps(1)
	narrator := newFakeNarrator(steps[0].Script)
	listener := &fakeListener{transcript: "What rate do you charge per square foot?"}
	advisor := &fakeAdvisor{answer: "Standard walls run about $2.50 per square foot."}

	ctrl := NewController(nil, Capabilities{
		Recorder: &fakeRecorder{file: CaptureFile{URI: "file:///tmp/scan.mp4"}},
		Narrator: narrator,
		Listener: listener,
		Advisor:  advisor,
	}, Options{Steps: steps, JoinTimeout: time.Second})

	resultCh := make(chan Result, 1)
	go func() { resultCh <- ctrl.Run(context.Background()) }()

	waitForState(t, ctrl, fsm.StateNarrating)
	require.True(t, ctrl.Handle(context.Background(), ipc.Request{Command: "ask"}).OK)

	waitForState(t, ctrl, fsm.StateListening)
	require.True(t, ctrl.IsListening())
	require.False(t, ctrl.IsNarrationPlaying())
	require.True(t, ctrl.Handle(context.Background(), ipc.Request{Command: "ask"}).OK)

	result := <-resultCh
	require.NoError(t, result.Err)
	require.Equal(t, fsm.StateCompleted, result.State)
	require.GreaterOrEqual(t, narrator.stops.Load(), int32(1))
	require.Equal(t, int32(1), listener.starts.Load())
	require.Equal(t, int32(1), listener.stops.Load())
	require.Contains(t, result.TranscriptSummary, "You: What rate do you charge")
	require.Contains(t, result.TranscriptSummary, "Standard walls run about")
	require.Contains(t, narrator.spokenTexts(), advisor.answer)
}

func TestCancelNotDisplacedByPendingAsk(t *testing.T) {
	steps := instantSteps(1)
	narrator := newFakeNarrator(steps[0].Script)
	listener := &fakeListener{
		transcript:     "How long until the paint cures?",
		transcribeGate: make(chan struct{}),
	}

	ctrl := NewController(nil, Capabilities{
		Recorder: &fakeRecorder{file: CaptureFile{URI: "file:///tmp/scan.mp4"}},
		Narrator: narrator,
		Listener: listener,
		Advisor:  &fakeAdvisor{answer: "About two weeks for a full cure."},
	}, Options{Steps: steps, JoinTimeout: time.Second})

	resultCh := make(chan Result, 1)
	go func() { resultCh <- ctrl.Run(context.Background()) }()

	waitForState(t, ctrl, fsm.StateNarrating)
	require.True(t, ctrl.Handle(context.Background(), ipc.Request{Command: "ask"}).OK)
	waitForState(t, ctrl, fsm.StateListening)
	require.True(t, ctrl.Handle(context.Background(), ipc.Request{Command: "ask"}).OK)

	// Hold the run loop inside transcription, queue another ask, then cancel.
	deadline := time.Now().Add(2 * time.Second)
	for listener.stops.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, int32(1), listener.stops.Load())

	require.Equal(t, "ask requested", ctrl.Handle(context.Background(), ipc.Request{Command: "ask"}).Message)
	cancel := ctrl.Handle(context.Background(), ipc.Request{Command: "cancel"})
	require.True(t, cancel.OK)
	require.Equal(t, "cancel requested", cancel.Message)

	close(listener.transcribeGate)

	result := <-resultCh
	require.True(t, result.Cancelled)
	require.Equal(t, fsm.StateCancelled, result.State)
}

func TestEmptyTranscriptSpeaksClarification(t *testing.T) {
	steps := instantSteps(1)
	narrator := newFakeNarrator(steps[0].Script)

	ctrl := NewController(nil, Capabilities{
		Recorder: &fakeRecorder{file: CaptureFile{URI: "file:///tmp/scan.mp4"}},
		Narrator: narrator,
		Listener: &fakeListener{transcript: ""},
		Advisor:  &fakeAdvisor{},
	}, Options{Steps: steps, JoinTimeout: time.Second})

	resultCh := make(chan Result, 1)
	go func() { resultCh <- ctrl.Run(context.Background()) }()

	waitForState(t, ctrl, fsm.StateNarrating)
	require.True(t, ctrl.Handle(context.Background(), ipc.Request{Command: "ask"}).OK)
	waitForState(t, ctrl, fsm.StateListening)
	require.True(t, ctrl.Handle(context.Background(), ipc.Request{Command: "ask"}).OK)

	result := <-resultCh
	require.NoError(t, result.Err)
	require.Equal(t, fsm.StateCompleted, result.State)
	require.Contains(t, narrator.spokenTexts(), walkthrough.ClarificationPrompt)
	require.NotContains(t, result.TranscriptSummary, "You: ")
}

func TestAdvisorFailureSpeaksFallback(t *testing.T) {
	steps := instantSteps(1)
	narrator := newFakeNarrator(steps[0].Script)
	advisor := &fakeAdvisor{askErr: errors.New("upstream 500")}

	ctrl := NewController(nil, Capabilities{
		Recorder: &fakeRecorder{file: CaptureFile{URI: "file:///tmp/scan.mp4"}},
		Narrator: narrator,
		Listener: &fakeListener{transcript: "How many coats?"},
		Advisor:  advisor,
	}, Options{Steps: steps, JoinTimeout: time.Second})

	resultCh := make(chan Result, 1)
	go func() { resultCh <- ctrl.Run(context.Background()) }()

	waitForState(t, ctrl, fsm.StateNarrating)
	require.True(t, ctrl.Handle(context.Background(), ipc.Request{Command: "ask"}).OK)
	waitForState(t, ctrl, fsm.StateListening)
	require.True(t, ctrl.Handle(context.Background(), ipc.Request{Command: "ask"}).OK)

	result := <-resultCh
	require.NoError(t, result.Err)
	require.Equal(t, fsm.StateCompleted, result.State)
	require.Contains(t, narrator.spokenTexts(), walkthrough.InferenceFallback)
	require.Contains(t, result.TranscriptSummary, "You: How many coats?")
}

func TestCaptureJoinTimeoutYieldsNoVideo(t *testing.T) {
	recorder := &fakeRecorder{noDeliver: true}
	ctrl := NewController(nil, Capabilities{
		Recorder: recorder,
		Narrator: newFakeNarrator(""),
		Listener: &fakeListener{},
		Advisor:  &fakeAdvisor{},
	}, Options{Steps: instantSteps(1), JoinTimeout: 50 * time.Millisecond})

	result := ctrl.Run(context.Background())

	require.NoError(t, result.Err)
	require.Equal(t, fsm.StateCompleted, result.State)
	require.Empty(t, result.VideoURI)
	require.Zero(t, result.VideoDuration)
}

func TestListenerDeviceErrorCancelsSession(t *testing.T) {
	steps := instantSteps(1)
	narrator := newFakeNarrator(steps[0].Script)
	listener := &fakeListener{startErr: errors.New("mic gone")}

	ctrl := NewController(nil, Capabilities{
		Recorder: &fakeRecorder{file: CaptureFile{URI: "file:///tmp/scan.mp4"}},
		Narrator: narrator,
		Listener: listener,
		Advisor:  &fakeAdvisor{},
	}, Options{Steps: steps, JoinTimeout: time.Second})

	resultCh := make(chan Result, 1)
	go func() { resultCh <- ctrl.Run(context.Background()) }()

	waitForState(t, ctrl, fsm.StateNarrating)
	require.True(t, ctrl.Handle(context.Background(), ipc.Request{Command: "ask"}).OK)

	result := <-resultCh
	require.True(t, result.Cancelled)
	require.Equal(t, fsm.StateCancelled, result.State)

	var deviceErr *DeviceError
	require.ErrorAs(t, result.Err, &deviceErr)
	require.Equal(t, "listening", deviceErr.Op)
}

func TestRunContextCancelled(t *testing.T) {
	steps := instantSteps(1)
	narrator := newFakeNarrator(steps[0].Script)

	ctrl := NewController(nil, Capabilities{
		Recorder: &fakeRecorder{file: CaptureFile{URI: "file:///tmp/scan.mp4"}},
		Narrator: narrator,
		Listener: &fakeListener{},
		Advisor:  &fakeAdvisor{},
	}, Options{Steps: steps, JoinTimeout: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	resultCh := make(chan Result, 1)
	go func() { resultCh <- ctrl.Run(ctx) }()

	waitForState(t, ctrl, fsm.StateNarrating)
	cancel()

	result := <-resultCh
	require.True(t, result.Cancelled)
	require.ErrorIs(t, result.Err, context.Canceled)
	require.Equal(t, fsm.StateCancelled, result.State)
}

func TestTranscriptSummaryOrdering(t *testing.T) {
	steps := instantSteps(2)
	narrator := newFakeNarrator(steps[0].Script)
	listener := &fakeListener{transcript: "Does that include the trim?"}
	advisor := &fakeAdvisor{answer: "Trim is priced separately."}

	ctrl := NewController(nil, Capabilities{
		Recorder: &fakeRecorder{file: CaptureFile{URI: "file:///tmp/scan.mp4"}},
		Narrator: narrator,
		Listener: listener,
		Advisor:  advisor,
	}, Options{Steps: steps, JoinTimeout: time.Second})

	resultCh := make(chan Result, 1)
	go func() { resultCh <- ctrl.Run(context.Background()) }()

	waitForState(t, ctrl, fsm.StateNarrating)
	require.True(t, ctrl.Handle(context.Background(), ipc.Request{Command: "ask"}).OK)
	waitForState(t, ctrl, fsm.StateListening)
	require.True(t, ctrl.Handle(context.Background(), ipc.Request{Command: "ask"}).OK)

	result := <-resultCh
	require.NoError(t, result.Err)

	lines := strings.Split(result.TranscriptSummary, "\n")
	require.GreaterOrEqual(t, len(lines), 4)
	require.True(t, strings.HasPrefix(lines[0], "Assistant: "))

	question := -1
	answer := -1
	for i, line := range lines {
		if strings.HasPrefix(line, "You: ") {
			question = i
		}
		if line == "Assistant: Trim is priced separately." {
			answer = i
		}
	}
	require.Greater(t, question, 0)
	require.Equal(t, question+1, answer)
}
