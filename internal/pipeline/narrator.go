// Package pipeline wires the session capabilities to real devices: Pulse
// audio for the speaker and microphone, the speech API for synthesis and
// transcription, and an external command for video capture.
package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"github.com/paintbid/paintbid/internal/ai"
	"github.com/paintbid/paintbid/internal/audio"
)

type playbackHandle interface {
	Wait(ctx context.Context) error
	Stop()
}

// Narrator synthesizes walkthrough narration and plays it through the
// default Pulse sink. At most one utterance plays at a time.
type Narrator struct {
	logger *slog.Logger

	synthesize func(ctx context.Context, text string) ([]byte, error)
	play       func(ctx context.Context, pcm []byte) (playbackHandle, error)

	mu       sync.Mutex
	current  playbackHandle
	speaking bool
	halted   bool
}

func NewNarrator(client *ai.Client, logger *slog.Logger) *Narrator {
	return &Narrator{
		logger: logger,
		synthesize: func(ctx context.Context, text string) ([]byte, error) {
			return client.Synthesize(ctx, text, ai.FormatPCM)
		},
		play: func(ctx context.Context, pcm []byte) (playbackHandle, error) {
			return audio.StartPlayback(ctx, pcm)
		},
	}
}

// Speak synthesizes text and blocks until playback finishes or Stop resolves
// it early. A Stop that lands while synthesis is still in flight skips
// playback entirely. Synthesis failures skip the audio without failing the
// session; the step floor timer keeps the walkthrough paced. Only speaker
// device failures are returned as errors.
func (n *Narrator) Speak(ctx context.Context, text string) error {
	n.mu.Lock()
	n.speaking = true
	n.halted = false
	n.mu.Unlock()
	defer func() {
		n.mu.Lock()
		n.speaking = false
		n.mu.Unlock()
	}()

	pcm, err := n.synthesize(ctx, text)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if n.logger != nil {
			n.logger.Warn("narration synthesis failed, continuing silently", "error", err.Error())
		}
		return nil
	}

	n.mu.Lock()
	if n.halted {
		n.mu.Unlock()
		return nil
	}
	n.mu.Unlock()

	playback, err := n.play(ctx, pcm)
	if err != nil {
		return err
	}

	n.mu.Lock()
	n.current = playback
	halted := n.halted
	n.mu.Unlock()
	if halted {
		playback.Stop()
	}

	defer func() {
		n.mu.Lock()
		if n.current == playback {
			n.current = nil
		}
		n.mu.Unlock()
	}()

	if err := playback.Wait(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// Stop resolves the in-flight utterance early, whether it is still being
// synthesized or already playing. Stopping with nothing in flight is a no-op.
func (n *Narrator) Stop(_ context.Context) error {
	n.mu.Lock()
	if n.speaking {
		n.halted = true
	}
	playback := n.current
	n.mu.Unlock()

	if playback != nil {
		playback.Stop()
	}
	return nil
}
