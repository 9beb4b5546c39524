package pipeline

import (
	"bytes"
	"context"
	"log/slog"
	"sync"

	"github.com/paintbid/paintbid/internal/ai"
	"github.com/paintbid/paintbid/internal/audio"
)

// minSpeechBytes is the shortest clip worth transcribing. Anything under a
// quarter second of 16kHz s16 mono is treated as silence.
const minSpeechBytes = audio.CaptureSampleRate * 2 / 4

// Listener records one spoken question through the configured Pulse source
// and transcribes it on stop.
type Listener struct {
	ai       *ai.Client
	logger   *slog.Logger
	input    string
	fallback string

	mu      sync.Mutex
	capture *audio.Capture
}

func NewListener(client *ai.Client, logger *slog.Logger, input, fallback string) *Listener {
	return &Listener{ai: client, logger: logger, input: input, fallback: fallback}
}

// Start opens the microphone and begins buffering PCM. A second Start while
// recording is a no-op.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.capture != nil {
		return nil
	}

	selection, err := audio.SelectDevice(ctx, l.input, l.fallback)
	if err != nil {
		return err
	}
	if selection.Warning != "" && l.logger != nil {
		l.logger.Warn("input device selection", "warning", selection.Warning)
	}

	capture, err := audio.StartCapture(ctx, selection.Device)
	if err != nil {
		return err
	}
	l.capture = capture
	return nil
}

// StopAndTranscribe closes the microphone and converts the buffered clip to
// text. Silence and transcription-service failures both yield the empty
// string; only microphone device failures are returned as errors.
func (l *Listener) StopAndTranscribe(ctx context.Context) (string, error) {
	capture := l.take()
	if capture == nil {
		return "", nil
	}
	defer capture.Close()

	if err := capture.Stop(); err != nil {
		return "", err
	}

	pcm := capture.RawPCM()
	if len(pcm) < minSpeechBytes {
		return "", nil
	}

	clip := encodeWAV(pcm, audio.CaptureSampleRate)
	text, err := l.ai.Transcribe(ctx, bytes.NewReader(clip), "question.wav")
	if err != nil {
		if l.logger != nil {
			l.logger.Warn("transcription failed, treating as silence", "error", err.Error())
		}
		return "", nil
	}
	return text, nil
}

// Cancel discards the in-flight recording without transcribing it.
func (l *Listener) Cancel(_ context.Context) error {
	capture := l.take()
	if capture == nil {
		return nil
	}
	_ = capture.Stop()
	capture.Close()
	return nil
}

func (l *Listener) take() *audio.Capture {
	l.mu.Lock()
	defer l.mu.Unlock()
	capture := l.capture
	l.capture = nil
	return capture
}
