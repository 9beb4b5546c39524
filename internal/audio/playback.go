package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

// PlaybackSampleRate matches the TTS PCM output (24kHz mono s16).
const PlaybackSampleRate = 24000

// Playback plays one PCM utterance through the default Pulse sink.
type Playback struct {
	client *pulse.Client
	stream *pulse.PlaybackStream
	src    *pcmSource
	done   chan struct{}

	stopOnce sync.Once
}

// StartPlayback begins playing 24kHz mono s16 PCM through the speakers.
func StartPlayback(_ context.Context, pcm []byte) (*Playback, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("paintbid"),
		pulse.ClientApplicationIconName("audio-speakers"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}

	src := &pcmSource{reader: bytes.NewReader(pcm)}
	stream, err := client.NewPlayback(
		pulse.NewReader(src, pulseproto.FormatInt16LE),
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(PlaybackSampleRate),
		pulse.PlaybackMediaName("paintbid narration"),
	)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("create pulse playback stream: %w", err)
	}

	p := &Playback{
		client: client,
		stream: stream,
		src:    src,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(p.done)
		p.stream.Start()
		p.stream.Drain()
	}()

	return p, nil
}

// Wait blocks until the utterance ends naturally, Stop is called, or ctx is
// cancelled. The speaker is released before Wait returns.
func (p *Playback) Wait(ctx context.Context) error {
	var err error
	select {
	case <-p.done:
	case <-ctx.Done():
		p.Stop()
		<-p.done
		err = ctx.Err()
	}

	p.stream.Close()
	p.client.Close()
	return err
}

// Stop ends playback early. A concurrent Wait returns normally.
func (p *Playback) Stop() {
	p.stopOnce.Do(func() {
		p.src.halt()
		p.stream.Stop()
	})
}

// pcmSource feeds buffered PCM to the stream until drained or halted.
type pcmSource struct {
	mu     sync.Mutex
	reader *bytes.Reader
	halted bool
}

func (s *pcmSource) Read(b []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.halted {
		return 0, io.EOF
	}
	return s.reader.Read(b)
}

func (s *pcmSource) halt() {
	s.mu.Lock()
	s.halted = true
	s.mu.Unlock()
}
