// Package preview renders the local video track of a lobby session to its
// client as a stream of JPEG frames over the signal connection.
package preview

import (
	"bytes"
	"errors"
	"image/jpeg"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/lobby/internal/core"
)

var (
	ErrNotAttached   = errors.New("no stream attached")
	ErrNoVideo       = errors.New("stream has no video track")
	ErrNotRenderable = errors.New("video track cannot be rendered")
)

type Config struct {
	FPS     int
	Quality int
}

func (c Config) interval() time.Duration {
	fps := c.FPS
	if fps <= 0 {
		fps = 10
	}
	return time.Second / time.Duration(fps)
}

// Sink receives encoded frames. A busy sink drops the frame.
type Sink interface {
	TrySendBinary(core.Frame) error
}

// Surface implements core.PreviewSurface.
type Surface struct {
	cfg    Config
	sink   Sink
	logger zerolog.Logger

	mu       sync.Mutex
	stream   core.Stream
	attached bool
	stop     chan struct{}
	done     chan struct{}

	frames  atomic.Uint64
	dropped atomic.Uint64
}

func NewSurface(cfg Config, sink Sink, sid string) *Surface {
	if cfg.Quality <= 0 || cfg.Quality > 100 {
		cfg.Quality = jpeg.DefaultQuality
	}
	return &Surface{
		cfg:    cfg,
		sink:   sink,
		logger: log.With().Str("module", "adapters.preview").Str("sid", sid).Logger(),
	}
}

func (s *Surface) Attach(stream core.Stream) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	s.stream = stream
	s.attached = true
}

// Play starts rendering the first video track of the attached stream.
// Calling it while already playing is a no-op.
func (s *Surface) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.attached {
		return ErrNotAttached
	}
	if s.stop != nil {
		return nil
	}
	videos := s.stream.VideoTracks()
	if len(videos) == 0 {
		return ErrNoVideo
	}
	src, ok := videos[0].(core.FrameSource)
	if !ok {
		return ErrNotRenderable
	}
	reader, ok := src.NewFrameReader()
	if !ok {
		return ErrNotRenderable
	}

	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.render(reader, s.stop, s.done)
	s.logger.Debug().Str("track", videos[0].ID()).Msg("preview playing")
	return nil
}

// Detach stops rendering without waiting for an in-flight read.
func (s *Surface) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	s.stream = core.Stream{}
	s.attached = false
}

func (s *Surface) stopLocked() {
	if s.stop == nil {
		return
	}
	close(s.stop)
	s.stop = nil
}

// Stats returns the number of frames sent and dropped so far.
func (s *Surface) Stats() (frames, dropped uint64) {
	return s.frames.Load(), s.dropped.Load()
}

func (s *Surface) render(r core.FrameReader, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	interval := s.cfg.interval()
	var last time.Time
	var buf bytes.Buffer
	for {
		select {
		case <-stop:
			return
		default:
		}

		img, release, err := r.Read()
		if err != nil {
			s.logger.Debug().Err(err).Msg("preview source ended")
			return
		}
		now := time.Now()
		if now.Sub(last) < interval {
			if release != nil {
				release()
			}
			continue
		}
		last = now

		buf.Reset()
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: s.cfg.Quality})
		if release != nil {
			release()
		}
		if err != nil {
			s.logger.Warn().Err(err).Msg("encode preview frame")
			continue
		}

		select {
		case <-stop:
			return
		default:
		}
		frame := make(core.Frame, buf.Len())
		copy(frame, buf.Bytes())
		if err := s.sink.TrySendBinary(frame); err != nil {
			s.dropped.Add(1)
			continue
		}
		s.frames.Add(1)
	}
}
