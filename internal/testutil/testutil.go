// Package testutil provides shared fakes for lobby tests.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dkeye/lobby/internal/core"
)

// Track is a core.Track that counts Stop calls.
type Track struct {
	id    string
	kind  core.Kind
	stops atomic.Int32
}

func NewTrack(id string, kind core.Kind) *Track {
	return &Track{id: id, kind: kind}
}

func (t *Track) ID() string      { return t.id }
func (t *Track) Kind() core.Kind { return t.kind }
func (t *Track) Stop()           { t.stops.Add(1) }

// Stops reports how many times Stop was called.
func (t *Track) Stops() int { return int(t.stops.Load()) }

// Media is a core.MediaLayer that hands out a fresh audio/video pair per
// request, or Err when set.
type Media struct {
	mu       sync.Mutex
	Err      error
	granted  []*Track
	requests atomic.Int32
}

func (m *Media) RequestCapture(_ context.Context, _ core.Constraints) (core.Capture, error) {
	n := m.requests.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return core.Capture{}, m.Err
	}
	a := NewTrack(fmt.Sprintf("audio-%d", n), core.KindAudio)
	v := NewTrack(fmt.Sprintf("video-%d", n), core.KindVideo)
	m.granted = append(m.granted, a, v)
	return core.Capture{Audio: a, Video: v}, nil
}

func (m *Media) Requests() int { return int(m.requests.Load()) }

// Granted returns every track handed out so far.
func (m *Media) Granted() []*Track {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Track, len(m.granted))
	copy(out, m.granted)
	return out
}

// Surface is a no-op core.PreviewSurface.
type Surface struct {
	attached atomic.Int32
}

func (s *Surface) Attach(core.Stream) { s.attached.Add(1) }
func (s *Surface) Play() error        { return nil }
func (s *Surface) Detach()            {}

func (s *Surface) Attached() int { return int(s.attached.Load()) }
