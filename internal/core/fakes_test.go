package core

import (
	"context"
	"sync"
	"sync/atomic"
)

type fakeTrack struct {
	id    string
	kind  Kind
	stops atomic.Int32
}

func newFakeTrack(id string, kind Kind) *fakeTrack {
	return &fakeTrack{id: id, kind: kind}
}

func (t *fakeTrack) ID() string   { return t.id }
func (t *fakeTrack) Kind() Kind   { return t.kind }
func (t *fakeTrack) Stop()        { t.stops.Add(1) }
func (t *fakeTrack) Stopped() int { return int(t.stops.Load()) }

type captureResult struct {
	capture Capture
	err     error
}

// fakeMedia answers RequestCapture either immediately (result) or when the
// test sends on release.
type fakeMedia struct {
	requests atomic.Int32
	result   captureResult
	release  chan captureResult
	started  chan struct{}
}

func newFakeMedia(c Capture, err error) *fakeMedia {
	return &fakeMedia{result: captureResult{capture: c, err: err}, started: make(chan struct{}, 16)}
}

func newBlockingMedia() *fakeMedia {
	return &fakeMedia{release: make(chan captureResult, 1), started: make(chan struct{}, 16)}
}

func (m *fakeMedia) RequestCapture(_ context.Context, c Constraints) (Capture, error) {
	m.requests.Add(1)
	m.started <- struct{}{}
	if !c.Audio || !c.Video {
		panic("expected audio and video to be requested")
	}
	if m.release != nil {
		r := <-m.release
		return r.capture, r.err
	}
	return m.result.capture, m.result.err
}

func (m *fakeMedia) Requests() int { return int(m.requests.Load()) }

type fakeSurface struct {
	mu       sync.Mutex
	attached []Stream
	plays    int
	detaches int
	playErr  error
}

func (s *fakeSurface) Attach(st Stream) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attached = append(s.attached, st)
}

func (s *fakeSurface) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plays++
	return s.playErr
}

func (s *fakeSurface) SetPlayErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playErr = err
}

func (s *fakeSurface) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detaches++
}

func (s *fakeSurface) Attached() []Stream {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Stream, len(s.attached))
	copy(out, s.attached)
	return out
}

func (s *fakeSurface) Counts() (plays, detaches int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plays, s.detaches
}

type fakeRoom struct {
	left atomic.Int32
}

func (r *fakeRoom) Leave() { r.left.Add(1) }

type fakeOpener struct {
	mu       sync.Mutex
	handoffs []Handoff
	err      error
}

func (o *fakeOpener) Open(_ context.Context, h Handoff) (Room, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.handoffs = append(o.handoffs, h)
	if o.err != nil {
		return nil, o.err
	}
	return &fakeRoom{}, nil
}

func (o *fakeOpener) Handoffs() []Handoff {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Handoff, len(o.handoffs))
	copy(out, o.handoffs)
	return out
}

func liveCapture() (Capture, *fakeTrack, *fakeTrack) {
	a := newFakeTrack("trackA", KindAudio)
	v := newFakeTrack("trackB", KindVideo)
	return Capture{Audio: a, Video: v}, a, v
}
