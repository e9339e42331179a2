package core

import (
	"context"
	"image"
)

type Kind string

const (
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

// Track is a single live capture handle handed out by the MediaLayer.
// Stop releases the underlying device and must be safe to call more than once.
type Track interface {
	ID() string
	Kind() Kind
	Stop()
}

// FrameReader yields decoded video frames. release, when non-nil, must be
// called once the frame is no longer used.
type FrameReader interface {
	Read() (img image.Image, release func(), err error)
}

// FrameSource is implemented by video tracks that can be rendered locally.
type FrameSource interface {
	NewFrameReader() (FrameReader, bool)
}

// Stream is a playable set of tracks, as attached to a preview surface.
type Stream struct {
	tracks []Track
}

func NewStream(tracks ...Track) Stream {
	out := make([]Track, 0, len(tracks))
	for _, t := range tracks {
		if t != nil {
			out = append(out, t)
		}
	}
	return Stream{tracks: out}
}

func (s Stream) Tracks() []Track {
	out := make([]Track, len(s.tracks))
	copy(out, s.tracks)
	return out
}

func (s Stream) VideoTracks() []Track {
	out := make([]Track, 0, len(s.tracks))
	for _, t := range s.tracks {
		if t.Kind() == KindVideo {
			out = append(out, t)
		}
	}
	return out
}

// Constraints selects which kinds of capture are requested.
// Device selection is left to the platform.
type Constraints struct {
	Audio bool
	Video bool
}

func DefaultConstraints() Constraints {
	return Constraints{Audio: true, Video: true}
}

// Capture is the result of one grant from the MediaLayer.
type Capture struct {
	Audio Track
	Video Track
}

// Release stops every track of the capture.
func (c Capture) Release() {
	if c.Audio != nil {
		c.Audio.Stop()
	}
	if c.Video != nil {
		c.Video.Stop()
	}
}

// MediaLayer is the platform capture API (getUserMedia).
type MediaLayer interface {
	// RequestCapture asks for the constrained tracks. It may block for as long
	// as the platform needs (permission prompt). When it returns an error no
	// track of the attempt may remain live.
	RequestCapture(ctx context.Context, c Constraints) (Capture, error)
}

// PreviewSurface renders the local video before joining.
// Its methods are called with the session lock held and must not call back
// into the session.
type PreviewSurface interface {
	Attach(Stream)
	Play() error
	// Detach stops rendering. The tracks of the stream stay live.
	Detach()
}
