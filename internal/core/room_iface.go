package core

import (
	"context"
)

// Handoff is what the room collaborator receives at the Joined transition.
// Audio and Video are nil when acquisition failed or never finished.
type Handoff struct {
	DisplayName string
	Audio       Track
	Video       Track
}

func (h Handoff) release() {
	Capture{Audio: h.Audio, Video: h.Video}.Release()
}

// Room is the participant handle returned by the room collaborator.
// From Open on, the room owns the handed-off tracks.
type Room interface {
	// Leave stops everything the room owns for this participant.
	Leave()
}

// RoomOpener constructs the room side of a handoff.
// When Open returns an error it must not have kept any reference to the tracks.
type RoomOpener interface {
	Open(ctx context.Context, h Handoff) (Room, error)
}

type RoomOpenerFunc func(ctx context.Context, h Handoff) (Room, error)

func (f RoomOpenerFunc) Open(ctx context.Context, h Handoff) (Room, error) {
	return f(ctx, h)
}
