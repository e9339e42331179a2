package core

import (
	"context"
	"fmt"
)

// Join moves the session to Joined and hands the tracks and display name to
// the room built by opener. Only the first call hands anything off; later
// calls return ErrAlreadyJoined.
//
// Tracks still pending at this point are released when they resolve. If the
// room cannot be opened the session stops the tracks it was about to hand off.
func (s *MediaSession) Join(ctx context.Context, opener RoomOpener) (Room, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if s.phase == PhaseJoined {
		s.mu.Unlock()
		s.logger.Debug().Str("module", "core.handoff").Msg("join ignored, already joined")
		return nil, ErrAlreadyJoined
	}
	s.phase = PhaseJoined
	s.detachLocked()
	s.surface = nil
	h := Handoff{DisplayName: s.displayName, Audio: s.audio, Video: s.video}
	s.audio, s.video = nil, nil
	s.mu.Unlock()

	s.cancel()

	logger := s.logger.With().
		Str("module", "core.handoff").
		Str("name", h.DisplayName).
		Bool("audio", h.Audio != nil).
		Bool("video", h.Video != nil).
		Logger()

	room, err := opener.Open(ctx, h)
	if err != nil {
		h.release()
		logger.Error().Err(err).Msg("room rejected handoff, tracks released")
		return nil, fmt.Errorf("open room: %w", err)
	}
	logger.Info().Msg("tracks handed off to room")
	return room, nil
}
