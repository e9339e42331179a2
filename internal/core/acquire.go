package core

import (
	"context"
	"errors"
	"fmt"
)

const acquireKey = "acquire"

// Acquire requests camera and microphone for the session. Concurrent callers
// share a single platform request. A session that already holds both tracks
// returns nil without asking again.
//
// A failure leaves the session previewing with no tracks; the user may call
// Acquire again or join without media.
func (s *MediaSession) Acquire(ctx context.Context) error {
	if err := s.acquireAllowed(); err != nil {
		return err
	}
	_, err, _ := s.flight.Do(acquireKey, func() (any, error) {
		return nil, s.acquire(ctx)
	})
	return err
}

func (s *MediaSession) acquireAllowed() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.phase == PhaseJoined {
		return ErrAlreadyJoined
	}
	return nil
}

func (s *MediaSession) acquire(ctx context.Context) error {
	logger := s.logger.With().Str("module", "core.acquire").Logger()

	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return ErrSessionClosed
	case s.phase == PhaseJoined:
		s.mu.Unlock()
		return ErrAlreadyJoined
	case s.audio != nil && s.video != nil:
		s.mu.Unlock()
		return nil
	}
	s.acquiring = true
	s.mu.Unlock()

	logger.Info().Msg("requesting capture")
	capture, err := s.media.RequestCapture(ctx, DefaultConstraints())
	if err == nil && (capture.Audio == nil || capture.Video == nil) {
		capture.Release()
		err = fmt.Errorf("capture returned audio=%t video=%t: %w",
			capture.Audio != nil, capture.Video != nil, ErrDeviceUnavailable)
	}

	s.mu.Lock()
	s.acquiring = false
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		// Abandoned by Join, Close or the caller; not a device failure.
		s.mu.Unlock()
		logger.Debug().Err(err).Msg("media acquisition canceled")
		return err
	}
	if err != nil {
		s.lastErr = err
		s.mu.Unlock()
		logger.Error().Err(err).Msg("media acquisition failed")
		return err
	}

	// Resolved after unmount or join: the tracks were never handed to anyone.
	if s.closed || s.phase == PhaseJoined {
		late := ErrSessionClosed
		if !s.closed {
			late = ErrAlreadyJoined
		}
		s.mu.Unlock()
		capture.Release()
		logger.Info().Err(late).Msg("released capture that resolved too late")
		return late
	}

	s.audio, s.video = capture.Audio, capture.Video
	s.lastErr = nil
	s.bindPreviewLocked()
	s.mu.Unlock()

	logger.Info().
		Str("audio_track", capture.Audio.ID()).
		Str("video_track", capture.Video.ID()).
		Msg("capture acquired")
	return nil
}
