package core

// bindPreviewLocked routes the video track to the current surface.
// Surface and tracks may become ready in either order, so it is called
// from both sides; it does nothing until both exist.
func (s *MediaSession) bindPreviewLocked() {
	if s.surface == nil || s.video == nil || s.bound == s.video {
		return
	}
	// Video only: the user must not hear their own microphone.
	s.surface.Attach(NewStream(s.video))
	s.attached = s.video
	if err := s.surface.Play(); err != nil {
		// Left unbound so the next SurfaceReady tries again.
		s.logger.Warn().Err(err).Str("module", "core.preview").Msg("preview play failed")
		return
	}
	s.bound = s.video
	s.logger.Debug().Str("module", "core.preview").Str("track", s.video.ID()).Msg("preview bound")
}

func (s *MediaSession) detachLocked() {
	if s.surface == nil || s.attached == nil {
		return
	}
	s.surface.Detach()
	s.attached, s.bound = nil, nil
}
