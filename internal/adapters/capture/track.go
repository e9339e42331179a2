package capture

import (
	"sync"

	"github.com/pion/mediadevices"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/lobby/internal/core"
)

// Track is a core.Track over a mediadevices track.
type Track struct {
	src     mediadevices.Track
	kind    core.Kind
	grant   *grant
	devices *Devices
	once    sync.Once
}

func (t *Track) ID() string      { return t.src.ID() }
func (t *Track) Kind() core.Kind { return t.kind }

// Stop closes the device track. The grant is returned once all of its
// tracks are stopped.
func (t *Track) Stop() {
	t.once.Do(func() {
		if err := t.src.Close(); err != nil {
			log.Warn().Err(err).Str("module", "capture").Str("track", t.src.ID()).Msg("track close")
		}
		t.devices.trackStopped(t.grant)
	})
}

// NewFrameReader implements core.FrameSource for video tracks.
func (t *Track) NewFrameReader() (core.FrameReader, bool) {
	vt, ok := t.src.(*mediadevices.VideoTrack)
	if !ok {
		return nil, false
	}
	return vt.NewReader(false), true
}
