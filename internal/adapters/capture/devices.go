// Package capture is the platform media layer backed by pion/mediadevices.
package capture

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/prop"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/lobby/internal/core"
)

type Config struct {
	// AllowCapture is the operator-level permission; false denies every request.
	AllowCapture bool
	Width        int
	Height       int
	FrameRate    float64
	// AcquireTimeout bounds a request; 0 waits as long as the platform does.
	AcquireTimeout time.Duration
}

// DeviceInfo describes a media device (like browser's MediaDeviceInfo).
type DeviceInfo struct {
	DeviceID string `json:"device_id"`
	Kind     string `json:"kind"`
	Label    string `json:"label"`
}

type (
	userMediaFunc func(mediadevices.MediaStreamConstraints) (mediadevices.MediaStream, error)
	enumerateFunc func() []mediadevices.MediaDeviceInfo
)

// Devices implements core.MediaLayer. It hands out at most one grant at a
// time: the camera and microphone are held by a single session.
type Devices struct {
	cfg       Config
	gum       userMediaFunc
	enumerate enumerateFunc
	logger    zerolog.Logger

	mu        sync.Mutex
	held      *grant
	nextGrant uint64
}

// grant counts the live tracks of one successful request.
type grant struct {
	id   uint64
	live int
}

func NewDevices(cfg Config) *Devices {
	return &Devices{
		cfg:       cfg,
		gum:       mediadevices.GetUserMedia,
		enumerate: mediadevices.EnumerateDevices,
		logger:    log.With().Str("module", "capture").Logger(),
	}
}

// RequestCapture implements core.MediaLayer.
func (d *Devices) RequestCapture(ctx context.Context, c core.Constraints) (core.Capture, error) {
	if !d.cfg.AllowCapture {
		return core.Capture{}, core.ErrPermissionDenied
	}
	g, err := d.lease()
	if err != nil {
		return core.Capture{}, err
	}

	if d.cfg.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.AcquireTimeout)
		defer cancel()
	}

	type result struct {
		stream mediadevices.MediaStream
		err    error
	}
	done := make(chan result, 1)
	constraints := d.constraints(c)
	go func() {
		stream, err := d.gum(constraints)
		done <- result{stream: stream, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			d.unlease(g)
			return core.Capture{}, fmt.Errorf("get user media: %w: %w", core.ErrDeviceUnavailable, r.err)
		}
		return d.wrap(g, r.stream)
	case <-ctx.Done():
		// The platform call cannot be interrupted; release whatever it returns.
		go func() {
			r := <-done
			if r.err == nil {
				for _, t := range r.stream.GetTracks() {
					_ = t.Close()
				}
			}
			d.unlease(g)
			d.logger.Info().Uint64("grant", g.id).Msg("abandoned capture released")
		}()
		return core.Capture{}, ctx.Err()
	}
}

func (d *Devices) constraints(c core.Constraints) mediadevices.MediaStreamConstraints {
	var msc mediadevices.MediaStreamConstraints
	if c.Audio {
		msc.Audio = func(*mediadevices.MediaTrackConstraints) {}
	}
	if c.Video {
		msc.Video = func(mtc *mediadevices.MediaTrackConstraints) {
			if d.cfg.Width > 0 {
				mtc.Width = prop.Int(d.cfg.Width)
			}
			if d.cfg.Height > 0 {
				mtc.Height = prop.Int(d.cfg.Height)
			}
			if d.cfg.FrameRate > 0 {
				mtc.FrameRate = prop.Float(d.cfg.FrameRate)
			}
		}
	}
	return msc
}

// wrap keeps the first track of each kind and closes the rest.
func (d *Devices) wrap(g *grant, stream mediadevices.MediaStream) (core.Capture, error) {
	var out core.Capture
	for _, t := range stream.GetTracks() {
		switch {
		case t.Kind() == webrtc.RTPCodecTypeAudio && out.Audio == nil:
			out.Audio = d.newTrack(g, t, core.KindAudio)
		case t.Kind() == webrtc.RTPCodecTypeVideo && out.Video == nil:
			out.Video = d.newTrack(g, t, core.KindVideo)
		default:
			_ = t.Close()
		}
	}
	if out.Audio == nil && out.Video == nil {
		d.unlease(g)
		return core.Capture{}, fmt.Errorf("get user media returned no tracks: %w", core.ErrDeviceUnavailable)
	}
	d.logger.Info().
		Uint64("grant", g.id).
		Bool("audio", out.Audio != nil).
		Bool("video", out.Video != nil).
		Msg("capture granted")
	return out, nil
}

func (d *Devices) newTrack(g *grant, src mediadevices.Track, kind core.Kind) *Track {
	d.mu.Lock()
	g.live++
	d.mu.Unlock()
	return &Track{src: src, kind: kind, grant: g, devices: d}
}

func (d *Devices) lease() (*grant, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.held != nil {
		return nil, core.ErrDeviceBusy
	}
	d.nextGrant++
	d.held = &grant{id: d.nextGrant}
	return d.held, nil
}

func (d *Devices) unlease(g *grant) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.held == g {
		d.held = nil
	}
}

func (d *Devices) trackStopped(g *grant) {
	d.mu.Lock()
	g.live--
	last := g.live == 0 && d.held == g
	if last {
		d.held = nil
	}
	d.mu.Unlock()
	if last {
		d.logger.Info().Uint64("grant", g.id).Msg("devices released")
	}
}

// Busy reports whether a grant is currently live.
func (d *Devices) Busy() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.held != nil
}

// Enumerate lists the capture devices known to the registered drivers.
func (d *Devices) Enumerate() []DeviceInfo {
	infos := d.enumerate()
	out := make([]DeviceInfo, 0, len(infos))
	for _, info := range infos {
		kind := "unknown"
		switch info.Kind {
		case mediadevices.VideoInput:
			kind = "videoinput"
		case mediadevices.AudioInput:
			kind = "audioinput"
		}
		out = append(out, DeviceInfo{DeviceID: info.DeviceID, Kind: kind, Label: info.Label})
	}
	return out
}
