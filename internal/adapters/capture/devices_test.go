package capture

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pion/mediadevices"
	_ "github.com/pion/mediadevices/pkg/driver/audiotest"
	_ "github.com/pion/mediadevices/pkg/driver/videotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/lobby/internal/core"
)

func TestRequestCaptureDenied(t *testing.T) {
	d := NewDevices(Config{AllowCapture: false})
	_, err := d.RequestCapture(context.Background(), core.DefaultConstraints())
	require.ErrorIs(t, err, core.ErrPermissionDenied)
	assert.False(t, d.Busy())
}

func TestRequestCapturePlatformError(t *testing.T) {
	d := NewDevices(Config{AllowCapture: true})
	boom := errors.New("no camera")
	d.gum = func(mediadevices.MediaStreamConstraints) (mediadevices.MediaStream, error) {
		return nil, boom
	}

	_, err := d.RequestCapture(context.Background(), core.DefaultConstraints())
	require.ErrorIs(t, err, core.ErrDeviceUnavailable)
	require.ErrorIs(t, err, boom)
	assert.False(t, d.Busy(), "failed request must not keep the lease")
}

func TestRequestCaptureTimeout(t *testing.T) {
	d := NewDevices(Config{AllowCapture: true, AcquireTimeout: 20 * time.Millisecond})
	unblock := make(chan struct{})
	d.gum = func(mediadevices.MediaStreamConstraints) (mediadevices.MediaStream, error) {
		<-unblock
		return nil, errors.New("too late")
	}

	_, err := d.RequestCapture(context.Background(), core.DefaultConstraints())
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// Lease is held until the platform call returns.
	assert.True(t, d.Busy())
	close(unblock)
	assert.Eventually(t, func() bool { return !d.Busy() }, time.Second, 5*time.Millisecond)
}

func TestRequestCaptureTestDrivers(t *testing.T) {
	d := NewDevices(Config{AllowCapture: true})

	c, err := d.RequestCapture(context.Background(), core.DefaultConstraints())
	require.NoError(t, err)
	require.NotNil(t, c.Audio)
	require.NotNil(t, c.Video)
	assert.Equal(t, core.KindAudio, c.Audio.Kind())
	assert.Equal(t, core.KindVideo, c.Video.Kind())
	assert.NotEmpty(t, c.Video.ID())

	_, err = d.RequestCapture(context.Background(), core.DefaultConstraints())
	require.ErrorIs(t, err, core.ErrDeviceBusy)

	src, ok := c.Video.(core.FrameSource)
	require.True(t, ok)
	_, ok = src.NewFrameReader()
	assert.True(t, ok)

	c.Audio.Stop()
	assert.True(t, d.Busy(), "video still live")
	c.Video.Stop()
	c.Video.Stop()
	assert.False(t, d.Busy())

	c2, err := d.RequestCapture(context.Background(), core.DefaultConstraints())
	require.NoError(t, err)
	c2.Release()
	assert.False(t, d.Busy())
}

func TestEnumerate(t *testing.T) {
	d := NewDevices(Config{})
	d.enumerate = func() []mediadevices.MediaDeviceInfo {
		return []mediadevices.MediaDeviceInfo{
			{DeviceID: "cam0", Kind: mediadevices.VideoInput, Label: "front"},
			{DeviceID: "mic0", Kind: mediadevices.AudioInput, Label: "builtin"},
		}
	}
	got := d.Enumerate()
	require.Len(t, got, 2)
	assert.Equal(t, DeviceInfo{DeviceID: "cam0", Kind: "videoinput", Label: "front"}, got[0])
	assert.Equal(t, "audioinput", got[1].Kind)
}
