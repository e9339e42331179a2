package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinHandsOffTracksAndName(t *testing.T) {
	c, audio, video := liveCapture()
	surface := &fakeSurface{}
	opener := &fakeOpener{}
	s := NewMediaSession(context.Background(), "sid", newFakeMedia(c, nil))

	s.SurfaceReady(surface)
	s.Wait()
	require.Len(t, surface.Attached(), 1)
	assert.Equal(t, []Track{video}, surface.Attached()[0].Tracks())

	require.NoError(t, s.SetDisplayName("Ana"))
	room, err := s.Join(context.Background(), opener)
	require.NoError(t, err)
	require.NotNil(t, room)

	_, err = s.Join(context.Background(), opener)
	assert.ErrorIs(t, err, ErrAlreadyJoined)

	handoffs := opener.Handoffs()
	require.Len(t, handoffs, 1)
	assert.Equal(t, "Ana", handoffs[0].DisplayName)
	assert.Same(t, audio, handoffs[0].Audio)
	assert.Same(t, video, handoffs[0].Video)
	assert.Equal(t, PhaseJoined, s.Phase())

	s.Close()
	assert.Zero(t, audio.Stopped(), "tracks belong to the room")
	assert.Zero(t, video.Stopped(), "tracks belong to the room")
	assert.Len(t, surface.Attached(), 1, "no rebinding after join")
}

func TestJoinAfterDeniedAcquisitionHandsOffNoTracks(t *testing.T) {
	surface := &fakeSurface{}
	opener := &fakeOpener{}
	s := NewMediaSession(context.Background(), "sid", newFakeMedia(Capture{}, ErrPermissionDenied))
	defer s.Close()

	s.SurfaceReady(surface)
	s.Wait()
	assert.Equal(t, PhasePreviewing, s.Phase())
	assert.Empty(t, surface.Attached())

	_, err := s.Join(context.Background(), opener)
	require.NoError(t, err)

	handoffs := opener.Handoffs()
	require.Len(t, handoffs, 1)
	assert.Empty(t, handoffs[0].DisplayName)
	assert.Nil(t, handoffs[0].Audio)
	assert.Nil(t, handoffs[0].Video)
}

func TestJoinDetachesPreviewAndBlocksRebinding(t *testing.T) {
	c, _, _ := liveCapture()
	surface := &fakeSurface{}
	s := NewMediaSession(context.Background(), "sid", newFakeMedia(c, nil))
	defer s.Close()

	s.SurfaceReady(surface)
	s.Wait()

	_, err := s.Join(context.Background(), &fakeOpener{})
	require.NoError(t, err)
	_, detaches := surface.Counts()
	assert.Equal(t, 1, detaches)

	s.SurfaceReady(&fakeSurface{})
	s.SurfaceReady(surface)
	assert.Len(t, surface.Attached(), 1)
	assert.False(t, s.Snapshot().Previewing)
	assert.ErrorIs(t, s.Acquire(context.Background()), ErrAlreadyJoined)
}

func TestPendingAcquisitionAfterJoinIsReleased(t *testing.T) {
	media := newBlockingMedia()
	opener := &fakeOpener{}
	s := NewMediaSession(context.Background(), "sid", media)
	defer s.Close()

	s.SurfaceReady(&fakeSurface{})
	<-media.started

	_, err := s.Join(context.Background(), opener)
	require.NoError(t, err)

	c, audio, video := liveCapture()
	media.release <- captureResult{capture: c}
	s.Wait()

	assert.Equal(t, 1, audio.Stopped())
	assert.Equal(t, 1, video.Stopped())
	handoffs := opener.Handoffs()
	require.Len(t, handoffs, 1)
	assert.Nil(t, handoffs[0].Audio)
	assert.Nil(t, handoffs[0].Video)
}

func TestRejectedHandoffReleasesTracks(t *testing.T) {
	c, audio, video := liveCapture()
	rejection := errors.New("room full")
	opener := &fakeOpener{err: rejection}
	s := NewMediaSession(context.Background(), "sid", newFakeMedia(c, nil))

	require.NoError(t, s.Acquire(context.Background()))
	_, err := s.Join(context.Background(), opener)
	assert.ErrorIs(t, err, rejection)
	assert.Equal(t, 1, audio.Stopped())
	assert.Equal(t, 1, video.Stopped())
	assert.Equal(t, PhaseJoined, s.Phase())

	s.Close()
	assert.Equal(t, 1, audio.Stopped())
	assert.Equal(t, 1, video.Stopped())
}

func TestRoomOpenerFunc(t *testing.T) {
	var got Handoff
	opener := RoomOpenerFunc(func(_ context.Context, h Handoff) (Room, error) {
		got = h
		return &fakeRoom{}, nil
	})
	s := NewMediaSession(context.Background(), "sid", newFakeMedia(Capture{}, nil))
	defer s.Close()
	require.NoError(t, s.SetDisplayName("Ana"))

	_, err := s.Join(context.Background(), opener)
	require.NoError(t, err)
	assert.Equal(t, "Ana", got.DisplayName)
}

func TestStreamVideoTracks(t *testing.T) {
	a := newFakeTrack("a", KindAudio)
	v := newFakeTrack("v", KindVideo)
	st := NewStream(a, nil, v)
	assert.Len(t, st.Tracks(), 2)
	assert.Equal(t, []Track{v}, st.VideoTracks())
}
