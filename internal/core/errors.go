package core

import "errors"

var (
	ErrPermissionDenied  = errors.New("media permission denied")
	ErrDeviceUnavailable = errors.New("media device unavailable")
	ErrDeviceBusy        = errors.New("media device busy")

	ErrAlreadyJoined = errors.New("session already joined")
	ErrSessionClosed = errors.New("session closed")
)
