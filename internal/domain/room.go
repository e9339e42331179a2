package domain

import (
	"errors"
	"unicode/utf8"
)

const MaxRoomNameLen = 36

var ErrRoomNameTooLong = errors.New("room name too long")

type RoomName string

type Room struct {
	Name RoomName
}

// NewRoomName validates raw, falling back to def when raw is empty.
func NewRoomName(raw string, def RoomName) (RoomName, error) {
	if raw == "" {
		return def, nil
	}
	if utf8.RuneCountInString(raw) > MaxRoomNameLen {
		return "", ErrRoomNameTooLong
	}
	return RoomName(raw), nil
}
