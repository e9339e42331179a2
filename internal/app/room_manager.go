package app

import (
	"sort"
	"sync"

	"github.com/dkeye/lobby/internal/domain"
)

type RoomManager struct {
	capacity int

	mu    sync.RWMutex
	rooms map[domain.RoomName]*Room
}

// NewRoomManager creates rooms holding at most capacity participants (0 = unbounded).
func NewRoomManager(capacity int) *RoomManager {
	return &RoomManager{
		capacity: capacity,
		rooms:    make(map[domain.RoomName]*Room),
	}
}

func (f *RoomManager) GetOrCreate(name domain.RoomName) *Room {
	f.mu.RLock()
	room, ok := f.rooms[name]
	f.mu.RUnlock()
	if ok {
		return room
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if room, ok = f.rooms[name]; ok {
		return room
	}
	room = NewRoom(name, f.capacity)
	f.rooms[name] = room
	return room
}

func (f *RoomManager) Get(name domain.RoomName) (*Room, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	room, ok := f.rooms[name]
	return room, ok
}

func (f *RoomManager) List() []RoomInfo {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]RoomInfo, 0, len(f.rooms))
	for name, r := range f.rooms {
		out = append(out, RoomInfo{Name: name, MemberCount: r.MemberCount()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// StopRoom evicts every participant and forgets the room.
func (f *RoomManager) StopRoom(name domain.RoomName) {
	f.mu.Lock()
	room, ok := f.rooms[name]
	delete(f.rooms, name)
	f.mu.Unlock()
	if ok {
		room.Evict()
	}
}

func (f *RoomManager) StopAll() {
	f.mu.RLock()
	names := make([]domain.RoomName, 0, len(f.rooms))
	for name := range f.rooms {
		names = append(names, name)
	}
	f.mu.RUnlock()
	for _, name := range names {
		f.StopRoom(name)
	}
}
