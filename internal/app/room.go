package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/lobby/internal/core"
	"github.com/dkeye/lobby/internal/domain"
)

var ErrRoomFull = errors.New("room full")

// MemberDTO is a read-only view for APIs (no track fields).
type MemberDTO struct {
	ID       domain.UserID `json:"id"`
	Username string        `json:"username"`
	HasAudio bool          `json:"has_audio"`
	HasVideo bool          `json:"has_video"`
}

type RoomInfo struct {
	Name        domain.RoomName `json:"name"`
	MemberCount int             `json:"client_count"`
}

// Room is a threadsafe in-memory room. It is the collaborator that takes
// over the tracks of a lobby session on join and stops them on leave.
type Room struct {
	room     *domain.Room
	capacity int

	mu           sync.RWMutex
	participants map[domain.UserID]*Participant
}

func NewRoom(name domain.RoomName, capacity int) *Room {
	return &Room{
		room:         &domain.Room{Name: name},
		capacity:     capacity,
		participants: make(map[domain.UserID]*Participant),
	}
}

func (r *Room) Room() *domain.Room { return r.room }

func (r *Room) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.participants)
}

// Open implements core.RoomOpener. On error nothing of h is retained.
func (r *Room) Open(ctx context.Context, h core.Handoff) (core.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	user, err := domain.NewUser(h.DisplayName)
	if err != nil {
		return nil, fmt.Errorf("room %s: %w", r.room.Name, err)
	}
	p := &Participant{
		room:   r,
		member: domain.NewMember(user, h.Audio != nil, h.Video != nil),
		audio:  h.Audio,
		video:  h.Video,
	}

	r.mu.Lock()
	if r.capacity > 0 && len(r.participants) >= r.capacity {
		r.mu.Unlock()
		return nil, fmt.Errorf("room %s: %w", r.room.Name, ErrRoomFull)
	}
	r.participants[user.ID] = p
	r.mu.Unlock()

	log.Info().
		Str("module", "app.room").
		Str("room", string(r.room.Name)).
		Str("user", string(user.ID)).
		Str("username", user.Username).
		Bool("audio", p.member.HasAudio).
		Bool("video", p.member.HasVideo).
		Msg("participant joined")
	return p, nil
}

func (r *Room) MembersSnapshot() []MemberDTO {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]MemberDTO, 0, len(r.participants))
	for _, p := range r.participants {
		u := p.member.User
		out = append(out, MemberDTO{
			ID:       u.ID,
			Username: u.Username,
			HasAudio: p.member.HasAudio,
			HasVideo: p.member.HasVideo,
		})
	}
	return out
}

// Evict makes every participant leave, releasing their tracks.
func (r *Room) Evict() {
	r.mu.RLock()
	ps := make([]*Participant, 0, len(r.participants))
	for _, p := range r.participants {
		ps = append(ps, p)
	}
	r.mu.RUnlock()

	for _, p := range ps {
		p.Leave()
	}
}

func (r *Room) remove(id domain.UserID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.participants, id)
}

// Participant owns the tracks handed off by one lobby session.
type Participant struct {
	room   *Room
	member *domain.Member
	audio  core.Track
	video  core.Track
	once   sync.Once
}

// Leave removes the participant and stops its tracks. Safe to call twice.
func (p *Participant) Leave() {
	p.once.Do(func() {
		p.room.remove(p.member.User.ID)
		core.Capture{Audio: p.audio, Video: p.video}.Release()
		log.Info().
			Str("module", "app.room").
			Str("room", string(p.room.room.Name)).
			Str("user", string(p.member.User.ID)).
			Msg("participant left")
	})
}
