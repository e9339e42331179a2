package domain

// Member represents user's participation meta for a room.
// No transport or lifecycle logic here.
type Member struct {
	User     *User
	HasAudio bool
	HasVideo bool
}

// NewMember avoids raw literals in adapters and keeps construction obvious.
func NewMember(user *User, hasAudio, hasVideo bool) *Member {
	return &Member{User: user, HasAudio: hasAudio, HasVideo: hasVideo}
}
