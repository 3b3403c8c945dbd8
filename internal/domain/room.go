package domain

import (
	"github.com/samber/lo"
)

// RoomState is the presence snapshot for one editable resource. A user
// appears in Members once per open connection (one user with two tabs
// occupies two slots), in join order. Owner is advisory: the member
// currently entitled to edit, not a hard lock.
type RoomState struct {
	Owner   *string  `json:"owner"`
	Members []string `json:"users_list"`
	IsDirty bool     `json:"is_dirty"`
}

// Empty reports whether the room has no remaining members. An empty
// room is equivalent to a room that does not exist.
func (s RoomState) Empty() bool {
	return len(s.Members) == 0
}

// OwnerIs reports whether user is the current owner.
func (s RoomState) OwnerIs(user string) bool {
	return s.Owner != nil && *s.Owner == user
}

func (s RoomState) clone() RoomState {
	out := RoomState{IsDirty: s.IsDirty}
	if s.Owner != nil {
		o := *s.Owner
		out.Owner = &o
	}
	out.Members = make([]string, len(s.Members))
	copy(out.Members, s.Members)
	return out
}

// Join appends user to the member list. The first member to join an
// empty room becomes its owner; later joins never change ownership.
func (s RoomState) Join(user string) RoomState {
	next := s.clone()
	next.Members = append(next.Members, user)
	if next.Owner == nil {
		next.Owner = &user
	}
	return next
}

// Leave removes the first occurrence of user from the member list. If
// the leaving user was the owner, ownership passes to the
// earliest-joined remaining member, which may be another tab of the
// same user, or lapses entirely when the room empties. A room with no
// owner cannot be dirty. Leave of a user not in the room returns the
// state unchanged; callers should log it, as it indicates a
// double-fired disconnect.
func (s RoomState) Leave(user string) RoomState {
	i := lo.IndexOf(s.Members, user)
	if i < 0 {
		return s
	}

	next := s.clone()
	next.Members = append(next.Members[:i], next.Members[i+1:]...)
	if next.OwnerIs(user) {
		if len(next.Members) > 0 {
			next.Owner = &next.Members[0]
		} else {
			next.Owner = nil
		}
	}
	if next.Owner == nil {
		next.IsDirty = false
	}
	return next
}

// SetDirty sets the unsaved-changes flag.
func (s RoomState) SetDirty(dirty bool) RoomState {
	next := s.clone()
	next.IsDirty = dirty
	return next
}

// ForceUnlock transfers ownership to user without touching the member
// list. Deliberately unconditional: any participant may take
// ownership, including one not present in the room (policy subject to
// revision).
func (s RoomState) ForceUnlock(user string) RoomState {
	next := s.clone()
	next.Owner = &user
	return next
}
