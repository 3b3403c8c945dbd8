package ws

import "github.com/cwrk-planet/presence-service/internal/domain"

// Client events. Anything else is ignored.
const (
	EventDirtyTrue   = "form_dirty_true"
	EventDirtyFalse  = "form_dirty_false"
	EventForceUnlock = "force_unlock"
)

type ClientMessage struct {
	Event string `json:"event"`
}

// PeopleHere is the room state as rendered on the wire. All
// participants see the same view.
type PeopleHere struct {
	Owner   *string  `json:"owner"`
	Users   []string `json:"users_list"`
	IsDirty bool     `json:"is_dirty"`
}

// ServerMessage is the per-recipient payload: the shared room state
// plus the recipient's own identifier, so the client can compute
// "am I the owner".
type ServerMessage struct {
	PeopleHere  PeopleHere `json:"people_here"`
	CurrentUser string     `json:"current_user"`
}

func render(st domain.RoomState, recipient string) ServerMessage {
	users := st.Members
	if users == nil {
		users = []string{}
	}
	return ServerMessage{
		PeopleHere: PeopleHere{
			Owner:   st.Owner,
			Users:   users,
			IsDirty: st.IsDirty,
		},
		CurrentUser: recipient,
	}
}
