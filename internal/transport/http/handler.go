package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cwrk-planet/presence-service/internal/roomkey"
	"github.com/cwrk-planet/presence-service/internal/service"
)

type Handler struct {
	presence *service.PresenceService
}

func NewHandler(presence *service.PresenceService) *Handler {
	return &Handler{presence: presence}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type PresenceResponse struct {
	Owner   *string  `json:"owner"`
	Users   []string `json:"users_list"`
	IsDirty bool     `json:"is_dirty"`
}

// GET /presence/pages/{page path}
//
// Read-only snapshot of a room for admin UI polling. A room nobody is
// in reads as the default empty state.
func (h *Handler) GetPresence(w http.ResponseWriter, r *http.Request) {
	roomID := roomkey.Normalize(chi.URLParam(r, "*"))
	if roomID == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "missing page"})
		return
	}

	st, err := h.presence.Snapshot(r.Context(), roomID)
	if err != nil {
		slog.Error("handler.GetPresence:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "presence unavailable"})
		return
	}

	users := st.Members
	if users == nil {
		users = []string{}
	}
	writeJSON(w, http.StatusOK, PresenceResponse{
		Owner:   st.Owner,
		Users:   users,
		IsDirty: st.IsDirty,
	})
}
