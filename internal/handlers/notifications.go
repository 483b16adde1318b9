package handlers

import (
	"net/http"

	"chatgraph-backend/internal/hub"
)

// GetNotifications returns the undrained queue and subscribes the
// session to new ones. Missed realtime pushes are covered by the next
// fetch; that is the whole delivery guarantee.
func (h *Handlers) GetNotifications(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)
	sessionID := sessionIDFrom(r)

	notifications, err := h.fanout.List(r.Context(), userID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	if err := h.hub.Subscribe(hub.NotificationsKey(userID), sessionID); err != nil {
		h.handleError(w, err)
		return
	}

	h.writeJSON(w, notifications)
}

func (h *Handlers) DrainNotifications(w http.ResponseWriter, r *http.Request) {
	if err := h.fanout.Drain(r.Context(), userIDFrom(r)); err != nil {
		h.handleError(w, err)
	}
}
