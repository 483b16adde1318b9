package handlers

import (
	"net/http"
	"strconv"
)

// HandleWebSocket upgrades the connection. The session cookie from
// /api/auth/newSession names this connection in the hub; fetch
// endpoints then subscribe it to streams.
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	sessionCookie, err := r.Cookie("session")
	if err != nil {
		h.sugar.Debug(err)
		http.Error(w, "No session cookie was provided", http.StatusUnauthorized)
		return
	}

	sessionID, err := strconv.ParseInt(sessionCookie.Value, 10, 64)
	if err != nil {
		h.sugar.Error(err)
		http.Error(w, "Session cookie is in improper format", http.StatusBadRequest)
		return
	}

	h.hub.HandleClient(w, r, userID, sessionID)
}
