package handlers

import (
	"net/http"

	"chatgraph-backend/internal/hub"
	"chatgraph-backend/internal/models"
)

// GetRelationships returns the caller's friends, pending requests and
// block list in one shot and subscribes the session to the caller's
// relationship stream.
func (h *Handlers) GetRelationships(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)
	sessionID := sessionIDFrom(r)

	friends, err := h.rel.ListFriends(r.Context(), userID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	incoming, outgoing, err := h.rel.ListRequests(r.Context(), userID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	blocked, err := h.rel.ListBlocked(r.Context(), userID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	if err := h.hub.Subscribe(hub.RelationshipsKey(userID), sessionID); err != nil {
		h.handleError(w, err)
		return
	}

	type Relationships struct {
		Friends  []models.User       `json:"friends"`
		Incoming []models.Friendship `json:"incoming"`
		Outgoing []models.Friendship `json:"outgoing"`
		Blocked  []models.User       `json:"blocked"`
	}

	h.writeJSON(w, Relationships{Friends: friends, Incoming: incoming, Outgoing: outgoing, Blocked: blocked})
}

// SendFriendRequest addresses the receiver by exact username.
func (h *Handlers) SendFriendRequest(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	type Request struct {
		Username string `json:"username"`
	}

	var request Request
	if !h.decodeJSON(w, r, &request) {
		return
	}

	receiver, err := h.users.FindUserByUsername(r.Context(), request.Username)
	if err != nil {
		h.handleError(w, err)
		return
	}

	friendship, err := h.rel.SendFriendRequest(r.Context(), userID, receiver.ID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.writeJSON(w, friendship)
}

func (h *Handlers) RespondToRequest(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	type Response struct {
		RequestID int64 `json:"requestID,string"`
		Accept    bool  `json:"accept"`
	}

	var response Response
	if !h.decodeJSON(w, r, &response) {
		return
	}

	if err := h.rel.RespondToRequest(r.Context(), userID, response.RequestID, response.Accept); err != nil {
		h.handleError(w, err)
	}
}

func (h *Handlers) CancelRequest(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	requestID, ok := queryID(r, "requestID")
	if !ok {
		http.Error(w, "Invalid request ID", http.StatusBadRequest)
		return
	}

	if err := h.rel.CancelRequest(r.Context(), userID, requestID); err != nil {
		h.handleError(w, err)
	}
}

func (h *Handlers) RemoveFriend(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	otherID, ok := queryID(r, "userID")
	if !ok {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	if err := h.rel.RemoveFriendship(r.Context(), userID, otherID); err != nil {
		h.handleError(w, err)
	}
}

func (h *Handlers) BlockUser(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	otherID, ok := queryID(r, "userID")
	if !ok {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	if err := h.rel.Block(r.Context(), userID, otherID); err != nil {
		h.handleError(w, err)
	}
}

func (h *Handlers) UnblockUser(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	otherID, ok := queryID(r, "userID")
	if !ok {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	if err := h.rel.Unblock(r.Context(), userID, otherID); err != nil {
		h.handleError(w, err)
	}
}
