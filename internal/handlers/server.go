package handlers

import (
	"net/http"

	"chatgraph-backend/internal/apperrors"
	"chatgraph-backend/internal/blob"
	"chatgraph-backend/internal/hub"
	"chatgraph-backend/internal/validator"
)

func (h *Handlers) CreateServer(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	name := r.FormValue("name")
	if err := validator.ServerName(name); err != nil {
		h.sugar.Debug(err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	picture, err := h.blobs.SaveIcon(r, "picture", blob.ServerIcons)
	if err != nil && !missingFile(err) {
		h.sugar.Error(err)
		http.Error(w, "", http.StatusBadRequest)
		return
	}

	server, err := h.members.CreateServer(r.Context(), userID, name, picture)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.writeJSON(w, server)
}

// GetServerList returns the caller's servers and subscribes the session
// to each of their change streams.
func (h *Handlers) GetServerList(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)
	sessionID := sessionIDFrom(r)

	servers, err := h.members.ListServers(r.Context(), userID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	for _, server := range servers {
		if err := h.hub.Subscribe(hub.ServerKey(server.ID), sessionID); err != nil {
			h.handleError(w, err)
			return
		}
	}

	h.writeJSON(w, servers)
}

func (h *Handlers) UpdateServer(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	serverID, ok := queryID(r, "serverID")
	if !ok {
		http.Error(w, "Invalid server ID", http.StatusBadRequest)
		return
	}

	// an empty name means keep the current one
	name := r.FormValue("name")
	if name != "" {
		if err := validator.ServerName(name); err != nil {
			h.sugar.Debug(err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	picture, err := h.blobs.SaveIcon(r, "picture", blob.ServerIcons)
	if err != nil && !missingFile(err) {
		h.sugar.Error(err)
		http.Error(w, "", http.StatusBadRequest)
		return
	}

	if err := h.members.UpdateServer(r.Context(), userID, serverID, name, picture); err != nil {
		h.handleError(w, err)
	}
}

func (h *Handlers) DeleteServer(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	serverID, ok := queryID(r, "serverID")
	if !ok {
		http.Error(w, "Invalid server ID", http.StatusBadRequest)
		return
	}

	if err := h.members.DeleteServer(r.Context(), userID, serverID); err != nil {
		h.handleError(w, err)
	}
}

func (h *Handlers) JoinServer(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	type Join struct {
		InviteCode string `json:"inviteCode"`
	}

	var join Join
	if !h.decodeJSON(w, r, &join) {
		return
	}

	server, err := h.members.JoinByInvite(r.Context(), userID, join.InviteCode)
	// already being a member is a redirect, not a failure
	if err != nil && !apperrors.Is(err, apperrors.CodeAlreadyExists) {
		h.handleError(w, err)
		return
	}

	h.writeJSON(w, server)
}

func (h *Handlers) LeaveServer(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	serverID, ok := queryID(r, "serverID")
	if !ok {
		http.Error(w, "Invalid server ID", http.StatusBadRequest)
		return
	}

	if err := h.members.Leave(r.Context(), userID, serverID); err != nil {
		h.handleError(w, err)
	}
}

// RegenerateInvite invalidates the old invite code and returns a new one.
func (h *Handlers) RegenerateInvite(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	serverID, ok := queryID(r, "serverID")
	if !ok {
		http.Error(w, "Invalid server ID", http.StatusBadRequest)
		return
	}

	inviteCode, err := h.members.RegenerateInvite(r.Context(), userID, serverID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	type Invite struct {
		InviteCode string `json:"inviteCode"`
	}

	h.writeJSON(w, Invite{InviteCode: inviteCode})
}
