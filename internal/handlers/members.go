package handlers

import (
	"net/http"

	"chatgraph-backend/internal/models"
)

func (h *Handlers) GetMemberList(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	serverID, ok := queryID(r, "serverID")
	if !ok {
		http.Error(w, "Invalid server ID", http.StatusBadRequest)
		return
	}

	isMember, err := h.members.IsMember(r.Context(), serverID, userID)
	if err != nil {
		h.handleError(w, err)
		return
	}
	if !isMember {
		http.Error(w, "", http.StatusForbidden)
		return
	}

	members, err := h.members.ListMembers(r.Context(), serverID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.writeJSON(w, members)
}

func (h *Handlers) KickMember(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	type Kick struct {
		ServerID int64 `json:"serverID,string"`
		UserID   int64 `json:"userID,string"`
	}

	var kick Kick
	if !h.decodeJSON(w, r, &kick) {
		return
	}

	if err := h.members.Kick(r.Context(), userID, kick.ServerID, kick.UserID); err != nil {
		h.handleError(w, err)
	}
}

// ChangeMemberRole carries the role the caller believes the target has,
// so a concurrent change surfaces as a conflict instead of silently
// overwriting.
func (h *Handlers) ChangeMemberRole(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	type RoleChange struct {
		ServerID    int64       `json:"serverID,string"`
		UserID      int64       `json:"userID,string"`
		NewRole     models.Role `json:"newRole"`
		CurrentRole models.Role `json:"currentRole"`
	}

	var change RoleChange
	if !h.decodeJSON(w, r, &change) {
		return
	}

	err := h.members.ChangeRole(r.Context(), userID, change.ServerID, change.UserID, change.NewRole, change.CurrentRole)
	if err != nil {
		h.handleError(w, err)
	}
}

func (h *Handlers) SetNickname(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	type Nickname struct {
		ServerID int64  `json:"serverID,string"`
		Nickname string `json:"nickname"`
	}

	var nickname Nickname
	if !h.decodeJSON(w, r, &nickname) {
		return
	}

	if err := h.members.SetNickname(r.Context(), userID, nickname.ServerID, nickname.Nickname); err != nil {
		h.handleError(w, err)
	}
}
