package handlers

import (
	"net/http"

	"chatgraph-backend/internal/models"
	"chatgraph-backend/internal/validator"
)

func (h *Handlers) CreateChannel(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	type Create struct {
		ServerID int64              `json:"serverID,string"`
		Name     string             `json:"name"`
		Type     models.ChannelType `json:"type"`
	}

	var create Create
	if !h.decodeJSON(w, r, &create) {
		return
	}

	if err := validator.ChannelName(create.Name); err != nil {
		h.sugar.Debug(err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	channel, err := h.members.CreateChannel(r.Context(), userID, create.ServerID, create.Name, create.Type)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.writeJSON(w, channel)
}

func (h *Handlers) GetChannelList(w http.ResponseWriter, r *http.Request) {
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

	channels, err := h.members.ListChannels(r.Context(), serverID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.writeJSON(w, channels)
}

func (h *Handlers) EditChannel(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	type Edit struct {
		ChannelID int64  `json:"channelID,string"`
		Name      string `json:"name"`
	}

	var edit Edit
	if !h.decodeJSON(w, r, &edit) {
		return
	}

	if err := validator.ChannelName(edit.Name); err != nil {
		h.sugar.Debug(err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.members.EditChannel(r.Context(), userID, edit.ChannelID, edit.Name); err != nil {
		h.handleError(w, err)
	}
}

func (h *Handlers) DeleteChannel(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	channelID, ok := queryID(r, "channelID")
	if !ok {
		http.Error(w, "Invalid channel ID", http.StatusBadRequest)
		return
	}

	if err := h.members.DeleteChannel(r.Context(), userID, channelID); err != nil {
		h.handleError(w, err)
	}
}
