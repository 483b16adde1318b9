package handlers

import (
	"fmt"
	"net/http"

	"chatgraph-backend/internal/models"
)

// GetMediaToken mints a room token for a voice channel, members only.
// The room is keyed by the channel ID.
func (h *Handlers) GetMediaToken(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	channelID, ok := queryID(r, "channelID")
	if !ok {
		http.Error(w, "Invalid channel ID", http.StatusBadRequest)
		return
	}

	channel, err := h.members.GetChannel(r.Context(), channelID)
	if err != nil {
		h.handleError(w, err)
		return
	}
	if channel.Type != models.ChannelVoice {
		http.Error(w, "Not a voice channel", http.StatusBadRequest)
		return
	}

	isMember, err := h.members.IsMember(r.Context(), channel.ServerID, userID)
	if err != nil {
		h.handleError(w, err)
		return
	}
	if !isMember {
		http.Error(w, "", http.StatusForbidden)
		return
	}

	user, err := h.users.GetUser(r.Context(), userID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	token, err := h.media.IssueToken(fmt.Sprint(channelID), user.DisplayName)
	if err != nil {
		h.handleError(w, err)
		return
	}

	type MediaToken struct {
		Token string `json:"token"`
	}

	h.writeJSON(w, MediaToken{Token: token})
}
