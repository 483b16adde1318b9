package handlers

import (
	"net/http"

	"chatgraph-backend/internal/hub"
	"chatgraph-backend/internal/validator"
)

// CreateMessage posts to a text channel. Multipart form, so a message
// can carry an attachment next to its text.
func (h *Handlers) CreateMessage(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	channelID, ok := queryID(r, "channelID")
	if !ok {
		http.Error(w, "Invalid channel ID", http.StatusBadRequest)
		return
	}

	content := r.FormValue("message")

	attachment, attachmentSize, err := h.blobs.SaveAttachment(r, "attachment")
	if err != nil && !missingFile(err) {
		h.sugar.Error(err)
		http.Error(w, "", http.StatusBadRequest)
		return
	}

	if attachment == "" {
		if err := validator.MessageContent(content); err != nil {
			h.sugar.Debug(err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	msg, err := h.messages.PostToChannel(r.Context(), userID, channelID, content, attachment, attachmentSize)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.writeJSON(w, msg)
}

// GetMessageList returns a channel's history and subscribes the session
// to the channel stream, so history plus stream covers every message.
func (h *Handlers) GetMessageList(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)
	sessionID := sessionIDFrom(r)

	channelID, ok := queryID(r, "channelID")
	if !ok {
		http.Error(w, "Invalid channel ID", http.StatusBadRequest)
		return
	}

	messages, err := h.messages.ListChannel(r.Context(), userID, channelID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	if err := h.hub.Subscribe(hub.ChannelKey(channelID), sessionID); err != nil {
		h.handleError(w, err)
		return
	}

	h.writeJSON(w, messages)
}

func (h *Handlers) EditMessage(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	type Edit struct {
		MessageID int64  `json:"messageID,string"`
		Message   string `json:"message"`
	}

	var edit Edit
	if !h.decodeJSON(w, r, &edit) {
		return
	}

	if err := validator.MessageContent(edit.Message); err != nil {
		h.sugar.Debug(err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.messages.Edit(r.Context(), userID, edit.MessageID, edit.Message); err != nil {
		h.handleError(w, err)
	}
}

func (h *Handlers) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	messageID, ok := queryID(r, "messageID")
	if !ok {
		http.Error(w, "Invalid message ID", http.StatusBadRequest)
		return
	}

	if err := h.messages.Delete(r.Context(), userID, messageID); err != nil {
		h.handleError(w, err)
	}
}
