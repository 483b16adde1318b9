package handlers

import (
	"net/http"

	"chatgraph-backend/internal/hub"
	"chatgraph-backend/internal/threads"
	"chatgraph-backend/internal/validator"
)

// OpenThread resolves (or lazily creates) the direct thread between the
// caller and another user.
func (h *Handlers) OpenThread(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	otherID, ok := queryID(r, "userID")
	if !ok {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	thread, err := h.threads.Open(r.Context(), userID, otherID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.writeJSON(w, thread)
}

// GetThreadList returns the caller's threads split into the active and
// request partitions. Hidden threads are simply absent.
func (h *Handlers) GetThreadList(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)
	sessionID := sessionIDFrom(r)

	active, requests, err := h.threads.List(r.Context(), userID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	if err := h.hub.Subscribe(hub.ThreadsKey(userID), sessionID); err != nil {
		h.handleError(w, err)
		return
	}

	type ThreadList struct {
		Active   []threads.View `json:"active"`
		Requests []threads.View `json:"requests"`
	}

	h.writeJSON(w, ThreadList{Active: active, Requests: requests})
}

func (h *Handlers) GetThreadMessages(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)
	sessionID := sessionIDFrom(r)

	threadID, ok := queryID(r, "threadID")
	if !ok {
		http.Error(w, "Invalid thread ID", http.StatusBadRequest)
		return
	}

	messages, err := h.messages.ListThread(r.Context(), userID, threadID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	if err := h.hub.Subscribe(hub.ThreadKey(threadID), sessionID); err != nil {
		h.handleError(w, err)
		return
	}

	h.writeJSON(w, messages)
}

func (h *Handlers) SendThreadMessage(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	threadID, ok := queryID(r, "threadID")
	if !ok {
		http.Error(w, "Invalid thread ID", http.StatusBadRequest)
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

	msg, err := h.messages.PostToThread(r.Context(), userID, threadID, content, attachment, attachmentSize)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.writeJSON(w, msg)
}
