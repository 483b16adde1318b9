package handlers

import (
	"net/http"
	"strconv"

	"chatgraph-backend/internal/blob"
	"chatgraph-backend/internal/identity"
	"chatgraph-backend/internal/models"
)

func (h *Handlers) GetUserInfo(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	paramUserID := r.URL.Query().Get("userID")
	if paramUserID == "" {
		http.Error(w, "", http.StatusBadRequest)
		return
	}

	var requestedUserID int64

	if paramUserID == "self" {
		requestedUserID = userID
	} else {
		var err error
		requestedUserID, err = strconv.ParseInt(paramUserID, 10, 64)
		if err != nil {
			http.Error(w, "", http.StatusBadRequest)
			return
		}
	}

	user, err := h.users.GetUser(r.Context(), requestedUserID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.writeJSON(w, user)
}

// FindUser is the case-sensitive exact username lookup used to address
// friend requests.
func (h *Handlers) FindUser(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if username == "" {
		http.Error(w, "", http.StatusBadRequest)
		return
	}

	user, err := h.users.FindUserByUsername(r.Context(), username)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.writeJSON(w, user)
}

func (h *Handlers) UpdateUserInfo(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	var fields identity.UpdateFields

	if displayName := r.URL.Query().Get("displayName"); displayName != "" {
		fields.DisplayName = &displayName
	}
	if r.URL.Query().Has("customStatus") {
		customStatus := r.URL.Query().Get("customStatus")
		fields.CustomStatus = &customStatus
	}
	if policy := r.URL.Query().Get("dmPolicy"); policy != "" {
		dmPolicy := models.DirectMessagePolicy(policy)
		fields.DMPolicy = &dmPolicy
	}

	pictureName, err := h.blobs.SaveIcon(r, "picture", blob.UserIcons)
	if err != nil && !missingFile(err) {
		h.sugar.Error(err)
		http.Error(w, "", http.StatusBadRequest)
		return
	} else if err == nil {
		fields.Picture = &pictureName
	}

	if err := h.users.UpdateUser(r.Context(), userID, fields); err != nil {
		h.handleError(w, err)
		return
	}
}

// Heartbeat keeps the caller's presence alive; clients post it on an
// interval well under the presence TTL.
func (h *Handlers) Heartbeat(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Heartbeat(r.Context(), userIDFrom(r)); err != nil {
		h.handleError(w, err)
	}
}

func (h *Handlers) GoOffline(w http.ResponseWriter, r *http.Request) {
	if err := h.users.SetOffline(r.Context(), userIDFrom(r)); err != nil {
		h.handleError(w, err)
	}
}
