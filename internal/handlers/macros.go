package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"chatgraph-backend/internal/apperrors"
)

// handleError maps application errors to HTTP statuses and writes the
// code and message as the body. Plain errors are logged and hidden
// behind a 500.
func (h *Handlers) handleError(w http.ResponseWriter, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Code == apperrors.CodeInternal {
			h.sugar.Error(err)
		} else {
			h.sugar.Debug(err)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(apperrors.HTTPStatus(appErr.Code))
		if encodeErr := json.NewEncoder(w).Encode(appErr); encodeErr != nil {
			h.sugar.Error(encodeErr)
		}
		return
	}

	h.sugar.Error(err)
	http.Error(w, "", http.StatusInternalServerError)
}

func (h *Handlers) writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.sugar.Error(err)
	}
}

func (h *Handlers) decodeJSON(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		h.sugar.Debug(err)
		http.Error(w, "", http.StatusBadRequest)
		return false
	}
	return true
}

// missingFile reports that a request simply carried no upload, as
// opposed to a broken one.
func missingFile(err error) bool {
	return errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart)
}

// queryID parses a required int64 query parameter; 0 is never valid.
func queryID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

func userIDFrom(r *http.Request) int64 {
	return r.Context().Value(UserIDKeyType{}).(int64)
}

func sessionIDFrom(r *http.Request) int64 {
	return r.Context().Value(SessionIDKeyType{}).(int64)
}
