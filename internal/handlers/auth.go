package handlers

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"chatgraph-backend/internal/validator"

	playgroundValidator "github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	type Login struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	var login Login
	if !h.decodeJSON(w, r, &login) {
		return
	}

	type Result struct {
		userID   int64
		password []byte
	}

	var result Result
	err := h.db.QueryRow("SELECT id, password FROM users WHERE email = ?", login.Email).Scan(&result.userID, &result.password)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.sugar.Debug(err)
			http.Error(w, "", http.StatusUnauthorized)
		} else {
			h.sugar.Error(err)
			http.Error(w, "", http.StatusInternalServerError)
		}
		return
	}

	err = bcrypt.CompareHashAndPassword(result.password, []byte(login.Password))
	if err != nil {
		h.sugar.Debug(err)
		http.Error(w, "", http.StatusUnauthorized)
		return
	}

	cookie, err := h.jwt.CreateToken(r.URL.Query().Get("rememberMe") == "true", result.userID)
	if err != nil {
		h.sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &cookie)
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var registerErrors = make(map[string]string)

	type Registration struct {
		Email           string `json:"email"`
		Username        string `json:"username"`
		DisplayName     string `json:"displayName"`
		Password        string `json:"password" validate:"eqfield=ConfirmPassword"`
		ConfirmPassword string `json:"confirmPassword"`
	}

	var registration Registration
	if !h.decodeJSON(w, r, &registration) {
		return
	}

	err := h.validate.Struct(registration)
	if err != nil {
		var validateErrs playgroundValidator.ValidationErrors
		if errors.As(err, &validateErrs) {
			for _, e := range validateErrs {
				registerErrors[e.Field()] = e.Tag()
			}
		} else {
			h.sugar.Error(err)
			http.Error(w, "", http.StatusInternalServerError)
			return
		}
	}

	if err := validator.Email(registration.Email); err != nil {
		registerErrors["Email"] = err.Error()
	}
	if err := validator.Username(registration.Username); err != nil {
		registerErrors["Username"] = err.Error()
	}
	if err := validator.Password(registration.Password); err != nil {
		registerErrors["Password"] = err.Error()
	}

	// sends back 400 with the form field errors
	if len(registerErrors) != 0 {
		w.WriteHeader(http.StatusBadRequest)
		h.writeJSON(w, registerErrors)
		return
	}

	var taken bool
	err = h.db.QueryRow("SELECT EXISTS(SELECT 1 FROM users WHERE email = ? OR username = ?)",
		registration.Email, registration.Username).Scan(&taken)
	if err != nil {
		h.sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}
	if taken {
		http.Error(w, "email_or_username_taken", http.StatusConflict)
		return
	}

	userID, err := h.gen.Generate()
	if err != nil {
		h.sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	displayName := registration.DisplayName
	if displayName == "" {
		displayName = registration.Username
	}

	passwordBytes, err := bcrypt.GenerateFromPassword([]byte(registration.Password), 12)
	if err != nil {
		h.sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	_, err = h.db.Exec(
		"INSERT INTO users (id, email, username, display_name, picture, password) VALUES (?, ?, ?, ?, '', ?)",
		userID, registration.Email, registration.Username, displayName, passwordBytes)
	if err != nil {
		h.sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	cookie, err := h.jwt.CreateToken(false, userID)
	if err != nil {
		h.sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &cookie)
}

// NewSession hands out the session cookie that identifies one websocket
// connection of the user.
func (h *Handlers) NewSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := h.gen.Generate()
	if err != nil {
		h.sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	sessionCookie := http.Cookie{
		Name:     "session",
		Value:    fmt.Sprint(sessionID),
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
	http.SetCookie(w, &sessionCookie)
}
