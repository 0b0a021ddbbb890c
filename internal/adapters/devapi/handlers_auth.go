package devapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/Overland-East-Bay/trip-safety-client/internal/platform/validate"
)

type userJSON struct {
	ID             string `json:"_id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Username       string `json:"username,omitempty"`
	Phone          string `json:"phone,omitempty"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

func toUserJSON(u User) userJSON {
	return userJSON{ID: u.ID, Name: u.Name, Email: u.Email, Username: u.Username, Phone: u.Phone, ProfilePicture: u.ProfilePicture}
}

type loginBody struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var in loginBody
	if !s.decode(w, r, &in) {
		return
	}

	s.mu.Lock()
	id, ok := s.byEmail[strings.ToLower(strings.TrimSpace(in.Email))]
	var u User
	if ok {
		u = *s.users[id]
	}
	s.mu.Unlock()

	if !ok || bcrypt.CompareHashAndPassword(u.passwordHash, []byte(in.Password)) != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid email or password"})
		return
	}
	tok, err := s.tokens.Mint(u.ID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "could not issue token", nil)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: s.opts.CookieName, Value: tok, Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode})
	s.log.InfoContext(r.Context(), "login", slog.String("user_id", u.ID))
	writeJSON(w, http.StatusOK, map[string]any{"token": tok, "user": toUserJSON(u)})
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	sub, _ := SubjectFromContext(r.Context())
	u, _ := s.user(sub)
	writeJSON(w, http.StatusOK, map[string]any{"user": toUserJSON(u)})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.revoke(credentialFrom(r, s.opts.CookieName))
	http.SetCookie(w, &http.Cookie{Name: s.opts.CookieName, Value: "", Path: "/", MaxAge: -1})
	writeOK(w)
}

type changePasswordBody struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8"`
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	var in changePasswordBody
	if !s.decode(w, r, &in) {
		return
	}
	sub, _ := SubjectFromContext(r.Context())
	u, _ := s.user(sub)
	if bcrypt.CompareHashAndPassword(u.passwordHash, []byte(in.CurrentPassword)) != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Current password is incorrect"})
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), bcrypt.MinCost)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "could not hash password", nil)
		return
	}
	s.mu.Lock()
	s.users[sub].passwordHash = hash
	s.mu.Unlock()
	writeOK(w)
}

// decode reads a JSON body into v and validates it. On failure it writes the
// error response and returns false.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "malformed JSON body", nil)
		return false
	}
	if err := validate.Struct(v); err != nil {
		var details map[string]any
		var ve *validate.Error
		if errors.As(err, &ve) {
			details = map[string]any{}
			for k, msg := range ve.Fields() {
				details[k] = msg
			}
		}
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), details)
		return false
	}
	return true
}
