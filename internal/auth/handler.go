package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/inamate/viewport/internal/engine"
	"github.com/inamate/viewport/internal/input"
)

// SessionViewport is the viewport configuration rooms are created with.
// It is returned with every session so a browser engine can be built with
// the same wheel curve, fit policy and gates as the server's rooms.
type SessionViewport struct {
	Stretch             engine.StretchMode `json:"stretch"`
	ZoomSpeed           float64            `json:"zoomSpeed"`
	PowerFactor         float64            `json:"powerFactor"`
	TransitionThreshold float64            `json:"transitionThreshold"`
	Gates               input.Gates        `json:"gates"`
}

func NewSessionViewport(opts engine.Options, gates input.Gates) SessionViewport {
	return SessionViewport{
		Stretch:             opts.Stretch,
		ZoomSpeed:           opts.ZoomSpeed,
		PowerFactor:         opts.PowerFactor,
		TransitionThreshold: opts.TransitionThreshold,
		Gates:               gates,
	}
}

// Session is the body of register, login and me responses.
type Session struct {
	Token    string          `json:"token,omitempty"`
	User     User            `json:"user"`
	Viewport SessionViewport `json:"viewport"`
}

type Handler struct {
	service  *Service
	viewport SessionViewport
}

func NewHandler(service *Service, viewport SessionViewport) *Handler {
	return &Handler{service: service, viewport: viewport}
}

type credentials struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName,omitempty"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := h.service.Register(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, h.session(result.Token, result.User))
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.session(result.Token, result.User))
}

// Me handles GET /api/me behind AuthMiddleware.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUser(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.session("", *user))
}

func (h *Handler) session(token string, user User) Session {
	return Session{Token: token, User: user, Viewport: h.viewport}
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrEmailTaken):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "email already registered"})
	case errors.Is(err, ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
	case errors.Is(err, ErrUserNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
	default:
		slog.Error("auth error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
