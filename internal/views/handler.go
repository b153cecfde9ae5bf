package views

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/inamate/viewport/internal/auth"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type applyRequest struct {
	RoomID string `json:"roomId"`
}

// Routes registers the view endpoints on an authenticated subrouter.
func (h *Handler) Routes(api *mux.Router) {
	api.HandleFunc("/views", h.List).Methods("GET")
	api.HandleFunc("/views", h.Create).Methods("POST")
	api.HandleFunc("/views/{viewId}", h.Get).Methods("GET")
	api.HandleFunc("/views/{viewId}", h.Delete).Methods("DELETE")
	api.HandleFunc("/views/{viewId}/apply", h.Apply).Methods("POST")
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req CreateInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	view, err := h.service.Create(r.Context(), req, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, view)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	viewID := mux.Vars(r)["viewId"]

	view, err := h.service.Get(r.Context(), viewID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	views, err := h.service.List(r.Context(), userID)
	if err != nil {
		slog.Error("list views failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	viewID := mux.Vars(r)["viewId"]

	if err := h.service.Delete(r.Context(), viewID, userID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	viewID := mux.Vars(r)["viewId"]

	var req applyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RoomID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "roomId is required"})
		return
	}

	view, err := h.service.Apply(r.Context(), viewID, req.RoomID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, ErrRoomNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "room not found"})
	case errors.Is(err, ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
	case errors.Is(err, ErrInvalidView):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		slog.Error("service error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
