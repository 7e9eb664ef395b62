package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rocketscienceinc/tictactoe-variants/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-variants/internal/entity"
)

const maxNameLength = 32

type sessionManager interface {
	CreateSession(ctx context.Context, kind entity.Kind, name string) (*entity.Seating, error)
	JoinSession(ctx context.Context, code, name string) (*entity.Seating, error)
	GetSession(ctx context.Context, code string) (*entity.Session, error)
}

type handlers struct {
	logger  *slog.Logger
	manager sessionManager
}

type createSessionRequest struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
}

type joinSessionRequest struct {
	Name string `json:"name"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (that *handlers) listGames(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]entity.Kind{"games": entity.Kinds()})
}

func (that *handlers) createSession(w http.ResponseWriter, r *http.Request) {
	var request createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	kind, err := entity.ParseKind(request.Kind)
	if err != nil {
		that.writeError(w, r, err)
		return
	}

	seating, err := that.manager.CreateSession(r.Context(), kind, trimName(request.Name))
	if err != nil {
		that.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, seating)
}

func (that *handlers) joinSession(w http.ResponseWriter, r *http.Request) {
	var request joinSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	seating, err := that.manager.JoinSession(r.Context(), chi.URLParam(r, "code"), trimName(request.Name))
	if err != nil {
		that.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, seating)
}

func (that *handlers) getSession(w http.ResponseWriter, r *http.Request) {
	session, err := that.manager.GetSession(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		that.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

func (that *handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		that.logger.Error("request failed", "path", r.URL.Path, "error", err)
		writeJSON(w, status, errorResponse{Error: "internal server error"})

		return
	}

	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, apperror.ErrUnknownGameKind):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrSessionFull):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func trimName(name string) string {
	if runes := []rune(name); len(runes) > maxNameLength {
		return string(runes[:maxNameLength])
	}

	return name
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
