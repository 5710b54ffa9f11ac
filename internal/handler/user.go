package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/usersvc/usersvc/internal/handler/dto"
	"github.com/usersvc/usersvc/internal/repository"
	"github.com/usersvc/usersvc/internal/service"
)

// UserHandler handles HTTP requests for user operations.
type UserHandler struct {
	svc               *service.UserService
	logger            *slog.Logger
	exposeStoreErrors bool
}

// NewUserHandler creates a new UserHandler.
// When exposeStoreErrors is set, 500 responses carry the store's own
// error message.
func NewUserHandler(svc *service.UserService, logger *slog.Logger, exposeStoreErrors bool) *UserHandler {
	return &UserHandler{
		svc:               svc,
		logger:            logger,
		exposeStoreErrors: exposeStoreErrors,
	}
}

// List handles GET /api/users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToUserListResponse(users))
}

// Get handles GET /api/users/{id}.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToUserResponse(user))
}

// Create handles POST /api/users.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateUserRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	user, err := h.svc.CreateUser(r.Context(), service.CreateUserInput{
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("user_created", "user_id", user.ID)

	writeJSON(w, http.StatusCreated, dto.ToUserResponse(user))
}

// Update handles PUT /api/users/{id}.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateUserRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	user, err := h.svc.UpdateUser(r.Context(), service.UpdateUserInput{
		ID:    chi.URLParam(r, "id"),
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("user_updated", "user_id", user.ID)

	writeJSON(w, http.StatusOK, dto.ToUserResponse(user))
}

// Delete handles DELETE /api/users/{id}.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.svc.DeleteUser(r.Context(), id); err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("user_deleted", "user_id", id)

	w.WriteHeader(http.StatusNoContent)
}

// handleServiceError maps service errors to HTTP responses.
func (h *UserHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{
			Message: "User not found",
			Code:    "USER_NOT_FOUND",
		})
	case errors.Is(err, service.ErrMissingFields):
		h.writeError(w, http.StatusBadRequest, "MISSING_FIELDS", "Name and email are required")
	case errors.Is(err, service.ErrEmailExists):
		h.writeError(w, http.StatusConflict, "EMAIL_EXISTS", "Email already exists")
	default:
		h.logger.Error("internal_error", "error", err)

		message := "An internal error occurred"
		var storeErr *repository.StoreError
		if h.exposeStoreErrors && errors.As(err, &storeErr) {
			message = storeErr.Message()
		}
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", message)
	}
}

// decodeBody decodes a JSON request body into v. An empty body leaves v at
// its zero value, the same as "{}".
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// writeError writes an error response.
func (h *UserHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}
