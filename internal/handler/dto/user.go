// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"time"

	"github.com/usersvc/usersvc/internal/model"
)

// CreateUserRequest represents the request body for creating a user.
type CreateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UpdateUserRequest represents the request body for updating a user.
// Absent fields decode as nil.
type UpdateUserRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

// UserResponse represents a user in API responses.
type UserResponse struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// ErrorResponse represents an API error.
// Not-found responses use Message; all others use Error.
type ErrorResponse struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code"`
}

// ToUserResponse converts a User model to UserResponse DTO.
func ToUserResponse(user *model.User) *UserResponse {
	resp := &UserResponse{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
	}
	if !user.CreatedAt.IsZero() {
		createdAt := user.CreatedAt
		resp.CreatedAt = &createdAt
	}
	return resp
}

// ToUserListResponse converts users to a JSON array, never null.
func ToUserListResponse(users []*model.User) []*UserResponse {
	resp := make([]*UserResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, ToUserResponse(u))
	}
	return resp
}
