// Package model defines domain entities for the application.
package model

import "time"

// User is the single resource managed by the service.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Clone returns a copy of the user that shares no state with u.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
