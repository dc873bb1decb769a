package models

import (
	"time"
)

// UserSession describes the signed-in user a workflow controller serves.
// There is no server-verified identity behind it; the backend keys quota and
// history on the bare user id.
type UserSession struct {
	ID              int64     `json:"id"`
	FirstName       string    `json:"firstName"`
	LastName        string    `json:"lastName"`
	Email           string    `json:"email"`
	GenerationsLeft int       `json:"generationsLeft"`
	CreatedAt       time.Time `json:"createdAt"`
}

// DisplayName joins the user's names, falling back to "Guest" when both are
// empty.
func (u *UserSession) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	default:
		return "Guest"
	}
}
