package auth

import (
	"fmt"

	"github.com/goccy/go-json"
)

// User is the locally cached identity of the signed-in user.
type User struct {
	ID     string `json:"_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar,omitempty"`
	Bio    string `json:"bio,omitempty"`
}

// UnmarshalJSON accepts both `_id` and `id` for the identifier, since
// different endpoints of the server spell it differently.
func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	var aux struct {
		plain
		AltID string `json:"id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return fmt.Errorf("decoding user: %w", err)
	}
	*u = User(aux.plain)
	if u.ID == "" {
		u.ID = aux.AltID
	}
	return nil
}

// merge applies update to u. A server snapshot (one that carries the id)
// replaces every profile field; a partial update only overwrites the fields it
// sets. The id never changes.
func (u User) merge(update User) User {
	if update.ID != "" {
		update.ID = u.ID
		if update.Email == "" {
			update.Email = u.Email
		}
		return update
	}
	if update.Name != "" {
		u.Name = update.Name
	}
	if update.Email != "" {
		u.Email = update.Email
	}
	if update.Avatar != "" {
		u.Avatar = update.Avatar
	}
	if update.Bio != "" {
		u.Bio = update.Bio
	}
	return u
}

// Session is an authenticated identity together with its bearer credential.
// A Session value always has a non-empty Token.
type Session struct {
	User  User
	Token string
}
