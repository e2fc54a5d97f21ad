// Package domain contains core domain types for the soil advisor client.
package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// UserID is an opaque user identifier. The service may send it as a JSON
// number or a JSON string; the text is kept as received.
type UserID string

func (id UserID) String() string { return string(id) }

// UnmarshalJSON accepts a number, a string or null.
func (id *UserID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*id = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode user id: %w", err)
		}
		*id = UserID(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("decode user id %s: %w", data, err)
		}
		*id = UserID(n)
	}
	return nil
}

// MarshalJSON writes numeric ids as numbers and everything else as strings.
func (id UserID) MarshalJSON() ([]byte, error) {
	if id != "" && id[0] != '"' && json.Valid([]byte(id)) {
		var n json.Number
		if json.Unmarshal([]byte(id), &n) == nil {
			return []byte(id), nil
		}
	}
	return json.Marshal(string(id))
}

// UserProfile is the identity returned by the auth endpoints.
type UserProfile struct {
	ID    UserID `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// DisplayName returns the name, falling back to the email address.
func (u *UserProfile) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// Credential is the durable token and identity pair persisted on this device.
type Credential struct {
	Token string
	User  *UserProfile
}

// IsEmpty returns true if no token is stored.
func (c Credential) IsEmpty() bool {
	return c.Token == ""
}
