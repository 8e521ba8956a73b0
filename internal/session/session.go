// Package session stores the one active scene session each user may have.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when the user has no active session
var ErrNotFound = errors.New("session not found")

// Session is the persisted position of a user inside a scene. State holds
// the scene's own typed state, JSON encoded.
type Session struct {
	UserID    int64           `json:"user_id"`
	ChatID    int64           `json:"chat_id"`
	Scene     string          `json:"scene"`
	Nonce     string          `json:"nonce"` // changes on every entry, binds buttons to this visit
	Cursor    int             `json:"cursor"`
	State     json.RawMessage `json:"state,omitempty"`
	StartedAt time.Time       `json:"started_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Store is keyed by user id
type Store interface {
	Get(ctx context.Context, userID int64) (*Session, error)
	Put(ctx context.Context, s *Session) error
	Delete(ctx context.Context, userID int64) error
}
