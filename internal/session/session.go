// Package session owns the lifecycle of server-side admin sessions: creation
// on login, rolling expiration on activity, and destruction on logout,
// expiry or eviction. No other package writes session fields.
package session

import (
	"context"
	"errors"
	"time"

	"youthportal/api/internal/models"
)

var (
	ErrNotFound           = errors.New("session not found")
	ErrExpired            = errors.New("session expired")
	ErrSessionUnavailable = errors.New("session store unavailable")
	ErrInvalidPrincipal   = errors.New("invalid session principal")
)

// Session is the persisted record behind a session cookie. An empty UserID
// marks an anonymous session, which is never authenticated.
type Session struct {
	ID             string          `json:"id"`
	UserID         string          `json:"userId,omitempty"`
	Email          string          `json:"email,omitempty"`
	Role           models.UserRole `json:"role,omitempty"`
	FirstName      string          `json:"firstName,omitempty"`
	LastName       string          `json:"lastName,omitempty"`
	IsAdmin        bool            `json:"isAdmin"`
	CreatedAt      time.Time       `json:"createdAt"`
	LastActivityAt time.Time       `json:"lastActivityAt"`
	ExpiresAt      time.Time       `json:"expiresAt"`
}

func (s Session) Anonymous() bool { return s.UserID == "" }

// Store is the key-value backend. Save must apply ttl to the record.
// Get returns ErrNotFound for unknown ids; Delete succeeds for unknown ids.
type Store interface {
	Save(ctx context.Context, sess Session, ttl time.Duration) error
	Get(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, userID string) (int, error)
	Ping(ctx context.Context) error
}
