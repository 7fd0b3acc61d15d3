package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"youthportal/api/internal/models"
	"youthportal/api/internal/security"
)

const DefaultWarningWindow = 5 * time.Minute

type Options struct {
	Store         Store
	Timeout       time.Duration
	WarningWindow time.Duration
	Logger        zerolog.Logger
	Now           func() time.Time
	NewID         func() (string, error)

	// ExpiredGrace keeps a record in the store this long past ExpiresAt so
	// Load can still report it as expired. Zero means one Timeout.
	ExpiredGrace time.Duration
}

type Manager struct {
	store         Store
	timeout       time.Duration
	warningWindow time.Duration
	expiredGrace  time.Duration
	log           zerolog.Logger
	now           func() time.Time
	newID         func() (string, error)
}

func NewManager(opts Options) *Manager {
	m := &Manager{
		store:         opts.Store,
		timeout:       opts.Timeout,
		warningWindow: opts.WarningWindow,
		expiredGrace:  opts.ExpiredGrace,
		log:           opts.Logger,
		now:           opts.Now,
		newID:         opts.NewID,
	}
	if m.warningWindow == 0 {
		m.warningWindow = DefaultWarningWindow
	}
	if m.expiredGrace <= 0 {
		m.expiredGrace = m.timeout
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.newID == nil {
		m.newID = security.NewSessionID
	}
	return m
}

func (m *Manager) Timeout() time.Duration { return m.timeout }

// storeTTL outlives ExpiresAt by the grace window; the store dropping a
// record must never be the first sign that it expired.
func (m *Manager) storeTTL() time.Duration { return m.timeout + m.expiredGrace }

// Create starts an authenticated session for p. A store failure is returned
// as ErrSessionUnavailable; no session exists afterwards.
func (m *Manager) Create(ctx context.Context, p models.Principal) (Session, error) {
	if p.ID == "" {
		return Session{}, fmt.Errorf("%w: empty id", ErrInvalidPrincipal)
	}
	if !p.Role.Valid() {
		return Session{}, fmt.Errorf("%w: unknown role %q", ErrInvalidPrincipal, p.Role)
	}

	id, err := m.newID()
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}

	now := m.now()
	sess := Session{
		ID:             id,
		UserID:         p.ID,
		Email:          p.Email,
		Role:           p.Role,
		FirstName:      p.FirstName,
		LastName:       p.LastName,
		IsAdmin:        models.IsAdmin(p.Role),
		CreatedAt:      now,
		LastActivityAt: now,
		ExpiresAt:      now.Add(m.timeout),
	}

	if err := m.store.Save(ctx, sess, m.storeTTL()); err != nil {
		m.log.Error().Err(err).Str("user_id", p.ID).Msg("session create failed")
		return Session{}, fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}

	m.log.Debug().Str("user_id", p.ID).Str("role", string(p.Role)).Msg("session created")
	return sess, nil
}

// Load resolves a session id. Expired sessions are destroyed and reported
// with ErrExpired alongside the stale record. Store read failures come back
// as ErrSessionUnavailable; the caller must not treat them as a verdict on
// the session itself.
func (m *Manager) Load(ctx context.Context, id string) (Session, error) {
	if id == "" {
		return Session{}, ErrNotFound
	}

	sess, err := m.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrNotFound
		}
		m.log.Error().Err(err).Msg("session read failed")
		return Session{}, fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}

	if sess.Anonymous() {
		return sess, nil
	}

	if sess.ExpiresAt.IsZero() || !m.now().Before(sess.ExpiresAt) {
		if err := m.store.Delete(ctx, id); err != nil {
			m.log.Warn().Err(err).Str("user_id", sess.UserID).Msg("expired session cleanup failed")
		}
		return sess, ErrExpired
	}

	return sess, nil
}

// UpdateActivity slides the expiration window forward from now.
func (m *Manager) UpdateActivity(ctx context.Context, sess *Session) error {
	if sess == nil || sess.Anonymous() {
		return nil
	}

	now := m.now()
	sess.LastActivityAt = now
	sess.ExpiresAt = now.Add(m.timeout)

	if err := m.store.Save(ctx, *sess, m.storeTTL()); err != nil {
		return fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}
	return nil
}

// Destroy removes the session. Unknown ids are not an error.
func (m *Manager) Destroy(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := m.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

func (m *Manager) DestroyAllForUser(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, nil
	}
	n, err := m.store.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("destroy user sessions: %w", err)
	}
	return n, nil
}

// TimeRemaining is never negative; it is zero once expired or when no
// expiration is recorded.
func (m *Manager) TimeRemaining(sess Session) time.Duration {
	if sess.ExpiresAt.IsZero() {
		return 0
	}
	remaining := sess.ExpiresAt.Sub(m.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (m *Manager) IsExpiringSoon(sess Session) bool {
	remaining := m.TimeRemaining(sess)
	return remaining > 0 && remaining < m.warningWindow
}

func (m *Manager) Ping(ctx context.Context) error {
	if err := m.store.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}
	return nil
}
