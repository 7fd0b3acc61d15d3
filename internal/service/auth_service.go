package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"youthportal/api/internal/ids"
	"youthportal/api/internal/models"
	"youthportal/api/internal/repository"
	"youthportal/api/internal/security"
	"youthportal/api/internal/session"
)

var (
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrInsufficientPrivileges = errors.New("insufficient privileges")
	ErrAccountInactive        = errors.New("account inactive")
	ErrPrincipalUnavailable   = errors.New("principal no longer valid")
)

type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
}

type AuthService struct {
	users    UserStore
	sessions *session.Manager
	tokens   *security.TokenIssuer
	log      zerolog.Logger
}

func NewAuthService(
	users UserStore,
	sessions *session.Manager,
	tokens *security.TokenIssuer,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		log:      log,
	}
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

// Authenticate validates email and password against the stored hash. Unknown
// emails and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, fmt.Errorf("lookup user: %w", err)
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("stored password hash unreadable")
		return models.User{}, ErrInvalidCredentials
	}
	if !ok {
		return models.User{}, ErrInvalidCredentials
	}

	if !user.Active {
		return models.User{}, ErrAccountInactive
	}
	return user, nil
}

type LoginInput struct {
	Email    string
	Password string
	// PreviousSessionID is the session the browser presented, if any. It is
	// destroyed so a login never reuses an existing session id.
	PreviousSessionID string
}

type LoginResult struct {
	Session        session.Session
	Principal      models.Principal
	Token          string
	TokenExpiresAt time.Time
}

// Login authenticates an admin-panel user and opens a session for them.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (LoginResult, error) {
	user, err := s.Authenticate(ctx, input.Email, input.Password)
	if err != nil {
		return LoginResult{}, err
	}

	if !models.CanAccessPanel(user.Role) {
		return LoginResult{}, ErrInsufficientPrivileges
	}

	if input.PreviousSessionID != "" {
		if err := s.sessions.Destroy(ctx, input.PreviousSessionID); err != nil {
			s.log.Warn().Err(err).Msg("destroy previous session failed")
		}
	}

	principal := user.Principal()
	sess, err := s.sessions.Create(ctx, principal)
	if err != nil {
		return LoginResult{}, err
	}

	token, expiresAt, err := s.tokens.Issue(user.ID, user.Email, string(user.Role))
	if err != nil {
		if derr := s.sessions.Destroy(ctx, sess.ID); derr != nil {
			s.log.Warn().Err(derr).Msg("rollback session after token failure")
		}
		return LoginResult{}, err
	}

	s.log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("login succeeded")

	return LoginResult{
		Session:        sess,
		Principal:      principal,
		Token:          token,
		TokenExpiresAt: expiresAt,
	}, nil
}

func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.Destroy(ctx, sessionID)
}

// LookupPrincipal re-reads the user behind a credential. Missing and
// deactivated users both come back as ErrPrincipalUnavailable.
func (s *AuthService) LookupPrincipal(ctx context.Context, userID string) (models.Principal, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.Principal{}, ErrPrincipalUnavailable
		}
		return models.Principal{}, fmt.Errorf("lookup principal: %w", err)
	}
	if !user.Active || !user.Role.Valid() {
		return models.Principal{}, ErrPrincipalUnavailable
	}
	return user.Principal(), nil
}

func (s *AuthService) IssueToken(p models.Principal) (string, time.Time, error) {
	return s.tokens.Issue(p.ID, p.Email, string(p.Role))
}

func (s *AuthService) RevokeSessions(ctx context.Context, userID string) (int, error) {
	n, err := s.sessions.DestroyAllForUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.log.Info().Str("user_id", userID).Int("sessions", n).Msg("user sessions revoked")
	return n, nil
}

type CreateUserInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      models.UserRole
}

func (s *AuthService) CreateUser(ctx context.Context, input CreateUserInput) (models.User, error) {
	email := normalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return models.User{}, errors.New("email and password required")
	}
	if len(input.Password) < 8 {
		return models.User{}, errors.New("password must be at least 8 characters")
	}
	if !input.Role.Valid() {
		return models.User{}, fmt.Errorf("unknown role %q", input.Role)
	}

	hash, err := security.HashPassword(input.Password)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Role:         input.Role,
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return models.User{}, err
	}
	return user, nil
}
