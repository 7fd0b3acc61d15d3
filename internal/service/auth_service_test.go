package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"youthportal/api/internal/models"
	"youthportal/api/internal/repository"
	"youthportal/api/internal/security"
	"youthportal/api/internal/service"
	"youthportal/api/internal/service/servicetest"
	"youthportal/api/internal/session"
	"youthportal/api/internal/session/sessiontest"
)

type fixture struct {
	svc      *service.AuthService
	users    *servicetest.MemoryUsers
	store    *sessiontest.MemoryStore
	sessions *session.Manager
	tokens   *security.TokenIssuer
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	users := servicetest.NewMemoryUsers()
	store := sessiontest.NewMemoryStore(nil)
	sessions := session.NewManager(session.Options{Store: store, Timeout: 30 * time.Minute, Logger: zerolog.Nop()})
	tokens := security.NewTokenIssuer("jwt-secret", 15*time.Minute)
	return fixture{
		svc:      service.NewAuthService(users, sessions, tokens, zerolog.Nop()),
		users:    users,
		store:    store,
		sessions: sessions,
		tokens:   tokens,
	}
}

func TestAuthService_Login(t *testing.T) {
	f := newFixture(t)
	f.users.Add("u1", "admin@example.org", "s3cret-pass", models.UserRoleAdmin)

	res, err := f.svc.Login(context.Background(), service.LoginInput{
		Email:    "  Admin@Example.org ",
		Password: "s3cret-pass",
	})
	require.NoError(t, err)
	assert.Equal(t, "u1", res.Principal.ID)
	assert.True(t, res.Session.IsAdmin)
	assert.True(t, f.store.Has(res.Session.ID))

	claims, err := f.tokens.Parse(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
}

func TestAuthService_LoginEditorIsNotAdmin(t *testing.T) {
	f := newFixture(t)
	f.users.Add("u1", "ed@example.org", "s3cret-pass", models.UserRoleEditor)

	res, err := f.svc.Login(context.Background(), service.LoginInput{Email: "ed@example.org", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.False(t, res.Session.IsAdmin)
}

func TestAuthService_LoginFailures(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(f fixture)
		email   string
		pass    string
		wantErr error
	}{
		{
			name:    "unknown email",
			setup:   func(fixture) {},
			email:   "nobody@example.org",
			pass:    "whatever1",
			wantErr: service.ErrInvalidCredentials,
		},
		{
			name: "wrong password",
			setup: func(f fixture) {
				f.users.Add("u1", "a@example.org", "right-pass", models.UserRoleAdmin)
			},
			email:   "a@example.org",
			pass:    "wrong-pass",
			wantErr: service.ErrInvalidCredentials,
		},
		{
			name: "plain user cannot enter panel",
			setup: func(f fixture) {
				f.users.Add("u1", "a@example.org", "right-pass", models.UserRoleUser)
			},
			email:   "a@example.org",
			pass:    "right-pass",
			wantErr: service.ErrInsufficientPrivileges,
		},
		{
			name: "inactive account",
			setup: func(f fixture) {
				f.users.Add("u1", "a@example.org", "right-pass", models.UserRoleAdmin)
				f.users.Update("u1", func(u *models.User) { u.Active = false })
			},
			email:   "a@example.org",
			pass:    "right-pass",
			wantErr: service.ErrAccountInactive,
		},
		{
			name: "session store down",
			setup: func(f fixture) {
				f.users.Add("u1", "a@example.org", "right-pass", models.UserRoleAdmin)
				f.store.Down = true
			},
			email:   "a@example.org",
			pass:    "right-pass",
			wantErr: session.ErrSessionUnavailable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(f)
			_, err := f.svc.Login(context.Background(), service.LoginInput{Email: tt.email, Password: tt.pass})
			assert.ErrorIs(t, err, tt.wantErr)
			f.store.Down = false
			assert.Zero(t, f.store.Len())
		})
	}
}

func TestAuthService_LoginReplacesPreviousSession(t *testing.T) {
	f := newFixture(t)
	f.users.Add("u1", "a@example.org", "right-pass", models.UserRoleAdmin)
	ctx := context.Background()

	first, err := f.svc.Login(ctx, service.LoginInput{Email: "a@example.org", Password: "right-pass"})
	require.NoError(t, err)

	second, err := f.svc.Login(ctx, service.LoginInput{
		Email:             "a@example.org",
		Password:          "right-pass",
		PreviousSessionID: first.Session.ID,
	})
	require.NoError(t, err)
	assert.NotEqual(t, first.Session.ID, second.Session.ID)
	assert.False(t, f.store.Has(first.Session.ID))
	assert.True(t, f.store.Has(second.Session.ID))
}

func TestAuthService_LookupPrincipal(t *testing.T) {
	f := newFixture(t)
	f.users.Add("u1", "a@example.org", "right-pass", models.UserRoleModerator)
	ctx := context.Background()

	p, err := f.svc.LookupPrincipal(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.UserRoleModerator, p.Role)

	f.users.Update("u1", func(u *models.User) { u.Active = false })
	_, err = f.svc.LookupPrincipal(ctx, "u1")
	assert.ErrorIs(t, err, service.ErrPrincipalUnavailable)

	_, err = f.svc.LookupPrincipal(ctx, "ghost")
	assert.ErrorIs(t, err, service.ErrPrincipalUnavailable)

	f.users.Down = true
	_, err = f.svc.LookupPrincipal(ctx, "u1")
	assert.ErrorIs(t, err, servicetest.ErrDatabaseDown)
}

func TestAuthService_RevokeSessions(t *testing.T) {
	f := newFixture(t)
	f.users.Add("u1", "a@example.org", "right-pass", models.UserRoleAdmin)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := f.svc.Login(ctx, service.LoginInput{Email: "a@example.org", Password: "right-pass"})
		require.NoError(t, err)
	}

	n, err := f.svc.RevokeSessions(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Zero(t, f.store.Len())
}

func TestAuthService_CreateUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.svc.CreateUser(ctx, service.CreateUserInput{
		Email:    "New@Example.org",
		Password: "long-enough",
		Role:     models.UserRoleSuperAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, "new@example.org", user.Email)
	assert.NotEmpty(t, user.ID)

	authed, err := f.svc.Authenticate(ctx, "new@example.org", "long-enough")
	require.NoError(t, err)
	assert.Equal(t, user.ID, authed.ID)

	_, err = f.svc.CreateUser(ctx, service.CreateUserInput{Email: "new@example.org", Password: "long-enough", Role: models.UserRoleUser})
	assert.ErrorIs(t, err, repository.ErrEmailTaken)

	_, err = f.svc.CreateUser(ctx, service.CreateUserInput{Email: "x@example.org", Password: "short", Role: models.UserRoleUser})
	assert.Error(t, err)

	_, err = f.svc.CreateUser(ctx, service.CreateUserInput{Email: "y@example.org", Password: "long-enough", Role: "ROOT"})
	assert.Error(t, err)
}
