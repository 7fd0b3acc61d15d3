// Package servicetest holds in-memory collaborators for service and HTTP tests.
package servicetest

import (
	"context"
	"errors"
	"sync"

	"youthportal/api/internal/models"
	"youthportal/api/internal/repository"
	"youthportal/api/internal/security"
)

var ErrDatabaseDown = errors.New("database down")

// Cheap argon2 parameters; fixtures only.
var fastParams = security.Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

type MemoryUsers struct {
	mu    sync.Mutex
	byID  map[string]models.User
	Down  bool
	Reads int
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{byID: map[string]models.User{}}
}

// Add stores an active user with the given plaintext password.
func (m *MemoryUsers) Add(id, email, password string, role models.UserRole) models.User {
	hash, err := security.HashPasswordWithParams(password, fastParams)
	if err != nil {
		panic(err)
	}
	user := models.User{
		ID:           id,
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Test",
		LastName:     id,
		Role:         role,
		Active:       true,
	}
	m.mu.Lock()
	m.byID[id] = user
	m.mu.Unlock()
	return user
}

func (m *MemoryUsers) Update(id string, fn func(*models.User)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byID[id]
	if !ok {
		return
	}
	fn(&user)
	m.byID[id] = user
}

func (m *MemoryUsers) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
}

func (m *MemoryUsers) Create(_ context.Context, user models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Down {
		return ErrDatabaseDown
	}
	for _, u := range m.byID {
		if u.Email == user.Email {
			return repository.ErrEmailTaken
		}
	}
	m.byID[user.ID] = user
	return nil
}

func (m *MemoryUsers) FindByEmail(_ context.Context, email string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reads++
	if m.Down {
		return models.User{}, ErrDatabaseDown
	}
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (m *MemoryUsers) GetByID(_ context.Context, id string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reads++
	if m.Down {
		return models.User{}, ErrDatabaseDown
	}
	u, ok := m.byID[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return u, nil
}
