// Package authclient mirrors the server's view of the current admin session
// for Go callers such as CLIs and integration tools. The mirror is pulled,
// never pushed: call CheckAuth to resync it with the server.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"youthportal/api/internal/models"
)

// Snapshot is the client's cached belief about the current session. It can
// be stale between calls.
type Snapshot struct {
	User            *models.Principal
	IsAuthenticated bool
	Loading         bool
	Error           string
}

type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger

	mu    sync.RWMutex
	state Snapshot
}

type Option func(*Client)

// WithHTTPClient replaces the default client. A client without a cookie jar
// gets one, since the session travels in a cookie.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("cookie jar: %w", err)
		}
		c.http.Jar = jar
	}
	return c, nil
}

func (c *Client) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.state
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

func (c *Client) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.IsAuthenticated && c.state.User != nil
}

// IsAdmin is derived from the mirrored role on every call.
func (c *Client) IsAdmin() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.User != nil && models.IsAdmin(c.state.User.Role)
}

func (c *Client) CanManageUsers() bool {
	return c.IsAdmin()
}

// Login reports success instead of returning an error; the failure message
// lands in the snapshot.
func (c *Client) Login(ctx context.Context, email, password string) bool {
	c.set(Snapshot{Loading: true})

	var data struct {
		User models.Principal `json:"user"`
	}
	err := c.call(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &data)
	if err != nil {
		c.set(Snapshot{Error: err.Error()})
		return false
	}

	c.set(Snapshot{User: &data.User, IsAuthenticated: true})
	return true
}

// Logout clears local state whether or not the server call succeeds.
func (c *Client) Logout(ctx context.Context) {
	c.setLoading()
	if err := c.call(ctx, http.MethodPost, "/api/auth/logout", nil, nil); err != nil {
		c.log.Warn().Err(err).Msg("logout request failed")
	}
	c.set(Snapshot{})
}

// CheckAuth resyncs the snapshot with the server and reports whether a
// session is active.
func (c *Client) CheckAuth(ctx context.Context) bool {
	c.setLoading()

	var data struct {
		IsAuthenticated bool              `json:"isAuthenticated"`
		User            *models.Principal `json:"user"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/auth/check", nil, &data); err != nil {
		c.set(Snapshot{Error: err.Error()})
		return false
	}
	if !data.IsAuthenticated || data.User == nil {
		c.set(Snapshot{})
		return false
	}
	c.set(Snapshot{User: data.User, IsAuthenticated: true})
	return true
}

func (c *Client) set(s Snapshot) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Client) setLoading() {
	c.mu.Lock()
	c.state.Loading = true
	c.state.Error = ""
	c.mu.Unlock()
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *errorBody      `json:"error"`
	Message string          `json:"message"`
}

// call performs a request and decodes a success envelope into out. Errors
// carry the most specific message available: the envelope's error message,
// then a top-level message, then the transport or status text.
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	switch {
	case decodeErr == nil && env.Error != nil && env.Error.Message != "":
		return errors.New(env.Error.Message)
	case decodeErr == nil && !env.Success && env.Message != "":
		return errors.New(env.Message)
	case resp.StatusCode >= http.StatusBadRequest:
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	case decodeErr != nil:
		return fmt.Errorf("decode response: %w", decodeErr)
	case !env.Success:
		return errors.New("request was not successful")
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
	}
	return nil
}
