package middleware

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"youthportal/api/internal/metrics"
	"youthportal/api/internal/models"
	"youthportal/api/internal/service"
	"youthportal/api/internal/session"
)

// State is the gate's classification of a request.
type State int

const (
	StateNoCredential State = iota
	StateCredentialInvalid
	StateCredentialExpired
	StateInsufficientRole
	StateValid
)

func (s State) String() string {
	switch s {
	case StateNoCredential:
		return "NO_CREDENTIAL"
	case StateCredentialInvalid:
		return "CREDENTIAL_INVALID"
	case StateCredentialExpired:
		return "CREDENTIAL_EXPIRED"
	case StateInsufficientRole:
		return "VALID_INSUFFICIENT_ROLE"
	case StateValid:
		return "VALID"
	default:
		return "UNKNOWN"
	}
}

// Credential is what a CredentialSource resolved from a request. Session is
// set only for cookie credentials.
type Credential struct {
	UserID  string
	Session *session.Session
}

// CredentialSource extracts and verifies one kind of credential carrier.
type CredentialSource interface {
	Surface() string
	Extract(c *gin.Context) (raw string, ok bool)
	// Resolve returns an error only when the backing store could not be
	// read; the credential itself has not been judged in that case.
	Resolve(ctx context.Context, raw string) (Credential, State, error)
	// Revoke drops server and client state for a credential that failed
	// validation after it was presented.
	Revoke(c *gin.Context, cred Credential)
	// Accept runs once the request is classified VALID.
	Accept(c *gin.Context, cred *Credential)
}

// Outcomes turns a failed classification into a response.
type Outcomes interface {
	Reject(c *gin.Context, d Decision)
}

type PrincipalLookup interface {
	LookupPrincipal(ctx context.Context, userID string) (models.Principal, error)
}

type Decision struct {
	State      State
	Principal  models.Principal
	Credential Credential
}

type GateConfig struct {
	Source     CredentialSource
	Outcomes   Outcomes
	Principals PrincipalLookup
	Metrics    *metrics.Metrics
	Logger     zerolog.Logger
}

// Gate classifies each request as anonymous, authenticated, or authenticated
// with too little privilege. The credential carrier and the response style
// are supplied by cfg; the state machine is shared.
type Gate struct {
	cfg        GateConfig
	evictBelow models.UserRole
}

func NewGate(cfg GateConfig) *Gate {
	return &Gate{cfg: cfg}
}

// WithEviction returns a gate that destroys the credential of any principal
// ranked below floor, in addition to refusing the request.
func (g *Gate) WithEviction(floor models.UserRole) *Gate {
	clone := *g
	clone.evictBelow = floor
	return &clone
}

// Evaluate runs the state machine. Nothing is attached to the request until
// the principal has been re-read and confirmed active.
func (g *Gate) Evaluate(c *gin.Context, allowed []models.UserRole) Decision {
	d := g.evaluate(c, allowed)
	g.cfg.Metrics.ObserveGate(g.cfg.Source.Surface(), d.State.String())
	return d
}

func (g *Gate) evaluate(c *gin.Context, allowed []models.UserRole) Decision {
	ctx := c.Request.Context()
	src := g.cfg.Source

	raw, ok := src.Extract(c)
	if !ok {
		return Decision{State: StateNoCredential}
	}

	// Backend failures are served as anonymous and never revoke: an outage
	// must not log everyone out.
	cred, state, err := src.Resolve(ctx, raw)
	if err != nil {
		g.cfg.Logger.Error().Err(err).Str("surface", src.Surface()).Msg("credential lookup failed")
		return Decision{State: StateNoCredential}
	}
	if state != StateValid {
		if state != StateNoCredential {
			src.Revoke(c, cred)
		}
		return Decision{State: state, Credential: cred}
	}

	principal, err := g.cfg.Principals.LookupPrincipal(ctx, cred.UserID)
	if errors.Is(err, service.ErrPrincipalUnavailable) {
		src.Revoke(c, cred)
		return Decision{State: StateCredentialInvalid, Credential: cred}
	}
	if err != nil {
		g.cfg.Logger.Error().Err(err).Str("user_id", cred.UserID).Msg("principal lookup failed")
		return Decision{State: StateNoCredential}
	}

	if g.evictBelow != "" && !principal.Role.AtLeast(g.evictBelow) {
		g.cfg.Logger.Warn().
			Str("user_id", principal.ID).
			Str("role", string(principal.Role)).
			Msg("evicting credential below surface floor")
		src.Revoke(c, cred)
		return Decision{State: StateInsufficientRole, Principal: principal, Credential: cred}
	}

	if !principal.Role.Satisfies(allowed...) {
		return Decision{State: StateInsufficientRole, Principal: principal, Credential: cred}
	}

	src.Accept(c, &cred)
	return Decision{State: StateValid, Principal: principal, Credential: cred}
}

// Require admits VALID requests whose principal satisfies one of roles (any
// authenticated principal when roles is empty) and rejects everything else
// through the gate's Outcomes.
func (g *Gate) Require(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		d := g.Evaluate(c, roles)
		setDecision(c, d)
		if d.State != StateValid {
			g.cfg.Logger.Debug().
				Str("surface", g.cfg.Source.Surface()).
				Str("state", d.State.String()).
				Str("path", c.Request.URL.Path).
				Msg("request rejected by auth gate")
			g.cfg.Outcomes.Reject(c, d)
			c.Abort()
			return
		}
		c.Next()
	}
}

// Optional never rejects: failures continue as anonymous.
func (g *Gate) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		d := g.Evaluate(c, nil)
		if d.State != StateValid {
			d = Decision{State: d.State}
		}
		setDecision(c, d)
		c.Next()
	}
}

const (
	ctxStateKey     = "auth_state"
	ctxPrincipalKey = "current_principal"
	ctxSessionKey   = "current_session"
)

func setDecision(c *gin.Context, d Decision) {
	c.Set(ctxStateKey, d.State)
	if d.State != StateValid {
		return
	}
	c.Set(ctxPrincipalKey, d.Principal)
	if d.Credential.Session != nil {
		c.Set(ctxSessionKey, *d.Credential.Session)
	}
}

func CurrentPrincipal(c *gin.Context) (models.Principal, bool) {
	v, ok := c.Get(ctxPrincipalKey)
	if !ok {
		return models.Principal{}, false
	}
	p, ok := v.(models.Principal)
	return p, ok
}

func CurrentSession(c *gin.Context) (session.Session, bool) {
	v, ok := c.Get(ctxSessionKey)
	if !ok {
		return session.Session{}, false
	}
	s, ok := v.(session.Session)
	return s, ok
}

func CurrentState(c *gin.Context) State {
	if v, ok := c.Get(ctxStateKey); ok {
		if s, ok := v.(State); ok {
			return s
		}
	}
	return StateNoCredential
}
