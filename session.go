package funnel

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

const (
	claimVerified      = "verified"
	claimPaid          = "paid"
	claimSetupComplete = "setup_complete"
	claimEmail         = "email"
)

// SnapshotSource produces the session snapshot for a request. The guard only
// reads snapshots; token refresh and storage stay with the host application.
type SnapshotSource interface {
	Snapshot(c router.Context) *SessionSnapshot
}

// SnapshotSourceFunc adapts a function to the SnapshotSource interface.
type SnapshotSourceFunc func(c router.Context) *SessionSnapshot

// Snapshot implements SnapshotSource.
func (f SnapshotSourceFunc) Snapshot(c router.Context) *SessionSnapshot {
	if f == nil {
		return &SessionSnapshot{}
	}
	return f(c)
}

// CookieSnapshotSource reads the snapshot from the JWT the auth middleware
// stored in the router locals. A missing or undecodable token yields an
// anonymous snapshot rather than an error: gating treats both the same.
type CookieSnapshotSource struct {
	// ContextKey is the locals key the JWT middleware stores the token under.
	ContextKey string
}

// Snapshot implements SnapshotSource.
func (s CookieSnapshotSource) Snapshot(c router.Context) *SessionSnapshot {
	key := s.ContextKey
	if key == "" {
		key = "user"
	}

	snapshot, err := SnapshotFromContext(c, key)
	if err != nil {
		return &SessionSnapshot{}
	}
	return snapshot
}

// SnapshotFromContext decodes the session snapshot from the JWT stored in
// the router locals under key.
func SnapshotFromContext(c router.Context, key string) (*SessionSnapshot, error) {
	cookie := c.Locals(key)
	if cookie == nil {
		return nil, ErrUnableToFindSession
	}

	token, ok := cookie.(*jwt.Token)
	if token == nil || !ok {
		return nil, ErrUnableToDecodeSession
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if claims == nil || !ok {
		return nil, ErrUnableToMapClaims
	}

	return snapshotFromClaims(claims)
}

func snapshotFromClaims(claims jwt.MapClaims) (*SessionSnapshot, error) {
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, ErrUnableToMapClaims
	}

	account := &Account{
		Verified:      boolClaim(claims, claimVerified),
		Paid:          boolClaim(claims, claimPaid),
		SetupComplete: boolClaim(claims, claimSetupComplete),
	}

	if id, err := uuid.Parse(sub); err == nil {
		account.ID = id
	}

	if email, ok := claims[claimEmail].(string); ok {
		account.Email = email
	}

	return &SessionSnapshot{Account: account}, nil
}

func boolClaim(claims jwt.MapClaims, key string) bool {
	v, ok := claims[key].(bool)
	return ok && v
}
