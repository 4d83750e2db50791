package funnel

import (
	"context"
	"sync"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// AccountStore is the slice of the account repository the session provider
// needs.
type AccountStore interface {
	GetByIdentifier(ctx context.Context, identifier string) (*Account, error)
	TrackLogout(ctx context.Context, id uuid.UUID) error
}

// AccountSessionProvider is a SessionProvider backed by the account store.
// It is bound to a single identifier (account id or email) and re-reads the
// row on Refresh so entitlement flags flipped elsewhere, like a payment
// settling, become visible to the decision engine.
type AccountSessionProvider struct {
	store      AccountStore
	identifier string
	logger     Logger
	provider   LoggerProvider

	mu       sync.Mutex
	snapshot *SessionSnapshot
}

// NewAccountSessionProvider binds a provider to the given identifier.
func NewAccountSessionProvider(store AccountStore, identifier string) *AccountSessionProvider {
	loggerProvider, logger := ResolveLogger("funnel.sessions", nil, nil)
	return &AccountSessionProvider{
		store:      store,
		identifier: identifier,
		logger:     logger,
		provider:   loggerProvider,
	}
}

func (p *AccountSessionProvider) WithLogger(l Logger) *AccountSessionProvider {
	p.provider, p.logger = ResolveLogger("funnel.sessions", p.provider, l)
	return p
}

// WithLoggerProvider overrides the logger provider used by the session provider.
func (p *AccountSessionProvider) WithLoggerProvider(provider LoggerProvider) *AccountSessionProvider {
	p.provider, p.logger = ResolveLogger("funnel.sessions", provider, p.logger)
	return p
}

// Session returns the last loaded snapshot, loading it on first use. A bound
// identifier with no matching row yields an anonymous snapshot rather than an
// error, the funnel treats it the same as a signed-out visitor.
func (p *AccountSessionProvider) Session(ctx context.Context) (*SessionSnapshot, error) {
	p.mu.Lock()
	cached := p.snapshot
	p.mu.Unlock()

	if cached != nil {
		return cached, nil
	}

	return p.Refresh(ctx)
}

// Refresh re-reads the account row and replaces the cached snapshot.
func (p *AccountSessionProvider) Refresh(ctx context.Context) (*SessionSnapshot, error) {
	if p.identifier == "" {
		return p.replace(&SessionSnapshot{}), nil
	}

	account, err := p.store.GetByIdentifier(ctx, p.identifier)
	if err != nil {
		if errors.IsNotFound(err) {
			return p.replace(&SessionSnapshot{}), nil
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to refresh session account")
	}

	return p.replace(&SessionSnapshot{Account: account}), nil
}

// Logout records the logout on the account row and drops the cached snapshot.
func (p *AccountSessionProvider) Logout(ctx context.Context) error {
	p.mu.Lock()
	snapshot := p.snapshot
	p.snapshot = nil
	p.mu.Unlock()

	if snapshot == nil || snapshot.Account == nil {
		return nil
	}

	if err := p.store.TrackLogout(ctx, snapshot.Account.ID); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to track logout")
	}

	return nil
}

func (p *AccountSessionProvider) replace(snapshot *SessionSnapshot) *SessionSnapshot {
	p.mu.Lock()
	p.snapshot = snapshot
	p.mu.Unlock()
	return snapshot
}

var _ SessionProvider = (*AccountSessionProvider)(nil)
