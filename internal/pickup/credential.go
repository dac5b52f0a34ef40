package pickup

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kkkkikiki/groupbuy/internal/apperr"
	"github.com/kkkkikiki/groupbuy/internal/logger"
	"github.com/kkkkikiki/groupbuy/internal/model"
	"github.com/kkkkikiki/groupbuy/internal/repository"
)

// DefaultCredentialTTL is the lifetime of a freshly minted pickup token.
const DefaultCredentialTTL = 6 * time.Hour

// Option configures pickup components.
type Option func(*settings)

type settings struct {
	now      func() time.Time
	newToken func() string
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// WithTokenGenerator overrides how opaque tokens are minted.
func WithTokenGenerator(gen func() string) Option {
	return func(s *settings) { s.newToken = gen }
}

func newSettings(opts []Option) settings {
	s := settings{
		now:      time.Now,
		newToken: func() string { return strings.ReplaceAll(uuid.NewString(), "-", "") },
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// CredentialIssuer maps a (name, phone) identity to a short-lived opaque token.
type CredentialIssuer struct {
	store  TokenStore
	ttl    time.Duration
	logger *zap.Logger
	settings
}

// NewCredentialIssuer creates an issuer. A non-positive ttl uses DefaultCredentialTTL.
func NewCredentialIssuer(store TokenStore, ttl time.Duration, log *zap.Logger, opts ...Option) *CredentialIssuer {
	if ttl <= 0 {
		ttl = DefaultCredentialTTL
	}
	return &CredentialIssuer{
		store:    store,
		ttl:      ttl,
		logger:   logger.OrNop(log),
		settings: newSettings(opts),
	}
}

// Issue returns the identity's unexpired token, minting one when none exists.
func (c *CredentialIssuer) Issue(ctx context.Context, name, phone string) (*model.PickupToken, error) {
	const op = "pickup.IssueCredential"

	name, phone = strings.TrimSpace(name), strings.TrimSpace(phone)
	if name == "" || phone == "" {
		return nil, apperr.E(op, apperr.KindInvalidCredential, errors.New("name and phone are required"))
	}

	now := c.now().UTC()
	if err := c.sweep(ctx, now); err != nil {
		return nil, apperr.Storage(op, err)
	}

	existing, err := c.store.FindActiveByIdentity(ctx, name, phone, now)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Storage(op, err)
	}

	token := &model.PickupToken{
		Token:     c.newToken(),
		Name:      name,
		Phone:     phone,
		ExpiresAt: now.Add(c.ttl),
	}
	if err := c.store.InsertToken(ctx, token); err != nil {
		return nil, apperr.Storage(op, err)
	}
	return token, nil
}

const resolveOp = "pickup.ResolveCredential"

// invalidCredential is the single error for every token that cannot act on an
// order: unknown, expired, or bound to another customer.
func invalidCredential() error {
	return apperr.E(resolveOp, apperr.KindInvalidCredential, nil)
}

// Resolve returns the identity behind an unexpired token. Unknown and expired
// tokens both fail with InvalidCredential.
func (c *CredentialIssuer) Resolve(ctx context.Context, token string) (*model.PickupToken, error) {
	const op = resolveOp

	token = strings.TrimSpace(token)
	if token == "" {
		return nil, invalidCredential()
	}

	now := c.now().UTC()
	if err := c.sweep(ctx, now); err != nil {
		return nil, apperr.Storage(op, err)
	}

	found, err := c.store.GetActiveToken(ctx, token, now)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, invalidCredential()
		}
		return nil, apperr.Storage(op, err)
	}
	return found, nil
}

func (c *CredentialIssuer) sweep(ctx context.Context, now time.Time) error {
	n, err := c.store.SweepExpired(ctx, now)
	if err != nil {
		return err
	}
	if n > 0 {
		c.logger.Debug("swept expired pickup tokens", zap.Int64("count", n))
	}
	return nil
}
