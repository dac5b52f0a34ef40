package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kkkkikiki/groupbuy/internal/model"
)

// PickupTokenRepository stores short-lived pickup credentials
type PickupTokenRepository struct {
	db DBExecutor
}

// NewPickupTokenRepository creates a new pickup token repository
func NewPickupTokenRepository(db DBExecutor) *PickupTokenRepository {
	return &PickupTokenRepository{db: db}
}

type pickupTokenRow struct {
	Token     string `db:"token"`
	Name      string `db:"name"`
	Phone     string `db:"phone"`
	ExpiresAt int64  `db:"expires_at"`
}

func (r pickupTokenRow) toModel() *model.PickupToken {
	return &model.PickupToken{
		Token:     r.Token,
		Name:      r.Name,
		Phone:     r.Phone,
		ExpiresAt: fromMillis(r.ExpiresAt),
	}
}

// SweepExpired hard-deletes tokens whose expiry is at or before now
func (r *PickupTokenRepository) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	query := r.db.Rebind(`DELETE FROM pickup_tokens WHERE expires_at <= ?`)

	result, err := r.db.ExecContext(ctx, query, toMillis(now))
	if err != nil {
		return 0, fmt.Errorf("failed to sweep pickup tokens: %w", err)
	}
	return result.RowsAffected()
}

// FindActiveByIdentity returns the longest-lived unexpired token for (name, phone)
func (r *PickupTokenRepository) FindActiveByIdentity(ctx context.Context, name, phone string, now time.Time) (*model.PickupToken, error) {
	query := r.db.Rebind(`
		SELECT token, name, phone, expires_at
		FROM pickup_tokens
		WHERE name = ? AND phone = ? AND expires_at > ?
		ORDER BY expires_at DESC
		LIMIT 1
	`)

	var row pickupTokenRow
	if err := r.db.GetContext(ctx, &row, query, name, phone, toMillis(now)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find pickup token: %w", err)
	}
	return row.toModel(), nil
}

// GetActiveToken returns an unexpired token by value
func (r *PickupTokenRepository) GetActiveToken(ctx context.Context, token string, now time.Time) (*model.PickupToken, error) {
	query := r.db.Rebind(`
		SELECT token, name, phone, expires_at
		FROM pickup_tokens
		WHERE token = ? AND expires_at > ?
	`)

	var row pickupTokenRow
	if err := r.db.GetContext(ctx, &row, query, token, toMillis(now)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get pickup token: %w", err)
	}
	return row.toModel(), nil
}

// InsertToken stores a newly minted token
func (r *PickupTokenRepository) InsertToken(ctx context.Context, token *model.PickupToken) error {
	query := r.db.Rebind(`
		INSERT INTO pickup_tokens (token, name, phone, expires_at)
		VALUES (?, ?, ?, ?)
	`)

	if _, err := r.db.ExecContext(ctx, query, token.Token, token.Name, token.Phone, toMillis(token.ExpiresAt)); err != nil {
		return fmt.Errorf("failed to insert pickup token: %w", err)
	}
	return nil
}
