package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kkkkikiki/groupbuy/internal/model"
)

// ReservationRepository persists (campaign, session) -> sequence number claims.
// A row is active when confirmed or when reserved_at is after the cutoff.
type ReservationRepository struct {
	db DBExecutor
}

// NewReservationRepository creates a new reservation repository
func NewReservationRepository(db DBExecutor) *ReservationRepository {
	return &ReservationRepository{db: db}
}

type reservationRow struct {
	CampaignID     int64          `db:"campaign_id"`
	SessionID      string         `db:"session_id"`
	SequenceNumber int            `db:"sequence_number"`
	ReservedAt     int64          `db:"reserved_at"`
	OrderToken     sql.NullString `db:"order_token"`
}

func (r reservationRow) toModel() *model.Reservation {
	res := &model.Reservation{
		CampaignID:     r.CampaignID,
		SessionID:      r.SessionID,
		SequenceNumber: r.SequenceNumber,
		ReservedAt:     fromMillis(r.ReservedAt),
	}
	if r.OrderToken.Valid {
		token := r.OrderToken.String
		res.OrderToken = &token
	}
	return res
}

const reservationColumns = `campaign_id, session_id, sequence_number, reserved_at, order_token`

// SweepExpired deletes a campaign's unconfirmed reservations reserved at or before cutoff
func (r *ReservationRepository) SweepExpired(ctx context.Context, campaignID int64, cutoff time.Time) (int64, error) {
	query := r.db.Rebind(`
		DELETE FROM reservations
		WHERE campaign_id = ? AND order_token IS NULL AND reserved_at <= ?
	`)

	result, err := r.db.ExecContext(ctx, query, campaignID, toMillis(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to sweep reservations: %w", err)
	}
	return result.RowsAffected()
}

// SweepAllExpired deletes unconfirmed reservations reserved at or before cutoff in every campaign
func (r *ReservationRepository) SweepAllExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	query := r.db.Rebind(`
		DELETE FROM reservations
		WHERE order_token IS NULL AND reserved_at <= ?
	`)

	result, err := r.db.ExecContext(ctx, query, toMillis(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to sweep reservations: %w", err)
	}
	return result.RowsAffected()
}

// GetReservation returns the row for (campaign, session) regardless of expiry
func (r *ReservationRepository) GetReservation(ctx context.Context, campaignID int64, sessionID string) (*model.Reservation, error) {
	query := r.db.Rebind(`
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE campaign_id = ? AND session_id = ?
	`)

	var row reservationRow
	if err := r.db.GetContext(ctx, &row, query, campaignID, sessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return row.toModel(), nil
}

// ListActiveSequenceNumbers returns the numbers held by active reservations, ascending
func (r *ReservationRepository) ListActiveSequenceNumbers(ctx context.Context, campaignID int64, cutoff time.Time) ([]int, error) {
	query := r.db.Rebind(`
		SELECT sequence_number
		FROM reservations
		WHERE campaign_id = ? AND (order_token IS NOT NULL OR reserved_at > ?)
		ORDER BY sequence_number ASC
	`)

	var numbers []int
	if err := r.db.SelectContext(ctx, &numbers, query, campaignID, toMillis(cutoff)); err != nil {
		return nil, fmt.Errorf("failed to list sequence numbers: %w", err)
	}
	return numbers, nil
}

// CountPending returns the number of unconfirmed, unexpired reservations
func (r *ReservationRepository) CountPending(ctx context.Context, campaignID int64, cutoff time.Time) (int, error) {
	query := r.db.Rebind(`
		SELECT count(*)
		FROM reservations
		WHERE campaign_id = ? AND order_token IS NULL AND reserved_at > ?
	`)

	var n int
	if err := r.db.GetContext(ctx, &n, query, campaignID, toMillis(cutoff)); err != nil {
		return 0, fmt.Errorf("failed to count reservations: %w", err)
	}
	return n, nil
}

// UpsertReservation inserts a claim keyed by (campaign, session). When the session
// already has a row the stored row wins and is returned unchanged. ErrSequenceTaken
// means another session holds the requested number.
func (r *ReservationRepository) UpsertReservation(ctx context.Context, res *model.Reservation) (*model.Reservation, error) {
	query := r.db.Rebind(`
		INSERT INTO reservations (campaign_id, session_id, sequence_number, reserved_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (campaign_id, session_id)
		DO UPDATE SET reserved_at = reservations.reserved_at
		RETURNING ` + reservationColumns)

	var row reservationRow
	err := r.db.GetContext(ctx, &row, query,
		res.CampaignID, res.SessionID, res.SequenceNumber, toMillis(res.ReservedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSequenceTaken
		}
		return nil, fmt.Errorf("failed to upsert reservation: %w", err)
	}
	return row.toModel(), nil
}

// ConfirmReservation attaches an order token to an active reservation. The first
// token attached is kept. Returns ErrNotFound when no active row exists.
func (r *ReservationRepository) ConfirmReservation(ctx context.Context, campaignID int64, sessionID, orderToken string, cutoff time.Time) (*model.Reservation, error) {
	query := r.db.Rebind(`
		UPDATE reservations
		SET order_token = COALESCE(order_token, ?)
		WHERE campaign_id = ? AND session_id = ? AND (order_token IS NOT NULL OR reserved_at > ?)
		RETURNING ` + reservationColumns)

	var row reservationRow
	if err := r.db.GetContext(ctx, &row, query, orderToken, campaignID, sessionID, toMillis(cutoff)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to confirm reservation: %w", err)
	}
	return row.toModel(), nil
}
