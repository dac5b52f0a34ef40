// Package reservation assigns per-campaign sequence numbers to client sessions.
//
// All state lives in the ledger. Expired reservations are reclaimed lazily on the
// next reserve for the same campaign, or by an explicit Sweep.
package reservation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kkkkikiki/groupbuy/internal/apperr"
	"github.com/kkkkikiki/groupbuy/internal/logger"
	"github.com/kkkkikiki/groupbuy/internal/metrics"
	"github.com/kkkkikiki/groupbuy/internal/model"
	"github.com/kkkkikiki/groupbuy/internal/repository"
)

// TTL is how long an unconfirmed reservation holds its number.
const TTL = 5 * time.Minute

// maxAllocationAttempts bounds the first-fit rescans after losing a number to another session.
const maxAllocationAttempts = 10

var errAllocationContended = errors.New("sequence allocation contended")

// Slot is the caller-facing view of a reservation.
type Slot struct {
	CampaignID     int64     `json:"campaign_id"`
	SessionID      string    `json:"session_id"`
	SequenceNumber int       `json:"sequence_number"`
	ExpiresAt      time.Time `json:"expires_at,omitzero"`
	Confirmed      bool      `json:"confirmed"`
}

func newSlot(r *model.Reservation) *Slot {
	return &Slot{
		CampaignID:     r.CampaignID,
		SessionID:      r.SessionID,
		SequenceNumber: r.SequenceNumber,
		ExpiresAt:      r.ExpiresAt(TTL),
		Confirmed:      r.Confirmed(),
	}
}

// Manager implements reserve, confirm, lookup and sweep.
type Manager struct {
	ledger   Ledger
	capacity CapacityView
	logger   *zap.Logger
	now      func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a reservation manager
func NewManager(ledger Ledger, capacity CapacityView, log *zap.Logger, opts ...Option) *Manager {
	m := &Manager{
		ledger:   ledger,
		capacity: capacity,
		logger:   logger.OrNop(log),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Reserve returns the session's sequence number for the campaign, allocating the
// smallest free number when the session holds none.
func (m *Manager) Reserve(ctx context.Context, campaignID int64, sessionID string) (*Slot, error) {
	const op = "reservation.Reserve"

	start := time.Now()
	status := "failure"
	defer func() {
		metrics.RecordReserveDuration(status, time.Since(start).Seconds())
	}()

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, apperr.E(op, apperr.KindInvalidArgument, errors.New("session id is required"))
	}

	now := m.now().UTC()
	cutoff := now.Add(-TTL)

	if err := m.sweepCampaign(ctx, campaignID, cutoff); err != nil {
		return nil, apperr.Storage(op, err)
	}

	existing, err := m.ledger.GetReservation(ctx, campaignID, sessionID)
	switch {
	case err == nil && existing.Active(now, TTL):
		status = "success"
		return newSlot(existing), nil
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		return nil, apperr.Storage(op, err)
	}

	campaign, err := m.capacity.GetCampaign(ctx, campaignID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.E(op, apperr.KindNotFound, fmt.Errorf("campaign %d", campaignID))
		}
		return nil, apperr.Storage(op, err)
	}
	if campaign.IsClosed(now) {
		status = "closed"
		return nil, apperr.E(op, apperr.KindCampaignClosed, fmt.Errorf("campaign %d closed at %s", campaignID, campaign.Deadline.Format(time.RFC3339)))
	}

	if campaign.HasCapacityLimit() {
		used, err := m.usedCapacity(ctx, campaignID, cutoff)
		if err != nil {
			return nil, apperr.Storage(op, err)
		}
		if used >= *campaign.CapacityLimit {
			status = "capacity_exceeded"
			return nil, apperr.E(op, apperr.KindCapacityExceeded, fmt.Errorf("%d of %d slots in use", used, *campaign.CapacityLimit))
		}
	}

	for attempt := 0; attempt < maxAllocationAttempts; attempt++ {
		numbers, err := m.ledger.ListActiveSequenceNumbers(ctx, campaignID, cutoff)
		if err != nil {
			return nil, apperr.Storage(op, err)
		}
		next := firstFree(numbers)
		if campaign.HasCapacityLimit() && next > *campaign.CapacityLimit {
			status = "capacity_exceeded"
			return nil, apperr.E(op, apperr.KindCapacityExceeded, fmt.Errorf("no number left under limit %d", *campaign.CapacityLimit))
		}

		res, err := m.ledger.UpsertReservation(ctx, &model.Reservation{
			CampaignID:     campaignID,
			SessionID:      sessionID,
			SequenceNumber: next,
			ReservedAt:     now,
		})
		if errors.Is(err, repository.ErrSequenceTaken) {
			m.logger.Debug("sequence number taken by another session, rescanning",
				zap.Int64("campaign_id", campaignID),
				zap.Int("sequence_number", next),
				zap.Int("attempt", attempt+1),
			)
			continue
		}
		if err != nil {
			return nil, apperr.Storage(op, err)
		}

		status = "success"
		return newSlot(res), nil
	}

	m.logger.Warn("sequence allocation gave up", zap.Int64("campaign_id", campaignID), zap.String("session_id", sessionID))
	return nil, apperr.E(op, apperr.KindStorageFailure, errAllocationContended)
}

// usedCapacity counts placed orders plus unconfirmed reservations still inside the TTL.
func (m *Manager) usedCapacity(ctx context.Context, campaignID int64, cutoff time.Time) (int, error) {
	orders, err := m.capacity.CountOrders(ctx, campaignID)
	if err != nil {
		return 0, err
	}
	pending, err := m.ledger.CountPending(ctx, campaignID, cutoff)
	if err != nil {
		return 0, err
	}
	return orders + pending, nil
}

// firstFree returns the smallest positive integer missing from sorted numbers.
func firstFree(sorted []int) int {
	next := 1
	for _, n := range sorted {
		if n < next {
			continue
		}
		if n > next {
			break
		}
		next++
	}
	return next
}

// Confirm attaches the order token, exempting the reservation from expiry. Idempotent.
func (m *Manager) Confirm(ctx context.Context, campaignID int64, sessionID, orderToken string) (*Slot, error) {
	const op = "reservation.Confirm"

	if strings.TrimSpace(orderToken) == "" {
		return nil, apperr.E(op, apperr.KindInvalidArgument, errors.New("order token is required"))
	}

	cutoff := m.now().UTC().Add(-TTL)
	res, err := m.ledger.ConfirmReservation(ctx, campaignID, strings.TrimSpace(sessionID), orderToken, cutoff)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.E(op, apperr.KindReservationExpired, nil)
		}
		return nil, apperr.Storage(op, err)
	}
	return newSlot(res), nil
}

// Lookup returns the session's pending (unconfirmed, unexpired) reservation.
func (m *Manager) Lookup(ctx context.Context, campaignID int64, sessionID string) (*Slot, error) {
	const op = "reservation.Lookup"

	res, err := m.ledger.GetReservation(ctx, campaignID, strings.TrimSpace(sessionID))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.E(op, apperr.KindReservationExpired, nil)
		}
		return nil, apperr.Storage(op, err)
	}
	if res.Confirmed() || !res.Active(m.now().UTC(), TTL) {
		return nil, apperr.E(op, apperr.KindReservationExpired, nil)
	}
	return newSlot(res), nil
}

// Sweep deletes expired unconfirmed reservations in every campaign.
func (m *Manager) Sweep(ctx context.Context) (int64, error) {
	n, err := m.ledger.SweepAllExpired(ctx, m.now().UTC().Add(-TTL))
	if err != nil {
		return 0, apperr.Storage("reservation.Sweep", err)
	}
	metrics.RecordSwept(n)
	m.logger.Debug("swept expired reservations", zap.Int64("count", n))
	return n, nil
}

func (m *Manager) sweepCampaign(ctx context.Context, campaignID int64, cutoff time.Time) error {
	n, err := m.ledger.SweepExpired(ctx, campaignID, cutoff)
	if err != nil {
		return err
	}
	if n > 0 {
		metrics.RecordSwept(n)
		m.logger.Debug("reclaimed expired reservations", zap.Int64("campaign_id", campaignID), zap.Int64("count", n))
	}
	return nil
}
