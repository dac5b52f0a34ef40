package reservation

import (
	"context"
	"time"

	"github.com/kkkkikiki/groupbuy/internal/model"
)

// Ledger stores (campaign, session) -> sequence number claims.
type Ledger interface {
	SweepExpired(ctx context.Context, campaignID int64, cutoff time.Time) (int64, error)
	SweepAllExpired(ctx context.Context, cutoff time.Time) (int64, error)
	GetReservation(ctx context.Context, campaignID int64, sessionID string) (*model.Reservation, error)
	ListActiveSequenceNumbers(ctx context.Context, campaignID int64, cutoff time.Time) ([]int, error)
	CountPending(ctx context.Context, campaignID int64, cutoff time.Time) (int, error)
	UpsertReservation(ctx context.Context, res *model.Reservation) (*model.Reservation, error)
	ConfirmReservation(ctx context.Context, campaignID int64, sessionID, orderToken string, cutoff time.Time) (*model.Reservation, error)
}

// CapacityView is the read-only campaign side: limit, deadline and placed orders.
type CapacityView interface {
	GetCampaign(ctx context.Context, id int64) (*model.Campaign, error)
	CountOrders(ctx context.Context, campaignID int64) (int, error)
}
