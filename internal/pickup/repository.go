package pickup

import (
	"context"
	"time"

	"github.com/kkkkikiki/groupbuy/internal/model"
)

// OrderStore reads orders placed by the submission flow.
type OrderStore interface {
	GetOrder(ctx context.Context, id int64) (*model.Order, error)
	GetOrderByToken(ctx context.Context, token string) (*model.Order, error)
	ListOrdersByCustomer(ctx context.Context, name, phone string) ([]model.Order, error)
}

// CampaignStore reads a campaign's field schema.
type CampaignStore interface {
	GetCampaign(ctx context.Context, id int64) (*model.Campaign, error)
}

// EventLog is the append-mostly pickup record.
type EventLog interface {
	AppendEvent(ctx context.Context, event *model.PickupEvent) error
	ListEventsByOrders(ctx context.Context, orderIDs []int64) ([]model.PickupEvent, error)
	LatestEvent(ctx context.Context, orderID int64, itemKey string) (*model.PickupEvent, error)
	DeleteEvent(ctx context.Context, id int64) error
}

// TokenStore persists pickup credentials.
type TokenStore interface {
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
	FindActiveByIdentity(ctx context.Context, name, phone string, now time.Time) (*model.PickupToken, error)
	GetActiveToken(ctx context.Context, token string, now time.Time) (*model.PickupToken, error)
	InsertToken(ctx context.Context, token *model.PickupToken) error
}
