// Package pickup tracks collection of purchased items after a campaign closes.
//
// Picked quantities are never stored. Every read folds the order's pickup event
// log onto the items projected from the order payload, and every write appends
// or removes exactly one event.
package pickup

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

// DefaultPerformer is recorded on events marked without an explicit performer.
const DefaultPerformer = "customer"

// Summary is the pickup view of one customer identity.
type Summary struct {
	Name           string             `json:"name"`
	Phone          string             `json:"phone"`
	Credential     *model.PickupToken `json:"credential,omitempty"`
	Orders         []OrderState       `json:"orders"`
	OrderedTotal   *float64           `json:"ordered_total,omitempty"`
	PickedTotal    *float64           `json:"picked_total,omitempty"`
	RemainingTotal *float64           `json:"remaining_total,omitempty"`
}

// Service exposes search, mark and undo over the pickup event log.
type Service struct {
	orders      OrderStore
	campaigns   CampaignStore
	events      EventLog
	credentials *CredentialIssuer
	logger      *zap.Logger
	settings
}

// NewService creates the pickup fulfillment service
func NewService(orders OrderStore, campaigns CampaignStore, events EventLog, credentials *CredentialIssuer, log *zap.Logger, opts ...Option) *Service {
	return &Service{
		orders:      orders,
		campaigns:   campaigns,
		events:      events,
		credentials: credentials,
		logger:      logger.OrNop(log),
		settings:    newSettings(opts),
	}
}

// IssueCredential mints (or reuses) a token for an identity that has placed at
// least one order. Unknown identities fail with InvalidCredential.
func (s *Service) IssueCredential(ctx context.Context, name, phone string) (*model.PickupToken, error) {
	const op = "pickup.IssueCredential"

	name, phone = strings.TrimSpace(name), strings.TrimSpace(phone)
	if name == "" || phone == "" {
		return nil, apperr.E(op, apperr.KindInvalidCredential, errors.New("name and phone are required"))
	}
	orders, err := s.orders.ListOrdersByCustomer(ctx, name, phone)
	if err != nil {
		return nil, apperr.Storage(op, err)
	}
	if len(orders) == 0 {
		return nil, apperr.E(op, apperr.KindInvalidCredential, nil)
	}
	return s.credentials.Issue(ctx, name, phone)
}

// ResolveCredential returns the identity bound to a token.
func (s *Service) ResolveCredential(ctx context.Context, token string) (*model.PickupToken, error) {
	return s.credentials.Resolve(ctx, token)
}

// SearchByCredential returns every order of the token's identity.
func (s *Service) SearchByCredential(ctx context.Context, token string, filter StatusFilter) (*Summary, error) {
	cred, err := s.credentials.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.identitySummary(ctx, cred.Name, cred.Phone, filter)
}

// SearchByIdentity looks orders up by (name, phone) and attaches a credential
// the caller can use for mark and undo.
func (s *Service) SearchByIdentity(ctx context.Context, name, phone string, filter StatusFilter) (*Summary, error) {
	cred, err := s.IssueCredential(ctx, name, phone)
	if err != nil {
		return nil, err
	}
	summary, err := s.identitySummary(ctx, cred.Name, cred.Phone, filter)
	if err != nil {
		return nil, err
	}
	summary.Credential = cred
	return summary, nil
}

// SearchByOrderToken returns the single order behind a permanent order token.
// Unknown tokens fail with InvalidCredential.
func (s *Service) SearchByOrderToken(ctx context.Context, orderToken string, filter StatusFilter) (*Summary, error) {
	const op = "pickup.SearchByOrderToken"

	order, err := s.orders.GetOrderByToken(ctx, strings.TrimSpace(orderToken))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.E(op, apperr.KindInvalidCredential, nil)
		}
		return nil, apperr.Storage(op, err)
	}
	return s.summarize(ctx, op, order.CustomerName, order.CustomerPhone, []model.Order{*order}, filter)
}

// Mark records the item's whole remaining balance as collected.
func (s *Service) Mark(ctx context.Context, token string, orderID int64, itemKey, performedBy string) (_ *Summary, err error) {
	const op = "pickup.Mark"
	defer s.observe("mark", time.Now(), &err)

	cred, order, err := s.authorize(ctx, op, token, orderID)
	if err != nil {
		return nil, err
	}

	campaign, err := s.campaigns.GetCampaign(ctx, order.CampaignID)
	if err != nil {
		return nil, apperr.Storage(op, err)
	}
	events, err := s.events.ListEventsByOrders(ctx, []int64{order.ID})
	if err != nil {
		return nil, apperr.Storage(op, err)
	}

	var target *ItemState
	pending := Aggregate(ProjectItems(campaign.FieldSchema, order.Payload), events, FilterPending)
	for i := range pending {
		if pending[i].Key == itemKey {
			target = &pending[i]
			break
		}
	}
	if target == nil {
		return nil, apperr.E(op, apperr.KindItemNotActionable, fmt.Errorf("item %q has nothing left to collect", itemKey))
	}

	performedBy = strings.TrimSpace(performedBy)
	if performedBy == "" {
		performedBy = DefaultPerformer
	}
	event := &model.PickupEvent{
		OrderID:     order.ID,
		ItemKey:     target.Key,
		Quantity:    target.RemainingQuantity,
		UnitPrice:   target.UnitPrice,
		PerformedBy: performedBy,
		CreatedAt:   s.now().UTC(),
	}
	if target.LatestEvent != nil {
		event.PrevEventID = target.LatestEvent.ID
	}
	if err := s.events.AppendEvent(ctx, event); err != nil {
		if errors.Is(err, repository.ErrEventConflict) {
			return nil, apperr.E(op, apperr.KindItemNotActionable, fmt.Errorf("item %q was updated concurrently", itemKey))
		}
		return nil, apperr.Storage(op, err)
	}
	s.logger.Info("pickup marked",
		zap.Int64("order_id", order.ID),
		zap.String("item_key", event.ItemKey),
		zap.Float64("quantity", event.Quantity),
		zap.Int64("event_id", event.ID),
	)

	return s.identitySummary(ctx, cred.Name, cred.Phone, FilterAll)
}

// Undo removes the most recent event for the item.
func (s *Service) Undo(ctx context.Context, token string, orderID int64, itemKey string) (_ *Summary, err error) {
	const op = "pickup.Undo"
	defer s.observe("undo", time.Now(), &err)

	cred, order, err := s.authorize(ctx, op, token, orderID)
	if err != nil {
		return nil, err
	}

	latest, err := s.events.LatestEvent(ctx, order.ID, itemKey)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.E(op, apperr.KindItemNotActionable, fmt.Errorf("item %q has no pickup to undo", itemKey))
		}
		return nil, apperr.Storage(op, err)
	}
	if err := s.events.DeleteEvent(ctx, latest.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.E(op, apperr.KindItemNotActionable, fmt.Errorf("pickup event %d already undone", latest.ID))
		}
		return nil, apperr.Storage(op, err)
	}
	s.logger.Info("pickup undone",
		zap.Int64("order_id", order.ID),
		zap.String("item_key", itemKey),
		zap.Int64("event_id", latest.ID),
	)

	return s.identitySummary(ctx, cred.Name, cred.Phone, FilterAll)
}

// authorize resolves the token and checks the order belongs to its identity.
// A foreign or missing order is reported exactly like a bad token.
func (s *Service) authorize(ctx context.Context, op, token string, orderID int64) (*model.PickupToken, *model.Order, error) {
	cred, err := s.credentials.Resolve(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, invalidCredential()
		}
		return nil, nil, apperr.Storage(op, err)
	}
	if strings.TrimSpace(order.CustomerName) != cred.Name || strings.TrimSpace(order.CustomerPhone) != cred.Phone {
		s.logger.Warn("pickup credential used against another customer's order", zap.Int64("order_id", orderID))
		return nil, nil, invalidCredential()
	}
	return cred, order, nil
}

func (s *Service) identitySummary(ctx context.Context, name, phone string, filter StatusFilter) (*Summary, error) {
	const op = "pickup.Search"

	orders, err := s.orders.ListOrdersByCustomer(ctx, name, phone)
	if err != nil {
		return nil, apperr.Storage(op, err)
	}
	return s.summarize(ctx, op, name, phone, orders, filter)
}

func (s *Service) summarize(ctx context.Context, op, name, phone string, orders []model.Order, filter StatusFilter) (*Summary, error) {
	ids := make([]int64, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	events, err := s.events.ListEventsByOrders(ctx, ids)
	if err != nil {
		return nil, apperr.Storage(op, err)
	}
	byOrder := make(map[int64][]model.PickupEvent, len(orders))
	for _, e := range events {
		byOrder[e.OrderID] = append(byOrder[e.OrderID], e)
	}

	summary := &Summary{Name: name, Phone: phone, Orders: []OrderState{}}
	campaigns := map[int64]*model.Campaign{}
	for _, order := range orders {
		campaign, ok := campaigns[order.CampaignID]
		if !ok {
			campaign, err = s.campaigns.GetCampaign(ctx, order.CampaignID)
			if err != nil {
				return nil, apperr.Storage(op, err)
			}
			campaigns[order.CampaignID] = campaign
		}
		state, ok := BuildOrderState(order, campaign, byOrder[order.ID], filter)
		if !ok {
			continue
		}
		summary.Orders = append(summary.Orders, state)
		summary.OrderedTotal = addTotal(summary.OrderedTotal, state.OrderedTotal)
		summary.PickedTotal = addTotal(summary.PickedTotal, state.PickedTotal)
		summary.RemainingTotal = addTotal(summary.RemainingTotal, state.RemainingTotal)
	}
	return summary, nil
}

func (s *Service) observe(action string, start time.Time, errp *error) {
	status := "success"
	if *errp != nil {
		status = strings.ToLower(string(apperr.KindOf(*errp)))
	}
	metrics.RecordPickupActionDuration(action, status, time.Since(start).Seconds())
}
