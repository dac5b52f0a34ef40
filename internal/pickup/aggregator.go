package pickup

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/kkkkikiki/groupbuy/internal/apperr"
	"github.com/kkkkikiki/groupbuy/internal/model"
)

// quantityEpsilon absorbs float drift when comparing remaining quantities to zero.
const quantityEpsilon = 1e-4

// Item statuses.
const (
	StatusPending = "pending"
	StatusPicked  = "picked"
)

// StatusFilter selects which items a summary keeps.
type StatusFilter string

const (
	FilterPending StatusFilter = "pending"
	FilterPicked  StatusFilter = "picked"
	FilterAll     StatusFilter = "all"
)

// ParseStatusFilter maps a caller string onto a filter. Empty means all.
func ParseStatusFilter(s string) (StatusFilter, error) {
	switch f := StatusFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FilterAll, nil
	case FilterPending, FilterPicked, FilterAll:
		return f, nil
	default:
		return "", apperr.E("pickup.ParseStatusFilter", apperr.KindInvalidArgument, fmt.Errorf("unknown status filter %q", s))
	}
}

func (f StatusFilter) keeps(status string) bool {
	return f == FilterAll || string(f) == status
}

// ItemState is one line item with quantities derived from the event log.
type ItemState struct {
	Key               string             `json:"key"`
	Label             string             `json:"label"`
	OrderedQuantity   float64            `json:"ordered_quantity"`
	PickedQuantity    float64            `json:"picked_quantity"`
	RemainingQuantity float64            `json:"remaining_quantity"`
	Status            string             `json:"status"`
	UnitPrice         *float64           `json:"unit_price,omitempty"`
	OrderedTotal      *float64           `json:"ordered_total,omitempty"`
	PickedTotal       *float64           `json:"picked_total,omitempty"`
	RemainingTotal    *float64           `json:"remaining_total,omitempty"`
	LatestEvent       *model.PickupEvent `json:"latest_event,omitempty"`
}

// OrderState is an order with its filtered items.
type OrderState struct {
	OrderID        int64       `json:"order_id"`
	CampaignID     int64       `json:"campaign_id"`
	CampaignTitle  string      `json:"campaign_title"`
	CustomerName   string      `json:"customer_name"`
	CreatedAt      time.Time   `json:"created_at"`
	Items          []ItemState `json:"items"`
	OrderedTotal   *float64    `json:"ordered_total,omitempty"`
	PickedTotal    *float64    `json:"picked_total,omitempty"`
	RemainingTotal *float64    `json:"remaining_total,omitempty"`
}

// Aggregate folds events onto items and keeps those matching filter. Events for
// keys no longer present on the order are ignored.
func Aggregate(items []model.PickupItem, events []model.PickupEvent, filter StatusFilter) []ItemState {
	picked := make(map[string]float64, len(items))
	latest := make(map[string]model.PickupEvent, len(items))
	for _, e := range events {
		picked[e.ItemKey] += e.Quantity
		if cur, ok := latest[e.ItemKey]; !ok || e.ID > cur.ID {
			latest[e.ItemKey] = e
		}
	}

	out := make([]ItemState, 0, len(items))
	for _, item := range items {
		state := ItemState{
			Key:             item.Key,
			Label:           item.Label,
			OrderedQuantity: item.Quantity,
			PickedQuantity:  picked[item.Key],
			UnitPrice:       item.UnitPrice,
		}
		state.RemainingQuantity = math.Max(state.OrderedQuantity-state.PickedQuantity, 0)
		state.Status = StatusPending
		if state.RemainingQuantity <= quantityEpsilon && state.PickedQuantity > 0 {
			state.Status = StatusPicked
			state.RemainingQuantity = 0
		}
		if e, ok := latest[item.Key]; ok {
			state.LatestEvent = &e
		}
		if !filter.keeps(state.Status) {
			continue
		}
		if p := item.UnitPrice; p != nil {
			state.OrderedTotal = ptr(*p * state.OrderedQuantity)
			state.PickedTotal = ptr(*p * math.Min(state.PickedQuantity, state.OrderedQuantity))
			state.RemainingTotal = ptr(*p * state.RemainingQuantity)
		}
		out = append(out, state)
	}
	return out
}

// BuildOrderState derives an order's state. ok is false when no item survives the filter.
func BuildOrderState(order model.Order, campaign *model.Campaign, events []model.PickupEvent, filter StatusFilter) (state OrderState, ok bool) {
	items := Aggregate(ProjectItems(campaign.FieldSchema, order.Payload), events, filter)
	if len(items) == 0 {
		return OrderState{}, false
	}
	state = OrderState{
		OrderID:       order.ID,
		CampaignID:    order.CampaignID,
		CampaignTitle: campaign.Title,
		CustomerName:  order.CustomerName,
		CreatedAt:     order.CreatedAt,
		Items:         items,
	}
	for _, item := range items {
		state.OrderedTotal = addTotal(state.OrderedTotal, item.OrderedTotal)
		state.PickedTotal = addTotal(state.PickedTotal, item.PickedTotal)
		state.RemainingTotal = addTotal(state.RemainingTotal, item.RemainingTotal)
	}
	return state, true
}

func addTotal(sum, v *float64) *float64 {
	if v == nil {
		return sum
	}
	if sum == nil {
		return ptr(*v)
	}
	return ptr(*sum + *v)
}

func ptr(v float64) *float64 { return &v }
