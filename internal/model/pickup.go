package model

import "time"

// PickupEvent records units of one item handed over for an order. PrevEventID
// is the item's latest event id when this one was appended, 0 for the first.
type PickupEvent struct {
	ID          int64     `db:"id" json:"id"`
	PrevEventID int64     `db:"prev_event_id" json:"prev_event_id"`
	OrderID     int64     `db:"order_id" json:"order_id"`
	ItemKey     string    `db:"item_key" json:"item_key"`
	Quantity    float64   `db:"quantity" json:"quantity"`
	UnitPrice   *float64  `db:"unit_price" json:"unit_price,omitempty"`
	PerformedBy string    `db:"performed_by" json:"performed_by"`
	CreatedAt   time.Time `db:"-" json:"created_at"`
}

// PickupToken is a short-lived credential bound to a customer identity.
type PickupToken struct {
	Token     string    `db:"token" json:"token"`
	Name      string    `db:"name" json:"name"`
	Phone     string    `db:"phone" json:"phone"`
	ExpiresAt time.Time `db:"-" json:"expires_at"`
}

// PickupItem is a purchasable line item derived from an order payload.
type PickupItem struct {
	Key       string   `json:"key"`
	Label     string   `json:"label"`
	Quantity  float64  `json:"quantity"`
	UnitPrice *float64 `json:"unit_price,omitempty"`
}
