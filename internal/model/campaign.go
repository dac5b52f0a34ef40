package model

import (
	"time"
)

// Field types in a campaign's order form.
const (
	FieldTypeQuantity  = "quantity"
	FieldTypeMultiItem = "multi_item"
	FieldTypeText      = "text"
)

// Campaign represents a group-buy campaign in the database
type Campaign struct {
	ID            int64     `db:"id" json:"id"`
	Title         string    `db:"title" json:"title"`
	CapacityLimit *int      `db:"capacity_limit" json:"capacity_limit,omitempty"`
	FieldSchema   []Field   `db:"-" json:"field_schema"`
	Deadline      time.Time `db:"-" json:"deadline"`
	CreatedAt     time.Time `db:"-" json:"created_at"`
}

// Field is one entry of a campaign's ordered field schema.
type Field struct {
	Name      string   `json:"name" yaml:"name"`
	Label     string   `json:"label,omitempty" yaml:"label,omitempty"`
	Type      string   `json:"type" yaml:"type"`
	UnitPrice *float64 `json:"unit_price,omitempty" yaml:"unit_price,omitempty"`
}

// DisplayLabel returns the label, falling back to the field name.
func (f Field) DisplayLabel() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}

// HasCapacityLimit reports whether reservations are capped.
func (c *Campaign) HasCapacityLimit() bool {
	return c.CapacityLimit != nil
}

// IsClosed reports whether the deadline has passed at now.
func (c *Campaign) IsClosed(now time.Time) bool {
	return !c.Deadline.IsZero() && !now.Before(c.Deadline)
}

// Order is a submitted order against a campaign
type Order struct {
	ID            int64          `db:"id" json:"id"`
	CampaignID    int64          `db:"campaign_id" json:"campaign_id"`
	Token         string         `db:"token" json:"token"`
	CustomerName  string         `db:"customer_name" json:"customer_name"`
	CustomerPhone string         `db:"customer_phone" json:"customer_phone"`
	Payload       map[string]any `db:"-" json:"payload"`
	CreatedAt     time.Time      `db:"-" json:"created_at"`
}
