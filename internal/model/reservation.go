package model

import "time"

// Reservation holds a sequence number for one client session of a campaign.
// It is permanent once OrderToken is set, otherwise it expires after a TTL.
type Reservation struct {
	CampaignID     int64     `db:"campaign_id" json:"campaign_id"`
	SessionID      string    `db:"session_id" json:"session_id"`
	SequenceNumber int       `db:"sequence_number" json:"sequence_number"`
	ReservedAt     time.Time `db:"-" json:"reserved_at"`
	OrderToken     *string   `db:"order_token" json:"order_token,omitempty"`
}

// Confirmed reports whether an order token has been attached.
func (r *Reservation) Confirmed() bool {
	return r.OrderToken != nil
}

// ExpiresAt returns when an unconfirmed reservation lapses. Zero when confirmed.
func (r *Reservation) ExpiresAt(ttl time.Duration) time.Time {
	if r.Confirmed() {
		return time.Time{}
	}
	return r.ReservedAt.Add(ttl)
}

// Active reports whether the reservation still holds its number at now.
func (r *Reservation) Active(now time.Time, ttl time.Duration) bool {
	return r.Confirmed() || now.Before(r.ReservedAt.Add(ttl))
}
