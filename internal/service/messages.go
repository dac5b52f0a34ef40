package service

import (
	"github.com/kkkkikiki/groupbuy/internal/model"
	"github.com/kkkkikiki/groupbuy/internal/pickup"
	"github.com/kkkkikiki/groupbuy/internal/reservation"
)

type ReserveRequest struct {
	CampaignID int64  `json:"campaign_id"`
	SessionID  string `json:"session_id"`
}

type ReserveResponse struct {
	Slot *reservation.Slot `json:"slot"`
}

type ConfirmRequest struct {
	CampaignID int64  `json:"campaign_id"`
	SessionID  string `json:"session_id"`
	OrderToken string `json:"order_token"`
}

type ConfirmResponse struct {
	Slot *reservation.Slot `json:"slot"`
}

type LookupReservationRequest struct {
	CampaignID int64  `json:"campaign_id"`
	SessionID  string `json:"session_id"`
}

type LookupReservationResponse struct {
	Slot *reservation.Slot `json:"slot"`
}

type SweepReservationsRequest struct{}

type SweepReservationsResponse struct {
	Swept int64 `json:"swept"`
}

type IssueCredentialRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type IssueCredentialResponse struct {
	Credential *model.PickupToken `json:"credential"`
}

type ResolveCredentialRequest struct {
	Token string `json:"token"`
}

type ResolveCredentialResponse struct {
	Credential *model.PickupToken `json:"credential"`
}

// SearchPickupsRequest selects one lookup path: Token, then OrderToken, then
// Name and Phone. Status is pending, picked or all (default).
type SearchPickupsRequest struct {
	Token      string `json:"token,omitempty"`
	OrderToken string `json:"order_token,omitempty"`
	Name       string `json:"name,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Status     string `json:"status,omitempty"`
}

type SearchPickupsResponse struct {
	Summary *pickup.Summary `json:"summary"`
}

type MarkPickupRequest struct {
	Token       string `json:"token"`
	OrderID     int64  `json:"order_id"`
	ItemKey     string `json:"item_key"`
	PerformedBy string `json:"performed_by,omitempty"`
}

type MarkPickupResponse struct {
	Summary *pickup.Summary `json:"summary"`
}

type UndoPickupRequest struct {
	Token   string `json:"token"`
	OrderID int64  `json:"order_id"`
	ItemKey string `json:"item_key"`
}

type UndoPickupResponse struct {
	Summary *pickup.Summary `json:"summary"`
}
