package service

import (
	"context"

	"connectrpc.com/connect"
	"go.uber.org/zap"

	"github.com/kkkkikiki/groupbuy/internal/logger"
	"github.com/kkkkikiki/groupbuy/internal/reservation"
)

// ReservationServer implements the reservation service
type ReservationServer struct {
	manager *reservation.Manager
	logger  *zap.Logger
}

// NewReservationServer creates a new ReservationServer instance
func NewReservationServer(manager *reservation.Manager, log *zap.Logger) *ReservationServer {
	return &ReservationServer{manager: manager, logger: logger.OrNop(log)}
}

// Reserve claims (or returns the session's existing) sequence number
func (s *ReservationServer) Reserve(
	ctx context.Context,
	req *connect.Request[ReserveRequest],
) (*connect.Response[ReserveResponse], error) {
	slot, err := s.manager.Reserve(ctx, req.Msg.CampaignID, req.Msg.SessionID)
	if err != nil {
		return nil, toConnectError(s.logger, ReservationServiceReserveProcedure, err)
	}
	return connect.NewResponse(&ReserveResponse{Slot: slot}), nil
}

// Confirm binds an order token to a pending reservation
func (s *ReservationServer) Confirm(
	ctx context.Context,
	req *connect.Request[ConfirmRequest],
) (*connect.Response[ConfirmResponse], error) {
	slot, err := s.manager.Confirm(ctx, req.Msg.CampaignID, req.Msg.SessionID, req.Msg.OrderToken)
	if err != nil {
		return nil, toConnectError(s.logger, ReservationServiceConfirmProcedure, err)
	}
	return connect.NewResponse(&ConfirmResponse{Slot: slot}), nil
}

// LookupReservation returns the session's pending reservation
func (s *ReservationServer) LookupReservation(
	ctx context.Context,
	req *connect.Request[LookupReservationRequest],
) (*connect.Response[LookupReservationResponse], error) {
	slot, err := s.manager.Lookup(ctx, req.Msg.CampaignID, req.Msg.SessionID)
	if err != nil {
		return nil, toConnectError(s.logger, ReservationServiceLookupReservationProcedure, err)
	}
	return connect.NewResponse(&LookupReservationResponse{Slot: slot}), nil
}

// SweepReservations deletes expired unconfirmed reservations in every campaign
func (s *ReservationServer) SweepReservations(
	ctx context.Context,
	_ *connect.Request[SweepReservationsRequest],
) (*connect.Response[SweepReservationsResponse], error) {
	n, err := s.manager.Sweep(ctx)
	if err != nil {
		return nil, toConnectError(s.logger, ReservationServiceSweepReservationsProcedure, err)
	}
	return connect.NewResponse(&SweepReservationsResponse{Swept: n}), nil
}
