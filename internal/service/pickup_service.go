package service

import (
	"context"
	"errors"
	"strings"

	"connectrpc.com/connect"
	"go.uber.org/zap"

	"github.com/kkkkikiki/groupbuy/internal/apperr"
	"github.com/kkkkikiki/groupbuy/internal/logger"
	"github.com/kkkkikiki/groupbuy/internal/pickup"
)

// PickupServer implements the pickup service
type PickupServer struct {
	pickups *pickup.Service
	logger  *zap.Logger
}

// NewPickupServer creates a new PickupServer instance
func NewPickupServer(pickups *pickup.Service, log *zap.Logger) *PickupServer {
	return &PickupServer{pickups: pickups, logger: logger.OrNop(log)}
}

// IssueCredential mints a pickup token for a customer with at least one order
func (s *PickupServer) IssueCredential(
	ctx context.Context,
	req *connect.Request[IssueCredentialRequest],
) (*connect.Response[IssueCredentialResponse], error) {
	cred, err := s.pickups.IssueCredential(ctx, req.Msg.Name, req.Msg.Phone)
	if err != nil {
		return nil, toConnectError(s.logger, PickupServiceIssueCredentialProcedure, err)
	}
	return connect.NewResponse(&IssueCredentialResponse{Credential: cred}), nil
}

// ResolveCredential returns the identity behind a pickup token
func (s *PickupServer) ResolveCredential(
	ctx context.Context,
	req *connect.Request[ResolveCredentialRequest],
) (*connect.Response[ResolveCredentialResponse], error) {
	cred, err := s.pickups.ResolveCredential(ctx, req.Msg.Token)
	if err != nil {
		return nil, toConnectError(s.logger, PickupServiceResolveCredentialProcedure, err)
	}
	return connect.NewResponse(&ResolveCredentialResponse{Credential: cred}), nil
}

// SearchPickups returns the pickup summary for a token, an order token or an identity
func (s *PickupServer) SearchPickups(
	ctx context.Context,
	req *connect.Request[SearchPickupsRequest],
) (*connect.Response[SearchPickupsResponse], error) {
	filter, err := pickup.ParseStatusFilter(req.Msg.Status)
	if err != nil {
		return nil, toConnectError(s.logger, PickupServiceSearchPickupsProcedure, err)
	}

	var summary *pickup.Summary
	switch {
	case strings.TrimSpace(req.Msg.Token) != "":
		summary, err = s.pickups.SearchByCredential(ctx, req.Msg.Token, filter)
	case strings.TrimSpace(req.Msg.OrderToken) != "":
		summary, err = s.pickups.SearchByOrderToken(ctx, req.Msg.OrderToken, filter)
	case strings.TrimSpace(req.Msg.Name) != "" || strings.TrimSpace(req.Msg.Phone) != "":
		summary, err = s.pickups.SearchByIdentity(ctx, req.Msg.Name, req.Msg.Phone, filter)
	default:
		err = apperr.E("service.SearchPickups", apperr.KindInvalidArgument,
			errors.New("token, order_token or name and phone is required"))
	}
	if err != nil {
		return nil, toConnectError(s.logger, PickupServiceSearchPickupsProcedure, err)
	}
	return connect.NewResponse(&SearchPickupsResponse{Summary: summary}), nil
}

// MarkPickup records an item's remaining quantity as collected
func (s *PickupServer) MarkPickup(
	ctx context.Context,
	req *connect.Request[MarkPickupRequest],
) (*connect.Response[MarkPickupResponse], error) {
	summary, err := s.pickups.Mark(ctx, req.Msg.Token, req.Msg.OrderID, req.Msg.ItemKey, req.Msg.PerformedBy)
	if err != nil {
		return nil, toConnectError(s.logger, PickupServiceMarkPickupProcedure, err)
	}
	return connect.NewResponse(&MarkPickupResponse{Summary: summary}), nil
}

// UndoPickup removes the item's most recent pickup event
func (s *PickupServer) UndoPickup(
	ctx context.Context,
	req *connect.Request[UndoPickupRequest],
) (*connect.Response[UndoPickupResponse], error) {
	summary, err := s.pickups.Undo(ctx, req.Msg.Token, req.Msg.OrderID, req.Msg.ItemKey)
	if err != nil {
		return nil, toConnectError(s.logger, PickupServiceUndoPickupProcedure, err)
	}
	return connect.NewResponse(&UndoPickupResponse{Summary: summary}), nil
}
