package service

import (
	"context"
	"strings"

	"connectrpc.com/connect"
)

// ReservationServiceClient calls the reservation service over connect.
type ReservationServiceClient struct {
	reserve *connect.Client[ReserveRequest, ReserveResponse]
	confirm *connect.Client[ConfirmRequest, ConfirmResponse]
	lookup  *connect.Client[LookupReservationRequest, LookupReservationResponse]
	sweep   *connect.Client[SweepReservationsRequest, SweepReservationsResponse]
}

// NewReservationServiceClient creates a client for the service at baseURL
func NewReservationServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *ReservationServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return &ReservationServiceClient{
		reserve: connect.NewClient[ReserveRequest, ReserveResponse](httpClient, baseURL+ReservationServiceReserveProcedure, opts...),
		confirm: connect.NewClient[ConfirmRequest, ConfirmResponse](httpClient, baseURL+ReservationServiceConfirmProcedure, opts...),
		lookup:  connect.NewClient[LookupReservationRequest, LookupReservationResponse](httpClient, baseURL+ReservationServiceLookupReservationProcedure, opts...),
		sweep:   connect.NewClient[SweepReservationsRequest, SweepReservationsResponse](httpClient, baseURL+ReservationServiceSweepReservationsProcedure, opts...),
	}
}

func (c *ReservationServiceClient) Reserve(ctx context.Context, req *connect.Request[ReserveRequest]) (*connect.Response[ReserveResponse], error) {
	return c.reserve.CallUnary(ctx, req)
}

func (c *ReservationServiceClient) Confirm(ctx context.Context, req *connect.Request[ConfirmRequest]) (*connect.Response[ConfirmResponse], error) {
	return c.confirm.CallUnary(ctx, req)
}

func (c *ReservationServiceClient) LookupReservation(ctx context.Context, req *connect.Request[LookupReservationRequest]) (*connect.Response[LookupReservationResponse], error) {
	return c.lookup.CallUnary(ctx, req)
}

func (c *ReservationServiceClient) SweepReservations(ctx context.Context, req *connect.Request[SweepReservationsRequest]) (*connect.Response[SweepReservationsResponse], error) {
	return c.sweep.CallUnary(ctx, req)
}

// PickupServiceClient calls the pickup service over connect.
type PickupServiceClient struct {
	issue   *connect.Client[IssueCredentialRequest, IssueCredentialResponse]
	resolve *connect.Client[ResolveCredentialRequest, ResolveCredentialResponse]
	search  *connect.Client[SearchPickupsRequest, SearchPickupsResponse]
	mark    *connect.Client[MarkPickupRequest, MarkPickupResponse]
	undo    *connect.Client[UndoPickupRequest, UndoPickupResponse]
}

// NewPickupServiceClient creates a client for the service at baseURL
func NewPickupServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *PickupServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return &PickupServiceClient{
		issue:   connect.NewClient[IssueCredentialRequest, IssueCredentialResponse](httpClient, baseURL+PickupServiceIssueCredentialProcedure, opts...),
		resolve: connect.NewClient[ResolveCredentialRequest, ResolveCredentialResponse](httpClient, baseURL+PickupServiceResolveCredentialProcedure, opts...),
		search:  connect.NewClient[SearchPickupsRequest, SearchPickupsResponse](httpClient, baseURL+PickupServiceSearchPickupsProcedure, opts...),
		mark:    connect.NewClient[MarkPickupRequest, MarkPickupResponse](httpClient, baseURL+PickupServiceMarkPickupProcedure, opts...),
		undo:    connect.NewClient[UndoPickupRequest, UndoPickupResponse](httpClient, baseURL+PickupServiceUndoPickupProcedure, opts...),
	}
}

func (c *PickupServiceClient) IssueCredential(ctx context.Context, req *connect.Request[IssueCredentialRequest]) (*connect.Response[IssueCredentialResponse], error) {
	return c.issue.CallUnary(ctx, req)
}

func (c *PickupServiceClient) ResolveCredential(ctx context.Context, req *connect.Request[ResolveCredentialRequest]) (*connect.Response[ResolveCredentialResponse], error) {
	return c.resolve.CallUnary(ctx, req)
}

func (c *PickupServiceClient) SearchPickups(ctx context.Context, req *connect.Request[SearchPickupsRequest]) (*connect.Response[SearchPickupsResponse], error) {
	return c.search.CallUnary(ctx, req)
}

func (c *PickupServiceClient) MarkPickup(ctx context.Context, req *connect.Request[MarkPickupRequest]) (*connect.Response[MarkPickupResponse], error) {
	return c.mark.CallUnary(ctx, req)
}

func (c *PickupServiceClient) UndoPickup(ctx context.Context, req *connect.Request[UndoPickupRequest]) (*connect.Response[UndoPickupResponse], error) {
	return c.undo.CallUnary(ctx, req)
}
