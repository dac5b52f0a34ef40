package service

import (
	"net/http"

	"connectrpc.com/connect"
)

const (
	// ReservationServiceName is the fully-qualified name of the reservation service.
	ReservationServiceName = "groupbuy.v1.ReservationService"
	// PickupServiceName is the fully-qualified name of the pickup service.
	PickupServiceName = "groupbuy.v1.PickupService"
)

// Procedure paths, routed the same way as generated connect handlers.
const (
	ReservationServiceReserveProcedure           = "/groupbuy.v1.ReservationService/Reserve"
	ReservationServiceConfirmProcedure           = "/groupbuy.v1.ReservationService/Confirm"
	ReservationServiceLookupReservationProcedure = "/groupbuy.v1.ReservationService/LookupReservation"
	ReservationServiceSweepReservationsProcedure = "/groupbuy.v1.ReservationService/SweepReservations"

	PickupServiceIssueCredentialProcedure   = "/groupbuy.v1.PickupService/IssueCredential"
	PickupServiceResolveCredentialProcedure = "/groupbuy.v1.PickupService/ResolveCredential"
	PickupServiceSearchPickupsProcedure     = "/groupbuy.v1.PickupService/SearchPickups"
	PickupServiceMarkPickupProcedure        = "/groupbuy.v1.PickupService/MarkPickup"
	PickupServiceUndoPickupProcedure        = "/groupbuy.v1.PickupService/UndoPickup"
)

// NewReservationServiceHandler builds an HTTP handler for the reservation service.
// It returns the path prefix to mount it on.
func NewReservationServiceHandler(svc *ReservationServer, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	reserve := connect.NewUnaryHandler(ReservationServiceReserveProcedure, svc.Reserve, opts...)
	confirm := connect.NewUnaryHandler(ReservationServiceConfirmProcedure, svc.Confirm, opts...)
	lookup := connect.NewUnaryHandler(ReservationServiceLookupReservationProcedure, svc.LookupReservation, opts...)
	sweep := connect.NewUnaryHandler(ReservationServiceSweepReservationsProcedure, svc.SweepReservations, opts...)

	return "/" + ReservationServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case ReservationServiceReserveProcedure:
			reserve.ServeHTTP(w, r)
		case ReservationServiceConfirmProcedure:
			confirm.ServeHTTP(w, r)
		case ReservationServiceLookupReservationProcedure:
			lookup.ServeHTTP(w, r)
		case ReservationServiceSweepReservationsProcedure:
			sweep.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// NewPickupServiceHandler builds an HTTP handler for the pickup service.
// It returns the path prefix to mount it on.
func NewPickupServiceHandler(svc *PickupServer, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	issue := connect.NewUnaryHandler(PickupServiceIssueCredentialProcedure, svc.IssueCredential, opts...)
	resolve := connect.NewUnaryHandler(PickupServiceResolveCredentialProcedure, svc.ResolveCredential, opts...)
	search := connect.NewUnaryHandler(PickupServiceSearchPickupsProcedure, svc.SearchPickups, opts...)
	mark := connect.NewUnaryHandler(PickupServiceMarkPickupProcedure, svc.MarkPickup, opts...)
	undo := connect.NewUnaryHandler(PickupServiceUndoPickupProcedure, svc.UndoPickup, opts...)

	return "/" + PickupServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case PickupServiceIssueCredentialProcedure:
			issue.ServeHTTP(w, r)
		case PickupServiceResolveCredentialProcedure:
			resolve.ServeHTTP(w, r)
		case PickupServiceSearchPickupsProcedure:
			search.ServeHTTP(w, r)
		case PickupServiceMarkPickupProcedure:
			mark.ServeHTTP(w, r)
		case PickupServiceUndoPickupProcedure:
			undo.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}
