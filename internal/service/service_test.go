package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"

	"github.com/kkkkikiki/groupbuy/internal/apperr"
	"github.com/kkkkikiki/groupbuy/internal/database/dbtest"
	"github.com/kkkkikiki/groupbuy/internal/model"
	"github.com/kkkkikiki/groupbuy/internal/pickup"
	"github.com/kkkkikiki/groupbuy/internal/repository"
	"github.com/kkkkikiki/groupbuy/internal/reservation"
)

type testServer struct {
	reservations *ReservationServiceClient
	pickups      *PickupServiceClient
	campaigns    *repository.CampaignRepository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db := dbtest.Open(t)
	campaigns := repository.NewCampaignRepository(db.SQL)
	manager := reservation.NewManager(repository.NewReservationRepository(db.SQL), campaigns, nil)
	issuer := pickup.NewCredentialIssuer(repository.NewPickupTokenRepository(db.SQL), time.Hour, nil)
	pickups := pickup.NewService(campaigns, campaigns, repository.NewPickupEventRepository(db.SQL), issuer, nil)

	mux := http.NewServeMux()
	mux.Handle(NewReservationServiceHandler(NewReservationServer(manager, nil)))
	mux.Handle(NewPickupServiceHandler(NewPickupServer(pickups, nil)))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &testServer{
		reservations: NewReservationServiceClient(srv.Client(), srv.URL),
		pickups:      NewPickupServiceClient(srv.Client(), srv.URL),
		campaigns:    campaigns,
	}
}

func (s *testServer) campaign(t *testing.T, limit *int, schema []model.Field) int64 {
	t.Helper()

	c := &model.Campaign{Title: "Fruit run", CapacityLimit: limit, FieldSchema: schema, Deadline: time.Now().Add(time.Hour)}
	if err := s.campaigns.CreateCampaign(context.Background(), c); err != nil {
		t.Fatalf("create campaign: %v", err)
	}
	return c.ID
}

func assertCode(t *testing.T, err error, code connect.Code, kind apperr.Kind) {
	t.Helper()

	if err == nil {
		t.Fatalf("err = nil, want %v", code)
	}
	if got := connect.CodeOf(err); got != code {
		t.Fatalf("code = %v, want %v (err %v)", got, code, err)
	}
	if got := KindFromError(err); got != kind {
		t.Fatalf("kind = %v, want %v", got, kind)
	}
}

func TestReserveOverConnect(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	ctx := context.Background()
	limit := 2
	id := s.campaign(t, &limit, nil)

	for i, session := range []string{"S1", "S2"} {
		res, err := s.reservations.Reserve(ctx, connect.NewRequest(&ReserveRequest{CampaignID: id, SessionID: session}))
		if err != nil {
			t.Fatalf("reserve %s: %v", session, err)
		}
		if res.Msg.Slot.SequenceNumber != i+1 {
			t.Fatalf("%s sequence = %d, want %d", session, res.Msg.Slot.SequenceNumber, i+1)
		}
		if res.Msg.Slot.ExpiresAt.IsZero() {
			t.Fatalf("%s slot has no expiry", session)
		}
	}

	_, err := s.reservations.Reserve(ctx, connect.NewRequest(&ReserveRequest{CampaignID: id, SessionID: "S3"}))
	assertCode(t, err, connect.CodeResourceExhausted, apperr.KindCapacityExceeded)

	_, err = s.reservations.Reserve(ctx, connect.NewRequest(&ReserveRequest{CampaignID: id, SessionID: " "}))
	assertCode(t, err, connect.CodeInvalidArgument, apperr.KindInvalidArgument)

	_, err = s.reservations.Reserve(ctx, connect.NewRequest(&ReserveRequest{CampaignID: id + 100, SessionID: "S4"}))
	assertCode(t, err, connect.CodeNotFound, apperr.KindNotFound)
}

func TestConfirmAndLookupOverConnect(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	ctx := context.Background()
	id := s.campaign(t, nil, nil)

	if _, err := s.reservations.Reserve(ctx, connect.NewRequest(&ReserveRequest{CampaignID: id, SessionID: "abc"})); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	lookup, err := s.reservations.LookupReservation(ctx, connect.NewRequest(&LookupReservationRequest{CampaignID: id, SessionID: "abc"}))
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if lookup.Msg.Slot.SequenceNumber != 1 || lookup.Msg.Slot.Confirmed {
		t.Fatalf("lookup slot = %+v", lookup.Msg.Slot)
	}

	confirmed, err := s.reservations.Confirm(ctx, connect.NewRequest(&ConfirmRequest{CampaignID: id, SessionID: "abc", OrderToken: "order-1"}))
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if !confirmed.Msg.Slot.Confirmed || !confirmed.Msg.Slot.ExpiresAt.IsZero() {
		t.Fatalf("confirmed slot = %+v", confirmed.Msg.Slot)
	}

	_, err = s.reservations.LookupReservation(ctx, connect.NewRequest(&LookupReservationRequest{CampaignID: id, SessionID: "abc"}))
	assertCode(t, err, connect.CodeNotFound, apperr.KindReservationExpired)

	_, err = s.reservations.Confirm(ctx, connect.NewRequest(&ConfirmRequest{CampaignID: id, SessionID: "nobody", OrderToken: "order-2"}))
	assertCode(t, err, connect.CodeNotFound, apperr.KindReservationExpired)

	sweep, err := s.reservations.SweepReservations(ctx, connect.NewRequest(&SweepReservationsRequest{}))
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if sweep.Msg.Swept != 0 {
		t.Fatalf("swept = %d, want 0", sweep.Msg.Swept)
	}
}

func TestPickupFlowOverConnect(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	ctx := context.Background()
	price := 10.0
	id := s.campaign(t, nil, []model.Field{{Name: "apple", Type: model.FieldTypeQuantity, UnitPrice: &price}})
	order := &model.Order{CampaignID: id, CustomerName: "Amy", CustomerPhone: "0911222333", Payload: map[string]any{"apple": 5}}
	if _, err := s.campaigns.CreateOrder(ctx, order); err != nil {
		t.Fatalf("create order: %v", err)
	}

	found, err := s.pickups.SearchPickups(ctx, connect.NewRequest(&SearchPickupsRequest{Name: "Amy", Phone: "0911222333"}))
	if err != nil {
		t.Fatalf("search by identity: %v", err)
	}
	cred := found.Msg.Summary.Credential
	if cred == nil || cred.Token == "" {
		t.Fatalf("summary credential = %+v", cred)
	}

	resolved, err := s.pickups.ResolveCredential(ctx, connect.NewRequest(&ResolveCredentialRequest{Token: cred.Token}))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Msg.Credential.Name != "Amy" {
		t.Fatalf("resolved = %+v", resolved.Msg.Credential)
	}

	marked, err := s.pickups.MarkPickup(ctx, connect.NewRequest(&MarkPickupRequest{Token: cred.Token, OrderID: order.ID, ItemKey: "field:apple"}))
	if err != nil {
		t.Fatalf("mark: %v", err)
	}
	item := marked.Msg.Summary.Orders[0].Items[0]
	if item.Status != pickup.StatusPicked || item.PickedQuantity != 5 || *item.PickedTotal != 50 {
		t.Fatalf("marked item = %+v", item)
	}

	_, err = s.pickups.MarkPickup(ctx, connect.NewRequest(&MarkPickupRequest{Token: cred.Token, OrderID: order.ID, ItemKey: "field:apple"}))
	assertCode(t, err, connect.CodeFailedPrecondition, apperr.KindItemNotActionable)

	undone, err := s.pickups.UndoPickup(ctx, connect.NewRequest(&UndoPickupRequest{Token: cred.Token, OrderID: order.ID, ItemKey: "field:apple"}))
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	if item := undone.Msg.Summary.Orders[0].Items[0]; item.Status != pickup.StatusPending || item.RemainingQuantity != 5 {
		t.Fatalf("undone item = %+v", item)
	}

	byOrder, err := s.pickups.SearchPickups(ctx, connect.NewRequest(&SearchPickupsRequest{OrderToken: order.Token, Status: "pending"}))
	if err != nil {
		t.Fatalf("search by order token: %v", err)
	}
	if len(byOrder.Msg.Summary.Orders) != 1 || byOrder.Msg.Summary.Credential != nil {
		t.Fatalf("order token summary = %+v", byOrder.Msg.Summary)
	}
}

func TestPickupErrorsOverConnect(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	ctx := context.Background()

	_, err := s.pickups.IssueCredential(ctx, connect.NewRequest(&IssueCredentialRequest{Name: "Amy", Phone: "0900000000"}))
	assertCode(t, err, connect.CodeUnauthenticated, apperr.KindInvalidCredential)

	_, err = s.pickups.SearchPickups(ctx, connect.NewRequest(&SearchPickupsRequest{}))
	assertCode(t, err, connect.CodeInvalidArgument, apperr.KindInvalidArgument)

	_, err = s.pickups.SearchPickups(ctx, connect.NewRequest(&SearchPickupsRequest{Token: "x", Status: "done"}))
	assertCode(t, err, connect.CodeInvalidArgument, apperr.KindInvalidArgument)

	_, err = s.pickups.SearchPickups(ctx, connect.NewRequest(&SearchPickupsRequest{Token: "expired-or-never"}))
	assertCode(t, err, connect.CodeUnauthenticated, apperr.KindInvalidCredential)

	_, err = s.pickups.UndoPickup(ctx, connect.NewRequest(&UndoPickupRequest{Token: "x", OrderID: 1, ItemKey: "field:apple"}))
	assertCode(t, err, connect.CodeUnauthenticated, apperr.KindInvalidCredential)
}

func TestForeignOrderMatchesUnknownTokenOverConnect(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	ctx := context.Background()
	id := s.campaign(t, nil, []model.Field{{Name: "apple", Type: model.FieldTypeQuantity}})
	for _, o := range []*model.Order{
		{CampaignID: id, CustomerName: "Amy", CustomerPhone: "0911222333", Payload: map[string]any{"apple": 1}},
		{CampaignID: id, CustomerName: "Bob", CustomerPhone: "0922333444", Payload: map[string]any{"apple": 1}},
	} {
		if _, err := s.campaigns.CreateOrder(ctx, o); err != nil {
			t.Fatalf("create order: %v", err)
		}
	}
	bob, err := s.campaigns.ListOrdersByCustomer(ctx, "Bob", "0922333444")
	if err != nil || len(bob) != 1 {
		t.Fatalf("bob orders = %v, %v", bob, err)
	}
	issued, err := s.pickups.IssueCredential(ctx, connect.NewRequest(&IssueCredentialRequest{Name: "Amy", Phone: "0911222333"}))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	message := func(token string, orderID int64) string {
		t.Helper()
		_, err := s.pickups.MarkPickup(ctx, connect.NewRequest(&MarkPickupRequest{Token: token, OrderID: orderID, ItemKey: "field:apple"}))
		assertCode(t, err, connect.CodeUnauthenticated, apperr.KindInvalidCredential)
		var cerr *connect.Error
		if !errors.As(err, &cerr) {
			t.Fatalf("err = %T, want *connect.Error", err)
		}
		return cerr.Message()
	}
	unknown := message("bogus", bob[0].ID)
	if foreign := message(issued.Msg.Credential.Token, bob[0].ID); foreign != unknown {
		t.Fatalf("foreign order message = %q, unknown token message = %q", foreign, unknown)
	}
	if missing := message(issued.Msg.Credential.Token, 9999); missing != unknown {
		t.Fatalf("missing order message = %q, unknown token message = %q", missing, unknown)
	}
	if unknown != string(apperr.KindInvalidCredential) {
		t.Fatalf("message = %q, want bare kind", unknown)
	}
}

func TestToConnectErrorHidesStorageCause(t *testing.T) {
	t.Parallel()

	err := toConnectError(nil, "test", apperr.Storage("op", errors.New("dial tcp 10.0.0.3:5432: refused")))
	var cerr *connect.Error
	if !errors.As(err, &cerr) {
		t.Fatalf("err = %T, want *connect.Error", err)
	}
	if cerr.Code() != connect.CodeInternal {
		t.Fatalf("code = %v, want internal", cerr.Code())
	}
	if cerr.Message() != string(apperr.KindStorageFailure) {
		t.Fatalf("message = %q leaks cause", cerr.Message())
	}
	if KindFromError(err) != apperr.KindStorageFailure {
		t.Fatalf("kind = %v", KindFromError(err))
	}

	if toConnectError(nil, "test", nil) != nil {
		t.Fatal("nil error mapped to non-nil")
	}
}

func TestJSONCodecEmptyBody(t *testing.T) {
	t.Parallel()

	var req SweepReservationsRequest
	if err := (jsonCodec{}).Unmarshal(nil, &req); err != nil {
		t.Fatalf("unmarshal empty body: %v", err)
	}
	var res ReserveRequest
	if err := (jsonCodec{}).Unmarshal([]byte(`{"campaign_id":7,"session_id":"abc"}`), &res); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if res.CampaignID != 7 || res.SessionID != "abc" {
		t.Fatalf("decoded = %+v", res)
	}
}
