package pickup

import (
	"testing"

	"github.com/kkkkikiki/groupbuy/internal/apperr"
	"github.com/kkkkikiki/groupbuy/internal/model"
)

var apple = model.PickupItem{Key: "field:apple", Label: "apple", Quantity: 5, UnitPrice: floatPtr(10)}

func TestAggregateMarkAndUndo(t *testing.T) {
	t.Parallel()

	items := []model.PickupItem{apple}

	before := Aggregate(items, nil, FilterAll)
	if got := before[0]; got.Status != StatusPending || got.RemainingQuantity != 5 || got.PickedQuantity != 0 {
		t.Fatalf("before mark = %+v", got)
	}

	marked := Aggregate(items, []model.PickupEvent{{ID: 1, ItemKey: apple.Key, Quantity: 5}}, FilterAll)
	got := marked[0]
	if got.Status != StatusPicked || got.PickedQuantity != 5 || got.RemainingQuantity != 0 {
		t.Fatalf("after mark = %+v", got)
	}
	if got.PickedTotal == nil || *got.PickedTotal != 50 {
		t.Fatalf("picked_total = %v, want 50", got.PickedTotal)
	}
	if got.RemainingTotal == nil || *got.RemainingTotal != 0 {
		t.Fatalf("remaining_total = %v, want 0", got.RemainingTotal)
	}
	if got.LatestEvent == nil || got.LatestEvent.ID != 1 {
		t.Fatalf("latest event = %+v", got.LatestEvent)
	}

	// Undo removes the event, which restores the pre-mark state.
	undone := Aggregate(items, nil, FilterAll)
	if got := undone[0]; got.Status != StatusPending || got.RemainingQuantity != 5 {
		t.Fatalf("after undo = %+v", got)
	}
}

func TestAggregateClampsOverPick(t *testing.T) {
	t.Parallel()

	events := []model.PickupEvent{
		{ID: 1, ItemKey: apple.Key, Quantity: 4},
		{ID: 2, ItemKey: apple.Key, Quantity: 3},
	}
	got := Aggregate([]model.PickupItem{apple}, events, FilterAll)[0]
	if got.PickedQuantity != 7 || got.RemainingQuantity != 0 || got.Status != StatusPicked {
		t.Fatalf("state = %+v", got)
	}
	if *got.PickedTotal != 50 {
		t.Fatalf("picked_total = %v, want clamped 50", *got.PickedTotal)
	}
	if got.LatestEvent.ID != 2 {
		t.Fatalf("latest event id = %d, want 2", got.LatestEvent.ID)
	}
}

func TestAggregateEpsilonSnapsToPicked(t *testing.T) {
	t.Parallel()

	item := model.PickupItem{Key: "field:milk", Quantity: 0.3}
	events := []model.PickupEvent{
		{ID: 1, ItemKey: item.Key, Quantity: 0.1},
		{ID: 2, ItemKey: item.Key, Quantity: 0.19995},
	}
	got := Aggregate([]model.PickupItem{item}, events, FilterAll)[0]
	if got.Status != StatusPicked || got.RemainingQuantity != 0 {
		t.Fatalf("state = %+v, want picked with zero remaining", got)
	}
	if got.OrderedTotal != nil || got.PickedTotal != nil || got.RemainingTotal != nil {
		t.Fatalf("totals present without a unit price: %+v", got)
	}
}

func TestAggregateFiltersPartition(t *testing.T) {
	t.Parallel()

	items := []model.PickupItem{
		apple,
		{Key: "field:pear", Quantity: 2},
		{Key: "item:box:bagel", Quantity: 1},
	}
	events := []model.PickupEvent{
		{ID: 1, ItemKey: "field:pear", Quantity: 2},
		{ID: 2, ItemKey: "item:box:bagel", Quantity: 0.5},
		{ID: 3, ItemKey: "field:gone", Quantity: 9},
	}

	all := Aggregate(items, events, FilterAll)
	pending := Aggregate(items, events, FilterPending)
	picked := Aggregate(items, events, FilterPicked)

	if len(pending)+len(picked) != len(all) {
		t.Fatalf("pending %d + picked %d != all %d", len(pending), len(picked), len(all))
	}
	seen := map[string]bool{}
	for _, s := range pending {
		seen[s.Key] = true
	}
	for _, s := range picked {
		if seen[s.Key] {
			t.Fatalf("%s appears in both pending and picked", s.Key)
		}
	}
	if len(picked) != 1 || picked[0].Key != "field:pear" {
		t.Fatalf("picked = %+v", picked)
	}
	if pending[1].Key != "item:box:bagel" || pending[1].RemainingQuantity != 0.5 {
		t.Fatalf("partial pick = %+v", pending[1])
	}
}

func TestBuildOrderStateTotals(t *testing.T) {
	t.Parallel()

	campaign := &model.Campaign{
		ID:    7,
		Title: "Fruit run",
		FieldSchema: []model.Field{
			{Name: "apple", Type: model.FieldTypeQuantity, UnitPrice: floatPtr(10)},
			{Name: "pear", Type: model.FieldTypeQuantity},
		},
	}
	order := model.Order{ID: 3, CampaignID: 7, CustomerName: "Amy", Payload: map[string]any{"apple": 5.0, "pear": 2.0}}

	state, ok := BuildOrderState(order, campaign, []model.PickupEvent{{ID: 1, OrderID: 3, ItemKey: "field:apple", Quantity: 2}}, FilterAll)
	if !ok {
		t.Fatal("order dropped")
	}
	if state.CampaignTitle != "Fruit run" || len(state.Items) != 2 {
		t.Fatalf("state = %+v", state)
	}
	if *state.OrderedTotal != 50 || *state.PickedTotal != 20 || *state.RemainingTotal != 30 {
		t.Fatalf("totals = %v/%v/%v", *state.OrderedTotal, *state.PickedTotal, *state.RemainingTotal)
	}

	if _, ok := BuildOrderState(order, campaign, nil, FilterPicked); ok {
		t.Fatal("order with nothing picked kept under picked filter")
	}
}

func TestParseStatusFilter(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]StatusFilter{"": FilterAll, "all": FilterAll, " Pending ": FilterPending, "picked": FilterPicked} {
		got, err := ParseStatusFilter(in)
		if err != nil || got != want {
			t.Fatalf("ParseStatusFilter(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseStatusFilter("done"); !apperr.IsKind(err, apperr.KindInvalidArgument) {
		t.Fatalf("err = %v, want invalid argument", err)
	}
}
