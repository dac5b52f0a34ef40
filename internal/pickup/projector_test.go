package pickup

import (
	"encoding/json"
	"testing"

	"github.com/kkkkikiki/groupbuy/internal/model"
)

func floatPtr(v float64) *float64 { return &v }

func TestProjectItemsQuantityFields(t *testing.T) {
	t.Parallel()

	schema := []model.Field{
		{Name: "apple", Label: "Apple", Type: model.FieldTypeQuantity, UnitPrice: floatPtr(10)},
		{Name: "pear", Type: model.FieldTypeQuantity},
		{Name: "note", Type: model.FieldTypeText},
		{Name: "plum", Type: model.FieldTypeQuantity},
	}
	payload := map[string]any{
		"apple": float64(5),
		"pear":  "2.5",
		"note":  "leave at door",
		"plum":  float64(0),
	}

	items := ProjectItems(schema, payload)
	if len(items) != 2 {
		t.Fatalf("items = %+v, want apple and pear", items)
	}
	if items[0].Key != "field:apple" || items[0].Label != "Apple" || items[0].Quantity != 5 {
		t.Fatalf("apple = %+v", items[0])
	}
	if items[0].UnitPrice == nil || *items[0].UnitPrice != 10 {
		t.Fatalf("apple price = %v, want 10", items[0].UnitPrice)
	}
	if items[1].Key != "field:pear" || items[1].Label != "pear" || items[1].Quantity != 2.5 {
		t.Fatalf("pear = %+v", items[1])
	}
	if items[1].UnitPrice != nil {
		t.Fatalf("pear price = %v, want nil", *items[1].UnitPrice)
	}
}

func TestProjectItemsMergesMultiItemEntries(t *testing.T) {
	t.Parallel()

	schema := []model.Field{
		{Name: "bakery", Label: "Bakery", Type: model.FieldTypeMultiItem, UnitPrice: floatPtr(3)},
	}
	var payload map[string]any
	raw := `{"bakery":[
		{"name":"Bagel","quantity":2},
		{"name":"  bagel ","quantity":1},
		{"name":"Croissant","quantity":1,"price":4.5},
		{"name":"","quantity":3},
		{"name":"Scone","quantity":0}
	]}`
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}

	items := ProjectItems(schema, payload)
	if len(items) != 2 {
		t.Fatalf("items = %+v, want bagel and croissant", items)
	}
	bagel, croissant := items[0], items[1]
	if bagel.Key != "item:bakery:bagel" || bagel.Quantity != 3 {
		t.Fatalf("bagel = %+v, want merged quantity 3", bagel)
	}
	if bagel.Label != "Bakery - Bagel" {
		t.Fatalf("bagel label = %q", bagel.Label)
	}
	if bagel.UnitPrice == nil || *bagel.UnitPrice != 3 {
		t.Fatalf("bagel price = %v, want field price 3", bagel.UnitPrice)
	}
	if croissant.UnitPrice == nil || *croissant.UnitPrice != 4.5 {
		t.Fatalf("croissant price = %v, want entry price 4.5", croissant.UnitPrice)
	}
}

func TestParseNumber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   any
		want float64
		ok   bool
	}{
		{"float", 1.5, 1.5, true},
		{"int", 3, 3, true},
		{"json number", json.Number("2.25"), 2.25, true},
		{"string", " 4 ", 4, true},
		{"garbage", "four", 0, false},
		{"nan", "NaN", 0, false},
		{"inf", "+Inf", 0, false},
		{"bool", true, 0, false},
		{"nil", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseNumber(tt.in)
			if ok != tt.ok || got != tt.want {
				t.Fatalf("parseNumber(%v) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}
