package pickup

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/kkkkikiki/groupbuy/internal/model"
)

// QuantityKey is the item key of a quantity field.
func QuantityKey(fieldName string) string {
	return "field:" + fieldName
}

// MultiItemKey is the item key of one named entry of a multi-item field.
func MultiItemKey(fieldName, entryName string) string {
	return "item:" + fieldName + ":" + normalizeName(entryName)
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ProjectItems derives the purchasable line items of an order from the campaign's
// field schema. Keys depend only on field names and normalized entry names, so
// events recorded before an order edit keep resolving afterwards.
func ProjectItems(schema []model.Field, payload map[string]any) []model.PickupItem {
	var items []model.PickupItem
	for _, field := range schema {
		value, ok := payload[field.Name]
		if !ok {
			continue
		}
		switch field.Type {
		case model.FieldTypeQuantity:
			qty, ok := parseQuantity(value)
			if !ok {
				continue
			}
			items = append(items, model.PickupItem{
				Key:       QuantityKey(field.Name),
				Label:     field.DisplayLabel(),
				Quantity:  qty,
				UnitPrice: field.UnitPrice,
			})
		case model.FieldTypeMultiItem:
			items = append(items, projectEntries(field, value)...)
		}
	}
	return items
}

func projectEntries(field model.Field, value any) []model.PickupItem {
	var (
		items []model.PickupItem
		index = map[string]int{}
	)
	for _, entry := range entryMaps(value) {
		rawName, _ := entry["name"].(string)
		name := strings.TrimSpace(rawName)
		if name == "" {
			continue
		}
		qty, ok := parseQuantity(entry["quantity"])
		if !ok {
			continue
		}

		key := MultiItemKey(field.Name, name)
		if i, seen := index[key]; seen {
			items[i].Quantity += qty
			continue
		}

		price := field.UnitPrice
		if p, ok := parseNumber(entry["price"]); ok && p >= 0 {
			price = &p
		}
		index[key] = len(items)
		items = append(items, model.PickupItem{
			Key:       key,
			Label:     field.DisplayLabel() + " - " + name,
			Quantity:  qty,
			UnitPrice: price,
		})
	}
	return items
}

func entryMaps(value any) []map[string]any {
	switch v := value.(type) {
	case []map[string]any:
		return v
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, e := range v {
			if m, ok := e.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

// parseQuantity accepts positive finite numbers.
func parseQuantity(value any) (float64, bool) {
	n, ok := parseNumber(value)
	if !ok || n <= 0 {
		return 0, false
	}
	return n, true
}

func parseNumber(value any) (float64, bool) {
	var n float64
	switch v := value.(type) {
	case float64:
		n = v
	case float32:
		n = float64(v)
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		n = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}
