package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/kkkkikiki/groupbuy/internal/model"
)

// PickupEventRepository is the append-mostly pickup log. Rows are never updated;
// the only delete removes one event by id.
type PickupEventRepository struct {
	db DBExecutor
}

// NewPickupEventRepository creates a new pickup event repository
func NewPickupEventRepository(db DBExecutor) *PickupEventRepository {
	return &PickupEventRepository{db: db}
}

type pickupEventRow struct {
	ID          int64           `db:"id"`
	OrderID     int64           `db:"order_id"`
	ItemKey     string          `db:"item_key"`
	PrevEventID int64           `db:"prev_event_id"`
	Quantity    float64         `db:"quantity"`
	UnitPrice   sql.NullFloat64 `db:"unit_price"`
	PerformedBy string          `db:"performed_by"`
	CreatedAt   int64           `db:"created_at"`
}

func (r pickupEventRow) toModel() model.PickupEvent {
	e := model.PickupEvent{
		ID:          r.ID,
		OrderID:     r.OrderID,
		ItemKey:     r.ItemKey,
		PrevEventID: r.PrevEventID,
		Quantity:    r.Quantity,
		PerformedBy: r.PerformedBy,
		CreatedAt:   fromMillis(r.CreatedAt),
	}
	if r.UnitPrice.Valid {
		price := r.UnitPrice.Float64
		e.UnitPrice = &price
	}
	return e
}

const pickupEventColumns = `id, order_id, item_key, prev_event_id, quantity, unit_price, performed_by, created_at`

// AppendEvent inserts an event and sets its id. Two appends naming the same
// predecessor for one item collide on the chain index; the loser gets ErrEventConflict.
func (r *PickupEventRepository) AppendEvent(ctx context.Context, event *model.PickupEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	var price sql.NullFloat64
	if event.UnitPrice != nil {
		price = sql.NullFloat64{Float64: *event.UnitPrice, Valid: true}
	}

	query := r.db.Rebind(`
		INSERT INTO pickup_events (order_id, item_key, prev_event_id, quantity, unit_price, performed_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)
	err := r.db.GetContext(ctx, &event.ID, query,
		event.OrderID, event.ItemKey, event.PrevEventID, event.Quantity, price, event.PerformedBy, toMillis(event.CreatedAt))
	if isUniqueViolation(err) {
		return ErrEventConflict
	}
	if err != nil {
		return fmt.Errorf("failed to append pickup event: %w", err)
	}
	return nil
}

// ListEventsByOrders returns the events of the given orders in id order
func (r *PickupEventRepository) ListEventsByOrders(ctx context.Context, orderIDs []int64) ([]model.PickupEvent, error) {
	if len(orderIDs) == 0 {
		return []model.PickupEvent{}, nil
	}

	query, args, err := sqlx.In(`
		SELECT `+pickupEventColumns+`
		FROM pickup_events
		WHERE order_id IN (?)
		ORDER BY id ASC
	`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build pickup event query: %w", err)
	}

	var rows []pickupEventRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list pickup events: %w", err)
	}

	events := make([]model.PickupEvent, len(rows))
	for i, row := range rows {
		events[i] = row.toModel()
	}
	return events, nil
}

// LatestEvent returns the highest-id event for (order, item)
func (r *PickupEventRepository) LatestEvent(ctx context.Context, orderID int64, itemKey string) (*model.PickupEvent, error) {
	query := r.db.Rebind(`
		SELECT ` + pickupEventColumns + `
		FROM pickup_events
		WHERE order_id = ? AND item_key = ?
		ORDER BY id DESC
		LIMIT 1
	`)

	var row pickupEventRow
	if err := r.db.GetContext(ctx, &row, query, orderID, itemKey); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get latest pickup event: %w", err)
	}
	e := row.toModel()
	return &e, nil
}

// DeleteEvent removes exactly one event. Returns ErrNotFound if it is already gone.
func (r *PickupEventRepository) DeleteEvent(ctx context.Context, id int64) error {
	query := r.db.Rebind(`DELETE FROM pickup_events WHERE id = ?`)

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete pickup event: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
