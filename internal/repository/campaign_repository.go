package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kkkkikiki/groupbuy/internal/model"
)

// CampaignRepository reads campaigns and orders. It backs the capacity view
// and the order store used by pickup lookups.
type CampaignRepository struct {
	db DBExecutor
}

// NewCampaignRepository creates a new campaign repository
func NewCampaignRepository(db DBExecutor) *CampaignRepository {
	return &CampaignRepository{db: db}
}

type campaignRow struct {
	ID            int64         `db:"id"`
	Title         string        `db:"title"`
	CapacityLimit sql.NullInt64 `db:"capacity_limit"`
	FieldSchema   string        `db:"field_schema"`
	Deadline      int64         `db:"deadline"`
	CreatedAt     int64         `db:"created_at"`
}

func (r campaignRow) toModel() (*model.Campaign, error) {
	c := &model.Campaign{
		ID:        r.ID,
		Title:     r.Title,
		CreatedAt: fromMillis(r.CreatedAt),
	}
	if r.CapacityLimit.Valid {
		limit := int(r.CapacityLimit.Int64)
		c.CapacityLimit = &limit
	}
	if r.Deadline > 0 {
		c.Deadline = fromMillis(r.Deadline)
	}
	if r.FieldSchema != "" {
		if err := json.Unmarshal([]byte(r.FieldSchema), &c.FieldSchema); err != nil {
			return nil, fmt.Errorf("decode field schema for campaign %d: %w", r.ID, err)
		}
	}
	return c, nil
}

// CreateCampaign creates a new campaign
func (r *CampaignRepository) CreateCampaign(ctx context.Context, campaign *model.Campaign) error {
	schema, err := json.Marshal(campaign.FieldSchema)
	if err != nil {
		return fmt.Errorf("failed to encode field schema: %w", err)
	}
	if campaign.FieldSchema == nil {
		schema = []byte("[]")
	}

	var limit sql.NullInt64
	if campaign.CapacityLimit != nil {
		limit = sql.NullInt64{Int64: int64(*campaign.CapacityLimit), Valid: true}
	}
	var deadline int64
	if !campaign.Deadline.IsZero() {
		deadline = toMillis(campaign.Deadline)
	}
	if campaign.CreatedAt.IsZero() {
		campaign.CreatedAt = time.Now().UTC()
	}

	query := r.db.Rebind(`
		INSERT INTO campaigns (title, capacity_limit, field_schema, deadline, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`)
	err = r.db.GetContext(ctx, &campaign.ID, query,
		campaign.Title, limit, string(schema), deadline, toMillis(campaign.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}

	return nil
}

// GetCampaign retrieves a campaign by ID
func (r *CampaignRepository) GetCampaign(ctx context.Context, id int64) (*model.Campaign, error) {
	query := r.db.Rebind(`
		SELECT id, title, capacity_limit, field_schema, deadline, created_at
		FROM campaigns
		WHERE id = ?
	`)

	var row campaignRow
	err := r.db.GetContext(ctx, &row, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}

	return row.toModel()
}

type orderRow struct {
	ID            int64  `db:"id"`
	CampaignID    int64  `db:"campaign_id"`
	Token         string `db:"token"`
	CustomerName  string `db:"customer_name"`
	CustomerPhone string `db:"customer_phone"`
	Payload       string `db:"payload"`
	CreatedAt     int64  `db:"created_at"`
}

func (r orderRow) toModel() (*model.Order, error) {
	o := &model.Order{
		ID:            r.ID,
		CampaignID:    r.CampaignID,
		Token:         r.Token,
		CustomerName:  r.CustomerName,
		CustomerPhone: r.CustomerPhone,
		CreatedAt:     fromMillis(r.CreatedAt),
	}
	if r.Payload != "" {
		if err := json.Unmarshal([]byte(r.Payload), &o.Payload); err != nil {
			return nil, fmt.Errorf("decode payload for order %d: %w", r.ID, err)
		}
	}
	return o, nil
}

const orderColumns = `id, campaign_id, token, customer_name, customer_phone, payload, created_at`

// CreateOrder stores an order and returns its token. Customer identity is trimmed;
// a token is generated when the order carries none.
func (r *CampaignRepository) CreateOrder(ctx context.Context, order *model.Order) (string, error) {
	payload, err := json.Marshal(order.Payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode order payload: %w", err)
	}
	if order.Payload == nil {
		payload = []byte("{}")
	}
	if order.Token == "" {
		order.Token = uuid.NewString()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	order.CustomerName = strings.TrimSpace(order.CustomerName)
	order.CustomerPhone = strings.TrimSpace(order.CustomerPhone)

	query := r.db.Rebind(`
		INSERT INTO orders (campaign_id, token, customer_name, customer_phone, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`)
	err = r.db.GetContext(ctx, &order.ID, query,
		order.CampaignID, order.Token, order.CustomerName, order.CustomerPhone,
		string(payload), toMillis(order.CreatedAt))
	if err != nil {
		return "", fmt.Errorf("failed to create order: %w", err)
	}
	return order.Token, nil
}

// UpdateOrderPayload replaces the answers of an existing order. Pickup events
// already recorded against it are kept.
func (r *CampaignRepository) UpdateOrderPayload(ctx context.Context, id int64, payload map[string]any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode order payload: %w", err)
	}
	if payload == nil {
		encoded = []byte("{}")
	}

	query := r.db.Rebind(`UPDATE orders SET payload = ? WHERE id = ?`)
	result, err := r.db.ExecContext(ctx, query, string(encoded), id)
	if err != nil {
		return fmt.Errorf("failed to update order payload: %w", err)
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

// GetOrder retrieves an order by ID
func (r *CampaignRepository) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	return r.getOrder(ctx, "id = ?", id)
}

// GetOrderByToken retrieves an order by its permanent token
func (r *CampaignRepository) GetOrderByToken(ctx context.Context, token string) (*model.Order, error) {
	return r.getOrder(ctx, "token = ?", token)
}

func (r *CampaignRepository) getOrder(ctx context.Context, where string, arg interface{}) (*model.Order, error) {
	query := r.db.Rebind(`SELECT ` + orderColumns + ` FROM orders WHERE ` + where)

	var row orderRow
	if err := r.db.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return row.toModel()
}

// ListOrdersByCustomer returns every order placed under the exact (name, phone) pair, oldest first
func (r *CampaignRepository) ListOrdersByCustomer(ctx context.Context, name, phone string) ([]model.Order, error) {
	query := r.db.Rebind(`
		SELECT ` + orderColumns + `
		FROM orders
		WHERE customer_name = ? AND customer_phone = ?
		ORDER BY created_at ASC, id ASC
	`)

	var rows []orderRow
	if err := r.db.SelectContext(ctx, &rows, query, strings.TrimSpace(name), strings.TrimSpace(phone)); err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	orders := make([]model.Order, 0, len(rows))
	for _, row := range rows {
		o, err := row.toModel()
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, nil
}

// CountOrders returns the number of orders placed against a campaign
func (r *CampaignRepository) CountOrders(ctx context.Context, campaignID int64) (int, error) {
	query := r.db.Rebind(`SELECT count(*) FROM orders WHERE campaign_id = ?`)

	var n int
	if err := r.db.GetContext(ctx, &n, query, campaignID); err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return n, nil
}
