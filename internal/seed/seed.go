// Package seed loads campaigns and orders from YAML fixtures for local runs
// and load tests.
package seed

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/kkkkikiki/groupbuy/internal/logger"
	"github.com/kkkkikiki/groupbuy/internal/model"
)

// Fixture is the root of a seed file.
type Fixture struct {
	Campaigns []Campaign `yaml:"campaigns"`
}

// Campaign describes one campaign and the orders placed against it.
type Campaign struct {
	Title         string        `yaml:"title"`
	CapacityLimit *int          `yaml:"capacity_limit,omitempty"`
	Deadline      time.Time     `yaml:"deadline,omitempty"`
	Fields        []model.Field `yaml:"fields"`
	Orders        []Order       `yaml:"orders,omitempty"`
}

// Order is a pre-placed order. Token is generated when empty.
type Order struct {
	Name    string         `yaml:"name"`
	Phone   string         `yaml:"phone"`
	Token   string         `yaml:"token,omitempty"`
	Payload map[string]any `yaml:"payload"`
}

// Store is the write side used to apply a fixture.
type Store interface {
	CreateCampaign(ctx context.Context, campaign *model.Campaign) error
	CreateOrder(ctx context.Context, order *model.Order) (string, error)
}

// Result lists what Apply created, in fixture order.
type Result struct {
	CampaignIDs []int64
	OrderTokens []string
}

// ReadFile reads and validates a fixture file.
func ReadFile(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("seed read: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates fixture YAML.
func Parse(data []byte) (*Fixture, error) {
	var fx Fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("seed unmarshal: %w", err)
	}
	if err := fx.Validate(); err != nil {
		return nil, err
	}
	return &fx, nil
}

// Validate checks titles, field types, limits and customer identities.
func (fx *Fixture) Validate() error {
	for i, c := range fx.Campaigns {
		if strings.TrimSpace(c.Title) == "" {
			return fmt.Errorf("campaign %d: title is required", i)
		}
		if c.CapacityLimit != nil && *c.CapacityLimit < 0 {
			return fmt.Errorf("campaign %q: capacity_limit must be >= 0", c.Title)
		}
		names := map[string]bool{}
		for _, f := range c.Fields {
			switch f.Type {
			case model.FieldTypeQuantity, model.FieldTypeMultiItem, model.FieldTypeText:
			default:
				return fmt.Errorf("campaign %q: field %q has unknown type %q", c.Title, f.Name, f.Type)
			}
			if f.Name == "" || names[f.Name] {
				return fmt.Errorf("campaign %q: field names must be unique and non-empty", c.Title)
			}
			names[f.Name] = true
		}
		for j, o := range c.Orders {
			if strings.TrimSpace(o.Name) == "" || strings.TrimSpace(o.Phone) == "" {
				return fmt.Errorf("campaign %q order %d: name and phone are required", c.Title, j)
			}
		}
	}
	return nil
}

// Apply creates every campaign and order in the fixture.
func Apply(ctx context.Context, store Store, fx *Fixture, log *zap.Logger) (*Result, error) {
	log = logger.OrNop(log)

	res := &Result{}
	for _, c := range fx.Campaigns {
		campaign := &model.Campaign{
			Title:         c.Title,
			CapacityLimit: c.CapacityLimit,
			FieldSchema:   c.Fields,
			Deadline:      c.Deadline.UTC(),
		}
		if err := store.CreateCampaign(ctx, campaign); err != nil {
			return res, fmt.Errorf("seed campaign %q: %w", c.Title, err)
		}
		res.CampaignIDs = append(res.CampaignIDs, campaign.ID)
		log.Info("seeded campaign", zap.Int64("campaign_id", campaign.ID), zap.String("title", c.Title))

		for _, o := range c.Orders {
			token, err := store.CreateOrder(ctx, &model.Order{
				CampaignID:    campaign.ID,
				Token:         o.Token,
				CustomerName:  o.Name,
				CustomerPhone: o.Phone,
				Payload:       o.Payload,
			})
			if err != nil {
				return res, fmt.Errorf("seed order for %q: %w", c.Title, err)
			}
			res.OrderTokens = append(res.OrderTokens, token)
		}
	}
	return res, nil
}
