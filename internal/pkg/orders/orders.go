// Package orders ingests shop order webhooks into order + item rows.
package orders

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"github.com/hookline/hookline/app/models"
)

// Payload is the flat order body delivered by the shop webhook. Numeric
// fields missing from the payload default to zero and booleans to false; a
// payload is never rejected for missing optional fields.
type Payload struct {
	OrderNumber    string        `json:"orderNumber"`
	Status         string        `json:"status"`
	PaymentStatus  string        `json:"paymentStatus"`
	PaymentMethod  string        `json:"paymentMethod"`
	ShippingStatus string        `json:"shippingStatus"`
	ShippingFee    float64       `json:"shippingFee"`
	Subtotal       float64       `json:"subtotal"`
	Total          float64       `json:"total"`
	Paid           bool          `json:"paid"`
	Items          []ItemPayload `json:"items"`
}

// ItemPayload is one order line from the webhook body.
type ItemPayload struct {
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	Subtotal  float64 `json:"subtotal"`
}

// ParsePayload decodes a raw order webhook body.
func ParsePayload(body []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("malformed order payload: %w", err)
	}
	return &p, nil
}

// Service persists ingested orders.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Ingest writes the order header first, then every item referencing the
// committed order id, inside one transaction. Any mapping or storage fault
// rolls the entire unit back, items and header both.
func (s *Service) Ingest(ctx context.Context, p *Payload) (*models.Order, error) {
	order := &models.Order{
		OrderNumber:    p.OrderNumber,
		Status:         p.Status,
		PaymentStatus:  p.PaymentStatus,
		PaymentMethod:  p.PaymentMethod,
		ShippingStatus: p.ShippingStatus,
		ShippingFee:    p.ShippingFee,
		Subtotal:       p.Subtotal,
		Total:          p.Total,
		Paid:           p.Paid,
	}
	if err := order.Validate(); err != nil {
		return nil, fmt.Errorf("invalid order: %w", err)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		for i, raw := range p.Items {
			item := &models.OrderItem{
				OrderID:   order.ID,
				Name:      raw.Name,
				Quantity:  raw.Quantity,
				UnitPrice: raw.UnitPrice,
				Subtotal:  raw.Subtotal,
			}
			if err := item.Validate(); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
			if err := tx.Create(item).Error; err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
			order.Items = append(order.Items, *item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}
