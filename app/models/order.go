package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Order is the header row of an ingested shop order. Items are owned
// exclusively by their order and are only written after the order row exists,
// inside the same transaction.
type Order struct {
	ID             uint        `gorm:"primaryKey" json:"id"`
	OrderNumber    string      `gorm:"type:varchar(64);not null;uniqueIndex:ux_orders_order_number" json:"order_number" validate:"required"`
	Status         string      `gorm:"type:varchar(32);not null;default:''" json:"status"`
	PaymentStatus  string      `gorm:"type:varchar(32);not null;default:''" json:"payment_status"`
	PaymentMethod  string      `gorm:"type:varchar(32);not null;default:''" json:"payment_method"`
	ShippingStatus string      `gorm:"type:varchar(32);not null;default:''" json:"shipping_status"`
	ShippingFee    float64     `gorm:"not null;default:0" json:"shipping_fee"`
	Subtotal       float64     `gorm:"not null;default:0" json:"subtotal"`
	Total          float64     `gorm:"not null;default:0" json:"total"`
	Paid           bool        `gorm:"not null;default:false" json:"paid"`
	Items          []OrderItem `gorm:"constraint:OnDelete:CASCADE" json:"items,omitempty"`
	CreatedAt      time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

// OrderItem is a single line of an order, valid only while its parent order
// row exists.
type OrderItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OrderID   uint      `gorm:"not null;index" json:"order_id" validate:"required"`
	Name      string    `gorm:"type:varchar(191);not null" json:"name" validate:"required"`
	Quantity  int       `gorm:"not null;default:0" json:"quantity" validate:"min=0"`
	UnitPrice float64   `gorm:"not null;default:0" json:"unit_price"`
	Subtotal  float64   `gorm:"not null;default:0" json:"subtotal"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (o *Order) Validate() error {
	v := validator.New()

	return v.StructExcept(o, "Items")
}

func (i *OrderItem) Validate() error {
	v := validator.New()

	return v.Struct(i)
}
