package model

import (
	"time"

	"github.com/ikramzafar0343/style-sathi/internal/domain"
	"github.com/shopspring/decimal"
)

// OrderStatuses are the statuses the order store accepts. A new order starts
// as confirmed.
var OrderStatuses = []domain.BackendStatus{
	domain.BackendStatusConfirmed,
	domain.BackendStatusProcessing,
	domain.BackendStatusInTransit,
	domain.BackendStatusDelivered,
	domain.BackendStatusCancelled,
}

func ValidOrderStatus(s domain.BackendStatus) bool {
	for _, v := range OrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

type OrderItem struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type Order struct {
	ID              int64
	UserID          string
	IdempotencyKey  string
	Items           []OrderItem
	ShippingAddress domain.ShippingAddress
	PaymentMethod   string
	Total           decimal.Decimal
	Status          domain.BackendStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
