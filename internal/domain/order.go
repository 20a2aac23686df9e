package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const DefaultPaymentMethod = "card"

type OrderItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type ShippingAddress struct {
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone,omitempty"`
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

// Order is immutable from the client's point of view except for Status, which
// always holds the client-facing vocabulary.
type Order struct {
	ID              string          `json:"id"`
	Items           []OrderItem     `json:"items"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
	PaymentMethod   string          `json:"payment_method"`
	Total           decimal.Decimal `json:"total"`
	Status          ClientStatus    `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
}

// NormalizeOrderID strips everything but digits from a display id such as
// "ORD-0042" so it can be used against the order API.
func NormalizeOrderID(id string) (string, error) {
	var b strings.Builder
	for _, r := range id {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "", NewValidationError("order_id", "order id %q has no digits", id)
	}
	return b.String(), nil
}
