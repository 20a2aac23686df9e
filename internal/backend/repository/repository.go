package repository

import (
	"context"
	"errors"

	"github.com/ikramzafar0343/style-sathi/internal/backend/model"
	"github.com/shopspring/decimal"
)

var (
	ErrCartNotFound = errors.New("cart not found")
	ErrLineNotFound = errors.New("line not found in cart")
)

// CartRepository stores the server-held carts.
// Consumers define this interface, not the MongoDB implementation.
type CartRepository interface {
	GetCart(ctx context.Context, userID string) (*model.Cart, error)
	// AddLine sums quantity into the user's line for productID, creating the
	// line (and the cart) when there is none.
	AddLine(ctx context.Context, userID string, productID int64, quantity int, unitPrice decimal.Decimal) (model.CartLine, error)
	UpdateLineQuantity(ctx context.Context, userID string, lineID int64, quantity int) error
	RemoveLine(ctx context.Context, userID string, lineID int64) error
	DeleteCart(ctx context.Context, userID string) error
}
