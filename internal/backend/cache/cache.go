package cache

import (
	"context"
	"errors"

	"github.com/ikramzafar0343/style-sathi/internal/backend/model"
)

// CartCache holds read copies of carts. Line edits are written through so
// the quantity changes a storefront sends one at a time do not drop the whole
// entry; adds still invalidate because they allocate line ids.
type CartCache interface {
	Get(ctx context.Context, userID string) (*model.Cart, error)
	Set(ctx context.Context, userID string, cart *model.Cart) error
	UpdateLine(ctx context.Context, userID string, lineID int64, quantity int) error
	RemoveLine(ctx context.Context, userID string, lineID int64) error
	Delete(ctx context.Context, userID string) error
}

// ErrCacheMiss is returned when the cart, or the line an edit targets, is not
// cached.
var ErrCacheMiss = errors.New("cache miss")
