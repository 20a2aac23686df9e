package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type ProductMetadata struct {
	Name     string `json:"name"`
	ImageRef string `json:"image_ref"`
	Brand    string `json:"brand"`
}

// RemoteLine is one line of the server-held cart.
type RemoteLine struct {
	LineID    int64           `json:"line_id"`
	ProductID int64           `json:"product_id"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Product   ProductMetadata `json:"product"`
}

type CartResponse struct {
	Items []RemoteLine `json:"items"`
}

type AddLineRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type UpdateLineRequest struct {
	Quantity int `json:"quantity"`
}

type CartClient struct {
	c *client
}

func NewCartClient(cfg Config, log logrus.FieldLogger) *CartClient {
	return &CartClient{c: newClient("cart", cfg, log)}
}

// GET /api/cart
func (cc *CartClient) FetchCart(ctx context.Context, token string) ([]RemoteLine, error) {
	var resp CartResponse
	if err := cc.c.do(ctx, http.MethodGet, "/api/cart", token, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch cart: %w", err)
	}
	return resp.Items, nil
}

// POST /api/cart/items
func (cc *CartClient) AddLine(ctx context.Context, token string, productID int64, quantity int) (int64, error) {
	var line RemoteLine
	req := AddLineRequest{ProductID: productID, Quantity: quantity}
	if err := cc.c.do(ctx, http.MethodPost, "/api/cart/items", token, req, &line); err != nil {
		return 0, fmt.Errorf("add cart line: %w", err)
	}
	return line.LineID, nil
}

// PATCH /api/cart/items/{line_id}
func (cc *CartClient) UpdateLine(ctx context.Context, token string, lineID int64, quantity int) error {
	path := fmt.Sprintf("/api/cart/items/%d", lineID)
	if err := cc.c.do(ctx, http.MethodPatch, path, token, UpdateLineRequest{Quantity: quantity}, nil); err != nil {
		return fmt.Errorf("update cart line %d: %w", lineID, err)
	}
	return nil
}

// DELETE /api/cart/items/{line_id}
func (cc *CartClient) RemoveLine(ctx context.Context, token string, lineID int64) error {
	path := fmt.Sprintf("/api/cart/items/%d", lineID)
	if err := cc.c.do(ctx, http.MethodDelete, path, token, nil, nil); err != nil {
		return fmt.Errorf("remove cart line %d: %w", lineID, err)
	}
	return nil
}
