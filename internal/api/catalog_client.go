package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

type Product struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	ImageRef string          `json:"image_url"`
	Brand    string          `json:"brand"`
}

// CatalogClient reads product metadata. It is only used to enrich cart lines
// for display.
type CatalogClient struct {
	c   *client
	sfg singleflight.Group // coalesces concurrent lookups of one product
}

func NewCatalogClient(cfg Config, log logrus.FieldLogger) *CatalogClient {
	return &CatalogClient{c: newClient("catalog", cfg, log)}
}

// GET /api/products/{id}
func (cc *CatalogClient) GetProduct(ctx context.Context, productID int64) (*Product, error) {
	key := fmt.Sprint(productID)
	v, err, _ := cc.sfg.Do(key, func() (interface{}, error) {
		var p Product
		if err := cc.c.do(ctx, http.MethodGet, "/api/products/"+key, "", nil, &p); err != nil {
			return nil, fmt.Errorf("get product %d: %w", productID, err)
		}
		return &p, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*Product), nil
}
