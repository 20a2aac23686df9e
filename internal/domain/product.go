package domain

import "github.com/shopspring/decimal"

// Product is what a UI component hands to the cart when a shopper adds an item.
type Product struct {
	ID       ProductID       `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	ImageRef string          `json:"imageRef"`
	Brand    string          `json:"brand"`
}

func (p Product) Line(quantity int) CartLine {
	return CartLine{
		ProductID: p.ID,
		Name:      p.Name,
		UnitPrice: p.Price,
		Quantity:  quantity,
		ImageRef:  p.ImageRef,
		Brand:     p.Brand,
	}
}
