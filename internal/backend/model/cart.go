package model

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Cart is the server-held cart of one user. Line ids are allocated from
// NextLineID and never reused within a cart.
type Cart struct {
	ID         string     `bson:"_id,omitempty" json:"-"`
	UserID     string     `bson:"user_id" json:"user_id"`
	Items      []CartLine `bson:"items" json:"items"`
	NextLineID int64      `bson:"next_line_id" json:"next_line_id"`
	CreatedAt  time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `bson:"updated_at" json:"updated_at"`
}

type CartLine struct {
	LineID    int64                `bson:"line_id" json:"line_id"`
	ProductID int64                `bson:"product_id" json:"product_id"`
	Quantity  int                  `bson:"quantity" json:"quantity"`
	UnitPrice primitive.Decimal128 `bson:"unit_price" json:"unit_price"`
	AddedAt   time.Time            `bson:"added_at" json:"added_at"`
}

// Price returns the unit price captured when the line was created.
func (l CartLine) Price() decimal.Decimal {
	d, err := decimal.NewFromString(l.UnitPrice.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

func ToDecimal128(d decimal.Decimal) primitive.Decimal128 {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.NewDecimal128(0, 0)
	}
	return v
}

func (c *Cart) Line(lineID int64) (CartLine, bool) {
	for _, l := range c.Items {
		if l.LineID == lineID {
			return l, true
		}
	}
	return CartLine{}, false
}

func (c *Cart) LineForProduct(productID int64) (CartLine, bool) {
	for _, l := range c.Items {
		if l.ProductID == productID {
			return l, true
		}
	}
	return CartLine{}, false
}
