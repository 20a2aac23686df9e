package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID        int64
	Name      string
	Brand     string
	Price     decimal.Decimal
	ImageURL  string
	CreatedAt time.Time
}
