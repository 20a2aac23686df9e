package domain

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ProductID identifies a catalog item. Catalog items without a numeric backend
// identity (demo or non-catalog items) carry free-form ids such as "sku-abc".
type ProductID string

// Numeric reports the backend id of p. Only finite, integral numbers qualify;
// lines whose id is not numeric stay local and are never sent to a remote API.
func (p ProductID) Numeric() (int64, bool) {
	s := strings.TrimSpace(string(p))
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

func ProductIDFromInt(id int64) ProductID {
	return ProductID(strconv.FormatInt(id, 10))
}

type CartLine struct {
	ProductID    ProductID       `json:"productId"`
	Name         string          `json:"name"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	Quantity     int             `json:"quantity"`
	ImageRef     string          `json:"imageRef"`
	Brand        string          `json:"brand"`
	RemoteLineID *int64          `json:"remoteLineId,omitempty"`
}

// Synced reports whether a server-side line backs this line.
func (l CartLine) Synced() bool {
	return l.RemoteLineID != nil
}

func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart holds at most one line per ProductID. Line order is insertion order.
type Cart struct {
	Lines []CartLine `json:"lines"`
}

func EmptyCart() Cart {
	return Cart{Lines: []CartLine{}}
}

func (c Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

func (c Cart) Find(id ProductID) (int, bool) {
	for i := range c.Lines {
		if c.Lines[i].ProductID == id {
			return i, true
		}
	}
	return -1, false
}

// Add sums quantity into an existing line for the same product or appends
// line as a new one. It returns the index of the affected line.
func (c *Cart) Add(line CartLine) int {
	if line.Quantity < 1 {
		line.Quantity = 1
	}
	if i, ok := c.Find(line.ProductID); ok {
		c.Lines[i].Quantity += line.Quantity
		return i
	}
	c.Lines = append(c.Lines, line)
	return len(c.Lines) - 1
}

func (c *Cart) Remove(id ProductID) (CartLine, bool) {
	i, ok := c.Find(id)
	if !ok {
		return CartLine{}, false
	}
	removed := c.Lines[i]
	c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	return removed, true
}

func (c Cart) ItemCount() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Clone returns a deep copy; callers outside the engine only ever see clones.
func (c Cart) Clone() Cart {
	out := Cart{Lines: make([]CartLine, len(c.Lines))}
	for i, l := range c.Lines {
		if l.RemoteLineID != nil {
			id := *l.RemoteLineID
			l.RemoteLineID = &id
		}
		out.Lines[i] = l
	}
	return out
}

// ClampQuantity keeps a quantity changed through increment/decrement controls
// at or above one.
func ClampQuantity(q int) int {
	if q < 1 {
		return 1
	}
	return q
}
