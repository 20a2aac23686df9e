package checkout

import (
	"github.com/ikramzafar0343/style-sathi/internal/domain"
	"github.com/shopspring/decimal"
)

// projection is the part of a cart an order can reference.
type projection struct {
	Items []domain.OrderItem
	Total decimal.Decimal
}

// projectCart keeps the lines whose product id is numeric; an order cannot
// reference anything else.
func projectCart(cart domain.Cart) projection {
	p := projection{
		Items: make([]domain.OrderItem, 0, len(cart.Lines)),
		Total: decimal.Zero,
	}
	for _, l := range cart.Lines {
		id, ok := l.ProductID.Numeric()
		if !ok || l.Quantity < 1 {
			continue
		}
		p.Items = append(p.Items, domain.OrderItem{ProductID: id, Quantity: l.Quantity})
		p.Total = p.Total.Add(l.Subtotal())
	}
	return p
}

// shippingFor fills the name and email the shopper left blank from the
// signed-in user.
func shippingFor(in domain.ShippingAddress, user *domain.User) domain.ShippingAddress {
	if user != nil {
		if in.FullName == "" {
			in.FullName = user.Name
		}
		if in.Email == "" {
			in.Email = user.Email
		}
		if in.Phone == "" {
			in.Phone = user.Phone
		}
	}
	return in
}

func validateShipping(a domain.ShippingAddress) error {
	switch {
	case a.FullName == "":
		return domain.NewValidationError("full_name", "is required")
	case a.Email == "":
		return domain.NewValidationError("email", "is required")
	case a.Street == "":
		return domain.NewValidationError("street", "is required")
	case a.City == "":
		return domain.NewValidationError("city", "is required")
	}
	return nil
}
