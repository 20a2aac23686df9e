package http

import (
	"github.com/ikramzafar0343/style-sathi/internal/domain"
	"github.com/shopspring/decimal"
)

type CartLineDTO struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	ImageRef  string          `json:"image_ref,omitempty"`
	Brand     string          `json:"brand,omitempty"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Synced    bool            `json:"synced"`
}

type CartDTO struct {
	Items     []CartLineDTO   `json:"items"`
	ItemCount int             `json:"item_count"`
	Total     decimal.Decimal `json:"total"`
}

func convertCart(c domain.Cart) CartDTO {
	items := make([]CartLineDTO, 0, len(c.Lines))
	for _, l := range c.Lines {
		items = append(items, CartLineDTO{
			ProductID: string(l.ProductID),
			Name:      l.Name,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
			ImageRef:  l.ImageRef,
			Brand:     l.Brand,
			Subtotal:  l.Subtotal(),
			Synced:    l.Synced(),
		})
	}
	return CartDTO{
		Items:     items,
		ItemCount: c.ItemCount(),
		Total:     c.Total(),
	}
}

// CartItemRequestDTO describes a product as the UI knows it. Quantity below 1
// is treated as 1.
type CartItemRequestDTO struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	ImageRef  string          `json:"image_ref"`
	Brand     string          `json:"brand"`
	Quantity  int             `json:"quantity"`
}

func (d CartItemRequestDTO) product() domain.Product {
	return domain.Product{
		ID:       domain.ProductID(d.ProductID),
		Name:     d.Name,
		Price:    d.Price,
		ImageRef: d.ImageRef,
		Brand:    d.Brand,
	}
}

type ReplaceCartRequestDTO struct {
	Items []CartItemRequestDTO `json:"items"`
}

type UserDTO struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone,omitempty"`
	PhoneVerified bool   `json:"phone_verified"`
	Role          string `json:"role,omitempty"`
}

func (u UserDTO) toDomain() domain.User {
	return domain.User{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		Phone:         u.Phone,
		PhoneVerified: u.PhoneVerified,
		Role:          u.Role,
	}
}

func convertUser(u *domain.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		Phone:         u.Phone,
		PhoneVerified: u.PhoneVerified,
		Role:          u.Role,
	}
}

type TokensDTO struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

type LoginRequestDTO struct {
	User   UserDTO    `json:"user"`
	Tokens *TokensDTO `json:"tokens"`
}

// SessionDTO never carries the auth tokens back to the browser.
type SessionDTO struct {
	SessionID     string   `json:"session_id"`
	User          *UserDTO `json:"user,omitempty"`
	Authenticated bool     `json:"authenticated"`
	Cart          CartDTO  `json:"cart"`
}

func convertSession(id string, s *domain.Session) SessionDTO {
	return SessionDTO{
		SessionID:     id,
		User:          convertUser(s.CurrentUser),
		Authenticated: s.Authenticated(),
		Cart:          convertCart(s.Cart),
	}
}

type CheckoutRequestDTO struct {
	ShippingAddress domain.ShippingAddress `json:"shipping_address"`
	PaymentMethod   string                 `json:"payment_method"`
}

type UpdateStatusRequestDTO struct {
	Status domain.ClientStatus `json:"status"`
}

type UpdateStatusResponseDTO struct {
	OrderID string              `json:"order_id"`
	Status  domain.ClientStatus `json:"status"`
	Order   *domain.Order       `json:"order,omitempty"`
}
