package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ikramzafar0343/style-sathi/internal/domain"
	"github.com/sirupsen/logrus"
)

// Field names of the persisted session record. Each field is stored
// independently and may be absent.
const (
	FieldCurrentUser = "currentUser"
	FieldAuthTokens  = "authTokens"
	FieldCartItems   = "cartItems"
)

var fields = []string{FieldCurrentUser, FieldAuthTokens, FieldCartItems}

// Store persists the session of one browsing context.
//
// Load never fails because of a single bad field: a missing or corrupt field
// falls back to its default. It only returns an error when the backend itself
// cannot be read. Save writes every field; cleared user and tokens are removed
// rather than stored as null.
type Store interface {
	Load(ctx context.Context) (*domain.Session, error)
	Save(ctx context.Context, s *domain.Session) error
	Close() error
}

// encodeFields returns the serialized fields of s. A nil value marks a field
// that must be deleted.
func encodeFields(s *domain.Session) (map[string][]byte, error) {
	out := make(map[string][]byte, len(fields))

	if s.CurrentUser != nil {
		b, err := json.Marshal(s.CurrentUser)
		if err != nil {
			return nil, fmt.Errorf("marshal current user failed: %w", err)
		}
		out[FieldCurrentUser] = b
	} else {
		out[FieldCurrentUser] = nil
	}

	if s.AuthTokens != nil {
		b, err := json.Marshal(s.AuthTokens)
		if err != nil {
			return nil, fmt.Errorf("marshal auth tokens failed: %w", err)
		}
		out[FieldAuthTokens] = b
	} else {
		out[FieldAuthTokens] = nil
	}

	lines := s.Cart.Lines
	if lines == nil {
		lines = []domain.CartLine{}
	}
	b, err := json.Marshal(lines)
	if err != nil {
		return nil, fmt.Errorf("marshal cart failed: %w", err)
	}
	out[FieldCartItems] = b

	return out, nil
}

// decodeFields builds a session from raw field values, resetting every field
// that is absent or does not parse.
func decodeFields(raw map[string][]byte, log logrus.FieldLogger) *domain.Session {
	s := domain.NewSession()

	if b := raw[FieldCurrentUser]; len(b) > 0 {
		var u domain.User
		if err := json.Unmarshal(b, &u); err != nil {
			log.WithError(err).WithField("field", FieldCurrentUser).Warn("discarding corrupt session field")
		} else {
			s.CurrentUser = &u
		}
	}

	if b := raw[FieldAuthTokens]; len(b) > 0 {
		var t domain.AuthTokens
		if err := json.Unmarshal(b, &t); err != nil {
			log.WithError(err).WithField("field", FieldAuthTokens).Warn("discarding corrupt session field")
		} else {
			s.AuthTokens = &t
		}
	}

	if b := raw[FieldCartItems]; len(b) > 0 {
		var lines []domain.CartLine
		if err := json.Unmarshal(b, &lines); err != nil {
			log.WithError(err).WithField("field", FieldCartItems).Warn("discarding corrupt session field")
		} else {
			s.Cart = sanitizeCart(lines)
		}
	}

	return s
}

// sanitizeCart drops lines that break cart invariants, which can only come
// from a hand-edited or foreign snapshot.
func sanitizeCart(lines []domain.CartLine) domain.Cart {
	cart := domain.EmptyCart()
	for _, l := range lines {
		if l.ProductID == "" || l.Quantity < 1 {
			continue
		}
		cart.Add(l)
	}
	return cart
}
