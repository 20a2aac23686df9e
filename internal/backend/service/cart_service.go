package service

import (
	"context"
	"errors"
	"time"

	"github.com/ikramzafar0343/style-sathi/internal/backend/cache"
	"github.com/ikramzafar0343/style-sathi/internal/backend/catalog"
	"github.com/ikramzafar0343/style-sathi/internal/backend/model"
	"github.com/ikramzafar0343/style-sathi/internal/backend/repository"
	"github.com/ikramzafar0343/style-sathi/internal/domain"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

type Catalog interface {
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
}

// Line is a cart line with the catalog entry of its product. Product is nil
// when the product has left the catalog.
type Line struct {
	model.CartLine
	Product *model.Product
}

type CartService struct {
	repo    repository.CartRepository
	cache   cache.CartCache
	catalog Catalog
	log     logrus.FieldLogger
	sfg     singleflight.Group // Prevents cache stampede
}

func NewCartService(repo repository.CartRepository, cache cache.CartCache, catalog Catalog, log logrus.FieldLogger) *CartService {
	return &CartService{
		repo:    repo,
		cache:   cache,
		catalog: catalog,
		log:     log,
	}
}

func (s *CartService) GetCart(ctx context.Context, userID string) (*model.Cart, error) {
	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.WithError(err).WithField("user_id", userID).Warn("cache get failed")
		}

		cart, err = s.repo.GetCart(ctx, userID)
		if errors.Is(err, repository.ErrCartNotFound) {
			now := time.Now()
			cart, err = &model.Cart{UserID: userID, CreatedAt: now, UpdatedAt: now}, nil
		}
		if err != nil {
			return nil, err
		}

		if err := s.cache.Set(ctx, userID, cart); err != nil {
			s.log.WithError(err).WithField("user_id", userID).Warn("cache set failed")
		}

		return cart, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*model.Cart), nil
}

// Lines returns the user's cart lines with their catalog entries.
func (s *CartService) Lines(ctx context.Context, userID string) ([]Line, error) {
	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	lines := make([]Line, 0, len(cart.Items))
	for _, item := range cart.Items {
		line := Line{CartLine: item}
		p, err := s.catalog.GetProduct(ctx, item.ProductID)
		switch {
		case err == nil:
			line.Product = p
		case errors.Is(err, catalog.ErrProductNotFound):
		default:
			s.log.WithError(err).WithField("product_id", item.ProductID).Warn("catalog lookup failed")
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// AddLine prices the product from the catalog and sums quantity into the
// user's line for it.
func (s *CartService) AddLine(ctx context.Context, userID string, productID int64, quantity int) (model.CartLine, error) {
	if quantity < 1 {
		return model.CartLine{}, domain.NewValidationError("quantity", "quantity must be at least 1")
	}

	p, err := s.catalog.GetProduct(ctx, productID)
	if errors.Is(err, catalog.ErrProductNotFound) {
		return model.CartLine{}, domain.NewValidationError("product_id", "unknown product %d", productID)
	}
	if err != nil {
		return model.CartLine{}, err
	}

	line, err := s.repo.AddLine(ctx, userID, productID, quantity, p.Price)
	if err != nil {
		s.log.WithError(err).WithField("user_id", userID).Error("repo add line failed")
		return model.CartLine{}, err
	}

	s.invalidateCache(userID)
	return line, nil
}

func (s *CartService) UpdateLine(ctx context.Context, userID string, lineID int64, quantity int) error {
	if quantity < 1 {
		return domain.NewValidationError("quantity", "quantity must be at least 1")
	}

	if err := s.repo.UpdateLineQuantity(ctx, userID, lineID, quantity); err != nil {
		return err
	}

	s.writeThrough(userID, func(ctx context.Context) error {
		return s.cache.UpdateLine(ctx, userID, lineID, quantity)
	})
	return nil
}

func (s *CartService) RemoveLine(ctx context.Context, userID string, lineID int64) error {
	if err := s.repo.RemoveLine(ctx, userID, lineID); err != nil {
		return err
	}

	s.writeThrough(userID, func(ctx context.Context) error {
		return s.cache.RemoveLine(ctx, userID, lineID)
	})
	return nil
}

// ClearCart removes every line of the user. Clearing an empty cart succeeds.
func (s *CartService) ClearCart(ctx context.Context, userID string) error {
	err := s.repo.DeleteCart(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrCartNotFound) {
		s.log.WithError(err).WithField("user_id", userID).Error("repo delete cart failed")
		return err
	}

	s.invalidateCache(userID)
	return nil
}

// writeThrough applies a line edit to the cached cart. When the line is not
// cached or the write fails, the entry is dropped instead.
func (s *CartService) writeThrough(userID string, write func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := write(ctx)
	if err == nil {
		return
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.log.WithError(err).WithField("user_id", userID).Warn("cache line write failed")
	}
	s.invalidateCache(userID)
}

func (s *CartService) invalidateCache(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("cache invalidate failed")
	}
}
