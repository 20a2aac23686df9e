package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ikramzafar0343/style-sathi/internal/backend/model"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepository keeps one document per user holding all of the user's lines.
type MongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		collection: db.Collection("carts"),
	}
}

func (m *MongoRepository) GetCart(ctx context.Context, userID string) (*model.Cart, error) {
	var cart model.Cart

	err := m.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&cart)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return &cart, nil
}

func (m *MongoRepository) AddLine(ctx context.Context, userID string, productID int64, quantity int, unitPrice decimal.Decimal) (model.CartLine, error) {
	now := time.Now()

	line, ok, err := m.incrementLine(ctx, userID, productID, quantity, now)
	if err != nil {
		return model.CartLine{}, err
	}
	if ok {
		return line, nil
	}

	// Allocate the next line id, creating the cart on first use.
	var cart model.Cart
	err = m.collection.FindOneAndUpdate(ctx,
		bson.M{"user_id": userID},
		bson.M{
			"$inc":         bson.M{"next_line_id": 1},
			"$set":         bson.M{"updated_at": now},
			"$setOnInsert": bson.M{"created_at": now, "items": bson.A{}},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&cart)
	if err != nil {
		return model.CartLine{}, fmt.Errorf("failed to allocate line id: %w", err)
	}

	line = model.CartLine{
		LineID:    cart.NextLineID,
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: model.ToDecimal128(unitPrice),
		AddedAt:   now,
	}

	result, err := m.collection.UpdateOne(ctx,
		bson.M{"user_id": userID, "items.product_id": bson.M{"$ne": productID}},
		bson.M{
			"$push": bson.M{"items": line},
			"$set":  bson.M{"updated_at": now},
		},
	)
	if err != nil {
		return model.CartLine{}, fmt.Errorf("failed to add new line: %w", err)
	}
	if result.MatchedCount > 0 {
		return line, nil
	}

	// A concurrent add created the product's line first.
	line, ok, err = m.incrementLine(ctx, userID, productID, quantity, now)
	if err != nil {
		return model.CartLine{}, err
	}
	if !ok {
		return model.CartLine{}, ErrLineNotFound
	}
	return line, nil
}

// incrementLine adds quantity to the existing line of productID. It reports
// false when the cart has no such line.
func (m *MongoRepository) incrementLine(ctx context.Context, userID string, productID int64, quantity int, now time.Time) (model.CartLine, bool, error) {
	filter := bson.M{
		"user_id":          userID,
		"items.product_id": productID,
	}
	update := bson.M{
		"$inc": bson.M{"items.$[elem].quantity": quantity},
		"$set": bson.M{"updated_at": now},
	}
	arrayFilters := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{
			bson.M{"elem.product_id": productID},
		},
	})

	result, err := m.collection.UpdateOne(ctx, filter, update, arrayFilters)
	if err != nil {
		return model.CartLine{}, false, fmt.Errorf("failed to update existing line: %w", err)
	}
	if result.MatchedCount == 0 {
		return model.CartLine{}, false, nil
	}

	cart, err := m.GetCart(ctx, userID)
	if err != nil {
		return model.CartLine{}, false, err
	}
	line, ok := cart.LineForProduct(productID)
	return line, ok, nil
}

func (m *MongoRepository) UpdateLineQuantity(ctx context.Context, userID string, lineID int64, quantity int) error {
	filter := bson.M{
		"user_id":       userID,
		"items.line_id": lineID,
	}
	update := bson.M{
		"$set": bson.M{
			"items.$[elem].quantity": quantity,
			"updated_at":             time.Now(),
		},
	}
	arrayFilters := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{
			bson.M{"elem.line_id": lineID},
		},
	})

	result, err := m.collection.UpdateOne(ctx, filter, update, arrayFilters)
	if err != nil {
		return fmt.Errorf("failed to update line quantity: %w", err)
	}

	if result.MatchedCount == 0 {
		return ErrLineNotFound
	}
	return nil
}

func (m *MongoRepository) RemoveLine(ctx context.Context, userID string, lineID int64) error {
	filter := bson.M{
		"user_id":       userID,
		"items.line_id": lineID,
	}
	update := bson.M{
		"$pull": bson.M{
			"items": bson.M{"line_id": lineID},
		},
		"$set": bson.M{"updated_at": time.Now()},
	}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to remove line: %w", err)
	}

	if result.MatchedCount == 0 {
		return ErrLineNotFound
	}
	return nil
}

func (m *MongoRepository) DeleteCart(ctx context.Context, userID string) error {
	result, err := m.collection.DeleteOne(ctx, bson.M{"user_id": userID})
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}

	if result.DeletedCount == 0 {
		return ErrCartNotFound
	}
	return nil
}

func (m *MongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(90 * 24 * 60 * 60), // 90 days TTL
		},
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}
