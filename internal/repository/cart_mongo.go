package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sartoro/checkout-service/domain"
)

type mongoCartRepository struct {
	collection *mongo.Collection
}

func NewMongoCartRepository(db *mongo.Database) CartRepository {
	return &mongoCartRepository{collection: db.Collection("carts")}
}

func (m *mongoCartRepository) CreateCart(ctx context.Context, cart *domain.Cart) error {
	now := time.Now()
	cart.CreatedAt = now
	cart.UpdatedAt = now
	cart.Revision = 1

	if _, err := m.collection.InsertOne(ctx, cart); err != nil {
		return fmt.Errorf("failed to create cart: %w", err)
	}
	return nil
}

func (m *mongoCartRepository) GetCart(ctx context.Context, cartID string) (*domain.Cart, error) {
	var cart domain.Cart

	filter := bson.M{"_id": cartID}
	err := m.collection.FindOne(ctx, filter).Decode(&cart)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return &cart, nil
}

// UpdateCart writes the full document guarded by the revision the caller read,
// so two simultaneous edits cannot silently clobber each other.
func (m *mongoCartRepository) UpdateCart(ctx context.Context, cart *domain.Cart) error {
	readRevision := cart.Revision
	cart.Revision = readRevision + 1
	cart.UpdatedAt = time.Now()

	filter := bson.M{"_id": cart.ID, "revision": readRevision}
	result, err := m.collection.ReplaceOne(ctx, filter, cart)
	if err != nil {
		cart.Revision = readRevision
		return fmt.Errorf("failed to update cart: %w", err)
	}
	if result.MatchedCount == 0 {
		cart.Revision = readRevision
		// Either the cart vanished or another writer bumped the revision.
		if _, getErr := m.GetCart(ctx, cart.ID); errors.Is(getErr, ErrCartNotFound) {
			return ErrCartNotFound
		}
		return ErrCartConflict
	}
	return nil
}

func (m *mongoCartRepository) MarkCompleted(ctx context.Context, cartID string, at time.Time) error {
	filter := bson.M{"_id": cartID}
	update := bson.M{
		"$set": bson.M{"completed_at": at, "updated_at": time.Now()},
		"$inc": bson.M{"revision": 1},
	}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to mark cart completed: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrCartNotFound
	}
	return nil
}
