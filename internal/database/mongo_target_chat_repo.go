package database

import (
	"context"
	"errors"
	"fmt"
	"time"
	"vkcopy-bot/internal/database/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const targetChatCollectionName = "target_chat"

// targetChatDocID keys the single saved-destination document.
const targetChatDocID = "default"

// ErrTargetChatNotSet is returned when no default destination chat has
// been saved. Callers fall back to the chat the command came from.
var ErrTargetChatNotSet = errors.New("target chat not set")

// MongoTargetChatRepository implements TargetChatRepository for MongoDB.
type MongoTargetChatRepository struct {
	collection *mongo.Collection
}

// NewMongoTargetChatRepository creates a new MongoDB target chat repository.
func NewMongoTargetChatRepository(db *mongo.Database) *MongoTargetChatRepository {
	return &MongoTargetChatRepository{
		collection: db.Collection(targetChatCollectionName),
	}
}

// GetTargetChat returns the saved destination chat id.
func (r *MongoTargetChatRepository) GetTargetChat(ctx context.Context) (string, error) {
	var doc models.TargetChat
	err := r.collection.FindOne(ctx, bson.M{"_id": targetChatDocID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", ErrTargetChatNotSet
		}
		return "", fmt.Errorf("failed to load target chat: %w", err)
	}
	if doc.ChatID == "" {
		return "", ErrTargetChatNotSet
	}
	return doc.ChatID, nil
}

// SetTargetChat saves or replaces the default destination chat.
func (r *MongoTargetChatRepository) SetTargetChat(ctx context.Context, chat models.TargetChat) error {
	chat.UpdatedAt = time.Now()

	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": targetChatDocID}, chat, opts)
	if err != nil {
		return fmt.Errorf("failed to save target chat: %w", err)
	}
	return nil
}

// ClearTargetChat removes the saved destination chat.
func (r *MongoTargetChatRepository) ClearTargetChat(ctx context.Context) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": targetChatDocID})
	if err != nil {
		return fmt.Errorf("failed to clear target chat: %w", err)
	}
	return nil
}
