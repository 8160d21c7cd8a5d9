package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ChatMonitor/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	chatsCollection         = "channels"
	processedCollection     = "processed_messages"
	notificationsCollection = "notifications"
	menuCollection          = "messages"
)

// MongoStorage handles MongoDB storage operations
type MongoStorage struct {
	client   *mongo.Client
	database string
	timeout  time.Duration
	logger   *zap.Logger
}

// NewMongoStorage connects to MongoDB and makes sure the indexes exist
func NewMongoStorage(ctx context.Context, uri, database string, timeout time.Duration, logger *zap.Logger) (*MongoStorage, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	s := &MongoStorage{
		client:   client,
		database: database,
		timeout:  timeout,
		logger:   logger.Named("mongo"),
	}
	s.ensureIndexes(connectCtx)

	return s, nil
}

func (s *MongoStorage) collection(name string) *mongo.Collection {
	return s.client.Database(s.database).Collection(name)
}

func (s *MongoStorage) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// ensureIndexes creates the unique keys the ledgers rely on
func (s *MongoStorage) ensureIndexes(ctx context.Context) {
	indexes := map[string][]mongo.IndexModel{
		chatsCollection: {
			{
				Keys:    bson.D{{Key: "chat_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		processedCollection: {
			{
				Keys:    bson.D{{Key: "message_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{
				Keys: bson.D{{Key: "processed_at", Value: 1}},
			},
		},
		notificationsCollection: {
			{
				Keys: bson.D{{Key: "created_at", Value: 1}},
			},
			{
				Keys: bson.D{{Key: "chat_id", Value: 1}, {Key: "message_id", Value: 1}},
			},
		},
		menuCollection: {
			{
				Keys: bson.D{{Key: "user_id", Value: 1}},
			},
		},
	}

	for name, idx := range indexes {
		if _, err := s.collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			s.logger.Warn("Failed to create indexes", zap.String("collection", name), zap.Error(err))
		}
	}
}

// Ping checks the connection
func (s *MongoStorage) Ping(ctx context.Context) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	return s.client.Ping(ctx, nil)
}

// GetChat looks up a monitored chat by its canonical id
func (s *MongoStorage) GetChat(ctx context.Context, chatID int64) (*models.MonitoredChat, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var chat models.MonitoredChat
	err := s.collection(chatsCollection).FindOne(ctx, bson.M{"chat_id": chatID}).Decode(&chat)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrChatNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chat %d: %w", chatID, err)
	}
	return &chat, nil
}

// ListChats returns all monitored chats in registration order
func (s *MongoStorage) ListChats(ctx context.Context) ([]models.MonitoredChat, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := s.collection(chatsCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chats: %w", err)
	}
	defer cursor.Close(ctx)

	var chats []models.MonitoredChat
	if err := cursor.All(ctx, &chats); err != nil {
		return nil, fmt.Errorf("failed to decode chats: %w", err)
	}
	return chats, nil
}

// ListChatIDs returns the ids of all monitored chats
func (s *MongoStorage) ListChatIDs(ctx context.Context) ([]int64, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	opts := options.Find().SetProjection(bson.M{"chat_id": 1})
	cursor, err := s.collection(chatsCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chat ids: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []struct {
		ChatID int64 `bson:"chat_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode chat ids: %w", err)
	}

	ids := make([]int64, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ChatID)
	}
	return ids, nil
}

// AddChat registers a new chat
func (s *MongoStorage) AddChat(ctx context.Context, chat *models.MonitoredChat) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if chat.Keywords == nil {
		chat.Keywords = []string{}
	}
	_, err := s.collection(chatsCollection).InsertOne(ctx, chat)
	if mongo.IsDuplicateKeyError(err) {
		return ErrChatExists
	}
	if err != nil {
		return fmt.Errorf("failed to add chat %d: %w", chat.ChatID, err)
	}
	return nil
}

// SetKeywords replaces the keyword list of a chat
func (s *MongoStorage) SetKeywords(ctx context.Context, chatID int64, keywords []string) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if keywords == nil {
		keywords = []string{}
	}
	result, err := s.collection(chatsCollection).UpdateOne(ctx,
		bson.M{"chat_id": chatID},
		bson.M{"$set": bson.M{"keywords": keywords}},
	)
	if err != nil {
		return fmt.Errorf("failed to update keywords of chat %d: %w", chatID, err)
	}
	if result.MatchedCount == 0 {
		return ErrChatNotFound
	}
	return nil
}

// DeleteChat removes a chat from monitoring
func (s *MongoStorage) DeleteChat(ctx context.Context, chatID int64) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	result, err := s.collection(chatsCollection).DeleteOne(ctx, bson.M{"chat_id": chatID})
	if err != nil {
		return fmt.Errorf("failed to delete chat %d: %w", chatID, err)
	}
	if result.DeletedCount == 0 {
		return ErrChatNotFound
	}
	return nil
}

// MarkSeen inserts the processed-message record unless one with the same key exists.
// The check and the insert are one conditional upsert on the unique message_id.
func (s *MongoStorage) MarkSeen(ctx context.Context, rec *models.ProcessedMessage) (bool, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	filter := bson.M{"message_id": rec.MessageID}
	update := bson.M{
		"$setOnInsert": bson.M{
			"chat_id":             rec.ChatID,
			"message_id_original": rec.MessageIDOriginal,
			"processed_at":        rec.ProcessedAt,
			"text":                rec.Text,
		},
	}
	opts := options.Update().SetUpsert(true)

	result, err := s.collection(processedCollection).UpdateOne(ctx, filter, update, opts)
	if mongo.IsDuplicateKeyError(err) {
		// a concurrent upsert of the same key won the race
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to mark message %s: %w", rec.MessageID, err)
	}

	return result.UpsertedCount > 0, nil
}

// PurgeProcessedBefore deletes processed-message records older than cutoff
func (s *MongoStorage) PurgeProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.deleteBefore(ctx, processedCollection, "processed_at", cutoff)
}

// RecordNotification appends a notification to the history
func (s *MongoStorage) RecordNotification(ctx context.Context, n *models.Notification) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if _, err := s.collection(notificationsCollection).InsertOne(ctx, n); err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}
	return nil
}

// PurgeNotificationsBefore deletes notifications older than cutoff
func (s *MongoStorage) PurgeNotificationsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.deleteBefore(ctx, notificationsCollection, "created_at", cutoff)
}

func (s *MongoStorage) deleteBefore(ctx context.Context, collection, field string, cutoff time.Time) (int64, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	result, err := s.collection(collection).DeleteMany(ctx, bson.M{field: bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, fmt.Errorf("failed to purge %s: %w", collection, err)
	}
	return result.DeletedCount, nil
}

// TrackMenuMessage stores the id of a message sent to an operator
func (s *MongoStorage) TrackMenuMessage(ctx context.Context, msg *models.MenuMessage) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if _, err := s.collection(menuCollection).InsertOne(ctx, msg); err != nil {
		return fmt.Errorf("failed to save message id: %w", err)
	}
	return nil
}

// TakeMenuMessages returns and removes the tracked message ids of an operator chat
func (s *MongoStorage) TakeMenuMessages(ctx context.Context, chatID int64) ([]int, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	filter := bson.M{"user_id": chatID}
	cursor, err := s.collection(menuCollection).Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch message ids: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []models.MenuMessage
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode message ids: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}

	if _, err := s.collection(menuCollection).DeleteMany(ctx, filter); err != nil {
		return nil, fmt.Errorf("failed to delete message ids: %w", err)
	}

	ids := make([]int, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.MessageID)
	}
	return ids, nil
}

func (s *MongoStorage) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
