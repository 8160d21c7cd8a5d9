package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProcessedMessage marks a (chat, message) pair the watcher has already seen
type ProcessedMessage struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	MessageID         string             `bson:"message_id" json:"message_id"`
	ChatID            int64              `bson:"chat_id" json:"chat_id"`
	MessageIDOriginal int64              `bson:"message_id_original" json:"message_id_original"`
	ProcessedAt       time.Time          `bson:"processed_at" json:"processed_at"`
	Text              string             `bson:"text,omitempty" json:"text,omitempty"`
}

// DedupKey returns the composite idempotency key for a message
func DedupKey(chatID, messageID int64) string {
	return fmt.Sprintf("%d_%d", chatID, messageID)
}

// Notification is the audit record of an emitted keyword alert
type Notification struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	NotificationID   string             `bson:"notification_id" json:"notification_id"`
	ChatID           int64              `bson:"chat_id" json:"chat_id"`
	MessageID        int64              `bson:"message_id" json:"message_id"`
	Text             string             `bson:"text" json:"text"`
	Keywords         []string           `bson:"keywords" json:"keywords"`
	NotificationText string             `bson:"notification_text" json:"notification_text"`
	Delivered        bool               `bson:"delivered" json:"delivered"`
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
}
