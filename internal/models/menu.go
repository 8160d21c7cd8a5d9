package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MenuMessage is a bot message still visible in an operator chat
type MenuMessage struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	ChatID    int64              `bson:"user_id" json:"user_id"`
	MessageID int                `bson:"message_id" json:"message_id"`
	SentAt    time.Time          `bson:"timestamp" json:"timestamp"`
}
