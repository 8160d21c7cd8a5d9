package models

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChatType is the kind of a monitored conversation
type ChatType string

const (
	ChatTypeUser    ChatType = "user"
	ChatTypeBot     ChatType = "bot"
	ChatTypeChat    ChatType = "chat"
	ChatTypeChannel ChatType = "channel"
)

// MonitoredChat represents a chat registered for keyword watching
type MonitoredChat struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	ChatID   int64              `bson:"chat_id" json:"chat_id"`
	Type     ChatType           `bson:"type" json:"type"`
	Title    string             `bson:"title" json:"title"`
	Username string             `bson:"username,omitempty" json:"username,omitempty"`
	Keywords []string           `bson:"keywords" json:"keywords"`
}

// ChatTypeFromTelegram maps a Bot API chat type onto the registry's chat kinds.
func ChatTypeFromTelegram(telegramType string) ChatType {
	switch strings.ToLower(telegramType) {
	case "channel":
		return ChatTypeChannel
	case "group", "supergroup":
		return ChatTypeChat
	default:
		return ChatTypeUser
	}
}

// HasKeywords reports whether the chat is actively monitored for content
func (c *MonitoredChat) HasKeywords() bool {
	return len(c.Keywords) > 0
}
