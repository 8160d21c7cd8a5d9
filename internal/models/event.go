package models

import "time"

// channelIDBase is the Bot API's -100 prefix for channels and supergroups.
// Stored registry ids use this form, so it must not change.
const channelIDBase int64 = -1000000000000

// MessageEvent is a new message delivered by the event source
type MessageEvent struct {
	ChatID    int64
	ChatType  string // Bot API chat type: private, group, supergroup or channel
	ChatTitle string
	MessageID int64
	Text      string // text or caption, empty when absent
	HasMedia  bool
	Received  time.Time
}

// IsChannel reports whether the event comes from a channel or supergroup
func (e *MessageEvent) IsChannel() bool {
	return e.ChatType == "channel" || e.ChatType == "supergroup"
}

// CanonicalChatID returns the registry identifier for the event's chat
func (e *MessageEvent) CanonicalChatID() int64 {
	return NormalizeChatID(e.ChatID, e.IsChannel())
}

// DedupKey returns the idempotency key of the event
func (e *MessageEvent) DedupKey() string {
	return DedupKey(e.ChatID, e.MessageID)
}

// NormalizeChatID maps a bare channel id onto the -100 prefixed space.
// Already prefixed ids and non-channel ids are returned unchanged.
func NormalizeChatID(chatID int64, channel bool) int64 {
	if channel && chatID > 0 {
		return channelIDBase - chatID
	}
	return chatID
}
