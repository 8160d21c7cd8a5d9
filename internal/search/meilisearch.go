package search

import (
	"context"
	"fmt"
	"time"

	"ChatMonitor/internal/models"

	"github.com/meilisearch/meilisearch-go"
	"go.uber.org/zap"
)

const primaryKey = "notification_id"

// NotificationIndex keeps the notification history searchable in Meilisearch
type NotificationIndex struct {
	client    *meilisearch.Client
	indexName string
	logger    *zap.Logger
}

// NewNotificationIndex creates the client and makes sure the index is configured
func NewNotificationIndex(host, apiKey, indexName string, logger *zap.Logger) (*NotificationIndex, error) {
	client := meilisearch.NewClient(meilisearch.ClientConfig{
		Host:   host,
		APIKey: apiKey,
	})
	m := &NotificationIndex{
		client:    client,
		indexName: indexName,
		logger:    logger.Named("search"),
	}
	if err := m.ensureIndex(); err != nil {
		return nil, err
	}
	return m, nil
}

// ensureIndex creates the index if it doesn't exist yet and applies its
// settings. Settings are applied on every start and each task is awaited.
func (m *NotificationIndex) ensureIndex() error {
	index := m.client.Index(m.indexName)
	if _, err := index.FetchInfo(); err != nil {
		task, err := m.client.CreateIndex(&meilisearch.IndexConfig{
			Uid:        m.indexName,
			PrimaryKey: primaryKey,
		})
		if err != nil {
			return fmt.Errorf("failed to create index %s: %w", m.indexName, err)
		}
		if err := m.waitForTask(task.TaskUID); err != nil {
			return fmt.Errorf("failed to wait for index creation: %w", err)
		}
		m.logger.Info("Created index", zap.String("index", m.indexName))
	}

	settings := []struct {
		name   string
		update func(*[]string) (*meilisearch.TaskInfo, error)
		attrs  []string
	}{
		{"searchable", index.UpdateSearchableAttributes, []string{"text", "notification_text", "keywords"}},
		{"filterable", index.UpdateFilterableAttributes, []string{"created_at", "chat_id"}},
		{"sortable", index.UpdateSortableAttributes, []string{"created_at"}},
	}
	for _, setting := range settings {
		task, err := setting.update(&setting.attrs)
		if err != nil {
			return fmt.Errorf("failed to update %s attributes: %w", setting.name, err)
		}
		if err := m.waitForTask(task.TaskUID); err != nil {
			return fmt.Errorf("failed to apply %s attributes: %w", setting.name, err)
		}
	}
	return nil
}

// waitForTask blocks until the task is processed and reports a failed task as an error
func (m *NotificationIndex) waitForTask(uid int64) error {
	task, err := m.client.WaitForTask(uid)
	if err != nil {
		return err
	}
	if task.Status != meilisearch.TaskStatusSucceeded {
		return fmt.Errorf("task %d %s: %s", uid, task.Status, task.Error.Message)
	}
	return nil
}

// Health checks that the server answers
func (m *NotificationIndex) Health() error {
	if _, err := m.client.Health(); err != nil {
		return fmt.Errorf("meilisearch is unhealthy: %w", err)
	}
	return nil
}

func toDocument(n *models.Notification) map[string]interface{} {
	return map[string]interface{}{
		primaryKey:          n.NotificationID,
		"chat_id":           n.ChatID,
		"message_id":        n.MessageID,
		"text":              n.Text,
		"keywords":          n.Keywords,
		"notification_text": n.NotificationText,
		"delivered":         n.Delivered,
		"created_at":        n.CreatedAt.Unix(), // unix seconds so it can be filtered and sorted
	}
}

// IndexNotification enqueues a notification for indexing without waiting for the task
func (m *NotificationIndex) IndexNotification(_ context.Context, n *models.Notification) error {
	document := toDocument(n)
	task, err := m.client.Index(m.indexName).AddDocuments([]map[string]interface{}{document}, primaryKey)
	if err != nil {
		return fmt.Errorf("failed to index notification %s: %w", n.NotificationID, err)
	}
	m.logger.Debug("Notification enqueued for indexing",
		zap.String("notification_id", n.NotificationID),
		zap.Int64("task_uid", task.TaskUID))
	return nil
}

// SearchNotifications returns the most recent notifications matching query
func (m *NotificationIndex) SearchNotifications(_ context.Context, query string, limit int64) ([]models.Notification, error) {
	req := &meilisearch.SearchRequest{
		Limit: limit,
		Sort:  []string{"created_at:desc"},
	}
	result, err := m.client.Index(m.indexName).Search(query, req)
	if err != nil {
		return nil, fmt.Errorf("failed to search notifications: %w", err)
	}
	return m.convertHitsToNotifications(result.Hits), nil
}

// DeleteNotificationsBefore removes indexed notifications older than cutoff.
// Deletion is asynchronous, so the returned count is always zero.
func (m *NotificationIndex) DeleteNotificationsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	filter := fmt.Sprintf("created_at < %d", cutoff.Unix())
	if _, err := m.client.Index(m.indexName).DeleteDocumentsByFilter(filter); err != nil {
		return 0, fmt.Errorf("failed to delete indexed notifications: %w", err)
	}
	return 0, nil
}

// convertHitsToNotifications converts search hits to Notification values
func (m *NotificationIndex) convertHitsToNotifications(hits []interface{}) []models.Notification {
	var notifications []models.Notification
	for _, hit := range hits {
		doc, ok := hit.(map[string]interface{})
		if !ok {
			m.logger.Warn("Could not convert hit to document", zap.Any("hit", hit))
			continue
		}

		n := models.Notification{}
		id, ok := doc[primaryKey].(string)
		if !ok {
			m.logger.Warn("Hit without notification id", zap.Any("document", doc))
			continue
		}
		n.NotificationID = id

		if chatID, ok := doc["chat_id"].(float64); ok {
			n.ChatID = int64(chatID)
		}
		if msgID, ok := doc["message_id"].(float64); ok {
			n.MessageID = int64(msgID)
		}
		if text, ok := doc["text"].(string); ok {
			n.Text = text
		}
		if body, ok := doc["notification_text"].(string); ok {
			n.NotificationText = body
		}
		if delivered, ok := doc["delivered"].(bool); ok {
			n.Delivered = delivered
		}
		if keywords, ok := doc["keywords"].([]interface{}); ok {
			for _, k := range keywords {
				if s, ok := k.(string); ok {
					n.Keywords = append(n.Keywords, s)
				}
			}
		}
		if timestamp, ok := doc["created_at"].(float64); ok {
			n.CreatedAt = time.Unix(int64(timestamp), 0)
		}

		notifications = append(notifications, n)
	}
	return notifications
}
