package notify

import (
	"fmt"
	"strings"

	"ChatMonitor/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	StartupMessage = "🟢 Monitor started"
)

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeHTML, s)
}

// RenderAlert builds the HTML body of a keyword notification
func RenderAlert(chat *models.MonitoredChat, title string, text string, hasMedia bool, matched []string) string {
	if title == "" {
		title = chat.Title
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🔔 <b>New message in %s %s</b>\n\n", escape(string(chat.Type)), escape(title))
	fmt.Fprintf(&b, "<b>Text:</b> %s\n", escape(text))
	if len(matched) > 0 {
		fmt.Fprintf(&b, "<b>Keywords:</b> %s\n", escape(strings.Join(matched, ", ")))
	}
	if hasMedia {
		b.WriteString("📎 <b>Message contains media</b>\n")
	}
	return b.String()
}

// RenderProcessingError builds the operational alert for a failed event
func RenderProcessingError(err error) string {
	return fmt.Sprintf("❌ Error while processing message: %s", escape(err.Error()))
}

// RenderCriticalError builds the alert sent when the monitor itself stops
func RenderCriticalError(err error) string {
	return fmt.Sprintf("❌ Critical error: %s", escape(err.Error()))
}
