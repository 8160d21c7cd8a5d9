package admin

import (
	"fmt"

	"ChatMonitor/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ItemsPerPage is the number of chats listed on one menu page
const ItemsPerPage = 5

// callback data prefixes
const (
	cbPage          = "page_"
	cbChannelInfo   = "channel_info_"
	cbSetKeywords   = "set_keywords_"
	cbConfirmDelete = "confirm_delete_"
	cbDoDelete      = "do_delete_"
	cbAdd           = "add"
	cbBack          = "back"
)

// PageOf returns the chats shown on page and the total number of pages.
// Out of range pages are clamped.
func PageOf(chats []models.MonitoredChat, page int) ([]models.MonitoredChat, int, int) {
	total := (len(chats) + ItemsPerPage - 1) / ItemsPerPage
	if page >= total {
		page = total - 1
	}
	if page < 0 {
		page = 0
	}

	start := page * ItemsPerPage
	end := start + ItemsPerPage
	if end > len(chats) {
		end = len(chats)
	}
	return chats[start:end], page, total
}

func chatButtonText(chat models.MonitoredChat) string {
	if chat.Type == models.ChatTypeUser || chat.Type == models.ChatTypeBot {
		return "👤 " + chat.Title
	}
	return "💬 " + chat.Title
}

func mainMenuKeyboard(chats []models.MonitoredChat, page int) tgbotapi.InlineKeyboardMarkup {
	items, page, total := PageOf(chats, page)

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, chat := range items {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(chatButtonText(chat), fmt.Sprintf("%s%d", cbChannelInfo, chat.ChatID)),
		))
	}

	var pagination []tgbotapi.InlineKeyboardButton
	if page > 0 {
		pagination = append(pagination, tgbotapi.NewInlineKeyboardButtonData("⬅️", fmt.Sprintf("%s%d", cbPage, page-1)))
	}
	if page < total-1 {
		pagination = append(pagination, tgbotapi.NewInlineKeyboardButtonData("➡️", fmt.Sprintf("%s%d", cbPage, page+1)))
	}
	if len(pagination) > 0 {
		rows = append(rows, pagination)
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("➕ Add chat", cbAdd)))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func channelInfoKeyboard(chatID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("📝 Edit keywords", fmt.Sprintf("%s%d", cbSetKeywords, chatID))),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("❌ Delete chat", fmt.Sprintf("%s%d", cbConfirmDelete, chatID))),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🔙 Back", cbBack)),
	)
}

func confirmDeleteKeyboard(chatID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("✅ Yes, delete", fmt.Sprintf("%s%d", cbDoDelete, chatID))),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("❌ No, cancel", fmt.Sprintf("%s%d", cbChannelInfo, chatID))),
	)
}

// backKeyboard has a single button returning to data
func backKeyboard(data string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🔙 Back", data)),
	)
}
