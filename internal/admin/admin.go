// Package admin implements the Telegram bot operators use to manage monitored chats.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"ChatMonitor/internal/models"
	"ChatMonitor/internal/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	menuText    = "Choose a chat to manage:"
	deniedText  = "⛔️ You don't have access to this bot."
	findLimit   = 10
	findSnippet = 100
	pollTimeout = 60
)

// Sender is the part of *tgbotapi.BotAPI the handler talks to
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Poller delivers updates to Run
type Poller interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type chatStore interface {
	GetChat(ctx context.Context, chatID int64) (*models.MonitoredChat, error)
	ListChats(ctx context.Context) ([]models.MonitoredChat, error)
	AddChat(ctx context.Context, chat *models.MonitoredChat) error
	SetKeywords(ctx context.Context, chatID int64, keywords []string) error
	DeleteChat(ctx context.Context, chatID int64) error
	TrackMenuMessage(ctx context.Context, msg *models.MenuMessage) error
	TakeMenuMessages(ctx context.Context, chatID int64) ([]int, error)
}

// Searcher looks up past notifications for /find
type Searcher interface {
	SearchNotifications(ctx context.Context, query string, limit int64) ([]models.Notification, error)
}

type Option func(*Handler)

// WithSearcher enables the /find command
func WithSearcher(s Searcher) Option {
	return func(h *Handler) { h.searcher = s }
}

// Handler serves allowed operators. It is not safe for concurrent use;
// Run feeds it one update at a time.
type Handler struct {
	api      Sender
	store    chatStore
	searcher Searcher
	allowed  map[int64]struct{}
	sessions map[int64]*session
	logger   *zap.Logger
}

func New(api Sender, store chatStore, allowedIDs []int64, logger *zap.Logger, opts ...Option) *Handler {
	allowed := make(map[int64]struct{}, len(allowedIDs))
	for _, id := range allowedIDs {
		allowed[id] = struct{}{}
	}
	h := &Handler{
		api:      api,
		store:    store,
		allowed:  allowed,
		sessions: make(map[int64]*session),
		logger:   logger.Named("admin"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run polls for updates until ctx is cancelled
func (h *Handler) Run(ctx context.Context, poller Poller) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = pollTimeout
	updateConfig.AllowedUpdates = []string{"message", "callback_query"}

	updates := poller.GetUpdatesChan(updateConfig)
	h.logger.Info("Admin bot started", zap.Int("allowed_users", len(h.allowed)))

	for {
		select {
		case <-ctx.Done():
			poller.StopReceivingUpdates()
			h.logger.Info("Admin bot stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			h.HandleUpdate(ctx, update)
		}
	}
}

func (h *Handler) isAllowed(userID int64) bool {
	_, ok := h.allowed[userID]
	return ok
}

// HandleUpdate dispatches one message or callback query
func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	var err error
	switch {
	case update.CallbackQuery != nil:
		err = h.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		err = h.handleMessage(ctx, update.Message)
	default:
		return
	}
	if err != nil {
		h.logger.Error("Failed to handle update", zap.Int("update_id", update.UpdateID), zap.Error(err))
	}
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil || msg.Chat == nil {
		return nil
	}
	if !h.isAllowed(msg.From.ID) {
		if msg.IsCommand() && msg.Command() == "start" {
			_, err := h.api.Send(tgbotapi.NewMessage(msg.Chat.ID, deniedText))
			return err
		}
		h.logger.Debug("Ignoring message from unknown user", zap.Int64("user_id", msg.From.ID))
		return nil
	}

	chatID := msg.Chat.ID
	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			h.resetSession(chatID)
			return h.showMenu(ctx, chatID, 0)
		case "find":
			return h.find(ctx, chatID, msg.CommandArguments())
		default:
			return h.send(ctx, chatID, "Unknown command. Use /start to manage chats or /find <query> to search notifications.", nil)
		}
	}

	s := h.session(chatID)
	switch s.state {
	case stateWaitingForward:
		return h.registerForward(ctx, chatID, msg)
	case stateWaitingKeywords:
		// photos, stickers and forwards carry no text; keep the stored list
		if strings.TrimSpace(msg.Text) == "" {
			return h.send(ctx, chatID, "Send keywords as text separated by commas.", backKeyboard(fmt.Sprintf("%s%d", cbChannelInfo, s.chatID)))
		}
		return h.updateKeywords(ctx, chatID, s.chatID, msg.Text)
	default:
		return nil
	}
}

func (h *Handler) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb.From == nil || !h.isAllowed(cb.From.ID) {
		return nil
	}

	if _, err := h.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		h.logger.Warn("Failed to answer callback", zap.Error(err))
	}

	chatID := cb.From.ID
	if cb.Message != nil && cb.Message.Chat != nil {
		chatID = cb.Message.Chat.ID
	}
	data := cb.Data

	switch {
	case data == cbBack:
		h.resetSession(chatID)
		return h.showMenu(ctx, chatID, 0)
	case data == cbAdd:
		h.session(chatID).state = stateWaitingForward
		return h.send(ctx, chatID, "Forward a message from the chat you want to monitor.", backKeyboard(cbBack))
	case strings.HasPrefix(data, cbPage):
		page, err := strconv.Atoi(strings.TrimPrefix(data, cbPage))
		if err != nil {
			return fmt.Errorf("bad page callback %q: %w", data, err)
		}
		return h.showMenu(ctx, chatID, page)
	}

	var (
		target int64
		err    error
	)
	switch {
	case strings.HasPrefix(data, cbChannelInfo):
		if target, err = parseChatID(data, cbChannelInfo); err == nil {
			return h.showChatInfo(ctx, chatID, target)
		}
	case strings.HasPrefix(data, cbSetKeywords):
		if target, err = parseChatID(data, cbSetKeywords); err == nil {
			return h.askKeywords(ctx, chatID, target)
		}
	case strings.HasPrefix(data, cbConfirmDelete):
		if target, err = parseChatID(data, cbConfirmDelete); err == nil {
			return h.confirmDelete(ctx, chatID, target)
		}
	case strings.HasPrefix(data, cbDoDelete):
		if target, err = parseChatID(data, cbDoDelete); err == nil {
			return h.deleteChat(ctx, chatID, target)
		}
	default:
		h.logger.Warn("Unknown callback", zap.String("data", data))
		return nil
	}
	return err
}

func parseChatID(data, prefix string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(data, prefix), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad callback %q: %w", data, err)
	}
	return id, nil
}

func (h *Handler) showMenu(ctx context.Context, chatID int64, page int) error {
	chats, err := h.store.ListChats(ctx)
	if err != nil {
		return fmt.Errorf("failed to list chats: %w", err)
	}
	return h.send(ctx, chatID, menuText, mainMenuKeyboard(chats, page))
}

// menuAfter sends text together with the first menu page
func (h *Handler) menuAfter(ctx context.Context, chatID int64, text string) error {
	chats, err := h.store.ListChats(ctx)
	if err != nil {
		return fmt.Errorf("failed to list chats: %w", err)
	}
	return h.send(ctx, chatID, text, mainMenuKeyboard(chats, 0))
}

// lookup loads a chat, answering with the menu when it is gone
func (h *Handler) lookup(ctx context.Context, chatID, target int64) (*models.MonitoredChat, error) {
	chat, err := h.store.GetChat(ctx, target)
	if errors.Is(err, storage.ErrChatNotFound) {
		return nil, h.menuAfter(ctx, chatID, "Chat not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chat %d: %w", target, err)
	}
	return chat, nil
}

func (h *Handler) showChatInfo(ctx context.Context, chatID, target int64) error {
	chat, err := h.lookup(ctx, chatID, target)
	if chat == nil {
		return err
	}

	var b strings.Builder
	b.WriteString("📋 Chat info:\n\n")
	fmt.Fprintf(&b, "Title: %s\nID: %d\nType: %s\n", chat.Title, chat.ChatID, chat.Type)
	if chat.Username != "" {
		fmt.Fprintf(&b, "Username: @%s\n", chat.Username)
	}
	fmt.Fprintf(&b, "\nKeywords:\n%s", strings.Join(chat.Keywords, ", "))

	return h.send(ctx, chatID, b.String(), channelInfoKeyboard(target))
}

func (h *Handler) askKeywords(ctx context.Context, chatID, target int64) error {
	chat, err := h.lookup(ctx, chatID, target)
	if chat == nil {
		return err
	}

	s := h.session(chatID)
	s.state = stateWaitingKeywords
	s.chatID = target

	text := fmt.Sprintf("Current keywords for chat %s:\n%s\n\nSend new keywords separated by commas:",
		chat.Title, strings.Join(chat.Keywords, ", "))
	return h.send(ctx, chatID, text, backKeyboard(fmt.Sprintf("%s%d", cbChannelInfo, target)))
}

func (h *Handler) confirmDelete(ctx context.Context, chatID, target int64) error {
	chat, err := h.lookup(ctx, chatID, target)
	if chat == nil {
		return err
	}
	return h.send(ctx, chatID, fmt.Sprintf("Are you sure you want to delete chat %s?", chat.Title), confirmDeleteKeyboard(target))
}

func (h *Handler) deleteChat(ctx context.Context, chatID, target int64) error {
	chat, err := h.lookup(ctx, chatID, target)
	if chat == nil {
		return err
	}
	if err := h.store.DeleteChat(ctx, target); err != nil && !errors.Is(err, storage.ErrChatNotFound) {
		return fmt.Errorf("failed to delete chat %d: %w", target, err)
	}
	h.logger.Info("Chat removed from monitoring", zap.Int64("chat_id", target))
	return h.menuAfter(ctx, chatID, fmt.Sprintf("Chat %s removed from monitoring.", chat.Title))
}

// chatFromForward builds a registry entry from the origin of a forwarded message
func chatFromForward(msg *tgbotapi.Message) (*models.MonitoredChat, bool) {
	if src := msg.ForwardFromChat; src != nil {
		chatType := models.ChatTypeFromTelegram(src.Type)
		return &models.MonitoredChat{
			ChatID:   models.NormalizeChatID(src.ID, src.IsChannel() || src.IsSuperGroup()),
			Type:     chatType,
			Title:    src.Title,
			Username: src.UserName,
			Keywords: []string{},
		}, true
	}
	if src := msg.ForwardFrom; src != nil {
		chatType := models.ChatTypeUser
		if src.IsBot {
			chatType = models.ChatTypeBot
		}
		return &models.MonitoredChat{
			ChatID:   src.ID,
			Type:     chatType,
			Title:    strings.TrimSpace(src.FirstName + " " + src.LastName),
			Username: src.UserName,
			Keywords: []string{},
		}, true
	}
	return nil, false
}

func (h *Handler) registerForward(ctx context.Context, chatID int64, msg *tgbotapi.Message) error {
	chat, ok := chatFromForward(msg)
	if !ok {
		return h.send(ctx, chatID, "Please forward a message from a chat, user or bot.", backKeyboard(cbBack))
	}

	err := h.store.AddChat(ctx, chat)
	if errors.Is(err, storage.ErrChatExists) {
		h.resetSession(chatID)
		return h.menuAfter(ctx, chatID, fmt.Sprintf("Chat %s is already monitored!", chat.Title))
	}
	if err != nil {
		return fmt.Errorf("failed to add chat %d: %w", chat.ChatID, err)
	}

	h.logger.Info("Chat added to monitoring",
		zap.Int64("chat_id", chat.ChatID),
		zap.String("type", string(chat.Type)))

	s := h.session(chatID)
	s.state = stateWaitingKeywords
	s.chatID = chat.ChatID

	text := fmt.Sprintf("Chat %s (%s) added to monitoring!\nNow send keywords separated by commas:", chat.Title, chat.Type)
	return h.send(ctx, chatID, text, backKeyboard(cbBack))
}

// ParseKeywords splits a comma separated list, trimming entries and dropping blanks
func ParseKeywords(text string) []string {
	keywords := []string{}
	for _, kw := range strings.Split(text, ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return keywords
}

func (h *Handler) updateKeywords(ctx context.Context, chatID, target int64, text string) error {
	keywords := ParseKeywords(text)
	err := h.store.SetKeywords(ctx, target, keywords)
	h.resetSession(chatID)
	if errors.Is(err, storage.ErrChatNotFound) {
		return h.menuAfter(ctx, chatID, "Chat not found.")
	}
	if err != nil {
		return fmt.Errorf("failed to set keywords for %d: %w", target, err)
	}

	title := strconv.FormatInt(target, 10)
	if chat, err := h.store.GetChat(ctx, target); err == nil {
		title = chat.Title
	}
	h.logger.Info("Keywords updated", zap.Int64("chat_id", target), zap.Strings("keywords", keywords))
	return h.menuAfter(ctx, chatID, fmt.Sprintf("Keywords for chat %s updated!", title))
}

func (h *Handler) find(ctx context.Context, chatID int64, query string) error {
	if h.searcher == nil {
		return h.send(ctx, chatID, "Notification search is not configured.", nil)
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return h.send(ctx, chatID, "Usage: /find <query>", nil)
	}

	results, err := h.searcher.SearchNotifications(ctx, query, findLimit)
	if err != nil {
		h.logger.Error("Notification search failed", zap.String("query", query), zap.Error(err))
		return h.send(ctx, chatID, "❌ Search failed, try again later.", nil)
	}
	return h.send(ctx, chatID, renderResults(query, results), nil)
}

func renderResults(query string, results []models.Notification) string {
	if len(results) == 0 {
		return fmt.Sprintf("Nothing found for %q.", query)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🔎 Found %d notifications for %q:\n", len(results), query)
	for _, n := range results {
		text := []rune(n.Text)
		if len(text) > findSnippet {
			text = append(text[:findSnippet], '…')
		}
		fmt.Fprintf(&b, "\n• %s, chat %d [%s]\n%s\n",
			n.CreatedAt.Format("2006-01-02 15:04"), n.ChatID, strings.Join(n.Keywords, ", "), string(text))
	}
	return b.String()
}
