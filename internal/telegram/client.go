// Package telegram provides the Telegram bot surface for the assistant.
//
// This package handles:
//   - Relaying citizen messages and photos from one chat to the dialogue runner
//   - Quick-action buttons (category selection, resolution re-check)
//   - Sending the bot's replies back with inline keyboards
//   - Escalation alerts and handoff summaries to the staff chat
//
// Architecture:
//   - Client: bot token, citizen chat, staff chat
//   - HandleUpdates: long-polling loop run in a background goroutine
//   - Driver: the dialogue runner, behind an interface
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"html"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"nagarbot/internal/catalog"
	"nagarbot/internal/chat"
	"nagarbot/internal/complaint"
	apperrors "nagarbot/internal/errors"
	"nagarbot/internal/media"
)

const defaultAPIBase = "https://api.telegram.org"

// Driver runs conversation turns. *dialogue.Runner satisfies it.
type Driver interface {
	Send(ctx context.Context, text, attachment string) ([]chat.Message, error)
	SelectCategory(ctx context.Context, category string) ([]chat.Message, error)
	CheckResolution(ctx context.Context, complaintID string) ([]chat.Message, error)
}

// Client represents a Telegram bot client.
//
// Fields:
//   - BotToken: Telegram bot API token
//   - ChatID: The citizen's chat; updates from other chats are ignored
//   - StaffChatID: Receives escalations and handoffs; falls back to ChatID
//   - DebugMode: If true, outgoing messages are logged instead of sent
type Client struct {
	BotToken    string
	ChatID      string
	StaffChatID string
	DebugMode   bool

	catalog *catalog.Catalog
	http    *http.Client
	apiBase string
}

// Message represents a Telegram message for sending.
type Message struct {
	ChatID                string      `json:"chat_id"`
	Text                  string      `json:"text"`
	ParseMode             string      `json:"parse_mode"`
	DisableWebPagePreview bool        `json:"disable_web_page_preview"`
	ReplyMarkup           interface{} `json:"reply_markup,omitempty"`
}

// InlineKeyboardMarkup represents an inline keyboard.
type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

// InlineKeyboardButton represents a button in an inline keyboard.
type InlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data,omitempty"`
	URL          string `json:"url,omitempty"`
}

// Update represents a Telegram update from getUpdates.
type Update struct {
	UpdateID      int              `json:"update_id"`
	Message       *IncomingMessage `json:"message,omitempty"`
	CallbackQuery *CallbackQuery   `json:"callback_query,omitempty"`
}

// IncomingMessage represents a received Telegram message.
type IncomingMessage struct {
	MessageID int         `json:"message_id"`
	From      *User       `json:"from,omitempty"`
	Chat      *Chat       `json:"chat,omitempty"`
	Text      string      `json:"text"`
	Caption   string      `json:"caption"`
	Photo     []PhotoSize `json:"photo,omitempty"`
}

// PhotoSize is one resolution of a sent photo; the last one is the largest.
type PhotoSize struct {
	FileID   string `json:"file_id"`
	FileSize int64  `json:"file_size"`
}

// Chat represents a Telegram chat.
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// CallbackQuery represents a callback query from an inline button.
type CallbackQuery struct {
	ID      string           `json:"id"`
	From    User             `json:"from"`
	Message *IncomingMessage `json:"message"`
	Data    string           `json:"data"`
}

// User represents a Telegram user.
type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	Username  string `json:"username,omitempty"`
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
}

// NewClient creates a Telegram client.
//
// Returns nil if the token or chat id is missing; every method is nil-safe
// so callers don't need to check.
func NewClient(botToken, chatID, staffChatID string, debugMode bool, cat *catalog.Catalog) *Client {
	if botToken == "" || chatID == "" {
		log.Println("⚠️  TELEGRAM_BOT_TOKEN or TELEGRAM_CHAT_ID not set. Telegram surface disabled.")
		if botToken == "" {
			log.Println("   → Missing: TELEGRAM_BOT_TOKEN")
		}
		if chatID == "" {
			log.Println("   → Missing: TELEGRAM_CHAT_ID")
		}
		return nil
	}

	log.Println("✓ Telegram configured successfully")
	if debugMode {
		log.Println("🐛 DEBUG MODE ENABLED - outgoing Telegram messages will be logged only")
	}
	if staffChatID == "" {
		staffChatID = chatID
	}

	return &Client{
		BotToken:    botToken,
		ChatID:      chatID,
		StaffChatID: staffChatID,
		DebugMode:   debugMode,
		catalog:     cat,
		// long polling holds the request for 30s
		http:    &http.Client{Timeout: 60 * time.Second},
		apiBase: defaultAPIBase,
	}
}

// doRequest posts a JSON payload to a Bot API method and returns the result field.
func (c *Client) doRequest(ctx context.Context, method string, payload interface{}) (json.RawMessage, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.send(req)
}

func (c *Client) send(req *http.Request) (json.RawMessage, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.NewDeliveryError("telegram request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewDeliveryError("failed to read telegram response", err)
	}

	var result apiResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, apperrors.NewDeliveryError("failed to parse telegram response", err)
	}
	if !result.OK {
		return nil, apperrors.NewDeliveryError("telegram API error: "+result.Description, nil)
	}
	return result.Result, nil
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.apiBase, c.BotToken, method)
}

// SendText sends an HTML message and returns its message id.
func (c *Client) SendText(ctx context.Context, chatID, text string, markup *InlineKeyboardMarkup) (int, error) {
	if c == nil {
		log.Println("   ⚠️  Telegram not configured, skipping message send")
		return 0, nil
	}
	if c.DebugMode {
		log.Printf("🐛 [telegram → %s] %s", chatID, text)
		return 0, nil
	}

	msg := Message{
		ChatID:                chatID,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	}
	if markup != nil {
		msg.ReplyMarkup = markup
	}

	raw, err := c.doRequest(ctx, "sendMessage", msg)
	if err != nil {
		return 0, err
	}

	var sent struct {
		MessageID int `json:"message_id"`
	}
	_ = json.Unmarshal(raw, &sent)
	return sent.MessageID, nil
}

// SendPhoto uploads a PNG with a caption.
func (c *Client) SendPhoto(ctx context.Context, chatID string, pngData []byte, caption string) error {
	if c == nil {
		log.Println("   ⚠️  Telegram not configured, skipping photo send")
		return nil
	}
	if c.DebugMode {
		log.Printf("🐛 [telegram → %s] photo (%d bytes): %s", chatID, len(pngData), caption)
		return nil
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	_ = w.WriteField("chat_id", chatID)
	_ = w.WriteField("caption", caption)
	_ = w.WriteField("parse_mode", "HTML")
	part, err := w.CreateFormFile("photo", "complaints.png")
	if err != nil {
		return fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := part.Write(pngData); err != nil {
		return fmt.Errorf("failed to build upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL("sendPhoto"), &body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	_, err = c.send(req)
	return err
}

// SendHandoff posts the handoff text, and the summary image when given, to the staff chat.
func (c *Client) SendHandoff(ctx context.Context, text string, summaryPNG []byte) error {
	if c == nil {
		log.Println("   ⚠️  Telegram not configured, skipping handoff")
		return nil
	}

	log.Println("   📨 Sending handoff to Telegram...")
	if _, err := c.SendText(ctx, c.StaffChatID, html.EscapeString(text), nil); err != nil {
		return err
	}
	if len(summaryPNG) > 0 {
		if err := c.SendPhoto(ctx, c.StaffChatID, summaryPNG, "📋 Complaint summary"); err != nil {
			return err
		}
	}
	log.Println("   ✓ Handoff sent to Telegram")
	return nil
}

// Escalate alerts the staff chat that a citizen reported a resolved
// complaint as not fixed.
func (c *Client) Escalate(ctx context.Context, cp complaint.Complaint) error {
	if c == nil {
		log.Println("   ⚠️  Telegram not configured, skipping escalation")
		return nil
	}

	log.Printf("   🚨 Escalating complaint %s to staff...", cp.ID)

	note := ""
	if fb := cp.ResolutionFeedback; fb != nil && fb.UserMessage != "" {
		note = fmt.Sprintf("<b>Citizen says:</b> %s\n", html.EscapeString(fb.UserMessage))
	}
	text := fmt.Sprintf(
		"🚨 <b>ESCALATION - COMPLAINT NOT RESOLVED</b>\n\n"+
			"🆔 <b>%s</b>\n"+
			"📝 %s\n"+
			"📍 %s\n"+
			"💬 %s\n"+
			"%s"+
			"<b>Filed:</b> %s\n\n"+
			"⚠️ <b>Action Required:</b> The complaint was marked resolved but the citizen reports the problem persists.",
		cp.ID,
		html.EscapeString(cp.Category),
		html.EscapeString(cp.Location),
		html.EscapeString(cp.Description),
		note,
		cp.Timestamp.Format("2006-01-02 15:04"),
	)

	if _, err := c.SendText(ctx, c.StaffChatID, text, nil); err != nil {
		return fmt.Errorf("failed to send escalation: %w", err)
	}
	log.Println("   ✓ Escalation sent")
	return nil
}

// NotifyResolved tells the citizen staff marked a complaint resolved and
// offers the re-check button.
func (c *Client) NotifyResolved(ctx context.Context, cp complaint.Complaint) error {
	if c == nil {
		return nil
	}
	text := fmt.Sprintf("✅ Complaint <b>%s</b> (%s, %s) has been marked <b>RESOLVED</b> by the municipal team.",
		cp.ID, html.EscapeString(cp.Category), html.EscapeString(cp.Location))
	markup := &InlineKeyboardMarkup{InlineKeyboard: [][]InlineKeyboardButton{{
		{Text: "🔍 Confirm it is fixed", CallbackData: "recheck:" + cp.ID},
	}}}
	_, err := c.SendText(ctx, c.ChatID, text, markup)
	return err
}

// getUpdates fetches new updates using long polling (30s).
func (c *Client) getUpdates(ctx context.Context, offset int) ([]Update, error) {
	raw, err := c.doRequest(ctx, "getUpdates", map[string]interface{}{
		"offset":  offset,
		"timeout": 30,
	})
	if err != nil {
		return nil, err
	}

	var updates []Update
	if err := json.Unmarshal(raw, &updates); err != nil {
		return nil, fmt.Errorf("failed to decode updates: %w", err)
	}
	return updates, nil
}

// answerCallbackQuery acknowledges a button press with a short notification.
func (c *Client) answerCallbackQuery(ctx context.Context, callbackQueryID, text string) {
	if c.DebugMode {
		return
	}
	_, err := c.doRequest(ctx, "answerCallbackQuery", map[string]interface{}{
		"callback_query_id": callbackQueryID,
		"text":              text,
		"show_alert":        false,
	})
	if err != nil {
		log.Printf("⚠️  Failed to answer callback query: %v", err)
	}
}

// HandleUpdates polls for updates until ctx is cancelled and feeds them to the driver.
func (c *Client) HandleUpdates(ctx context.Context, driver Driver) {
	if c == nil {
		log.Println("⚠️  Telegram not configured, update handler disabled")
		return
	}

	log.Println("✓ Starting Telegram update handler...")
	offset := 0

	for {
		select {
		case <-ctx.Done():
			log.Println("🛑 Telegram update handler stopped")
			return
		default:
		}

		updates, err := c.getUpdates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			log.Printf("⚠️  Error getting Telegram updates: %v", err)
			select {
			case <-ctx.Done():
			case <-time.After(5 * time.Second):
			}
			continue
		}

		for _, update := range updates {
			c.processUpdate(ctx, driver, update)
			offset = update.UpdateID + 1
		}
	}
}

func (c *Client) processUpdate(ctx context.Context, driver Driver, update Update) {
	switch {
	case update.CallbackQuery != nil:
		c.handleCallbackQuery(ctx, driver, update.CallbackQuery)
	case update.Message != nil:
		c.handleMessage(ctx, driver, update.Message)
	}
}

// handleCallbackQuery dispatches "category:<slug>" and "recheck:<id>" buttons.
func (c *Client) handleCallbackQuery(ctx context.Context, driver Driver, query *CallbackQuery) {
	if query.Message == nil || !c.fromCitizen(query.Message.Chat) {
		return
	}
	log.Printf("📞 Received callback query: %s from %s", query.Data, query.From.FirstName)

	action, arg, ok := strings.Cut(query.Data, ":")
	if !ok {
		c.answerCallbackQuery(ctx, query.ID, "Invalid action")
		return
	}

	var (
		replies []chat.Message
		err     error
	)
	switch action {
	case "category":
		replies, err = driver.SelectCategory(ctx, arg)
	case "recheck":
		replies, err = driver.CheckResolution(ctx, arg)
	default:
		c.answerCallbackQuery(ctx, query.ID, "Invalid action")
		return
	}

	if err != nil {
		c.answerCallbackQuery(ctx, query.ID, userFacingError(err))
		return
	}
	c.answerCallbackQuery(ctx, query.ID, "")
	c.deliver(ctx, replies)
}

// handleMessage relays text and photos as a conversation turn.
func (c *Client) handleMessage(ctx context.Context, driver Driver, message *IncomingMessage) {
	if !c.fromCitizen(message.Chat) {
		return
	}

	text := message.Text
	if text == "" {
		text = message.Caption
	}
	text = commandText(text)

	attachment := ""
	if n := len(message.Photo); n > 0 {
		ref, err := c.downloadPhoto(ctx, message.Photo[n-1])
		if err != nil {
			log.Printf("⚠️  Failed to fetch photo: %v", err)
			c.SendText(ctx, c.ChatID, "⚠️ "+html.EscapeString(userFacingError(err)), nil)
			return
		}
		attachment = ref
	}

	replies, err := driver.Send(ctx, text, attachment)
	if err != nil {
		c.SendText(ctx, c.ChatID, "⚠️ "+html.EscapeString(userFacingError(err)), nil)
		return
	}
	c.deliver(ctx, replies)
}

// downloadPhoto fetches a photo through getFile and turns it into a data URL.
func (c *Client) downloadPhoto(ctx context.Context, photo PhotoSize) (string, error) {
	if photo.FileSize > media.ChatImageLimit {
		return "", apperrors.NewValidationError("image", "file exceeds 5 MB")
	}

	raw, err := c.doRequest(ctx, "getFile", map[string]string{"file_id": photo.FileID})
	if err != nil {
		return "", err
	}
	var file struct {
		FilePath string `json:"file_path"`
	}
	if err := json.Unmarshal(raw, &file); err != nil || file.FilePath == "" {
		return "", apperrors.NewDeliveryError("getFile returned no path", err)
	}

	url := fmt.Sprintf("%s/file/bot%s/%s", c.apiBase, c.BotToken, file.FilePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", apperrors.NewDeliveryError("photo download failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", apperrors.NewDeliveryError("photo download returned "+strconv.Itoa(resp.StatusCode), nil)
	}

	return media.IngestReader(resp.Body, media.ChatImageLimit)
}

// deliver sends bot replies to the citizen, with quick-action buttons
// where the reply invites a next step.
func (c *Client) deliver(ctx context.Context, replies []chat.Message) {
	for _, m := range replies {
		if m.Sender != chat.SenderBot {
			continue
		}
		if _, err := c.SendText(ctx, c.ChatID, toHTML(m.Text), c.keyboardFor(m)); err != nil {
			log.Printf("⚠️  Failed to deliver reply %s: %v", m.ID, err)
		}
	}
}

func (c *Client) keyboardFor(m chat.Message) *InlineKeyboardMarkup {
	switch m.Kind {
	case chat.KindWelcome, chat.KindMenu, chat.KindGuidance, chat.KindStatus:
		return c.categoryKeyboard()
	default:
		return nil
	}
}

func (c *Client) categoryKeyboard() *InlineKeyboardMarkup {
	if c.catalog == nil {
		return nil
	}
	var rows [][]InlineKeyboardButton
	var row []InlineKeyboardButton
	for _, e := range c.catalog.Categories {
		row = append(row, InlineKeyboardButton{
			Text:         e.Emoji + " " + e.Name,
			CallbackData: "category:" + string(e.Key),
		})
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return &InlineKeyboardMarkup{InlineKeyboard: rows}
}

func (c *Client) fromCitizen(ch *Chat) bool {
	return ch != nil && strconv.FormatInt(ch.ID, 10) == c.ChatID
}

var boldPattern = regexp.MustCompile(`\*\*(.+?)\*\*`)

// toHTML escapes text for Telegram's HTML mode and turns **bold** into <b>.
func toHTML(text string) string {
	return boldPattern.ReplaceAllString(html.EscapeString(text), "<b>$1</b>")
}

// commandText maps bot commands to phrases the intent router understands.
func commandText(text string) string {
	cmd := strings.ToLower(strings.TrimSpace(text))
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i]
	}
	switch cmd {
	case "/start", "/help", "/menu":
		return "help"
	case "/status":
		return "status"
	}
	return text
}

func userFacingError(err error) string {
	switch {
	case apperrors.IsSessionActive(err):
		return "Please finish the current step first."
	case apperrors.IsNotEligible(err):
		return "This complaint can't be re-checked right now."
	case apperrors.IsNotFound(err):
		return "Complaint not found."
	case apperrors.IsBusy(err):
		return "Still typing, please wait a moment."
	case apperrors.IsValidation(err):
		var verr *apperrors.ValidationError
		if stderrors.As(err, &verr) {
			return verr.Message
		}
	}
	return "Something went wrong, please try again."
}
