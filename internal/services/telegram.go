// Telegram Bot API client used as the chat transport
//
// Reference: https://core.telegram.org/bots/api
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/desertthunder/songvote/internal/shared"
)

const defaultTelegramURL = "https://api.telegram.org"

// TelegramUser is a Telegram account.
type TelegramUser struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

// DisplayName prefers @username and falls back to the first name.
func (u TelegramUser) DisplayName() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	return u.FirstName
}

// TelegramChat is a chat reference.
type TelegramChat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// TelegramPoll is the poll attached to a sent message.
type TelegramPoll struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	IsClosed bool   `json:"is_closed"`
}

// TelegramMessage is a sent or received message.
type TelegramMessage struct {
	MessageID int64         `json:"message_id"`
	From      *TelegramUser `json:"from,omitempty"`
	Chat      TelegramChat  `json:"chat"`
	Text      string        `json:"text,omitempty"`
	Poll      *TelegramPoll `json:"poll,omitempty"`
}

// CallbackQuery is an inline keyboard button press.
type CallbackQuery struct {
	ID      string           `json:"id"`
	From    TelegramUser     `json:"from"`
	Message *TelegramMessage `json:"message,omitempty"`
	Data    string           `json:"data"`
}

// PollAnswer is a single ballot on a non-anonymous poll.
type PollAnswer struct {
	PollID    string       `json:"poll_id"`
	User      TelegramUser `json:"user"`
	OptionIDs []int        `json:"option_ids"`
}

// Update is one incoming event from getUpdates.
type Update struct {
	UpdateID      int64            `json:"update_id"`
	Message       *TelegramMessage `json:"message,omitempty"`
	CallbackQuery *CallbackQuery   `json:"callback_query,omitempty"`
	PollAnswer    *PollAnswer      `json:"poll_answer,omitempty"`
}

// Button is one inline keyboard button.
type Button struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data,omitempty"`
	URL          string `json:"url,omitempty"`
}

// Keyboard is an inline keyboard, one slice per row.
type Keyboard [][]Button

type replyMarkup struct {
	InlineKeyboard Keyboard `json:"inline_keyboard"`
}

type replyParameters struct {
	MessageID int64 `json:"message_id"`
}

type linkPreviewOptions struct {
	IsDisabled bool `json:"is_disabled"`
}

type pollOption struct {
	Text string `json:"text"`
}

type telegramEnvelope struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
	ErrorCode   int             `json:"error_code"`
}

// TelegramService talks to the Bot API over HTTPS.
type TelegramService struct {
	restClient
	timeout time.Duration
}

// NewTelegramService creates a client for the bot identified by token.
//
// timeout bounds each call; getUpdates adds its long-poll window on top.
func NewTelegramService(apiURL, token string, timeout time.Duration) (*TelegramService, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: missing telegram bot token", shared.ErrMissingCredentials)
	}
	if apiURL == "" {
		apiURL = defaultTelegramURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &TelegramService{
		restClient: restClient{
			service:    "telegram",
			baseURL:    strings.TrimRight(apiURL, "/") + "/bot" + token,
			httpClient: &http.Client{},
			decodeErr:  decodeTelegramError,
		},
		timeout: timeout,
	}, nil
}

func decodeTelegramError(body []byte) string {
	var env telegramEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	return env.Description
}

// Name returns the service name.
func (t *TelegramService) Name() string {
	return "Telegram"
}

// call invokes a Bot API method under the client timeout and decodes the result.
func (t *TelegramService) call(ctx context.Context, method string, params, result any, extra time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout+extra)
	defer cancel()

	var env telegramEnvelope
	if err := t.doRequest(ctx, http.MethodPost, "/"+method, params, &env); err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	if !env.OK {
		return fmt.Errorf("telegram %s: %w: %s", method, shared.ErrAPIRequest, env.Description)
	}
	if result != nil {
		if err := json.Unmarshal(env.Result, result); err != nil {
			return fmt.Errorf("telegram %s: failed to decode result: %w", method, err)
		}
	}
	return nil
}

// GetUpdates long-polls for events after offset.
func (t *TelegramService) GetUpdates(ctx context.Context, offset int64, wait time.Duration) ([]Update, error) {
	params := map[string]any{
		"offset":          offset,
		"timeout":         int(wait.Seconds()),
		"allowed_updates": []string{"message", "callback_query", "poll_answer"},
	}

	var updates []Update
	if err := t.call(ctx, "getUpdates", params, &updates, wait); err != nil {
		return nil, err
	}
	return updates, nil
}

// SendMessage posts an HTML formatted message, optionally with an inline keyboard.
func (t *TelegramService) SendMessage(ctx context.Context, chatID int64, text string, keyboard Keyboard) (int64, error) {
	params := map[string]any{
		"chat_id":              chatID,
		"text":                 text,
		"parse_mode":           "HTML",
		"link_preview_options": linkPreviewOptions{IsDisabled: true},
	}
	if len(keyboard) > 0 {
		params["reply_markup"] = replyMarkup{InlineKeyboard: keyboard}
	}

	var msg TelegramMessage
	if err := t.call(ctx, "sendMessage", params, &msg, 0); err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

// SendPhoto posts an image by URL with an HTML caption.
func (t *TelegramService) SendPhoto(ctx context.Context, chatID int64, photoURL, caption string) (int64, error) {
	params := map[string]any{
		"chat_id":    chatID,
		"photo":      photoURL,
		"caption":    caption,
		"parse_mode": "HTML",
	}

	var msg TelegramMessage
	if err := t.call(ctx, "sendPhoto", params, &msg, 0); err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

// EditMessageText replaces the text of a sent message and drops its keyboard.
func (t *TelegramService) EditMessageText(ctx context.Context, chatID, messageID int64, text string) error {
	params := map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
		"parse_mode": "HTML",
	}
	return t.call(ctx, "editMessageText", params, nil, 0)
}

// DeleteMessage removes a message from the chat.
func (t *TelegramService) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	params := map[string]any{"chat_id": chatID, "message_id": messageID}
	return t.call(ctx, "deleteMessage", params, nil, 0)
}

// AnswerCallback acknowledges a button press, optionally as a modal alert.
func (t *TelegramService) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	params := map[string]any{"callback_query_id": callbackID}
	if text != "" {
		params["text"] = text
		params["show_alert"] = alert
	}
	return t.call(ctx, "answerCallbackQuery", params, nil, 0)
}

// SendPoll posts a non-anonymous single-answer poll and returns its message and poll ids.
func (t *TelegramService) SendPoll(ctx context.Context, chatID int64, question string, options []string, replyTo int64) (int64, string, error) {
	opts := make([]pollOption, len(options))
	for i, o := range options {
		opts[i] = pollOption{Text: o}
	}

	params := map[string]any{
		"chat_id":                 chatID,
		"question":                question,
		"options":                 opts,
		"is_anonymous":            false,
		"allows_multiple_answers": false,
	}
	if replyTo != 0 {
		params["reply_parameters"] = replyParameters{MessageID: replyTo}
	}

	var msg TelegramMessage
	if err := t.call(ctx, "sendPoll", params, &msg, 0); err != nil {
		return 0, "", err
	}
	if msg.Poll == nil {
		return 0, "", fmt.Errorf("telegram sendPoll: %w: response has no poll", shared.ErrAPIRequest)
	}
	return msg.MessageID, msg.Poll.ID, nil
}

// StopPoll closes a poll so no further ballots are accepted.
func (t *TelegramService) StopPoll(ctx context.Context, chatID, messageID int64) error {
	params := map[string]any{"chat_id": chatID, "message_id": messageID}
	return t.call(ctx, "stopPoll", params, nil, 0)
}

// MemberCount returns the number of members in a chat, bots included.
func (t *TelegramService) MemberCount(ctx context.Context, chatID int64) (int, error) {
	var count int
	if err := t.call(ctx, "getChatMemberCount", map[string]any{"chat_id": chatID}, &count, 0); err != nil {
		return 0, err
	}
	return count, nil
}
