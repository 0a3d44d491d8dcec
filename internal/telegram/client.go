// Package telegram is the chat side of the bridge: the Bot API client, the
// webhook server, command handling, and the inline-keyboard rendering of
// interactive prompts.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/crayonluffy/claudecode-telegram/internal/logging"
)

// Client wraps the Bot API with a rate limiter. Telegram throttles bots
// around 30 messages a second; the monitor loop plus typing indicator plus
// replies can burst past that during busy turns.
type Client struct {
	bot     *tgbotapi.BotAPI
	limiter *rate.Limiter
	log     *slog.Logger
}

// NewClient authenticates against the Bot API.
func NewClient(token string) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	return &Client{
		bot:     bot,
		limiter: rate.NewLimiter(rate.Limit(25), 5),
		log:     logging.ForComponent(logging.CompTelegram),
	}, nil
}

// Username returns the bot's username.
func (c *Client) Username() string {
	return c.bot.Self.UserName
}

func (c *Client) wait() {
	_ = c.limiter.Wait(context.Background())
}

// Reply sends a plain text message.
func (c *Client) Reply(chatID int64, text string) {
	c.wait()
	if _, err := c.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		c.log.Warn("send_failed", slog.Int64("chat_id", chatID), slog.String("error", err.Error()))
	}
}

// SendWithKeyboard sends a message with an inline keyboard and returns the
// sent message's ID.
func (c *Client) SendWithKeyboard(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) (int, error) {
	c.wait()
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	sent, err := c.bot.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("send keyboard: %w", err)
	}
	return sent.MessageID, nil
}

// EditText replaces a message's text. Omitting the reply markup removes
// any inline keyboard the message carried.
func (c *Client) EditText(chatID int64, messageID int, text string) error {
	c.wait()
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if _, err := c.bot.Request(edit); err != nil {
		return fmt.Errorf("edit message %d: %w", messageID, err)
	}
	return nil
}

// EditTextAndKeyboard replaces a message's text and keyboard.
func (c *Client) EditTextAndKeyboard(chatID int64, messageID int, text string, kb tgbotapi.InlineKeyboardMarkup) error {
	c.wait()
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, kb)
	if _, err := c.bot.Request(edit); err != nil {
		return fmt.Errorf("edit message %d: %w", messageID, err)
	}
	return nil
}

// DeleteMessage removes a message from the chat.
func (c *Client) DeleteMessage(chatID int64, messageID int) error {
	c.wait()
	if _, err := c.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("delete message %d: %w", messageID, err)
	}
	return nil
}

// AnswerCallback acknowledges a callback query so the client stops showing
// its progress spinner.
func (c *Client) AnswerCallback(callbackID string) {
	c.wait()
	if _, err := c.bot.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		c.log.Debug("answer_callback_failed", slog.String("error", err.Error()))
	}
}

// Typing shows the "typing…" indicator in the chat. The indicator expires
// after about five seconds, so callers refresh it while a turn is pending.
func (c *Client) Typing(chatID int64) {
	c.wait()
	if _, err := c.bot.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		c.log.Debug("typing_failed", slog.String("error", err.Error()))
	}
}

// React sets an emoji reaction on a message. The library predates the
// setMessageReaction endpoint, so this goes through the raw request path.
func (c *Client) React(chatID int64, messageID int, emoji string) {
	c.wait()
	reaction, err := json.Marshal([]map[string]string{{"type": "emoji", "emoji": emoji}})
	if err != nil {
		return
	}
	params := tgbotapi.Params{
		"chat_id":    fmt.Sprintf("%d", chatID),
		"message_id": fmt.Sprintf("%d", messageID),
		"reaction":   string(reaction),
	}
	if _, err := c.bot.MakeRequest("setMessageReaction", params); err != nil {
		c.log.Debug("react_failed", slog.Int("message_id", messageID), slog.String("error", err.Error()))
	}
}

// RegisterCommands publishes the bot's command menu.
func (c *Client) RegisterCommands(commands []tgbotapi.BotCommand) error {
	c.wait()
	if _, err := c.bot.Request(tgbotapi.NewSetMyCommands(commands...)); err != nil {
		return fmt.Errorf("register commands: %w", err)
	}
	c.log.Info("bot_commands_registered", slog.Int("count", len(commands)))
	return nil
}

// FileURL resolves a file ID to its direct download URL.
func (c *Client) FileURL(fileID string) (string, error) {
	c.wait()
	url, err := c.bot.GetFileDirectURL(fileID)
	if err != nil {
		return "", fmt.Errorf("resolve file %s: %w", fileID, err)
	}
	return url, nil
}
