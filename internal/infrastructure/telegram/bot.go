package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"jo3qma.com/ebay_tracking/internal/domain/model"
	"jo3qma.com/ebay_tracking/internal/domain/repository"
)

// pollTimeout はロングポーリングの待ち時間（秒）です
const pollTimeout = 60

// botAPI は *tgbotapi.BotAPI のうち使用する部分です
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// UpdateHandler は受信したメッセージとボタン押下を処理します
type UpdateHandler interface {
	HandleMessage(ctx context.Context, msg model.IncomingMessage)
	HandleCallback(ctx context.Context, q model.CallbackQuery)
}

// Bot はTelegram Bot APIのアダプターです
type Bot struct {
	api botAPI
}

var _ repository.Messenger = (*Bot)(nil)

// NewBot はトークンでBot APIに接続します
func NewBot(token string, debug bool) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	api.Debug = debug
	slog.Info("authorized on telegram", "account", api.Self.UserName)
	return &Bot{api: api}, nil
}

func (b *Bot) SendText(ctx context.Context, chatID int64, text string) error {
	return b.sendMarkdown(ctx, tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) SendButtons(ctx context.Context, chatID int64, text string, rows [][]model.Button) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if len(rows) > 0 {
		keyboard := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
		for _, row := range rows {
			buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
			for _, btn := range row {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.Data))
			}
			keyboard = append(keyboard, buttons)
		}
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(keyboard...)
	}
	return b.sendMarkdown(ctx, msg)
}

// sendMarkdown はMarkdownで送信し、書式エラーで拒否された場合はプレーンテキストで再送します
func (b *Bot) sendMarkdown(ctx context.Context, msg tgbotapi.MessageConfig) error {
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(msg); err != nil {
		slog.WarnContext(ctx, "markdown message rejected, retrying as plain text", "chat_id", msg.ChatID, "err", err)
		msg.ParseMode = ""
		msg.Text = stripMarkdown(msg.Text)
		if _, err := b.api.Send(msg); err != nil {
			return fmt.Errorf("failed to send message: %w", err)
		}
	}
	return nil
}

// stripMarkdown は旧形式Markdownの書式記号を取り除き、エスケープされた文字を元に戻します
func stripMarkdown(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	escaped := false
	for _, r := range text {
		switch {
		case escaped:
			if !strings.ContainsRune(markdownSpecial, r) {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '*' || r == '_' || r == '`':
		default:
			b.WriteRune(r)
		}
	}
	if escaped {
		b.WriteByte('\\')
	}
	return b.String()
}

const markdownSpecial = "_*`["

func (b *Bot) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		return fmt.Errorf("failed to answer callback: %w", err)
	}
	return nil
}

// Listen はctxがキャンセルされるまで更新を受信し、1件ずつ順番にhandlerへ渡します
func (b *Bot) Listen(ctx context.Context, handler UpdateHandler) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = pollTimeout
	updates := b.api.GetUpdatesChan(cfg)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			dispatch(ctx, handler, update)
		}
	}
}

func dispatch(ctx context.Context, handler UpdateHandler, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		q := update.CallbackQuery
		cq := model.CallbackQuery{ID: q.ID, Data: q.Data}
		if q.From != nil {
			cq.FromID = q.From.ID
		}
		if q.Message != nil && q.Message.Chat != nil {
			cq.ChatID = q.Message.Chat.ID
		}
		handler.HandleCallback(ctx, cq)
	case update.Message != nil && update.Message.Chat != nil:
		handler.HandleMessage(ctx, model.IncomingMessage{
			ChatID: update.Message.Chat.ID,
			Text:   update.Message.Text,
		})
	}
}
