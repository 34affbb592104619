package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"jo3qma.com/ebay_tracking/internal/domain/model"
	"jo3qma.com/ebay_tracking/internal/domain/repository"
)

// buttonsPerRow は削除ボタンの1行あたりの数です
const buttonsPerRow = 8

// TrackerService はチャットから呼び出す追跡操作です
type TrackerService interface {
	List(ctx context.Context) ([]*model.TrackedItem, error)
	Track(ctx context.Context, rawURL string) (*model.TrackedItem, error)
	Remove(ctx context.Context, hash string) error
	RemoveExpired(ctx context.Context) (int, error)
	Now() time.Time
}

// ChatHandler はチャットのコマンドを受け取り、追跡操作に振り分けます
// 設定された1つの会話からのメッセージだけを処理し、それ以外は記録して捨てます
type ChatHandler struct {
	tracker   TrackerService
	messenger repository.Messenger
	chatID    int64
}

// NewChatHandler は新しいChatHandlerインスタンスを作成します
func NewChatHandler(tracker TrackerService, messenger repository.Messenger, chatID int64) *ChatHandler {
	return &ChatHandler{
		tracker:   tracker,
		messenger: messenger,
		chatID:    chatID,
	}
}

// recoverPanic はコマンド処理中のpanicを記録して握りつぶし、ボットを動かし続けます
func recoverPanic(ctx context.Context, what string) {
	if r := recover(); r != nil {
		slog.ErrorContext(ctx, "panic while handling "+what, "panic", r, "stack", string(debug.Stack()))
	}
}

// HandleMessage はテキストメッセージを処理します
func (h *ChatHandler) HandleMessage(ctx context.Context, msg model.IncomingMessage) {
	defer recoverPanic(ctx, "message")

	if msg.ChatID != h.chatID {
		slog.WarnContext(ctx, "discarded message from unknown chat", "chat_id", msg.ChatID)
		return
	}

	text := strings.TrimSpace(msg.Text)
	slog.DebugContext(ctx, "received message", "chat_id", msg.ChatID, "text", text)

	var err error
	switch text {
	case "":
		return
	case "/start", "/help":
		err = h.reply(ctx, escapeMarkdown(helpText))
	case "/list":
		err = h.list(ctx)
	case "/track":
		err = h.reply(ctx, "Inserisci l'URL di un oggetto Ebay")
	case "/remove":
		err = h.removeMenu(ctx)
	case "/remove_expired":
		err = h.removeExpired(ctx)
	case "/printurls":
		err = h.printURLs(ctx)
	default:
		if strings.HasPrefix(text, "/") {
			err = h.reply(ctx, "Comando non riconosciuto")
			break
		}
		err = h.trackAll(ctx, text)
	}

	if err != nil {
		slog.ErrorContext(ctx, "failed to handle message", "text", text, "err", err)
	}
	slog.DebugContext(ctx, "done processing message")
}

// HandleCallback はインラインボタンの押下を処理します。ペイロードはURLハッシュです
func (h *ChatHandler) HandleCallback(ctx context.Context, q model.CallbackQuery) {
	defer recoverPanic(ctx, "callback query")

	if q.ChatID != h.chatID {
		slog.WarnContext(ctx, "discarded callback from unknown chat", "chat_id", q.ChatID, "from_id", q.FromID)
		return
	}
	slog.DebugContext(ctx, "received callback query", "id", q.ID, "data", q.Data)

	answer := "Oggetto eliminato"
	err := h.tracker.Remove(ctx, q.Data)
	switch {
	case errors.Is(err, model.ErrNotFound):
		answer = "Oggetto non trovato!"
	case err != nil:
		slog.ErrorContext(ctx, "failed to remove item", "hash", q.Data, "err", err)
		answer = "Impossibile eliminare l'oggetto"
	}

	if err := h.messenger.AnswerCallback(ctx, q.ID, answer); err != nil {
		slog.ErrorContext(ctx, "failed to answer callback", "err", err)
	}
}

func (h *ChatHandler) reply(ctx context.Context, text string) error {
	return h.messenger.SendText(ctx, h.chatID, text)
}

const helpText = `/list - elenca gli oggetti tracciati
/track - traccia un nuovo oggetto
/remove - rimuovi un oggetto
/remove_expired - rimuovi gli oggetti scaduti
/printurls - elenca gli URL degli oggetti tracciati`

const noItemsText = "Non ci sono oggetti Ebay tracciati"

func (h *ChatHandler) list(ctx context.Context) error {
	items, err := h.tracker.List(ctx)
	if err != nil {
		if replyErr := h.reply(ctx, "Impossibile leggere gli oggetti tracciati"); replyErr != nil {
			slog.ErrorContext(ctx, "failed to reply", "err", replyErr)
		}
		return err
	}
	if len(items) == 0 {
		return h.reply(ctx, noItemsText)
	}

	now := h.tracker.Now()
	for i, item := range items {
		if err := h.reply(ctx, FormatItem(item, fmt.Sprintf("%d) ", i+1), now)); err != nil {
			return err
		}
	}
	return nil
}

// trackAll はメッセージの各行をURLとして追跡します
func (h *ChatHandler) trackAll(ctx context.Context, text string) error {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := h.reply(ctx, h.track(ctx, line)); err != nil {
			return err
		}
	}
	return nil
}

func (h *ChatHandler) track(ctx context.Context, rawURL string) string {
	_, err := h.tracker.Track(ctx, rawURL)
	switch {
	case err == nil:
		return "Oggetto tracciato correttamente"
	case errors.Is(err, model.ErrInvalidURL):
		return "URL non valido"
	case errors.Is(err, model.ErrAlreadyTracked):
		return "L'oggetto era già tracciato!"
	case errors.Is(err, model.ErrLayoutMismatch):
		slog.WarnContext(ctx, "unrecognized page layout", "url", rawURL, "err", err)
		return "Impossibile leggere i dati dalla pagina Ebay"
	case errors.Is(err, model.ErrNoEndDate):
		return "L'oggetto non ha una data di scadenza e non può essere tracciato"
	default:
		slog.ErrorContext(ctx, "failed to track item", "url", rawURL, "err", err)
		return "Impossibile tracciare l'oggetto"
	}
}

func (h *ChatHandler) removeMenu(ctx context.Context) error {
	items, err := h.tracker.List(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return h.reply(ctx, noItemsText)
	}
	return h.messenger.SendButtons(ctx, h.chatID, "Quali oggetti vuoi rimuovere?", RemoveButtons(items, buttonsPerRow))
}

func (h *ChatHandler) removeExpired(ctx context.Context) error {
	n, err := h.tracker.RemoveExpired(ctx)
	switch {
	case errors.Is(err, model.ErrUnsupported):
		return h.reply(ctx, "Comando non disponibile con questo archivio")
	case err != nil:
		if replyErr := h.reply(ctx, "Impossibile eliminare gli oggetti scaduti"); replyErr != nil {
			slog.ErrorContext(ctx, "failed to reply", "err", replyErr)
		}
		return err
	case n == 0:
		return h.reply(ctx, "Nessun oggetto eliminato")
	default:
		return h.reply(ctx, fmt.Sprintf("%d oggetti eliminati", n))
	}
}

func (h *ChatHandler) printURLs(ctx context.Context) error {
	items, err := h.tracker.List(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return h.reply(ctx, noItemsText)
	}

	var b strings.Builder
	for i, item := range items {
		fmt.Fprintf(&b, "%d) %s\n", i+1, escapeMarkdown(item.URL))
	}
	return h.reply(ctx, strings.TrimRight(b.String(), "\n"))
}

// ChatNotifier は巡回の通知を設定された会話に送ります
type ChatNotifier struct {
	messenger repository.Messenger
	chatID    int64
	now       func() time.Time
}

// NewChatNotifier は新しいChatNotifierインスタンスを作成します
func NewChatNotifier(messenger repository.Messenger, chatID int64, now func() time.Time) *ChatNotifier {
	return &ChatNotifier{messenger: messenger, chatID: chatID, now: now}
}

func (n *ChatNotifier) NotifyItem(ctx context.Context, item *model.TrackedItem, prefix string) error {
	return n.messenger.SendText(ctx, n.chatID, FormatItem(item, prefix, n.now()))
}
