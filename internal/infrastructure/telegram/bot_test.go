package telegram

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"
	"jo3qma.com/ebay_tracking/internal/domain/model"
)

type fakeAPI struct {
	sent     []tgbotapi.MessageConfig
	requests []tgbotapi.Chattable
	failMD   bool
	updates  chan tgbotapi.Update
	stopped  bool
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	msg := c.(tgbotapi.MessageConfig)
	f.sent = append(f.sent, msg)
	if f.failMD && msg.ParseMode != "" {
		return tgbotapi.Message{}, errors.New("Bad Request: can't parse entities")
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() { f.stopped = true }

type recordingHandler struct {
	messages  []model.IncomingMessage
	callbacks []model.CallbackQuery
}

func (r *recordingHandler) HandleMessage(ctx context.Context, msg model.IncomingMessage) {
	r.messages = append(r.messages, msg)
}

func (r *recordingHandler) HandleCallback(ctx context.Context, q model.CallbackQuery) {
	r.callbacks = append(r.callbacks, q)
}

func TestBot_SendText_usesMarkdown(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{}
	b := &Bot{api: api}

	require.NoError(t, b.SendText(context.Background(), 42, "*hi*"))
	require.Len(t, api.sent, 1)
	require.Equal(t, int64(42), api.sent[0].ChatID)
	require.Equal(t, tgbotapi.ModeMarkdown, api.sent[0].ParseMode)
}

func TestBot_SendText_fallsBackToPlainText(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{failMD: true}
	b := &Bot{api: api}

	text := "1) Lego \\*raro\\*\n\nPrezzo: *12.50*\nURL: https://www.ebay.it/itm/123\\_4"
	require.NoError(t, b.SendText(context.Background(), 42, text))
	require.Len(t, api.sent, 2)
	require.Equal(t, text, api.sent[0].Text)
	require.Empty(t, api.sent[1].ParseMode)
	require.Equal(t, "1) Lego *raro*\n\nPrezzo: 12.50\nURL: https://www.ebay.it/itm/123_4", api.sent[1].Text)
}

func TestStripMarkdown(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"*bold* _it_ `code`":    "bold it code",
		`a\_b \*c\* \[d] \`+"`": "a_b *c* [d] `",
		`C:\path\n`:             `C:\path\n`,
		`trailing\`:             `trailing\`,
		"":                      "",
	}
	for in, want := range cases {
		require.Equal(t, want, stripMarkdown(in), in)
	}
}

func TestBot_SendButtons(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{}
	b := &Bot{api: api}

	rows := [][]model.Button{{{Text: "1", Data: "h1"}, {Text: "2", Data: "h2"}}, {{Text: "3", Data: "h3"}}}
	require.NoError(t, b.SendButtons(context.Background(), 42, "pick", rows))

	markup, ok := api.sent[0].ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, markup.InlineKeyboard, 2)
	require.Equal(t, "2", markup.InlineKeyboard[0][1].Text)
	require.Equal(t, "h3", *markup.InlineKeyboard[1][0].CallbackData)
}

func TestBot_AnswerCallback(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{}
	b := &Bot{api: api}

	require.NoError(t, b.AnswerCallback(context.Background(), "q1", "ok"))
	require.Equal(t, tgbotapi.NewCallback("q1", "ok"), api.requests[0])
}

func TestBot_Listen_dispatchesUpdates(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{updates: make(chan tgbotapi.Update, 3)}
	api.updates <- tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 1}, Text: "/list"}}
	api.updates <- tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "q1",
		From:    &tgbotapi.User{ID: 2},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 1}},
		Data:    "hash",
	}}
	api.updates <- tgbotapi.Update{}
	close(api.updates)

	h := &recordingHandler{}
	b := &Bot{api: api}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, b.Listen(ctx, h))

	require.Equal(t, []model.IncomingMessage{{ChatID: 1, Text: "/list"}}, h.messages)
	require.Equal(t, []model.CallbackQuery{{ID: "q1", ChatID: 1, FromID: 2, Data: "hash"}}, h.callbacks)
	require.True(t, api.stopped)
}

func TestBot_Listen_stopsOnCancel(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{updates: make(chan tgbotapi.Update)}
	b := &Bot{api: api}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, b.Listen(ctx, &recordingHandler{}), context.Canceled)
}
