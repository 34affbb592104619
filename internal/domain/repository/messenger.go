package repository

import (
	"context"

	"jo3qma.com/ebay_tracking/internal/domain/model"
)

// Messenger はチャットへの送信方法を抽象化します
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendButtons(ctx context.Context, chatID int64, text string, rows [][]model.Button) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}
