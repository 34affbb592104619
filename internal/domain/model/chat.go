package model

// IncomingMessage はチャットから受信したテキストメッセージです
type IncomingMessage struct {
	ChatID int64
	Text   string
}

// CallbackQuery はインラインボタンが押されたときのイベントです
type CallbackQuery struct {
	ID     string
	ChatID int64
	FromID int64
	Data   string
}

// Button はインラインキーボードのボタンです。Data はコールバックのペイロードになります
type Button struct {
	Text string
	Data string
}
