package model

import (
	"errors"
	"fmt"
)

var (
	// ErrLayoutMismatch はページから必須項目を読み取れなかったことを表します
	ErrLayoutMismatch = errors.New("page layout not recognized")
	ErrTitleNotFound  = fmt.Errorf("title not found: %w", ErrLayoutMismatch)
	ErrPriceNotFound  = fmt.Errorf("price not extractable: %w", ErrLayoutMismatch)

	// ErrNoEndDate は終了日時が必須の構成で終了日時がないことを表します
	ErrNoEndDate = errors.New("not trackable: no expiry")

	ErrInvalidURL     = errors.New("invalid url")
	ErrAlreadyTracked = errors.New("already tracked")
	ErrNotFound       = errors.New("item not found")
	ErrUnsupported    = errors.New("operation not supported by store")
)
