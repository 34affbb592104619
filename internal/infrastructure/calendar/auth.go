package calendar

import (
	"bufio"
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/natefinch/atomic"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// AuthOptions はカレンダーAPIの認証情報の場所と、対話的な認可に使う入出力です
type AuthOptions struct {
	CredentialsFile string
	TokenFile       string
	In              io.Reader
	Out             io.Writer
}

// LoadOAuthConfig はGoogle Cloud Consoleからダウンロードしたクライアント情報を読み込みます
func LoadOAuthConfig(credentialsFile string) (*oauth2.Config, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	cfg, err := google.ConfigFromJSON(b, gcal.CalendarEventsScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	return cfg, nil
}

// NewService は保存済みのトークンでカレンダーのクライアントを作成します
// トークンがない、または更新できない場合は対話的な認可フローに切り替えます
func NewService(ctx context.Context, opts AuthOptions) (*gcal.Service, error) {
	cfg, err := LoadOAuthConfig(opts.CredentialsFile)
	if err != nil {
		return nil, err
	}

	tok, err := loadToken(opts.TokenFile)
	if err == nil {
		if _, err = cfg.TokenSource(ctx, tok).Token(); err != nil {
			slog.WarnContext(ctx, "stored calendar token is not usable", "err", err)
		}
	}
	if err != nil {
		tok, err = Authorize(ctx, cfg, opts)
		if err != nil {
			return nil, err
		}
	}

	ts := newPersistingTokenSource(cfg.TokenSource(ctx, tok), opts.TokenFile, tok)
	srv, err := gcal.NewService(ctx, option.WithHTTPClient(oauth2.NewClient(ctx, ts)))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return srv, nil
}

// Authorize はブラウザでの同意URLを表示し、貼り付けられた認可コードをトークンに交換して保存します
func Authorize(ctx context.Context, cfg *oauth2.Config, opts AuthOptions) (*oauth2.Token, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	state := hex.EncodeToString(nonce)

	authURL := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	fmt.Fprintf(opts.Out, "Open this link in your browser and authorize access to the calendar:\n\n%s\n\nThen paste the authorization code: ", authURL)

	scanner := bufio.NewScanner(opts.In)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read authorization code: %w", err)
		}
		return nil, errors.New("no authorization code provided")
	}
	code := strings.TrimSpace(scanner.Text())
	if code == "" {
		return nil, errors.New("no authorization code provided")
	}

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	if err := saveToken(opts.TokenFile, tok); err != nil {
		return nil, err
	}
	return tok, nil
}

func loadToken(path string) (*oauth2.Token, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(b, &tok); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, errors.New("token file has no credentials")
	}
	return &tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	b, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return err
	}
	if err := atomic.WriteFile(path, bytes.NewReader(b)); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

// persistingTokenSource は更新されたトークンをファイルに書き戻す TokenSource です
type persistingTokenSource struct {
	base oauth2.TokenSource
	path string

	mu   sync.Mutex
	last string
}

func newPersistingTokenSource(base oauth2.TokenSource, path string, initial *oauth2.Token) *persistingTokenSource {
	p := &persistingTokenSource{base: base, path: path}
	if initial != nil {
		p.last = initial.AccessToken
	}
	return p
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if tok.AccessToken != p.last {
		if err := saveToken(p.path, tok); err != nil {
			slog.Warn("failed to persist refreshed calendar token", "err", err)
		} else {
			p.last = tok.AccessToken
		}
	}
	return tok, nil
}
