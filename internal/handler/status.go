package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"jo3qma.com/ebay_tracking/internal/usecase"
)

const (
	// TrackerServiceName はステータスAPIのサービス名です
	TrackerServiceName = "ebaytracking.v1.TrackerService"
	// ListItemsProcedure は追跡中の商品一覧を返すRPCのパスです
	ListItemsProcedure = "/" + TrackerServiceName + "/ListItems"
	// RunCheckProcedure は巡回を1回実行するRPCのパスです
	RunCheckProcedure = "/" + TrackerServiceName + "/RunCheck"
)

// jsonCodec はConnectのメッセージをプレーンなGoの構造体としてJSONで送受信します
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// WithJSONCodec はステータスAPIのクライアントに渡すオプションです
func WithJSONCodec() connect.Option {
	return connect.WithCodec(jsonCodec{})
}

type ListItemsRequest struct{}

type ItemView struct {
	Hash         string     `json:"hash"`
	URL          string     `json:"url"`
	Title        string     `json:"title"`
	CurrentPrice string     `json:"current_price"`
	ShippingCost string     `json:"shipping_cost"`
	NumBids      *int       `json:"num_bids,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`
	Expired      bool       `json:"expired"`
	Notes        string     `json:"notes,omitempty"`
	LastCrawled  time.Time  `json:"last_crawled"`
}

type ListItemsResponse struct {
	Items []ItemView `json:"items"`
}

type RunCheckRequest struct{}

type RunCheckResponse struct {
	Checked  int `json:"checked"`
	Crawled  int `json:"crawled"`
	Notified int `json:"notified"`
	Failed   int `json:"failed"`
}

// Checker は巡回を1回実行します
type Checker interface {
	Reconcile(ctx context.Context) (usecase.ReconcileResult, error)
}

// StatusHandler はステータスAPIのハンドラー実装です
// ドメインモデルをJSONのレスポンスに変換します
type StatusHandler struct {
	tracker TrackerService
	checker Checker
}

// NewStatusHandler は新しいStatusHandlerインスタンスを作成します
func NewStatusHandler(tracker TrackerService, checker Checker) *StatusHandler {
	return &StatusHandler{
		tracker: tracker,
		checker: checker,
	}
}

// ListItems は追跡中の商品を返すRPCハンドラーです
func (h *StatusHandler) ListItems(
	ctx context.Context,
	req *connect.Request[ListItemsRequest],
) (*connect.Response[ListItemsResponse], error) {
	items, err := h.tracker.List(ctx)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	now := h.tracker.Now()
	resp := &ListItemsResponse{Items: make([]ItemView, 0, len(items))}
	for _, item := range items {
		resp.Items = append(resp.Items, ItemView{
			Hash:         item.Hash(),
			URL:          item.URL,
			Title:        item.Title,
			CurrentPrice: item.CurrentPrice.StringFixed(2),
			ShippingCost: item.ShippingCost.StringFixed(2),
			NumBids:      item.NumBids,
			EndDate:      item.EndDate,
			Expired:      item.Expired(now),
			Notes:        item.Notes,
			LastCrawled:  item.LastCrawled,
		})
	}

	return connect.NewResponse(resp), nil
}

// RunCheck は巡回を即時に1回実行するRPCハンドラーです
func (h *StatusHandler) RunCheck(
	ctx context.Context,
	req *connect.Request[RunCheckRequest],
) (*connect.Response[RunCheckResponse], error) {
	res, err := h.checker.Reconcile(ctx)
	if err != nil {
		return nil, connect.NewError(connect.CodeUnavailable, err)
	}
	return connect.NewResponse(&RunCheckResponse{
		Checked:  res.Checked,
		Crawled:  res.Crawled,
		Notified: res.Notified,
		Failed:   res.Failed,
	}), nil
}

// NewTrackerServiceHandler はステータスAPIをマウントするパスとハンドラーを返します
func NewTrackerServiceHandler(h *StatusHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(ListItemsProcedure, connect.NewUnaryHandler(ListItemsProcedure, h.ListItems, opts...))
	mux.Handle(RunCheckProcedure, connect.NewUnaryHandler(RunCheckProcedure, h.RunCheck, opts...))
	return "/" + TrackerServiceName + "/", mux
}
