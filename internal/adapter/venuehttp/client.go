package venuehttp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"coreruntime/internal/cache"
	"coreruntime/internal/core"
	"coreruntime/internal/pagination"
)

// Config describes one venue REST endpoint set.
type Config struct {
	BaseURL        string
	RegularBarPath string // e.g. "/market/candles"
	HistoryBarPath string // e.g. "/market/history-candles"
	OrdersPath     string // e.g. "/trade/order"
	Timeout        time.Duration
}

func (c Config) withDefaults() Config {
	if c.RegularBarPath == "" {
		c.RegularBarPath = "/market/candles"
	}
	if c.HistoryBarPath == "" {
		c.HistoryBarPath = "/market/history-candles"
	}
	if c.OrdersPath == "" {
		c.OrdersPath = "/trade/order"
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	return c
}

// Client is a venue-neutral REST client: rate-limited, HMAC-authenticated
// where required, and exercised by the pagination core through its
// PageFetcher adapters.
type Client struct {
	http   *resty.Client
	cfg    Config
	signer *HMACSigner
	rl     *RateLimiter
	logger *slog.Logger
}

// NewClient constructs a Client against cfg.BaseURL.
func NewClient(cfg Config, signer *HMACSigner, logger *slog.Logger) *Client {
	cfg = cfg.withDefaults()
	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})
	return &Client{http: http, cfg: cfg, signer: signer, rl: NewRateLimiter(), logger: logger}
}

// candleRow is the [ts, open, high, low, close, volume, ...] tuple most
// venue candle endpoints return.
type candleRow []string

func (r candleRow) toBar(barType core.BarType) (cache.Bar, error) {
	if len(r) < 6 {
		return cache.Bar{}, fmt.Errorf("candle row has %d fields, want >= 6: %w", len(r), core.ErrTransport)
	}
	tsMs, err := strconv.ParseInt(r[0], 10, 64)
	if err != nil {
		return cache.Bar{}, fmt.Errorf("parse candle ts: %w", err)
	}
	parse := func(s string) (core.Price, error) {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return core.Price{}, fmt.Errorf("parse candle field %q: %w", s, err)
		}
		return core.NewPrice(v, 8), nil
	}
	open, err := parse(r[1])
	if err != nil {
		return cache.Bar{}, err
	}
	high, err := parse(r[2])
	if err != nil {
		return cache.Bar{}, err
	}
	low, err := parse(r[3])
	if err != nil {
		return cache.Bar{}, err
	}
	closePx, err := parse(r[4])
	if err != nil {
		return cache.Bar{}, err
	}
	vol, err := strconv.ParseFloat(r[5], 64)
	if err != nil {
		return cache.Bar{}, fmt.Errorf("parse candle volume: %w", err)
	}
	return cache.Bar{
		BarType: barType,
		Open:    open,
		High:    high,
		Low:     low,
		Close:   closePx,
		Volume:  core.NewQuantity(vol, 8),
		TsEvent: core.UnixNanos(tsMs * int64(time.Millisecond)),
	}, nil
}

// BarFetcher implements pagination.PageFetcher[cache.Bar] against one
// client, instrument, and bar type.
type BarFetcher struct {
	client  *Client
	instID  core.InstrumentID
	barSpec string
}

// NewBarFetcher builds a PageFetcher for RequestBars to drive.
func (c *Client) NewBarFetcher(instID core.InstrumentID, barSpec string) *BarFetcher {
	return &BarFetcher{client: c, instID: instID, barSpec: barSpec}
}

// FetchPage implements pagination.PageFetcher.
func (f *BarFetcher) FetchPage(ctx context.Context, endpoint pagination.Endpoint, cursor pagination.Cursor, limit int) ([]cache.Bar, error) {
	if err := f.client.rl.General.Wait(ctx); err != nil {
		return nil, err
	}
	path := f.client.cfgRegularBarPath(endpoint)

	params := map[string]string{
		"instId": string(f.instID),
		"bar":    f.barSpec,
		"limit":  strconv.Itoa(limit),
	}
	if cursor.After != nil {
		params["after"] = strconv.FormatInt(int64(*cursor.After)/int64(time.Millisecond), 10)
	}
	if cursor.Before != nil {
		params["before"] = strconv.FormatInt(int64(*cursor.Before)/int64(time.Millisecond), 10)
	}

	var rows []candleRow
	resp, err := f.client.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&rows).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("fetch bars page: %w: %w", err, core.ErrTransport)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("fetch bars page: status %d: %w", resp.StatusCode(), core.ErrTransport)
	}

	bars := make([]cache.Bar, 0, len(rows))
	for _, row := range rows {
		bar, err := row.toBar(core.BarType(f.instID) + core.BarType("-"+f.barSpec))
		if err != nil {
			return nil, err
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func (c *Client) cfgRegularBarPath(endpoint pagination.Endpoint) string {
	if endpoint == pagination.EndpointHistory {
		return c.historyBarPath()
	}
	return c.regularBarPath()
}

func (c *Client) regularBarPath() string { return c.cfg.RegularBarPath }
func (c *Client) historyBarPath() string { return c.cfg.HistoryBarPath }

// OrderRequest is a send-order command for any of the batch/single variants.
type OrderRequest struct {
	InstrumentID core.InstrumentID
	Side         core.OrderSide
	Price        float64
	Quantity     float64
	ClientOrderID core.ClientOrderID
}

// OrderAck is the venue's synchronous acknowledgement of a submitted order
// operation; Code "0" is success per the OKX-style wire contract.
type OrderAck struct {
	VenueOrderID core.VenueOrderID
	Code         string
	Msg          string
}

func (a OrderAck) Success() bool { return a.Code == "0" }

// SendOrder submits one order.
func (c *Client) SendOrder(ctx context.Context, req OrderRequest) (OrderAck, error) {
	if err := c.rl.Order.Wait(ctx); err != nil {
		return OrderAck{}, err
	}
	return c.doOrderOp(ctx, http.MethodPost, c.cfg.OrdersPath, req)
}

// CancelOrder cancels one order by venue order id.
func (c *Client) CancelOrder(ctx context.Context, venueOrderID core.VenueOrderID) (OrderAck, error) {
	if err := c.rl.Cancel.Wait(ctx); err != nil {
		return OrderAck{}, err
	}
	return c.doOrderOp(ctx, http.MethodDelete, c.cfg.OrdersPath, map[string]string{"ordId": string(venueOrderID)})
}

// AmendOrder modifies price/quantity of an existing order.
func (c *Client) AmendOrder(ctx context.Context, venueOrderID core.VenueOrderID, price, quantity float64) (OrderAck, error) {
	if err := c.rl.Amend.Wait(ctx); err != nil {
		return OrderAck{}, err
	}
	return c.doOrderOp(ctx, http.MethodPost, c.cfg.OrdersPath+"/amend", map[string]any{
		"ordId": string(venueOrderID), "px": price, "sz": quantity,
	})
}

func (c *Client) doOrderOp(ctx context.Context, method, path string, body any) (OrderAck, error) {
	if c.signer == nil || !c.signer.HasCredentials() {
		return OrderAck{}, fmt.Errorf("order operation requires credentials: %w", core.ErrAuthenticationFailure)
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return OrderAck{}, fmt.Errorf("order op: encode body: %w", err)
	}
	headers, err := c.signer.Sign(method, path, string(payload))
	if err != nil {
		return OrderAck{}, err
	}
	var ack OrderAck
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		SetResult(&ack).
		Execute(method, path)
	if err != nil {
		return OrderAck{}, fmt.Errorf("order op: %w: %w", err, core.ErrTransport)
	}
	if resp.StatusCode() != http.StatusOK {
		return OrderAck{}, fmt.Errorf("order op: status %d: %w", resp.StatusCode(), core.ErrTransport)
	}
	return ack, nil
}
