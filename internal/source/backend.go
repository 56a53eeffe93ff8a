package source

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/moznion/go-optional"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"BotHerald/internal/model"
)

// BackendClient implements Source against the hummingbot backend REST API.
type BackendClient struct {
	BaseURL string
	Client  *http.Client
	Now     func() time.Time
	Log     *zap.Logger
}

// NewBackendClient creates a client with optional proxy support.
func NewBackendClient(baseURL string, timeout time.Duration, proxyURL string) *BackendClient {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &BackendClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		Now: time.Now,
		Log: zap.NewNop(),
	}
}

func (c *BackendClient) Name() string { return "hummingbot-backend" }

// ListActiveEntities returns the running bot names, sorted.
func (c *BackendClient) ListActiveEntities(ctx context.Context) ([]string, error) {
	var resp activeBotsResponse
	if err := c.getJSON(ctx, "get-active-bots-status", &resp); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(resp.Data))
	for name := range resp.Data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// ActiveBots returns the running bots with their controllers' PNL.
func (c *BackendClient) ActiveBots(ctx context.Context) ([]model.Bot, error) {
	var resp activeBotsResponse
	if err := c.getJSON(ctx, "get-active-bots-status", &resp); err != nil {
		return nil, err
	}
	return toBots(resp), nil
}

// Trades returns the bot's trade history in the order the backend reports it.
// Trades that fail to decode are logged and skipped.
func (c *BackendClient) Trades(ctx context.Context, entity string) ([]model.TradeEvent, error) {
	raw, err := c.trades(ctx, entity)
	if err != nil {
		return nil, err
	}
	events := make([]model.TradeEvent, 0, len(raw))
	for _, w := range raw {
		ev, err := toTradeEvent(w)
		if err != nil {
			c.Log.Warn("skipping malformed trade",
				zap.String("entity", entity),
				zap.String("trade_id", w.TradeID),
				zap.Error(err))
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// LatestEvent returns the last trade in the bot's history.
func (c *BackendClient) LatestEvent(ctx context.Context, entity string) (optional.Option[model.TradeEvent], error) {
	raw, err := c.trades(ctx, entity)
	if err != nil {
		return optional.None[model.TradeEvent](), err
	}
	if len(raw) == 0 {
		return optional.None[model.TradeEvent](), nil
	}
	last := raw[len(raw)-1]
	ev, err := toTradeEvent(last)
	if err != nil {
		return optional.None[model.TradeEvent](), errors.Wrapf(err, "trade %s of %s", last.TradeID, entity)
	}
	return optional.Some(ev), nil
}

// CurrentSnapshot fetches the accounts state and stamps it with the current time.
func (c *BackendClient) CurrentSnapshot(ctx context.Context) (model.Snapshot, error) {
	var state accountsState
	if err := c.getJSON(ctx, "accounts-state", &state); err != nil {
		return model.Snapshot{}, err
	}
	return toSnapshot(state, uint64(c.Now().Unix())), nil
}

func (c *BackendClient) trades(ctx context.Context, entity string) ([]wireTrade, error) {
	var resp tradesResponse
	if err := c.getJSON(ctx, "get-bot-history/"+url.PathEscape(entity), &resp); err != nil {
		return nil, err
	}
	return resp.Response.Trades, nil
}

func (c *BackendClient) getJSON(ctx context.Context, path string, out any) error {
	endpoint := c.BaseURL + "/" + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &FetchError{URL: endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return &FetchError{URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &FetchError{URL: endpoint, Status: resp.StatusCode, Body: string(body)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &DecodeError{URL: endpoint, Err: err}
	}
	return nil
}
