package feeds

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"MarketPulse/internal/domain/models"
	drepo "MarketPulse/internal/domain/repository"
	xhttp "MarketPulse/pkg/http"
)

// OracleName is the source label oracle-fed observations carry.
const OracleName = "oracle"

// OracleFeed implements a FeedStream over an oracle-style HTTP price endpoint,
// polled on a fixed interval. The poll loop lives inside Read so the adapter
// presents the same streaming contract as a push feed.
type OracleFeed struct {
	baseURL      string
	symbols      []string
	pollInterval time.Duration
	client       *xhttp.Client

	mu        sync.Mutex
	connected bool
}

// NewOracleFeed creates a new oracle polling adapter.
func NewOracleFeed(baseURL string, symbols []string, pollInterval, timeout time.Duration) drepo.FeedStream {
	return &OracleFeed{
		baseURL:      strings.TrimRight(baseURL, "/"),
		symbols:      symbols,
		pollInterval: pollInterval,
		client:       xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

func (o *OracleFeed) Name() string { return OracleName }

// Connect validates the configuration and marks the poller ready. Endpoint
// reachability surfaces on the first poll, not here.
func (o *OracleFeed) Connect(ctx context.Context) error {
	if o.baseURL == "" {
		return fmt.Errorf("oracle base url empty")
	}
	o.mu.Lock()
	o.connected = true
	o.mu.Unlock()
	return nil
}

// Subscribe is a no-op: the poll loop queries all configured symbols.
func (o *OracleFeed) Subscribe(ctx context.Context) error { return nil }

type oraclePrice struct {
	Symbol     string   `json:"symbol"`
	Price      float64  `json:"price"`
	Timestamp  int64    `json:"timestamp"` // unix seconds
	Change24h  *float64 `json:"change_24h,omitempty"`
	Volume24h  *float64 `json:"volume_24h,omitempty"`
	MarketCap  *float64 `json:"market_cap,omitempty"`
	Volatility *float64 `json:"volatility,omitempty"`
	Stale      bool     `json:"stale,omitempty"`
}

// Read polls the oracle endpoint and streams observations.
func (o *OracleFeed) Read(ctx context.Context) (<-chan *models.PriceObservation, <-chan error) {
	observations := make(chan *models.PriceObservation, 256)
	errs := make(chan error, 1)

	go func() {
		defer close(observations)
		defer close(errs)
		ticker := time.NewTicker(o.pollInterval)
		defer ticker.Stop()

		// first poll without waiting a full interval
		o.poll(ctx, observations, errs)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !o.IsConnected() {
					return
				}
				o.poll(ctx, observations, errs)
			}
		}
	}()

	return observations, errs
}

func (o *OracleFeed) poll(ctx context.Context, out chan<- *models.PriceObservation, errs chan<- error) {
	var prices []oraclePrice
	err := o.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         o.baseURL + "/prices",
		QueryParams: map[string][]string{"symbols": {strings.Join(o.symbols, ",")}},
	}, &prices)
	if err != nil {
		select {
		case errs <- fmt.Errorf("oracle poll: %w", err):
		default:
		}
		return
	}

	for _, p := range prices {
		obs := &models.PriceObservation{
			Source:     OracleName,
			Symbol:     p.Symbol,
			Price:      p.Price,
			Timestamp:  time.Unix(p.Timestamp, 0),
			Change24h:  p.Change24h,
			Volume24h:  p.Volume24h,
			MarketCap:  p.MarketCap,
			Volatility: p.Volatility,
			Stale:      p.Stale,
		}
		select {
		case out <- obs:
		default:
			// drop on backpressure
		}
	}
}

// Reconnect re-validates the endpoint.
func (o *OracleFeed) Reconnect(ctx context.Context) error {
	_ = o.Close()
	return o.Connect(ctx)
}

// Close stops future polls.
func (o *OracleFeed) Close() error {
	o.mu.Lock()
	o.connected = false
	o.mu.Unlock()
	return nil
}

// IsConnected reports whether the poll loop should keep running.
func (o *OracleFeed) IsConnected() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.connected
}
