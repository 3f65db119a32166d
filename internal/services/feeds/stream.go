package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"MarketPulse/internal/domain/models"
	drepo "MarketPulse/internal/domain/repository"

	"github.com/gorilla/websocket"
)

// StreamName is the source label push-fed observations carry.
const StreamName = "stream"

// StreamFeed implements a FeedStream backed by a push/streaming WebSocket feed.
type StreamFeed struct {
	websocketURL   string
	symbols        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	mu        sync.Mutex // guards conn and connected
	conn      *websocket.Conn
	connected bool
}

// NewStreamFeed creates a new streaming feed adapter.
func NewStreamFeed(websocketURL string, symbols []string, reconnectDelay, pingInterval time.Duration) drepo.FeedStream {
	return &StreamFeed{
		websocketURL:   websocketURL,
		symbols:        symbols,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

func (s *StreamFeed) Name() string { return StreamName }

// Connect establishes the WebSocket connection.
func (s *StreamFeed) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.websocketURL, nil)
	if err != nil {
		return fmt.Errorf("stream connect: %w", err)
	}
	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.mu.Unlock()
	return nil
}

// current returns the connection the read and ping loops should use,
// or nil once Close has torn it down.
func (s *StreamFeed) current() *websocket.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return nil
	}
	return s.conn
}

// Subscribe subscribes to configured symbols.
func (s *StreamFeed) Subscribe(ctx context.Context) error {
	conn := s.current()
	if conn == nil {
		return fmt.Errorf("stream not connected")
	}
	for _, sym := range s.symbols {
		msg := map[string]string{"type": "subscribe", "symbol": sym}
		if err := conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", sym, err)
		}
	}
	return nil
}

type wsTick struct {
	Symbol     string   `json:"s"`
	Price      float64  `json:"p"`
	Timestamp  int64    `json:"t"` // ms
	Change24h  *float64 `json:"c24,omitempty"`
	Volume24h  *float64 `json:"v24,omitempty"`
	MarketCap  *float64 `json:"mc,omitempty"`
	Volatility *float64 `json:"vol,omitempty"`
	Stale      bool     `json:"stale,omitempty"`
}

type wsMessage struct {
	Type string   `json:"type"`
	Data []wsTick `json:"data"`
}

// Read streams observations and errors.
func (s *StreamFeed) Read(ctx context.Context) (<-chan *models.PriceObservation, <-chan error) {
	observations := make(chan *models.PriceObservation, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if conn := s.current(); conn != nil {
					_ = conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(observations)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				conn := s.current()
				if conn == nil {
					errs <- fmt.Errorf("stream conn nil")
					return
				}
				_, b, err := conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("stream read: %w", err)
					return
				}
				var m wsMessage
				if err := json.Unmarshal(b, &m); err != nil {
					// ignore non-tick frames
					continue
				}
				if m.Type != "tick" {
					continue
				}
				for _, d := range m.Data {
					obs := &models.PriceObservation{
						Source:     StreamName,
						Symbol:     d.Symbol,
						Price:      d.Price,
						Timestamp:  time.UnixMilli(d.Timestamp),
						Change24h:  d.Change24h,
						Volume24h:  d.Volume24h,
						MarketCap:  d.MarketCap,
						Volatility: d.Volatility,
						Stale:      d.Stale,
					}
					select {
					case observations <- obs:
					default:
						// drop on backpressure
					}
				}
			}
		}
	}()

	return observations, errs
}

// Reconnect closes and reconnects.
func (s *StreamFeed) Reconnect(ctx context.Context) error {
	_ = s.Close()
	time.Sleep(s.reconnectDelay)
	if err := s.Connect(ctx); err != nil {
		return err
	}
	return s.Subscribe(ctx)
}

// Close closes the WebSocket connection.
func (s *StreamFeed) Close() error {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.connected = false
	s.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

// IsConnected returns true while the connection is up.
func (s *StreamFeed) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}
