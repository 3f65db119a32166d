package feeds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// newTickServer upgrades the connection, waits for one subscribe message and
// then pushes a single tick frame.
func newTickServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var sub map[string]string
		if err := conn.ReadJSON(&sub); err != nil {
			return
		}
		tick := `{"type":"tick","data":[{"s":"BTC","p":100.5,"t":1700000000000}]}`
		if err := conn.WriteMessage(websocket.TextMessage, []byte(tick)); err != nil {
			return
		}
		// keep the connection open until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestStreamReadDeliversTicks(t *testing.T) {
	srv := newTickServer(t)
	defer srv.Close()

	s := NewStreamFeed(wsURL(srv), []string{"BTC"}, time.Millisecond, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer s.Close()
	if err := s.Subscribe(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	obsCh, errCh := s.Read(ctx)
	select {
	case obs := <-obsCh:
		if obs == nil {
			t.Fatalf("nil observation")
		}
		if obs.Symbol != "BTC" || obs.Price != 100.5 {
			t.Fatalf("observation = %s/%v, want BTC/100.5", obs.Symbol, obs.Price)
		}
		if obs.Source != StreamName {
			t.Fatalf("source = %q, want %q", obs.Source, StreamName)
		}
		if !obs.Timestamp.Equal(time.UnixMilli(1700000000000)) {
			t.Fatalf("timestamp = %v", obs.Timestamp)
		}
	case err := <-errCh:
		t.Fatalf("unexpected stream error: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatalf("tick never delivered")
	}
}

func TestStreamCloseConcurrentWithReaders(t *testing.T) {
	srv := newTickServer(t)
	defer srv.Close()

	s := NewStreamFeed(wsURL(srv), []string{"BTC"}, time.Millisecond, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := s.Subscribe(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	// read and ping loops start using the connection
	_, errCh := s.Read(ctx)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = s.IsConnected()
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		time.Sleep(5 * time.Millisecond)
		_ = s.Close()
	}()
	wg.Wait()

	if s.IsConnected() {
		t.Fatalf("still connected after Close")
	}

	// the read loop must notice the teardown and exit instead of spinning
	select {
	case <-errCh:
	case <-time.After(2 * time.Second):
		t.Fatalf("read loop never surfaced the closed connection")
	}
}
