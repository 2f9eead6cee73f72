package api

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"presale-dashboard/internal/domain"
)

func TestHubPushesSnapshots(t *testing.T) {
	hub := NewHub(nil)
	feed := make(chan domain.AggregateStats, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx, feed)

	s := NewServer(Options{Refresher: &fakeProvider{}, Hub: hub})
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if resp != nil {
		defer resp.Body.Close()
	}
	defer conn.Close()

	// Give the hub a moment to register the client before broadcasting.
	deadline := time.Now().Add(2 * time.Second)
	for {
		hub.mu.Lock()
		n := len(hub.clients)
		hub.mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	feed <- domain.AggregateStats{TotalSold: 1234, LatestBlock: 77}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got domain.AggregateStats
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.TotalSold != 1234 || got.LatestBlock != 77 {
		t.Fatalf("unexpected snapshot: %+v", got)
	}
}

func TestHubDropsClientOnDisconnect(t *testing.T) {
	hub := NewHub(nil)
	feed := make(chan domain.AggregateStats)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx, feed)

	s := NewServer(Options{Refresher: &fakeProvider{}, Hub: hub})
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for {
		hub.mu.Lock()
		n := len(hub.clients)
		hub.mu.Unlock()
		if n == 0 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("client still registered after close, count=%d", n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
