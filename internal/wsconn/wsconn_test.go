package wsconn

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
)

// mockWSServer creates a test WebSocket server driven by the handler.
func mockWSServer(t *testing.T, handler func(conn *websocket.Conn)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Logf("websocket accept error: %v", err)
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")

		if handler != nil {
			handler(conn)
		}
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func echoHandler(conn *websocket.Conn) {
	ctx := context.Background()
	for {
		msgType, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		if err := conn.Write(ctx, msgType, data); err != nil {
			return
		}
	}
}

func TestClient_Connect_Success(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		time.Sleep(100 * time.Millisecond)
	})
	defer server.Close()

	cfg := DefaultConfig(wsURL(server))
	cfg.PingInterval = 0

	client := New(cfg)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	if client.State() != StateConnected {
		t.Errorf("expected state %v, got %v", StateConnected, client.State())
	}
}

func TestClient_Connect_Failure(t *testing.T) {
	cfg := DefaultConfig("ws://localhost:59999")
	cfg.PingInterval = 0

	client := New(cfg)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Connect(ctx); err == nil {
		t.Fatal("expected Connect to fail with unreachable URL")
	}

	if client.State() != StateDisconnected {
		t.Errorf("expected state %v, got %v", StateDisconnected, client.State())
	}
}

func TestClient_EchoRoundTrip(t *testing.T) {
	server := mockWSServer(t, echoHandler)
	defer server.Close()

	cfg := DefaultConfig(wsURL(server))
	cfg.PingInterval = 0

	client := New(cfg)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	sent := []byte(`{"token":"WETH","venue_x":"uniswap"}`)
	if err := client.Send(ctx, sent); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	select {
	case got := <-client.Messages():
		if string(got) != string(sent) {
			t.Errorf("expected %s, got %s", sent, got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for echoed message")
	}
}

func TestClient_SendWithoutConnect(t *testing.T) {
	client := New(DefaultConfig("ws://localhost:59999"))
	defer client.Close()

	if err := client.Send(context.Background(), []byte("x")); err == nil {
		t.Error("expected Send to fail before Connect")
	}
}

func TestClient_GracefulClose(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		ctx := context.Background()
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	})
	defer server.Close()

	cfg := DefaultConfig(wsURL(server))
	cfg.PingInterval = 0

	client := New(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if client.State() != StateDisconnected {
		t.Errorf("expected state %v, got %v", StateDisconnected, client.State())
	}

	// Second close is idempotent.
	if err := client.Close(); err != nil {
		t.Errorf("second Close should not error: %v", err)
	}
}

func TestClient_ReconnectAfterDrop(t *testing.T) {
	// The server drops every connection after one message; the client should
	// reconnect and keep delivering.
	server := mockWSServer(t, func(conn *websocket.Conn) {
		ctx := context.Background()
		if err := conn.Write(ctx, websocket.MessageText, []byte("frame")); err != nil {
			return
		}
		conn.Close(websocket.StatusAbnormalClosure, "drop")
	})
	defer server.Close()

	cfg := DefaultConfig(wsURL(server))
	cfg.PingInterval = 0
	cfg.InitialBackoff = 10 * time.Millisecond
	cfg.MaxBackoff = 50 * time.Millisecond

	client := New(cfg)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		select {
		case got := <-client.Messages():
			if string(got) != "frame" {
				t.Errorf("expected frame, got %s", got)
			}
		case <-time.After(3 * time.Second):
			t.Fatalf("timeout waiting for message %d", i+1)
		}
	}
}
