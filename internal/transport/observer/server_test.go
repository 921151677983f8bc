package observer

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"tilestream.ai/internal/protocol"
	"tilestream.ai/internal/sim/world"
)

func startServer(t *testing.T) (*world.World, *httptest.Server) {
	t.Helper()
	w, err := world.New(world.WorldConfig{Seed: 42, TickRateHz: 50}, nil)
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = w.Run(ctx) }()

	srv := NewServer(w, log.New(io.Discard, "", 0), Options{})
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/bootstrap", srv.BootstrapHandler())
	mux.HandleFunc("/v1/ws", srv.WSHandler())
	hs := httptest.NewServer(mux)
	t.Cleanup(func() {
		hs.Close()
		cancel()
	})
	return w, hs
}

func dial(t *testing.T, hs *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(hs.URL, "http") + "/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestBootstrap(t *testing.T) {
	_, hs := startServer(t)
	resp, err := http.Get(hs.URL + "/v1/bootstrap")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var boot protocol.BootstrapResponse
	if err := json.NewDecoder(resp.Body).Decode(&boot); err != nil {
		t.Fatalf("decode: %v", err)
	}
	p := boot.WorldParams
	if p.Seed != 42 || p.ChunkSize != [2]int{64, 64} || p.TileSize != [2]int{50, 50} || p.RenderDistance != 2 {
		t.Fatalf("unexpected params: %+v", p)
	}
	if len(boot.Kinds) != 5 {
		t.Fatalf("kinds=%v", boot.Kinds)
	}

	post, err := http.Post(hs.URL+"/v1/bootstrap", "application/json", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	post.Body.Close()
	if post.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d want 405", post.StatusCode)
	}
}

func TestSubscribeMoveAndReceivePlacements(t *testing.T) {
	_, hs := startServer(t)
	conn := dial(t, hs)

	send := func(v any) {
		t.Helper()
		if err := conn.WriteJSON(v); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	send(protocol.SubscribeMsg{Type: protocol.TypeSubscribe, ProtocolVersion: protocol.Version})
	send(protocol.PositionMsg{Type: protocol.TypePosition, ProtocolVersion: protocol.Version, X: 25, Y: 25})

	chunks := map[[2]int]bool{}
	sawTick := false
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for len(chunks) < 16 || !sawTick {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read (chunks=%d tick=%v): %v", len(chunks), sawTick, err)
		}
		base, _ := protocol.DecodeBase(raw)
		switch base.Type {
		case protocol.TypePlacements:
			if err := protocol.Validate(raw); err != nil {
				t.Fatalf("placements schema: %v", err)
			}
			var msg protocol.PlacementsMsg
			_ = json.Unmarshal(raw, &msg)
			if chunks[msg.Chunk] {
				t.Fatalf("chunk %v streamed twice", msg.Chunk)
			}
			chunks[msg.Chunk] = true
		case protocol.TypeTick:
			var msg protocol.TickMsg
			_ = json.Unmarshal(raw, &msg)
			if msg.Observer != nil && msg.Chunks == 16 {
				sawTick = true
			}
		}
	}
	for k := range chunks {
		if k[0] < -2 || k[0] > 1 || k[1] < -2 || k[1] > 1 {
			t.Fatalf("unexpected chunk %v", k)
		}
	}
}

func TestInvalidMessagesGetErrors(t *testing.T) {
	_, hs := startServer(t)
	conn := dial(t, hs)
	_ = conn.WriteJSON(protocol.SubscribeMsg{Type: protocol.TypeSubscribe, ProtocolVersion: protocol.Version})
	_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"POSITION","protocol_version":"1.0","x":"east"}`))

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		base, _ := protocol.DecodeBase(raw)
		if base.Type != protocol.TypeError {
			continue
		}
		var msg protocol.ErrorMsg
		_ = json.Unmarshal(raw, &msg)
		if msg.Code != protocol.ErrProtoBadRequest {
			t.Fatalf("code=%s", msg.Code)
		}
		return
	}
}

func TestHandshakeRequiresSubscribe(t *testing.T) {
	_, hs := startServer(t)
	conn := dial(t, hs)
	_ = conn.WriteJSON(protocol.PositionMsg{Type: protocol.TypePosition, ProtocolVersion: protocol.Version})
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("expected policy violation close, got %v", err)
	}
}

func TestIsLoopbackRemote(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:1234": true,
		"[::1]:80":       true,
		"10.0.0.2:5555":  false,
		"garbage":        false,
	}
	for addr, want := range cases {
		if got := isLoopbackRemote(addr); got != want {
			t.Fatalf("isLoopbackRemote(%q)=%v want %v", addr, got, want)
		}
	}
}
