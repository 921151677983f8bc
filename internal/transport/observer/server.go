package observer

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"tilestream.ai/internal/protocol"
	"tilestream.ai/internal/sim/world"
	"tilestream.ai/internal/sim/world/terrain/tiles"
)

type Options struct {
	// AllowRemotePosition accepts POSITION from non-loopback peers. Watching
	// is always allowed.
	AllowRemotePosition bool
}

type Server struct {
	world *world.World
	log   *log.Logger
	opts  Options

	upgrader websocket.Upgrader
}

func NewServer(w *world.World, logger *log.Logger, opts Options) *Server {
	return &Server{
		world: w,
		log:   logger,
		opts:  opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		cfg := s.world.Config()
		resp := protocol.BootstrapResponse{
			ProtocolVersion: protocol.Version,
			Tick:            s.world.CurrentTick(),
			WorldParams: protocol.WorldParams{
				Seed:                cfg.Seed,
				TickRateHz:          cfg.TickRateHz,
				ChunkSize:           [2]int{cfg.ChunkW, cfg.ChunkH},
				TileSize:            [2]int{cfg.TileW, cfg.TileH},
				RenderDistance:      cfg.RenderDistance,
				StartingChunkRadius: cfg.StartingChunkRadius,
				NoiseBackend:        cfg.Noise.Backend,
			},
			Kinds: []string{tiles.KindCorner1, tiles.KindCorner2, tiles.KindCorner3, tiles.KindCorner4, tiles.KindGrass},
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		canMove := s.opts.AllowRemotePosition || isLoopbackRemote(r.RemoteAddr)

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if err := protocol.Validate(msg); err != nil {
			closeWith(conn, websocket.ClosePolicyViolation, "bad subscribe")
			return
		}
		var sub protocol.SubscribeMsg
		if err := json.Unmarshal(msg, &sub); err != nil || sub.Type != protocol.TypeSubscribe {
			closeWith(conn, websocket.ClosePolicyViolation, "expected SUBSCRIBE")
			return
		}
		if sub.ProtocolVersion != protocol.Version {
			closeWith(conn, websocket.ClosePolicyViolation, "bad protocol_version")
			return
		}
		resync := sub.Resync == nil || *sub.Resync

		sid := "O-" + uuid.NewString()
		tickOut := make(chan []byte, 8)
		dataOut := make(chan []byte, 4096)
		ctrlOut := make(chan []byte, 16)

		joinReq := world.ObserverJoinRequest{
			SessionID: sid,
			TickOut:   tickOut,
			DataOut:   dataOut,
			Resync:    resync,
		}
		select {
		case s.world.ObserverJoin() <- joinReq:
		default:
			closeWith(conn, websocket.CloseTryAgainLater, "server busy")
			return
		}
		defer func() {
			select {
			case s.world.ObserverLeave() <- sid:
			default:
				// World loop is stopping; nothing else to do.
			}
		}()
		s.log.Printf("observer %s joined from %s (resync=%v move=%v)", sid, r.RemoteAddr, resync, canMove)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine. The only goroutine that writes to conn.
		writeErr := make(chan error, 1)
		go func() {
			write := func(b []byte) error {
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				return conn.WriteMessage(websocket.TextMessage, b)
			}
			for {
				var (
					b  []byte
					ok bool
				)
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b, ok = <-dataOut:
				case b, ok = <-tickOut:
				case b, ok = <-ctrlOut:
				}
				if !ok {
					writeErr <- nil
					return
				}
				if err := write(b); err != nil {
					writeErr <- err
					return
				}
			}
		}()

		// Reader loop: POSITION updates; SUBSCRIBE re-sends are ignored.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if err := protocol.Validate(msg); err != nil {
				sendError(ctrlOut, protocol.ErrProtoBadRequest, err.Error())
				continue
			}
			base, _ := protocol.DecodeBase(msg)
			if base.ProtocolVersion != protocol.Version {
				sendError(ctrlOut, protocol.ErrProtoVersion, "bad protocol_version")
				continue
			}
			if base.Type != protocol.TypePosition {
				continue
			}
			if !canMove {
				sendError(ctrlOut, protocol.ErrProtoBadRequest, "position not allowed from this peer")
				continue
			}
			var pos protocol.PositionMsg
			if err := json.Unmarshal(msg, &pos); err != nil {
				continue
			}
			select {
			case s.world.Position() <- world.Vec2{X: pos.X, Y: pos.Y}:
			default:
				// Drop updates under load; the client sends the next one.
			}
		}

		cancel()
		closeWith(conn, websocket.CloseNormalClosure, "bye")

		// Best-effort wait for the writer to stop so it doesn't outlive conn.
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
		s.log.Printf("observer %s left", sid)
	}
}

func sendError(ch chan []byte, code, message string) {
	b, err := json.Marshal(protocol.ErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: protocol.Version,
		Code:            code,
		Message:         message,
	})
	if err != nil {
		return
	}
	select {
	case ch <- b:
	default:
	}
}

func closeWith(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(time.Second))
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
