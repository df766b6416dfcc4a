package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/nurpe/gigflow/internal/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

type Options struct {
	SendBuffer     int
	AllowedOrigins []string
}

// WebsocketServer upgrades authenticated requests and keeps the resulting
// connection registered for as long as the peer stays connected.
type WebsocketServer struct {
	registry   Registry
	upgrader   websocket.Upgrader
	sendBuffer int
	log        zerolog.Logger
}

func NewWebsocketServer(registry Registry, opts Options, log zerolog.Logger) *WebsocketServer {
	buffer := opts.SendBuffer
	if buffer <= 0 {
		buffer = 16
	}
	return &WebsocketServer{
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(opts.AllowedOrigins),
		},
		sendBuffer: buffer,
		log:        log.With().Str("component", "websocket").Logger(),
	}
}

// Serve blocks until the connection ends. The upgrade error, if any, has
// already been written to w by the upgrader.
func (s *WebsocketServer) Serve(w http.ResponseWriter, r *http.Request, principalID uuid.UUID) error {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	ch := newWSChannel(conn, s.sendBuffer)
	s.registry.Register(principalID, ch)
	s.log.Debug().Str("principal_id", principalID.String()).Msg("connected")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ch.writePump()
	}()

	ch.readPump()

	s.registry.Unregister(ch)
	ch.close()
	wg.Wait()
	_ = conn.Close()
	s.log.Debug().Str("principal_id", principalID.String()).Msg("disconnected")
	return nil
}

type wsChannel struct {
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newWSChannel(conn *websocket.Conn, buffer int) *wsChannel {
	return &wsChannel{
		conn: conn,
		send: make(chan []byte, buffer),
		done: make(chan struct{}),
	}
}

func (c *wsChannel) Send(event model.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return ErrChannelClosed
	default:
	}
	select {
	case c.send <- payload:
		return nil
	default:
		return ErrChannelFull
	}
}

func (c *wsChannel) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// readPump discards inbound frames; it only exists to process control
// frames and notice when the peer goes away.
func (c *wsChannel) readPump() {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *wsChannel) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				// unblock readPump
				_ = c.conn.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = c.conn.Close()
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait),
			)
			return
		}
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		set[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
