package realtime

import (
	"io"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nurpe/gigflow/internal/model"
)

const sseKeepAlive = 25 * time.Second

// StreamServer serves the same events as WebsocketServer over server-sent
// events, for clients that cannot open a websocket.
type StreamServer struct {
	registry   Registry
	sendBuffer int
	log        zerolog.Logger

	shutdown     chan struct{}
	shutdownOnce sync.Once
}

func NewStreamServer(registry Registry, opts Options, log zerolog.Logger) *StreamServer {
	buffer := opts.SendBuffer
	if buffer <= 0 {
		buffer = 16
	}
	return &StreamServer{
		registry:   registry,
		sendBuffer: buffer,
		log:        log.With().Str("component", "sse").Logger(),
		shutdown:   make(chan struct{}),
	}
}

// Shutdown ends every open stream. http.Server.Shutdown waits for active
// requests, so it must be registered with RegisterOnShutdown.
func (s *StreamServer) Shutdown() {
	s.shutdownOnce.Do(func() { close(s.shutdown) })
}

func (s *StreamServer) Serve(c *gin.Context, principalID uuid.UUID) {
	ch := &sseChannel{
		events: make(chan model.Event, s.sendBuffer),
		done:   make(chan struct{}),
	}
	s.registry.Register(principalID, ch)
	s.log.Debug().Str("principal_id", principalID.String()).Msg("stream opened")
	defer func() {
		s.registry.Unregister(ch)
		ch.close()
		s.log.Debug().Str("principal_id", principalID.String()).Msg("stream closed")
	}()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	// send headers now; the first event may be a long way off
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	keepAlive := time.NewTicker(sseKeepAlive)
	defer keepAlive.Stop()

	ctx := c.Request.Context()
	c.Stream(func(io.Writer) bool {
		select {
		case event := <-ch.events:
			c.SSEvent(string(event.Type), event.Payload)
			return true
		case <-keepAlive.C:
			c.SSEvent("ping", time.Now().UTC().Unix())
			return true
		case <-ctx.Done():
			return false
		case <-s.shutdown:
			return false
		}
	})
}

type sseChannel struct {
	events    chan model.Event
	done      chan struct{}
	closeOnce sync.Once
}

func (c *sseChannel) Send(event model.Event) error {
	select {
	case <-c.done:
		return ErrChannelClosed
	default:
	}
	select {
	case c.events <- event:
		return nil
	default:
		return ErrChannelFull
	}
}

func (c *sseChannel) close() {
	c.closeOnce.Do(func() { close(c.done) })
}
