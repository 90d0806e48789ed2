package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotConnected    = errors.New("socket not connected")
	ErrSendBufferFull  = errors.New("socket send buffer full")
	ErrReconnectsSpent = errors.New("socket reconnect limit reached")
)

// Config holds configuration for the socket client
type Config struct {
	URL            string
	Codec          string
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
	SendBufferSize int
	MaxReconnects  int // -1 for unlimited
	ReconnectWait  time.Duration
	Header         http.Header
}

// DefaultConfig returns the default socket configuration
func DefaultConfig() Config {
	return Config{
		URL:            "http://localhost:3001",
		Codec:          CodecSocketIO,
		WriteTimeout:   10 * time.Second,
		ReadTimeout:    60 * time.Second,
		PingInterval:   30 * time.Second,
		MaxMessageSize: 64 * 1024,
		SendBufferSize: 256,
		MaxReconnects:  -1,
		ReconnectWait:  2 * time.Second,
	}
}

// Client is a bidirectional event channel to the game server. Handlers run
// on the read goroutine, one frame at a time.
type Client struct {
	id     string
	config Config
	codec  Codec
	dialer *websocket.Dialer

	connected atomic.Bool
	send      chan []byte

	mu            sync.RWMutex
	handlers      map[string]map[uint64]Handler
	connListeners map[uint64]func(bool)
	nextID        uint64
}

// NewClient creates a socket client. Nothing is dialed until Run.
func NewClient(config Config) (*Client, error) {
	codec, err := NewCodec(config.Codec)
	if err != nil {
		return nil, err
	}
	if _, err := codec.URL(config.URL); err != nil {
		return nil, err
	}
	defaults := DefaultConfig()
	if config.SendBufferSize <= 0 {
		config.SendBufferSize = defaults.SendBufferSize
	}
	if config.PingInterval <= 0 {
		config.PingInterval = defaults.PingInterval
	}
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = defaults.ReadTimeout
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = defaults.WriteTimeout
	}
	if config.MaxMessageSize <= 0 {
		config.MaxMessageSize = defaults.MaxMessageSize
	}

	return &Client{
		id:     uuid.New().String(),
		config: config,
		codec:  codec,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
		send:          make(chan []byte, config.SendBufferSize),
		handlers:      make(map[string]map[uint64]Handler),
		connListeners: make(map[uint64]func(bool)),
	}, nil
}

// ID identifies this client in logs.
func (c *Client) ID() string {
	return c.id
}

// Connected reports whether the server session is established.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// On registers h for event. The returned function removes it and is safe to
// call more than once.
func (c *Client) On(event string, h Handler) func() {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	if c.handlers[event] == nil {
		c.handlers[event] = make(map[uint64]Handler)
	}
	c.handlers[event][id] = h
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.handlers[event], id)
			if len(c.handlers[event]) == 0 {
				delete(c.handlers, event)
			}
		})
	}
}

// ListenerCount returns the number of handlers registered for event.
func (c *Client) ListenerCount(event string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.handlers[event])
}

// OnConnectionChange registers fn to be told about connect/disconnect.
func (c *Client) OnConnectionChange(fn func(connected bool)) func() {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.connListeners[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.connListeners, id)
			c.mu.Unlock()
		})
	}
}

// Emit queues event for delivery. It fails fast when the session is down.
func (c *Client) Emit(event string, data any) error {
	if !c.Connected() {
		return ErrNotConnected
	}

	frame, err := c.codec.EncodeEvent(event, data)
	if err != nil {
		return err
	}

	select {
	case c.send <- frame:
		log.Debug().
			Str("client_id", c.id).
			Str("event", event).
			Msg("event queued")
		return nil
	default:
		log.Warn().Str("event", event).Msg("send buffer full, dropping event")
		return ErrSendBufferFull
	}
}

// Run keeps the client connected until ctx is cancelled, reconnecting after
// ReconnectWait whenever the connection drops.
func (c *Client) Run(ctx context.Context) error {
	attempts := 0
	for {
		err := c.runOnce(ctx)
		if ctx.Err() != nil {
			log.Info().Str("client_id", c.id).Msg("socket client shutting down")
			return nil
		}

		attempts++
		if c.config.MaxReconnects >= 0 && attempts > c.config.MaxReconnects {
			return fmt.Errorf("%w: %v", ErrReconnectsSpent, err)
		}

		log.Warn().
			Err(err).
			Str("client_id", c.id).
			Int("attempt", attempts).
			Dur("wait", c.config.ReconnectWait).
			Msg("socket disconnected, reconnecting")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.config.ReconnectWait):
		}
	}
}

func (c *Client) runOnce(ctx context.Context) error {
	target, err := c.codec.URL(c.config.URL)
	if err != nil {
		return err
	}

	conn, _, err := c.dialer.DialContext(ctx, target, c.config.Header)
	if err != nil {
		return fmt.Errorf("dial socket server: %w", err)
	}
	defer conn.Close()
	defer c.setConnected(false)

	log.Info().
		Str("client_id", c.id).
		Str("url", target).
		Str("codec", c.codec.Name()).
		Msg("socket connection established")

	c.drainSend()
	if !c.codec.AwaitsConnect() {
		c.setConnected(true)
	}

	control := make(chan []byte, 16)
	readErr := make(chan error, 1)
	go func() {
		readErr <- c.readPump(conn, control)
	}()

	return c.writePump(ctx, conn, control, readErr)
}

// drainSend discards frames queued for a previous connection.
func (c *Client) drainSend() {
	for {
		select {
		case <-c.send:
		default:
			return
		}
	}
}

func (c *Client) setConnected(connected bool) {
	if c.connected.Swap(connected) == connected {
		return
	}

	log.Info().
		Str("client_id", c.id).
		Bool("connected", connected).
		Msg("socket session changed")

	c.mu.RLock()
	listeners := make([]func(bool), 0, len(c.connListeners))
	for _, fn := range c.connListeners {
		listeners = append(listeners, fn)
	}
	c.mu.RUnlock()

	for _, fn := range listeners {
		fn(connected)
	}
}

// writePump owns all writes to conn
func (c *Client) writePump(ctx context.Context, conn *websocket.Conn, control <-chan []byte, readErr <-chan error) error {
	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	write := func(messageType int, data []byte) error {
		conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
		return conn.WriteMessage(messageType, data)
	}

	for {
		select {
		case <-ctx.Done():
			write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return ctx.Err()

		case err := <-readErr:
			return err

		case frame := <-control:
			if err := write(websocket.TextMessage, frame); err != nil {
				return fmt.Errorf("write control frame: %w", err)
			}

		case frame := <-c.send:
			if err := write(websocket.TextMessage, frame); err != nil {
				log.Error().
					Err(err).
					Str("client_id", c.id).
					Msg("failed to write message to socket")
				return fmt.Errorf("write frame: %w", err)
			}

		case <-ticker.C:
			if err := write(websocket.PingMessage, nil); err != nil {
				return fmt.Errorf("send ping: %w", err)
			}
		}
	}
}

// readPump reads frames until the connection fails
func (c *Client) readPump(conn *websocket.Conn, control chan<- []byte) error {
	conn.SetReadLimit(c.config.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		return nil
	})

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error().
					Err(err).
					Str("client_id", c.id).
					Msg("unexpected socket close error")
			}
			return fmt.Errorf("read frame: %w", err)
		}

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		c.handleFrame(frame, control)
	}
}

func (c *Client) handleFrame(frame []byte, control chan<- []byte) {
	packet, err := c.codec.Decode(frame)
	if err != nil {
		log.Warn().
			Err(err).
			Str("client_id", c.id).
			Msg("dropping undecodable frame")
		return
	}

	if reply := c.codec.Reply(packet); reply != nil {
		select {
		case control <- reply:
		default:
			log.Warn().Str("client_id", c.id).Msg("control buffer full, dropping reply")
		}
	}

	switch packet.Type {
	case PacketConnect:
		c.setConnected(true)
	case PacketDisconnect:
		c.setConnected(false)
	case PacketEvent:
		c.dispatch(packet.Event, packet)
	}
}

func (c *Client) dispatch(event string, packet Packet) {
	c.mu.RLock()
	handlers := make([]Handler, 0, len(c.handlers[event]))
	for _, h := range c.handlers[event] {
		handlers = append(handlers, h)
	}
	c.mu.RUnlock()

	if len(handlers) == 0 {
		log.Debug().Str("event", event).Msg("no listener for event")
		return
	}

	for _, h := range handlers {
		h(packet.Data)
	}
}
