// Package transport carries protocol messages over a websocket connection to the game server.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cardengine/table-client/internal/config"
	"github.com/cardengine/table-client/internal/protocol"
)

// ErrClosed is returned by Send after the connection has shut down.
var ErrClosed = errors.New("connection closed")

// Options configures a connection.
type Options struct {
	URL            string
	Token          string
	DialTimeout    time.Duration
	WriteWait      time.Duration
	PongWait       time.Duration
	MaxMessageSize int64
	SendBuffer     int
}

// OptionsFromConfig copies the server section of the configuration.
func OptionsFromConfig(cfg config.ServerConfig) Options {
	return Options{
		URL:            cfg.URL,
		Token:          cfg.Token,
		DialTimeout:    cfg.DialTimeout,
		WriteWait:      cfg.WriteWait,
		PongWait:       cfg.PongWait,
		MaxMessageSize: cfg.MaxMessageSize,
		SendBuffer:     cfg.SendBuffer,
	}
}

func (o *Options) withDefaults() {
	if o.DialTimeout <= 0 {
		o.DialTimeout = 10 * time.Second
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = 64 * 1024
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 256
	}
}

// pingPeriod must stay below PongWait.
func (o Options) pingPeriod() time.Duration {
	return o.PongWait * 9 / 10
}

// Conn is a websocket connection split into a read pump and a write pump.
// Inbound frames are split into single messages and delivered on Inbound.
type Conn struct {
	logger *zap.Logger
	opts   Options
	ws     *websocket.Conn

	inbound chan []byte
	send    chan []byte
	done    chan struct{}

	closeOnce sync.Once
	mu        sync.Mutex
	err       error
}

// Dial connects to opts.URL. The token, when set, travels as a bearer Authorization header.
func Dial(ctx context.Context, opts Options, logger *zap.Logger) (*Conn, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.withDefaults()

	header := http.Header{}
	if opts.Token != "" {
		header.Set("Authorization", "Bearer "+opts.Token)
	}

	dialer := websocket.Dialer{HandshakeTimeout: opts.DialTimeout}
	ctx, cancel := context.WithTimeout(ctx, opts.DialTimeout)
	defer cancel()

	ws, resp, err := dialer.DialContext(ctx, opts.URL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to dial %s: status %d: %w", opts.URL, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to dial %s: %w", opts.URL, err)
	}

	logger.Info("connected to game server", zap.String("url", opts.URL))
	return newConn(ws, opts, logger), nil
}

func newConn(ws *websocket.Conn, opts Options, logger *zap.Logger) *Conn {
	opts.withDefaults()
	c := &Conn{
		logger:  logger,
		opts:    opts,
		ws:      ws,
		inbound: make(chan []byte, opts.SendBuffer),
		send:    make(chan []byte, opts.SendBuffer),
		done:    make(chan struct{}),
	}
	go c.writePump()
	go c.readPump()
	return c
}

// Inbound yields one message per receive. It is closed when the read side ends.
func (c *Conn) Inbound() <-chan []byte {
	return c.inbound
}

// Done is closed once the connection has shut down.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Err returns the error that ended the connection, if any.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Send encodes msg and queues it for the write pump. It implements protocol.Sender.
func (c *Conn) Send(msg protocol.Outbound) error {
	payload, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return ErrClosed
	}
}

// Close sends a close frame and tears the connection down.
func (c *Conn) Close() error {
	c.shutdown(nil)
	return nil
}

func (c *Conn) shutdown(err error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()

		deadline := time.Now().Add(c.opts.WriteWait)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, deadline)
		close(c.done)
		_ = c.ws.Close()
	})
}

func (c *Conn) readPump() {
	defer close(c.inbound)

	c.ws.SetReadLimit(c.opts.MaxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})

	for {
		_, frame, err := c.ws.ReadMessage()
		if err != nil {
			c.readFailed(err)
			return
		}
		for _, msg := range protocol.SplitFrames(frame) {
			select {
			case c.inbound <- msg:
			case <-c.done:
				return
			}
		}
	}
}

func (c *Conn) readFailed(err error) {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		c.logger.Info("server closed connection", zap.Error(err))
		c.shutdown(nil)
		return
	}
	select {
	case <-c.done:
		// local Close
	default:
		c.logger.Warn("connection read failed", zap.Error(err))
		c.shutdown(err)
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(c.opts.pingPeriod())
	defer ticker.Stop()

	for {
		select {
		case payload := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.logger.Warn("connection write failed", zap.Error(err))
				c.shutdown(err)
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.opts.WriteWait)); err != nil {
				c.logger.Warn("ping failed", zap.Error(err))
				c.shutdown(err)
				return
			}
		case <-c.done:
			return
		}
	}
}
