// Package client runs the session dispatch loop: inbound server messages and player
// gestures are handled one at a time on a single goroutine.
package client

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/cardengine/table-client/internal/input"
	"github.com/cardengine/table-client/internal/prompt"
	"github.com/cardengine/table-client/internal/protocol"
	"github.com/cardengine/table-client/internal/session"
)

// Recorder observes everything the loop handles, in order.
type Recorder interface {
	RecordInbound(raw []byte)
	RecordGesture(g input.Gesture)
	RecordOutbound(msg protocol.Outbound)
}

// Options configures a Client.
type Options struct {
	SessionID string
	Room      string
	Session   session.Options
	Cancel    input.CancelPolicy
	// StrictInvariants panics on a detected invariant violation instead of only logging it.
	StrictInvariants bool
	// GestureBuffer sizes the gesture queue.
	GestureBuffer int
}

// Client owns the session aggregate, the prompt controller and the input mediator.
type Client struct {
	logger   *zap.Logger
	opts     Options
	sender   protocol.Sender
	recorder Recorder

	state      *session.State
	controller *prompt.Controller
	mediator   *input.Mediator

	gestures chan input.Gesture

	mu       sync.RWMutex
	snapshot session.Snapshot
	handled  uint64
}

// New creates a client that sends through sender. recorder may be nil.
func New(opts Options, sender protocol.Sender, recorder Recorder, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.GestureBuffer <= 0 {
		opts.GestureBuffer = 64
	}
	logger = logger.With(zap.String("session_id", opts.SessionID))

	c := &Client{
		logger:   logger,
		opts:     opts,
		sender:   sender,
		recorder: recorder,
		gestures: make(chan input.Gesture, opts.GestureBuffer),
	}
	c.state = session.New(opts.Session, logger.Named("session"))
	c.controller = prompt.NewController(c.state, logger.Named("prompt"))
	c.mediator = input.NewMediator(c.state, c.controller, protocol.SenderFunc(c.send), opts.Cancel, logger.Named("input"))
	c.publish()
	return c
}

// State exposes the session for presentation running on the loop goroutine.
func (c *Client) State() *session.State { return c.state }

// Controller exposes the prompt controller for presentation running on the loop goroutine.
func (c *Client) Controller() *prompt.Controller { return c.controller }

// Mediator exposes the input mediator.
func (c *Client) Mediator() *input.Mediator { return c.mediator }

// Run sends the ready message and then dispatches inbound messages and gestures until
// ctx is done or inbound is closed.
func (c *Client) Run(ctx context.Context, inbound <-chan []byte) error {
	if err := c.send(protocol.Ready{Room: c.opts.Room}); err != nil {
		c.logger.Warn("failed to send ready", zap.Error(err))
	}
	c.logger.Info("session loop started", zap.String("room", c.opts.Room))

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("session loop stopped", zap.Error(ctx.Err()))
			return ctx.Err()
		case raw, ok := <-inbound:
			if !ok {
				c.logger.Info("inbound stream closed")
				return nil
			}
			c.HandleRaw(raw)
		case g := <-c.gestures:
			c.HandleGesture(g)
		}
	}
}

// Submit queues a gesture for the loop.
func (c *Client) Submit(ctx context.Context, g input.Gesture) error {
	select {
	case c.gestures <- g:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HandleRaw decodes and applies one inbound message. Must be called from the loop goroutine.
func (c *Client) HandleRaw(raw []byte) {
	if c.recorder != nil {
		c.recorder.RecordInbound(raw)
	}
	msg, err := protocol.Decode(raw)
	if err != nil {
		c.logger.Warn("dropping undecodable message", zap.Error(err), zap.ByteString("raw", raw))
		return
	}
	c.HandleMessage(msg)
}

// HandleMessage applies one decoded message. Must be called from the loop goroutine.
func (c *Client) HandleMessage(msg protocol.Message) {
	switch m := msg.(type) {
	case protocol.Info:
		c.state.ApplyInfo(m)
		c.controller.Refresh()
	case protocol.Event:
		if err := c.state.ApplyEvent(m); err != nil {
			c.logger.Warn("dropping event",
				zap.String("event", m.Event),
				zap.String("instance_id", m.Subject),
				zap.String("player_id", m.Controller),
				zap.Bool("invalid_placement", session.IsInvalidPlacement(err)),
				zap.Error(err),
			)
		}
		c.controller.Refresh()
	case protocol.Prompt:
		c.controller.Apply(m)
	case protocol.Unknown:
		c.logger.Info("ignoring message", zap.String("message_type", m.Type))
	}
	c.after()
}

// HandleGesture applies one gesture. Must be called from the loop goroutine.
func (c *Client) HandleGesture(g input.Gesture) {
	if c.recorder != nil {
		c.recorder.RecordGesture(g)
	}
	c.logger.Debug("gesture", zap.Stringer("gesture", g))
	c.mediator.Handle(g)
	c.after()
}

func (c *Client) after() {
	c.verify()
	c.publish()
}

func (c *Client) verify() {
	err := c.state.CheckInvariants()
	if err == nil {
		return
	}
	c.logger.Error("session invariant violated", zap.Error(err), zap.Stack("stack"))
	if c.opts.StrictInvariants {
		panic(err)
	}
}

func (c *Client) publish() {
	snap := c.state.Snapshot()
	snap.Prompt = c.controller.Describe()
	c.mu.Lock()
	c.snapshot = snap
	c.handled++
	c.mu.Unlock()
}

// Snapshot returns the state published after the last handled message or gesture.
// Safe for concurrent use.
func (c *Client) Snapshot() session.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// Handled returns how many snapshots have been published. Safe for concurrent use.
func (c *Client) Handled() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.handled
}

// SessionID returns the id this client logs and journals under.
func (c *Client) SessionID() string { return c.opts.SessionID }

func (c *Client) send(msg protocol.Outbound) error {
	if c.recorder != nil {
		c.recorder.RecordOutbound(msg)
	}
	if c.sender == nil {
		return nil
	}
	return c.sender.Send(msg)
}
