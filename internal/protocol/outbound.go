package protocol

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Outbound is a message the client sends to the server.
type Outbound interface {
	Envelope() (Envelope, error)
}

// Choice answers the active prompt. Selected holds zero or one value:
// an instance id, or a slot index in textual form.
type Choice struct {
	Selected []string
}

// EmptyChoice signals that a selection was aborted.
func EmptyChoice() Choice {
	return Choice{Selected: []string{}}
}

// InstanceChoice selects a card instance.
func InstanceChoice(id string) Choice {
	return Choice{Selected: []string{id}}
}

// SlotChoice selects a board slot.
func SlotChoice(slot int) Choice {
	return Choice{Selected: []string{strconv.Itoa(slot)}}
}

// Envelope implements Outbound.
func (c Choice) Envelope() (Envelope, error) {
	selected := c.Selected
	if selected == nil {
		selected = []string{}
	}
	data, err := json.Marshal(selected)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to encode choice: %w", err)
	}
	return Envelope{Type: TypeChoice, Data: data}, nil
}

// Ready tells the server the client finished setup for a room.
type Ready struct {
	Room string
}

// Envelope implements Outbound.
func (r Ready) Envelope() (Envelope, error) {
	data, err := json.Marshal(r.Room)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to encode ready: %w", err)
	}
	return Envelope{Type: TypeReady, Data: data}, nil
}

// Encode renders an outbound message as one JSON line.
func Encode(msg Outbound) ([]byte, error) {
	env, err := msg.Envelope()
	if err != nil {
		return nil, err
	}
	out, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", env.Type, err)
	}
	return out, nil
}

// Sender delivers outbound messages. Implementations must not block the caller
// for longer than it takes to queue the message.
type Sender interface {
	Send(msg Outbound) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(msg Outbound) error

// Send implements Sender.
func (f SenderFunc) Send(msg Outbound) error {
	return f(msg)
}

// Recorder is a Sender that keeps every message, used by tests and the replay tool.
type Recorder struct {
	Sent []Outbound
}

// Send implements Sender.
func (r *Recorder) Send(msg Outbound) error {
	r.Sent = append(r.Sent, msg)
	return nil
}

// Choices returns the recorded choices in order.
func (r *Recorder) Choices() []Choice {
	out := make([]Choice, 0, len(r.Sent))
	for _, msg := range r.Sent {
		if c, ok := msg.(Choice); ok {
			out = append(out, c)
		}
	}
	return out
}

// Reset drops recorded messages.
func (r *Recorder) Reset() {
	r.Sent = nil
}
