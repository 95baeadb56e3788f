// Package protocol defines the messages exchanged with the game server.
//
// Every inbound payload is decoded into one concrete Message variant; the rest of the
// client switches over those types instead of probing loosely typed maps.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Message type tags on the wire.
const (
	TypeInfo   = "game.info"
	TypeEvent  = "game.event"
	TypePrompt = "game.prompt"
	TypeChoice = "game.choice"
	TypeReady  = "game.ready"
)

// Envelope is the {type, data} frame every message travels in.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Message is an inbound message variant. The set of implementations is closed.
type Message interface {
	MessageType() string
	isMessage()
}

// Info carries players, card definitions and reveals. Any field may be empty.
type Info struct {
	Players map[string]string `json:"players,omitempty"`
	Cards   []json.RawMessage `json:"cards,omitempty"`
	Seen    map[string]string `json:"seen,omitempty"`
}

// Event reports a state change for one subject instance.
type Event struct {
	Event      string            `json:"event"`
	Subject    string            `json:"subject"`
	Controller string            `json:"controller"`
	Args       []json.RawMessage `json:"args,omitempty"`
}

// PromptAction discriminates the prompt payload shape.
type PromptAction string

const (
	PromptCard    PromptAction = "card"
	PromptField   PromptAction = "field"
	PromptAbility PromptAction = "ability"
	PromptTarget  PromptAction = "target"
	PromptDiscard PromptAction = "discard"
)

// Prompt asks the player for a choice among Options.
// Options are normalized to their textual form at decode time.
type Prompt struct {
	Action  PromptAction `json:"action"`
	Options []string     `json:"-"`
	Card    string       `json:"card,omitempty"`
}

// Unknown is any message whose type this client does not handle.
type Unknown struct {
	Type string
	Data json.RawMessage
}

func (Info) MessageType() string { return TypeInfo }
func (Event) MessageType() string { return TypeEvent }
func (Prompt) MessageType() string { return TypePrompt }
func (u Unknown) MessageType() string { return u.Type }

func (Info) isMessage() {}
func (Event) isMessage() {}
func (Prompt) isMessage() {}
func (Unknown) isMessage() {}

// Decode parses one JSON message into its variant.
// Unknown types are returned as Unknown rather than as an error.
func Decode(raw []byte) (Message, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to decode envelope: %w", err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("message has no type")
	}

	switch env.Type {
	case TypeInfo:
		var info Info
		if err := unmarshalData(env.Data, &info); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", env.Type, err)
		}
		return info, nil
	case TypeEvent:
		var ev Event
		if err := unmarshalData(env.Data, &ev); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", env.Type, err)
		}
		return ev, nil
	case TypePrompt:
		var wire struct {
			Action  PromptAction      `json:"action"`
			Options []json.RawMessage `json:"options"`
			Card    json.RawMessage   `json:"card"`
		}
		if err := unmarshalData(env.Data, &wire); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", env.Type, err)
		}
		p := Prompt{Action: wire.Action, Options: make([]string, 0, len(wire.Options))}
		for _, opt := range wire.Options {
			text, err := scalarText(opt)
			if err != nil {
				return nil, fmt.Errorf("failed to decode %s option: %w", env.Type, err)
			}
			p.Options = append(p.Options, text)
		}
		if len(wire.Card) > 0 {
			card, err := scalarText(wire.Card)
			if err != nil {
				return nil, fmt.Errorf("failed to decode %s card: %w", env.Type, err)
			}
			p.Card = card
		}
		return p, nil
	default:
		return Unknown{Type: env.Type, Data: env.Data}, nil
	}
}

func unmarshalData(data json.RawMessage, v any) error {
	if len(data) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	return json.Unmarshal(data, v)
}

// scalarText turns a JSON string or number into its textual form.
func scalarText(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return "", fmt.Errorf("expected string or number, got %s", string(trimmed))
	}
	return n.String(), nil
}

// ArgInt returns args[i] as an integer. Numbers and decimal strings are accepted.
func (e Event) ArgInt(i int) (int, bool) {
	if i < 0 || i >= len(e.Args) {
		return 0, false
	}
	text, err := scalarText(e.Args[i])
	if err != nil {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseSlot normalizes a field option to a slot index.
func ParseSlot(option string) (int, error) {
	slot, err := strconv.Atoi(strings.TrimSpace(option))
	if err != nil {
		return 0, fmt.Errorf("invalid slot option %q: %w", option, err)
	}
	if slot < 0 {
		return 0, fmt.Errorf("invalid slot option %q: negative", option)
	}
	return slot, nil
}

// ParseAbilityIndex accepts "3" or the "<instance>:3" form some servers emit.
func ParseAbilityIndex(option string) (int, error) {
	text := strings.TrimSpace(option)
	if idx := strings.LastIndex(text, ":"); idx >= 0 {
		text = text[idx+1:]
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("invalid ability option %q: %w", option, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid ability option %q: negative", option)
	}
	return n, nil
}

// SplitFrames splits one transport frame into the newline separated messages it carries.
func SplitFrames(frame []byte) [][]byte {
	parts := bytes.Split(frame, []byte{'\n'})
	out := make([][]byte, 0, len(parts))
	for _, part := range parts {
		part = bytes.TrimSpace(part)
		if len(part) > 0 {
			out = append(out, part)
		}
	}
	return out
}
