package session

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Snapshot is an immutable copy of the session for readers outside the dispatch loop.
type Snapshot struct {
	SelfID    string             `json:"self_id"`
	Turn      Turn               `json:"turn"`
	Players   []PlayerSnapshot   `json:"players"`
	Instances []InstanceSnapshot `json:"instances"`
	Cards     int                `json:"cards"`
	Prompt    PromptSnapshot     `json:"prompt"`
}

// PlayerSnapshot copies one player.
type PlayerSnapshot struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	IsSelf bool           `json:"is_self"`
	Life   int            `json:"life"`
	Lost   bool           `json:"lost"`
	Won    bool           `json:"won"`
	Hand   []string       `json:"hand"`
	Board  []SlotSnapshot `json:"board"`
}

// SlotSnapshot copies one board slot.
type SlotSnapshot struct {
	Slot     int    `json:"slot"`
	Occupant string `json:"occupant,omitempty"`
	Enabled  bool   `json:"enabled"`
}

// InstanceSnapshot copies one card instance.
type InstanceSnapshot struct {
	ID       string   `json:"id"`
	Owner    string   `json:"owner"`
	Location Location `json:"location"`
	Name     string   `json:"name,omitempty"`
	Slot     int      `json:"slot"`
	Active   bool     `json:"active"`
	Dragging bool     `json:"dragging"`
	Eligible bool     `json:"eligible"`
}

// PromptSnapshot describes the active prompt. The prompt controller fills it in.
type PromptSnapshot struct {
	Kind    string   `json:"kind"`
	Subject string   `json:"subject,omitempty"`
	Options []string `json:"options,omitempty"`
}

// Snapshot copies the current state. Players and instances are sorted by id.
func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		SelfID: s.Players.SelfID(),
		Turn:   s.Turn,
		Cards:  s.Catalog.Len(),
		Prompt: PromptSnapshot{Kind: "none"},
	}

	for _, p := range s.Players.Players() {
		ps := PlayerSnapshot{
			ID:     p.ID,
			Name:   p.Name,
			IsSelf: p.IsSelf,
			Life:   p.Life,
			Lost:   p.Lost,
			Won:    p.Won,
			Hand:   p.Hand.IDs(),
			Board:  make([]SlotSnapshot, p.Board.Len()),
		}
		for slot := range ps.Board {
			ps.Board[slot] = SlotSnapshot{Slot: slot, Enabled: p.Board.Enabled(slot)}
			if occ, ok := p.Board.Occupant(slot); ok {
				ps.Board[slot].Occupant = occ.ID
			}
		}
		snap.Players = append(snap.Players, ps)
	}

	for _, id := range s.Registry.IDs() {
		inst, _ := s.Registry.Get(id)
		snap.Instances = append(snap.Instances, InstanceSnapshot{
			ID:       inst.ID,
			Owner:    inst.Owner,
			Location: inst.Location,
			Name:     inst.Name,
			Slot:     inst.Slot,
			Active:   inst.Active,
			Dragging: inst.Dragging,
			Eligible: inst.Eligible,
		})
	}
	return snap
}

// Checksum returns a SHA-256 over a deterministic rendering of the snapshot.
// Two sessions that applied the same messages and gestures have equal checksums.
func (snap Snapshot) Checksum() (string, error) {
	hash := sha256.New()
	if _, err := hash.Write([]byte(snap.deterministicRepresentation())); err != nil {
		return "", fmt.Errorf("failed to compute hash: %w", err)
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

func (snap Snapshot) deterministicRepresentation() string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "SESSION:%s|%d|%s|%s|%d\n",
		snap.SelfID,
		snap.Turn.Number,
		snap.Turn.Phase,
		snap.Turn.ActivePlayer,
		snap.Cards,
	)
	fmt.Fprintf(&buf, "PROMPT:%s|%s|%s\n", snap.Prompt.Kind, snap.Prompt.Subject, strings.Join(snap.Prompt.Options, ","))

	for _, p := range snap.Players {
		fmt.Fprintf(&buf, "PLAYER:%s|%s|%t|%d|%t|%t\n", p.ID, p.Name, p.IsSelf, p.Life, p.Lost, p.Won)
		buf.WriteString("  HAND:")
		buf.WriteString(strings.Join(p.Hand, ","))
		buf.WriteString("\n")
		for _, slot := range p.Board {
			if slot.Occupant == "" && !slot.Enabled {
				continue
			}
			fmt.Fprintf(&buf, "  SLOT:%d|%s|%t\n", slot.Slot, slot.Occupant, slot.Enabled)
		}
	}

	for _, inst := range snap.Instances {
		fmt.Fprintf(&buf, "CARD:%s|%s|%s|%s|%d|%t|%t|%t\n",
			inst.ID,
			inst.Owner,
			inst.Location,
			inst.Name,
			inst.Slot,
			inst.Active,
			inst.Dragging,
			inst.Eligible,
		)
	}

	return buf.String()
}

// Player returns the snapshot of player id.
func (snap Snapshot) Player(id string) (PlayerSnapshot, bool) {
	for _, p := range snap.Players {
		if p.ID == id {
			return p, true
		}
	}
	return PlayerSnapshot{}, false
}
