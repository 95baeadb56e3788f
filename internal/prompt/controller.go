// Package prompt tracks the server's active selection prompt and derives which card
// instances and board slots accept input.
package prompt

import (
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/cardengine/table-client/internal/protocol"
	"github.com/cardengine/table-client/internal/session"
)

// Kind is the shape of the active prompt.
type Kind string

const (
	KindNone    Kind = "none"
	KindCard    Kind = "card"
	KindField   Kind = "field"
	KindAbility Kind = "ability"
)

// State is the active prompt. Exactly one is active; a new prompt replaces it.
type State struct {
	Kind Kind
	// Action is the wire action; target and discard prompts select instances like card.
	Action protocol.PromptAction
	// Instances is the eligible instance ids under KindCard.
	Instances map[string]struct{}
	// Slots is the eligible own-board slots under KindField.
	Slots map[int]struct{}
	// Subject and Abilities describe a KindAbility prompt. Abilities maps an ability index
	// to the option text the server expects back.
	Subject   string
	Abilities map[int]string
}

// None is the state with no active prompt.
func None() State {
	return State{Kind: KindNone}
}

// Controller applies prompts to a session and answers eligibility queries.
type Controller struct {
	logger  *zap.Logger
	session *session.State
	current State
}

// NewController creates a controller with no active prompt.
func NewController(s *session.State, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		logger:  logger,
		session: s,
		current: None(),
	}
}

// Apply replaces the active prompt and recomputes every eligibility flag from scratch.
func (c *Controller) Apply(p protocol.Prompt) {
	next := State{Kind: KindNone, Action: p.Action}

	switch p.Action {
	case protocol.PromptCard, protocol.PromptTarget, protocol.PromptDiscard:
		next.Kind = KindCard
		next.Instances = make(map[string]struct{}, len(p.Options))
		for _, opt := range p.Options {
			next.Instances[opt] = struct{}{}
		}
	case protocol.PromptField:
		next.Kind = KindField
		next.Slots = make(map[int]struct{}, len(p.Options))
		for _, opt := range p.Options {
			slot, err := protocol.ParseSlot(opt)
			if err != nil {
				c.logger.Warn("dropping field option", zap.String("option", opt), zap.Error(err))
				continue
			}
			next.Slots[slot] = struct{}{}
		}
	case protocol.PromptAbility:
		next.Kind = KindAbility
		next.Subject = p.Card
		next.Abilities = make(map[int]string, len(p.Options))
		for _, opt := range p.Options {
			idx, err := protocol.ParseAbilityIndex(opt)
			if err != nil {
				c.logger.Warn("dropping ability option", zap.String("option", opt), zap.Error(err))
				continue
			}
			next.Abilities[idx] = opt
		}
	default:
		c.logger.Warn("unknown prompt action, clearing prompt", zap.String("action", string(p.Action)))
	}

	c.current = next
	c.recompute()

	c.logger.Debug("prompt applied",
		zap.String("kind", string(next.Kind)),
		zap.Int("options", len(p.Options)),
	)
}

// Clear drops the active prompt; nothing is eligible afterwards.
func (c *Controller) Clear() {
	c.current = None()
	c.recompute()
}

// Refresh reapplies the active prompt's flags, for instance after new instances appear.
func (c *Controller) Refresh() {
	c.recompute()
}

// recompute sets every instance and every slot, including slots of other players,
// so that no flag from an earlier prompt survives.
func (c *Controller) recompute() {
	for _, id := range c.session.Registry.IDs() {
		inst, _ := c.session.Registry.Get(id)
		inst.Eligible = c.IsInstanceEligible(id)
	}
	for _, p := range c.session.Players.Players() {
		for slot := 0; slot < p.Board.Len(); slot++ {
			// slot is in range by construction
			_ = p.Board.SetEnabled(slot, c.IsSlotEligible(p.ID, slot))
		}
	}
	c.session.Changes.Publish(session.Change{Kind: session.ChangeEligibility, Slot: session.NoSlot})
}

// IsInstanceEligible reports whether id may be selected under the active prompt.
func (c *Controller) IsInstanceEligible(id string) bool {
	if c.current.Kind != KindCard {
		return false
	}
	_, ok := c.current.Instances[id]
	return ok
}

// IsSlotEligible reports whether a slot may be chosen. Only the local player's board
// is ever eligible.
func (c *Controller) IsSlotEligible(playerID string, slot int) bool {
	if c.current.Kind != KindField {
		return false
	}
	self, ok := c.session.Players.Self()
	if !ok || self.ID != playerID || !self.Board.InRange(slot) {
		return false
	}
	_, ok = c.current.Slots[slot]
	return ok
}

// AbilityOption returns the option text to send for ability index idx of subject.
func (c *Controller) AbilityOption(subject string, idx int) (string, bool) {
	if c.current.Kind != KindAbility || c.current.Subject != subject {
		return "", false
	}
	opt, ok := c.current.Abilities[idx]
	return opt, ok
}

// Kind returns the kind of the active prompt.
func (c *Controller) Kind() Kind {
	return c.current.Kind
}

// State returns a copy of the active prompt.
func (c *Controller) State() State {
	out := State{
		Kind:    c.current.Kind,
		Action:  c.current.Action,
		Subject: c.current.Subject,
	}
	if c.current.Instances != nil {
		out.Instances = make(map[string]struct{}, len(c.current.Instances))
		for id := range c.current.Instances {
			out.Instances[id] = struct{}{}
		}
	}
	if c.current.Slots != nil {
		out.Slots = make(map[int]struct{}, len(c.current.Slots))
		for slot := range c.current.Slots {
			out.Slots[slot] = struct{}{}
		}
	}
	if c.current.Abilities != nil {
		out.Abilities = make(map[int]string, len(c.current.Abilities))
		for idx, opt := range c.current.Abilities {
			out.Abilities[idx] = opt
		}
	}
	return out
}

// Describe renders the active prompt for snapshots, with options in sorted order.
func (c *Controller) Describe() session.PromptSnapshot {
	snap := session.PromptSnapshot{Kind: string(c.current.Kind), Subject: c.current.Subject}
	switch c.current.Kind {
	case KindCard:
		for id := range c.current.Instances {
			snap.Options = append(snap.Options, id)
		}
		sort.Strings(snap.Options)
	case KindField:
		slots := make([]int, 0, len(c.current.Slots))
		for slot := range c.current.Slots {
			slots = append(slots, slot)
		}
		sort.Ints(slots)
		for _, slot := range slots {
			snap.Options = append(snap.Options, strconv.Itoa(slot))
		}
	case KindAbility:
		idxs := make([]int, 0, len(c.current.Abilities))
		for idx := range c.current.Abilities {
			idxs = append(idxs, idx)
		}
		sort.Ints(idxs)
		for _, idx := range idxs {
			snap.Options = append(snap.Options, strconv.Itoa(idx))
		}
	}
	return snap
}
