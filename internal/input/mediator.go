// Package input turns player gestures into local placement updates and choice messages.
package input

import (
	"go.uber.org/zap"

	"github.com/cardengine/table-client/internal/prompt"
	"github.com/cardengine/table-client/internal/protocol"
	"github.com/cardengine/table-client/internal/session"
)

// Phase is the gesture state of one entity.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseSelecting Phase = "selecting"
	PhaseDragging  Phase = "dragging"
	PhasePlaced    Phase = "placed"
	PhaseReturned  Phase = "returned"
)

// Mediator validates gestures against hand and board membership and the active prompt.
// It runs on the dispatch loop together with the session it mutates.
type Mediator struct {
	logger     *zap.Logger
	session    *session.State
	controller *prompt.Controller
	sender     protocol.Sender
	policy     CancelPolicy
	phases     map[string]Phase
}

// NewMediator wires a mediator to a session, its prompt controller and an outbound sender.
func NewMediator(s *session.State, c *prompt.Controller, sender protocol.Sender, policy CancelPolicy, logger *zap.Logger) *Mediator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy == "" {
		policy = CancelPolicyNotify
	}
	return &Mediator{
		logger:     logger,
		session:    s,
		controller: c,
		sender:     sender,
		policy:     policy,
		phases:     make(map[string]Phase),
	}
}

// Handle dispatches one gesture.
func (m *Mediator) Handle(g Gesture) {
	switch g.Kind {
	case GesturePointerDown:
		m.PointerDown(g.InstanceID)
	case GestureDragStart:
		m.DragStart(g.InstanceID)
	case GestureDragMove:
		m.DragMove(g.InstanceID, g.X, g.Y)
	case GestureDrop:
		m.Drop(g.InstanceID, g.Target)
	case GestureCancel:
		m.Cancel(g.InstanceID)
	case GestureAbility:
		m.ChooseAbility(g.InstanceID, g.Ability)
	default:
		m.logger.Warn("ignoring unknown gesture", zap.String("gesture", string(g.Kind)))
	}
}

// Phase returns the gesture state of id.
func (m *Mediator) Phase(id string) Phase {
	if p, ok := m.phases[id]; ok {
		return p
	}
	return PhaseIdle
}

// Policy returns the configured cancel policy.
func (m *Mediator) Policy() CancelPolicy {
	return m.policy
}

// PointerDown starts a selection on an own hand card, or selects an own eligible board card.
func (m *Mediator) PointerDown(id string) {
	inst, self, ok := m.lookup(id)
	if !ok {
		return
	}
	own := inst.Owner == self.ID

	if own && self.Hand.Contains(id) {
		m.phases[id] = PhaseSelecting
		return
	}

	if !inst.OnField() {
		return
	}
	if own && m.controller.IsInstanceEligible(id) && m.send(protocol.InstanceChoice(id)) {
		m.controller.Clear()
	}
}

// DragStart lifts an own hand card out of the hand and reports the selection. The active
// prompt stays until the server follows up with the next one, usually a field prompt.
func (m *Mediator) DragStart(id string) {
	inst, self, ok := m.lookup(id)
	if !ok {
		return
	}
	if inst.Owner != self.ID || !self.Hand.Contains(id) {
		m.logger.Debug("drag start ignored", zap.String("instance_id", id))
		return
	}

	m.session.Detach(inst)
	inst.Dragging = true
	inst.Layout.Depth = self.Hand.Len()
	m.phases[id] = PhaseDragging
	m.send(protocol.InstanceChoice(id))
	m.session.Changes.Publish(session.Change{Kind: session.ChangeLayout, InstanceID: id, PlayerID: self.ID, Slot: session.NoSlot})
}

// DragMove tracks the pointer while a card is in flight.
func (m *Mediator) DragMove(id string, x, y float64) {
	inst, ok := m.dragged(id)
	if !ok {
		return
	}
	inst.Layout.X = x
	inst.Layout.Y = y
	m.session.Changes.Publish(session.Change{Kind: session.ChangeLayout, InstanceID: id, Slot: session.NoSlot})
}

// Drop places a dragged card into the zone under the pointer. A nil target, a target that
// matches no zone, or a slot that cannot take the card returns it to hand.
func (m *Mediator) Drop(id string, target *Target) {
	inst, ok := m.dragged(id)
	if !ok {
		return
	}

	if target != nil {
		// Every slot of every board is checked; boards are small.
		for _, p := range m.session.Players.Players() {
			for slot := 0; slot < p.Board.Len(); slot++ {
				if p.ID != target.PlayerID || slot != target.Slot {
					continue
				}
				if err := m.session.MoveToSlot(p, slot, inst); err != nil {
					m.logger.Info("drop rejected, returning card",
						zap.String("instance_id", id),
						zap.String("player_id", p.ID),
						zap.Int("slot", slot),
						zap.Error(err),
					)
					m.returned(inst)
					return
				}
				m.phases[id] = PhasePlaced
				if m.send(protocol.SlotChoice(slot)) {
					m.controller.Clear()
				}
				return
			}
		}
	}

	m.returned(inst)
}

// Cancel aborts a drag and returns the card to hand.
func (m *Mediator) Cancel(id string) {
	inst, ok := m.dragged(id)
	if !ok {
		if m.Phase(id) == PhaseSelecting {
			m.phases[id] = PhaseIdle
		}
		return
	}
	m.returned(inst)
}

// ChooseAbility answers an ability prompt for subject id.
func (m *Mediator) ChooseAbility(id string, idx int) {
	opt, ok := m.controller.AbilityOption(id, idx)
	if !ok {
		m.logger.Debug("ability not eligible", zap.String("instance_id", id), zap.Int("ability", idx))
		return
	}
	if m.send(protocol.Choice{Selected: []string{opt}}) {
		m.controller.Clear()
	}
}

// returned puts inst back into its owner's hand and applies the cancel policy.
func (m *Mediator) returned(inst *session.CardInstance) {
	if err := m.session.MoveToHand(inst); err != nil {
		m.logger.Error("failed to return card to hand", zap.String("instance_id", inst.ID), zap.Error(err))
	}
	inst.Dragging = false
	m.phases[inst.ID] = PhaseReturned
	if m.policy == CancelPolicyNotify {
		m.send(protocol.EmptyChoice())
	}
}

func (m *Mediator) lookup(id string) (*session.CardInstance, *session.Player, bool) {
	inst, ok := m.session.Registry.Get(id)
	if !ok {
		m.logger.Warn("gesture on unknown instance", zap.String("instance_id", id))
		return nil, nil, false
	}
	self, ok := m.session.Players.Self()
	if !ok {
		m.logger.Debug("gesture before local player is known", zap.String("instance_id", id))
		return nil, nil, false
	}
	return inst, self, true
}

// dragged returns id when it is mid-drag. A server update may have placed the card
// meanwhile, in which case the gesture is stale.
func (m *Mediator) dragged(id string) (*session.CardInstance, bool) {
	if m.Phase(id) != PhaseDragging {
		return nil, false
	}
	inst, ok := m.session.Registry.Get(id)
	if !ok || !inst.Dragging {
		m.phases[id] = PhaseIdle
		return nil, false
	}
	return inst, true
}

// send reports whether msg left the client. Without a sender nothing can fail.
func (m *Mediator) send(msg protocol.Outbound) bool {
	if m.sender == nil {
		return true
	}
	if err := m.sender.Send(msg); err != nil {
		m.logger.Warn("failed to send choice", zap.Error(err))
		return false
	}
	return true
}
