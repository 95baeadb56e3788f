// Package session keeps the local model of a game: players, card instances, boards and hands.
//
// All mutation happens on one goroutine. The model trusts the server and never decides
// whether a move is legal; it only keeps its containers consistent.
package session

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/cardengine/table-client/internal/catalog"
	"github.com/cardengine/table-client/internal/protocol"
)

// Server event names handled by State.
const (
	EventDraw       = "draw"
	EventPlay       = "play"
	EventEnterBoard = "enter-board"
	EventLeaveBoard = "leave-board"
	EventDestroy    = "destroy"
	EventSacrifice  = "sacrifice"
	EventDiscard    = "discard"
	EventActivate   = "activate"
	EventDeactivate = "deactivate"
	EventLoseLife   = "lose-life"
	EventGainLife   = "gain-life"
	EventPlayerDmg  = "player-damage"
	EventHeal       = "heal"
	EventStartPhase = "start-phase"
	EventDrawPhase  = "draw-phase"
	EventPlayPhase  = "play-phase"
	EventEndPhase   = "end-phase"
	EventWin        = "win"
	EventLose       = "lose"
	EventTarget     = "target"
	EventAttack     = "attack"
	EventBlock      = "block"
	EventDamage     = "damage"
	EventCounter    = "counter"
)

// Phase is a turn phase as announced by the server.
type Phase string

const (
	PhaseNone  Phase = ""
	PhaseStart Phase = "start"
	PhaseDraw  Phase = "draw"
	PhasePlay  Phase = "play"
	PhaseEnd   Phase = "end"
)

// Turn tracks the announced turn structure.
type Turn struct {
	Number       int
	Phase        Phase
	ActivePlayer string
}

// State is the session aggregate. It is owned by the dispatch loop and handed by
// pointer to the prompt controller and the input mediator.
type State struct {
	logger *zap.Logger

	Catalog  *catalog.Catalog
	Registry *Registry
	Players  *Directory
	Changes  *Notifier
	Turn     Turn
}

// New creates an empty session.
func New(opts Options, logger *zap.Logger) *State {
	if logger == nil {
		logger = zap.NewNop()
	}
	cat := catalog.New(logger.Named("catalog"))
	return &State{
		logger:   logger,
		Catalog:  cat,
		Registry: NewRegistry(cat, logger.Named("registry")),
		Players:  NewDirectory(opts),
		Changes:  NewNotifier(),
	}
}

// ApplyInfo merges players, card definitions and reveals. Definitions are ingested
// before reveals so a reveal in the same message resolves against them.
func (s *State) ApplyInfo(info protocol.Info) {
	for _, id := range sortedKeys(info.Players) {
		name := info.Players[id]
		p, created := s.Players.Upsert(id, name)
		if created {
			s.logger.Info("player joined",
				zap.String("player_id", id),
				zap.String("player_name", name),
				zap.Bool("self", p.IsSelf),
			)
		}
		s.Changes.Publish(Change{Kind: ChangePlayer, PlayerID: id, Slot: NoSlot})
	}

	if len(info.Cards) > 0 {
		n := s.Catalog.Ingest(info.Cards)
		s.Registry.RefreshAbilities()
		s.logger.Debug("ingested card definitions",
			zap.Int("received", len(info.Cards)),
			zap.Int("stored", n),
		)
		s.Changes.Publish(Change{Kind: ChangeCatalog, Slot: NoSlot})
	}

	for _, id := range sortedKeys(info.Seen) {
		if err := s.Registry.Reveal(id, info.Seen[id]); err != nil {
			s.logger.Debug("buffered reveal",
				zap.String("instance_id", id),
				zap.String("card_name", info.Seen[id]),
			)
			continue
		}
		s.Changes.Publish(Change{Kind: ChangeInstanceRevealed, InstanceID: id, Slot: NoSlot})
	}
}

// ApplyEvent applies one server event. Returned errors are protocol inconsistencies;
// the state is left unchanged when one is returned.
func (s *State) ApplyEvent(ev protocol.Event) error {
	switch ev.Event {
	case EventDraw:
		return s.draw(ev)
	case EventEnterBoard:
		return s.enterBoard(ev)
	case EventLeaveBoard, EventDestroy, EventSacrifice, EventDiscard:
		return s.toPile(ev)
	case EventActivate, EventDeactivate:
		inst, err := s.instance(ev.Subject)
		if err != nil {
			return err
		}
		inst.Active = ev.Event == EventActivate
		s.Changes.Publish(Change{Kind: ChangeInstanceActive, InstanceID: inst.ID, Slot: inst.Slot})
		return nil
	case EventLoseLife, EventPlayerDmg:
		return s.adjustLife(ev, -1)
	case EventGainLife, EventHeal:
		return s.adjustLife(ev, 1)
	case EventStartPhase, EventDrawPhase, EventPlayPhase, EventEndPhase:
		return s.phase(ev)
	case EventWin, EventLose:
		p, err := s.eventPlayer(ev)
		if err != nil {
			return err
		}
		p.Won = ev.Event == EventWin
		p.Lost = ev.Event == EventLose
		s.logger.Info("game decided",
			zap.String("player_id", p.ID),
			zap.String("event", ev.Event),
		)
		s.Changes.Publish(Change{Kind: ChangePlayer, PlayerID: p.ID, Slot: NoSlot})
		return nil
	case EventPlay, EventTarget, EventAttack, EventBlock, EventDamage, EventCounter:
		s.logger.Debug("event has no local effect",
			zap.String("event", ev.Event),
			zap.String("instance_id", ev.Subject),
		)
		return nil
	default:
		s.logger.Debug("ignoring unknown event",
			zap.String("event", ev.Event),
			zap.String("instance_id", ev.Subject),
		)
		return nil
	}
}

func (s *State) draw(ev protocol.Event) error {
	p, err := s.Players.Get(ev.Controller)
	if err != nil {
		return fmt.Errorf("draw %s: %w", ev.Subject, err)
	}
	inst, created := s.Registry.Create(ev.Subject, p.ID, LocationDeck)
	if !created {
		s.logger.Debug("duplicate draw ignored",
			zap.String("instance_id", inst.ID),
			zap.String("location", string(inst.Location)),
		)
		return nil
	}
	s.Changes.Publish(Change{Kind: ChangeInstanceCreated, InstanceID: inst.ID, PlayerID: p.ID, Slot: NoSlot})
	p.Hand.Add(inst)
	s.publishHand(p.ID)
	return nil
}

func (s *State) enterBoard(ev protocol.Event) error {
	inst, err := s.instance(ev.Subject)
	if err != nil {
		return fmt.Errorf("enter-board: %w", err)
	}
	p, err := s.Players.Get(ev.Controller)
	if err != nil {
		return fmt.Errorf("enter-board %s: %w", inst.ID, err)
	}
	slot, ok := ev.ArgInt(0)
	if !ok {
		return fmt.Errorf("enter-board %s: missing slot: %w", inst.ID, ErrBadArgument)
	}

	if !p.Board.InRange(slot) {
		return fmt.Errorf("enter-board %s: slot %d on board %s: %w", inst.ID, slot, p.ID, ErrSlotOutOfRange)
	}
	// Already placed here locally by a drop.
	if slot != NoSlot && p.Board.SlotOf(inst.ID) == slot {
		inst.Dragging = false
		return nil
	}
	return s.MoveToSlot(p, slot, inst)
}

func (s *State) toPile(ev protocol.Event) error {
	inst, err := s.instance(ev.Subject)
	if err != nil {
		return fmt.Errorf("%s: %w", ev.Event, err)
	}
	s.Detach(inst)
	inst.Location = LocationPile
	inst.Slot = NoSlot
	inst.Dragging = false
	s.Changes.Publish(Change{Kind: ChangeInstanceMoved, InstanceID: inst.ID, PlayerID: inst.Owner, Slot: NoSlot})
	return nil
}

func (s *State) adjustLife(ev protocol.Event, sign int) error {
	p, err := s.eventPlayer(ev)
	if err != nil {
		return fmt.Errorf("%s: %w", ev.Event, err)
	}
	// Without an amount the server only signals that life changed.
	if amount, ok := ev.ArgInt(0); ok {
		p.Life += sign * amount
	}
	s.Changes.Publish(Change{Kind: ChangePlayer, PlayerID: p.ID, Slot: NoSlot})
	return nil
}

func (s *State) phase(ev protocol.Event) error {
	var phase Phase
	switch ev.Event {
	case EventStartPhase:
		phase = PhaseStart
	case EventDrawPhase:
		phase = PhaseDraw
	case EventPlayPhase:
		phase = PhasePlay
	case EventEndPhase:
		phase = PhaseEnd
	}

	active := ev.Controller
	if p, err := s.eventPlayer(ev); err == nil {
		active = p.ID
	}
	if phase == PhaseStart {
		s.Turn.Number++
	}
	s.Turn.Phase = phase
	s.Turn.ActivePlayer = active
	s.Changes.Publish(Change{Kind: ChangeTurn, PlayerID: active, Slot: NoSlot})
	return nil
}

// eventPlayer resolves the player an event is about: the subject when it names a
// player, otherwise the controller.
func (s *State) eventPlayer(ev protocol.Event) (*Player, error) {
	if p, ok := s.Players.Lookup(ev.Subject); ok {
		return p, nil
	}
	return s.Players.Get(ev.Controller)
}

func (s *State) instance(id string) (*CardInstance, error) {
	inst, ok := s.Registry.Get(id)
	if !ok {
		return nil, fmt.Errorf("instance %s: %w", id, ErrUnknownInstance)
	}
	return inst, nil
}

// Detach removes inst from every hand and board slot. The instance keeps its location
// until it is inserted elsewhere.
func (s *State) Detach(inst *CardInstance) {
	for _, p := range s.Players.Players() {
		if p.Hand.Remove(inst) {
			s.publishHand(p.ID)
		}
		if slot := p.Board.SlotOf(inst.ID); slot != NoSlot {
			p.Board.Clear(slot)
			s.Changes.Publish(Change{Kind: ChangeBoard, InstanceID: inst.ID, PlayerID: p.ID, Slot: slot})
		}
	}
}

// MoveToHand detaches inst and appends it to its owner's hand.
func (s *State) MoveToHand(inst *CardInstance) error {
	p, err := s.Players.Get(inst.Owner)
	if err != nil {
		return fmt.Errorf("return %s to hand: %w", inst.ID, err)
	}
	s.Detach(inst)
	p.Hand.Add(inst)
	inst.Dragging = false
	s.publishHand(p.ID)
	return nil
}

// MoveToSlot detaches inst and places it on p's board. Nothing changes when the slot
// cannot take the instance.
func (s *State) MoveToSlot(p *Player, slot int, inst *CardInstance) error {
	if err := p.Board.CanPlace(slot, inst); err != nil {
		return err
	}
	s.Detach(inst)
	if err := p.Board.Place(slot, inst); err != nil {
		return err
	}
	inst.Dragging = false
	s.Changes.Publish(Change{Kind: ChangeBoard, InstanceID: inst.ID, PlayerID: p.ID, Slot: slot})
	return nil
}

func (s *State) publishHand(playerID string) {
	s.Changes.Publish(Change{Kind: ChangeHand, PlayerID: playerID, Slot: NoSlot})
	s.Changes.Publish(Change{Kind: ChangeLayout, PlayerID: playerID, Slot: NoSlot})
}

// CheckInvariants verifies that no instance is held by two containers, that container
// members agree with their own location fields and that nothing held is mid-drag.
func (s *State) CheckInvariants() error {
	holders := make(map[string]string)
	claim := func(inst *CardInstance, where string) error {
		if prev, ok := holders[inst.ID]; ok {
			return fmt.Errorf("%w: instance %s held by %s and %s", ErrInvariantViolation, inst.ID, prev, where)
		}
		holders[inst.ID] = where
		if registered, ok := s.Registry.Get(inst.ID); !ok || registered != inst {
			return fmt.Errorf("%w: instance %s in %s is not the registered instance", ErrInvariantViolation, inst.ID, where)
		}
		if inst.Dragging {
			return fmt.Errorf("%w: instance %s in %s is being dragged", ErrInvariantViolation, inst.ID, where)
		}
		return nil
	}

	for _, p := range s.Players.Players() {
		where := "hand of " + p.ID
		for _, inst := range p.Hand.Members() {
			if err := claim(inst, where); err != nil {
				return err
			}
			if inst.Location != LocationHand {
				return fmt.Errorf("%w: instance %s in %s has location %s", ErrInvariantViolation, inst.ID, where, inst.Location)
			}
		}
		for _, slot := range p.Board.Occupied() {
			inst, _ := p.Board.Occupant(slot)
			where := fmt.Sprintf("slot %d of %s", slot, p.ID)
			if err := claim(inst, where); err != nil {
				return err
			}
			if inst.Location != LocationField || inst.Slot != slot {
				return fmt.Errorf("%w: instance %s in %s has location %s slot %d", ErrInvariantViolation, inst.ID, where, inst.Location, inst.Slot)
			}
		}
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
