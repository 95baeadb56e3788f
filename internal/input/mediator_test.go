package input

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cardengine/table-client/internal/prompt"
	"github.com/cardengine/table-client/internal/protocol"
	"github.com/cardengine/table-client/internal/session"
)

type fixture struct {
	state      *session.State
	controller *prompt.Controller
	sent       *protocol.Recorder
	mediator   *Mediator
}

// newFixture seats Alice (p1, self) with hand A, B, C and Bob (p2) with hand X.
func newFixture(t *testing.T, policy CancelPolicy) *fixture {
	t.Helper()
	s := session.New(session.Options{SelfName: "Alice"}, zap.NewNop())
	s.ApplyInfo(protocol.Info{Players: map[string]string{"p1": "Alice", "p2": "Bob"}})
	for _, ev := range []protocol.Event{
		{Event: session.EventDraw, Subject: "A", Controller: "p1"},
		{Event: session.EventDraw, Subject: "B", Controller: "p1"},
		{Event: session.EventDraw, Subject: "C", Controller: "p1"},
		{Event: session.EventDraw, Subject: "X", Controller: "p2"},
	} {
		require.NoError(t, s.ApplyEvent(ev))
	}
	c := prompt.NewController(s, zap.NewNop())
	rec := &protocol.Recorder{}
	return &fixture{
		state:      s,
		controller: c,
		sent:       rec,
		mediator:   NewMediator(s, c, rec, policy, zap.NewNop()),
	}
}

func (f *fixture) self(t *testing.T) *session.Player {
	t.Helper()
	p, ok := f.state.Players.Self()
	require.True(t, ok)
	return p
}

func (f *fixture) inst(t *testing.T, id string) *session.CardInstance {
	t.Helper()
	inst, ok := f.state.Registry.Get(id)
	require.True(t, ok)
	return inst
}

func TestDragStartRemovesFromHandAndSelects(t *testing.T) {
	f := newFixture(t, CancelPolicyNotify)
	self := f.self(t)

	f.mediator.PointerDown("B")
	assert.Equal(t, PhaseSelecting, f.mediator.Phase("B"))
	assert.Empty(t, f.sent.Sent, "pointer down in hand sends nothing")

	f.mediator.DragStart("B")

	b := f.inst(t, "B")
	assert.True(t, b.Dragging)
	assert.False(t, self.Hand.Contains("B"))
	assert.Equal(t, 2, self.Hand.Len())
	assert.Equal(t, 2, b.Layout.Depth, "raised above remaining hand cards")
	assert.Equal(t, PhaseDragging, f.mediator.Phase("B"))
	assert.Equal(t, []protocol.Choice{protocol.InstanceChoice("B")}, f.sent.Choices())
	require.NoError(t, f.state.CheckInvariants())
}

func TestDragCancelRestoresHandCount(t *testing.T) {
	for _, policy := range []CancelPolicy{CancelPolicyNotify, CancelPolicySilent} {
		t.Run(string(policy), func(t *testing.T) {
			f := newFixture(t, policy)
			self := f.self(t)
			before := self.Hand.Len()

			f.mediator.DragStart("A")
			f.mediator.DragMove("A", 300, 200)
			assert.Equal(t, 300.0, f.inst(t, "A").Layout.X)
			f.mediator.Cancel("A")

			assert.Equal(t, before, self.Hand.Len())
			assert.True(t, self.Hand.Contains("A"))
			assert.False(t, f.inst(t, "A").Dragging)
			assert.Equal(t, session.LocationHand, f.inst(t, "A").Location)
			assert.Equal(t, PhaseReturned, f.mediator.Phase("A"))
			require.NoError(t, f.state.CheckInvariants())

			want := []protocol.Choice{protocol.InstanceChoice("A")}
			if policy == CancelPolicyNotify {
				want = append(want, protocol.EmptyChoice())
			}
			assert.Equal(t, want, f.sent.Choices())
		})
	}
}

func TestDropOutsideBehavesLikeCancel(t *testing.T) {
	f := newFixture(t, CancelPolicyNotify)
	self := f.self(t)

	f.mediator.DragStart("A")
	f.mediator.Drop("A", nil)

	assert.Equal(t, 3, self.Hand.Len())
	assert.Equal(t, []protocol.Choice{protocol.InstanceChoice("A"), protocol.EmptyChoice()}, f.sent.Choices())

	f.sent.Reset()
	f.mediator.DragStart("A")
	f.mediator.Drop("A", &Target{PlayerID: "p9", Slot: 1})
	assert.Equal(t, 3, self.Hand.Len())
	assert.Equal(t, []protocol.Choice{protocol.InstanceChoice("A"), protocol.EmptyChoice()}, f.sent.Choices())
	require.NoError(t, f.state.CheckInvariants())
}

func TestDropPlacesAndSendsSlot(t *testing.T) {
	f := newFixture(t, CancelPolicyNotify)
	self := f.self(t)

	f.mediator.DragStart("C")
	f.mediator.Drop("C", &Target{PlayerID: "p1", Slot: 3})

	c := f.inst(t, "C")
	assert.False(t, c.Dragging)
	assert.Equal(t, session.LocationField, c.Location)
	assert.Equal(t, 3, self.Board.SlotOf("C"))
	assert.False(t, self.Hand.Contains("C"))
	assert.Equal(t, PhasePlaced, f.mediator.Phase("C"))
	assert.Equal(t, []protocol.Choice{protocol.InstanceChoice("C"), protocol.SlotChoice(3)}, f.sent.Choices())
	assert.Equal(t, []string{"3"}, f.sent.Choices()[1].Selected)
	require.NoError(t, f.state.CheckInvariants())

	// the server confirming the placement changes nothing
	require.NoError(t, f.state.ApplyEvent(protocol.Event{
		Event: session.EventEnterBoard, Subject: "C", Controller: "p1",
		Args: []json.RawMessage{json.RawMessage("3")},
	}))
	assert.Equal(t, 3, self.Board.SlotOf("C"))
	require.NoError(t, f.state.CheckInvariants())
}

func TestDropOnOccupiedSlotReturnsCard(t *testing.T) {
	f := newFixture(t, CancelPolicySilent)
	self := f.self(t)

	f.mediator.DragStart("A")
	f.mediator.Drop("A", &Target{PlayerID: "p1", Slot: 0})
	require.Equal(t, 0, self.Board.SlotOf("A"))

	f.mediator.DragStart("B")
	f.mediator.Drop("B", &Target{PlayerID: "p1", Slot: 0})

	assert.True(t, self.Hand.Contains("B"))
	assert.Equal(t, session.LocationHand, f.inst(t, "B").Location)
	assert.Equal(t, PhaseReturned, f.mediator.Phase("B"))
	assert.Equal(t, []protocol.Choice{
		protocol.InstanceChoice("A"),
		protocol.SlotChoice(0),
		protocol.InstanceChoice("B"),
	}, f.sent.Choices())
	require.NoError(t, f.state.CheckInvariants())
}

func TestDropOutOfRangeReturnsCard(t *testing.T) {
	f := newFixture(t, CancelPolicyNotify)
	self := f.self(t)

	f.mediator.DragStart("A")
	f.mediator.Drop("A", &Target{PlayerID: "p1", Slot: 10})

	assert.True(t, self.Hand.Contains("A"))
	assert.Equal(t, protocol.EmptyChoice(), f.sent.Choices()[1])
}

func TestPointerDownOnBoard(t *testing.T) {
	f := newFixture(t, CancelPolicyNotify)
	require.NoError(t, f.state.ApplyEvent(protocol.Event{Event: session.EventEnterBoard, Subject: "A", Controller: "p1", Args: []json.RawMessage{json.RawMessage("1")}}))
	require.NoError(t, f.state.ApplyEvent(protocol.Event{Event: session.EventEnterBoard, Subject: "X", Controller: "p2", Args: []json.RawMessage{json.RawMessage("1")}}))

	// not eligible yet
	f.mediator.PointerDown("A")
	assert.Empty(t, f.sent.Sent)

	f.controller.Apply(protocol.Prompt{Action: protocol.PromptCard, Options: []string{"A", "X"}})

	f.mediator.PointerDown("A")
	f.mediator.PointerDown("X")
	assert.Equal(t, []protocol.Choice{protocol.InstanceChoice("A")}, f.sent.Choices(), "opponent cards are never selected")
	assert.Equal(t, PhaseIdle, f.mediator.Phase("A"))
}

func TestGesturesOnOpponentOrUnknownCards(t *testing.T) {
	f := newFixture(t, CancelPolicyNotify)

	f.mediator.DragStart("X")
	f.mediator.DragStart("nope")
	f.mediator.Drop("X", &Target{PlayerID: "p2", Slot: 0})
	f.mediator.Cancel("nope")

	assert.Empty(t, f.sent.Sent)
	assert.False(t, f.inst(t, "X").Dragging)
	require.NoError(t, f.state.CheckInvariants())
}

func TestServerPlacementDuringDragMakesDropStale(t *testing.T) {
	f := newFixture(t, CancelPolicyNotify)
	self := f.self(t)

	f.mediator.DragStart("A")
	require.NoError(t, f.state.ApplyEvent(protocol.Event{Event: session.EventEnterBoard, Subject: "A", Controller: "p1", Args: []json.RawMessage{json.RawMessage("4")}}))
	require.NoError(t, f.state.CheckInvariants())

	f.mediator.Drop("A", &Target{PlayerID: "p1", Slot: 2})

	assert.Equal(t, 4, self.Board.SlotOf("A"))
	assert.Equal(t, PhaseIdle, f.mediator.Phase("A"))
	assert.Len(t, f.sent.Sent, 1)
}

func TestHandleDispatchesGestures(t *testing.T) {
	f := newFixture(t, CancelPolicyNotify)

	for _, g := range []Gesture{
		{Kind: GesturePointerDown, InstanceID: "A"},
		{Kind: GestureDragStart, InstanceID: "A"},
		{Kind: GestureDragMove, InstanceID: "A", X: 10, Y: 20},
		{Kind: GestureDrop, InstanceID: "A", Target: &Target{PlayerID: "p1", Slot: 6}},
		{Kind: "wave", InstanceID: "A"},
	} {
		f.mediator.Handle(g)
	}

	assert.Equal(t, 6, f.self(t).Board.SlotOf("A"))
	assert.Equal(t, []protocol.Choice{protocol.InstanceChoice("A"), protocol.SlotChoice(6)}, f.sent.Choices())
}

func TestChooseAbility(t *testing.T) {
	f := newFixture(t, CancelPolicyNotify)
	f.controller.Apply(protocol.Prompt{Action: protocol.PromptAbility, Card: "A", Options: []string{"A:1"}})

	f.mediator.Handle(Gesture{Kind: GestureAbility, InstanceID: "A", Ability: 0})
	f.mediator.Handle(Gesture{Kind: GestureAbility, InstanceID: "A", Ability: 1})

	assert.Equal(t, []protocol.Choice{{Selected: []string{"A:1"}}}, f.sent.Choices())
}

func TestSendFailureIsAbsorbed(t *testing.T) {
	f := newFixture(t, CancelPolicyNotify)
	failing := protocol.SenderFunc(func(protocol.Outbound) error { return errors.New("closed") })
	m := NewMediator(f.state, f.controller, failing, "", zap.NewNop())
	assert.Equal(t, CancelPolicyNotify, m.Policy())

	m.DragStart("A")
	m.Cancel("A")
	assert.True(t, f.self(t).Hand.Contains("A"))
}

func TestParseCancelPolicy(t *testing.T) {
	p, err := ParseCancelPolicy("silent")
	require.NoError(t, err)
	assert.Equal(t, CancelPolicySilent, p)

	p, err = ParseCancelPolicy("")
	require.NoError(t, err)
	assert.Equal(t, CancelPolicyNotify, p)

	_, err = ParseCancelPolicy("loud")
	assert.Error(t, err)
}

func TestGestureString(t *testing.T) {
	assert.Equal(t, "drop A outside", Gesture{Kind: GestureDrop, InstanceID: "A"}.String())
	assert.Equal(t, "drop A p1/3", Gesture{Kind: GestureDrop, InstanceID: "A", Target: &Target{PlayerID: "p1", Slot: 3}}.String())
}

func TestAnsweringCardPromptClearsIt(t *testing.T) {
	f := newFixture(t, CancelPolicyNotify)
	require.NoError(t, f.state.ApplyEvent(protocol.Event{Event: session.EventEnterBoard, Subject: "A", Controller: "p1", Args: []json.RawMessage{json.RawMessage("1")}}))
	f.controller.Apply(protocol.Prompt{Action: protocol.PromptCard, Options: []string{"A"}})
	require.True(t, f.inst(t, "A").Eligible)

	f.mediator.PointerDown("A")
	assert.Equal(t, prompt.KindNone, f.controller.Kind())
	assert.False(t, f.inst(t, "A").Eligible)

	f.mediator.PointerDown("A")
	assert.Equal(t, []protocol.Choice{protocol.InstanceChoice("A")}, f.sent.Choices(), "a resolved prompt accepts no second answer")
}

func TestSlotChoiceClearsFieldPrompt(t *testing.T) {
	f := newFixture(t, CancelPolicySilent)
	self := f.self(t)

	f.mediator.DragStart("A")
	f.controller.Apply(protocol.Prompt{Action: protocol.PromptField, Options: []string{"2", "3"}})
	require.True(t, self.Board.Enabled(2))

	f.mediator.Drop("A", &Target{PlayerID: "p1", Slot: 2})

	assert.Equal(t, prompt.KindNone, f.controller.Kind())
	assert.Empty(t, self.Board.EnabledSlots())
	assert.Equal(t, []protocol.Choice{protocol.InstanceChoice("A"), protocol.SlotChoice(2)}, f.sent.Choices())
}

func TestDragStartKeepsPromptForFollowUp(t *testing.T) {
	f := newFixture(t, CancelPolicySilent)
	f.controller.Apply(protocol.Prompt{Action: protocol.PromptCard, Options: []string{"A", "B"}})

	f.mediator.DragStart("A")
	assert.Equal(t, prompt.KindCard, f.controller.Kind())

	f.controller.Apply(protocol.Prompt{Action: protocol.PromptField, Options: []string{"0"}})
	assert.Equal(t, prompt.KindField, f.controller.Kind())
	assert.False(t, f.inst(t, "B").Eligible)
}

func TestAbilityChoiceClearsPrompt(t *testing.T) {
	f := newFixture(t, CancelPolicyNotify)
	f.controller.Apply(protocol.Prompt{Action: protocol.PromptAbility, Card: "A", Options: []string{"A:0", "A:1"}})

	f.mediator.ChooseAbility("A", 1)
	f.mediator.ChooseAbility("A", 0)

	assert.Equal(t, prompt.KindNone, f.controller.Kind())
	assert.Equal(t, []protocol.Choice{{Selected: []string{"A:1"}}}, f.sent.Choices())
}

func TestFailedSendKeepsPrompt(t *testing.T) {
	f := newFixture(t, CancelPolicyNotify)
	require.NoError(t, f.state.ApplyEvent(protocol.Event{Event: session.EventEnterBoard, Subject: "A", Controller: "p1", Args: []json.RawMessage{json.RawMessage("1")}}))
	f.controller.Apply(protocol.Prompt{Action: protocol.PromptCard, Options: []string{"A"}})

	failing := protocol.SenderFunc(func(protocol.Outbound) error { return errors.New("closed") })
	m := NewMediator(f.state, f.controller, failing, CancelPolicyNotify, zap.NewNop())
	m.PointerDown("A")

	assert.Equal(t, prompt.KindCard, f.controller.Kind())
	assert.True(t, f.inst(t, "A").Eligible)
}

func TestCancelAfterInvalidServerPlacementReturnsCard(t *testing.T) {
	f := newFixture(t, CancelPolicyNotify)
	self := f.self(t)

	f.mediator.DragStart("A")
	err := f.state.ApplyEvent(protocol.Event{Event: session.EventEnterBoard, Subject: "A", Controller: "p1", Args: []json.RawMessage{json.RawMessage("-1")}})
	assert.True(t, session.IsInvalidPlacement(err))
	assert.True(t, f.inst(t, "A").Dragging, "a rejected placement leaves the drag in flight")

	f.mediator.Cancel("A")

	assert.True(t, self.Hand.Contains("A"))
	assert.Equal(t, session.LocationHand, f.inst(t, "A").Location)
	assert.Equal(t, PhaseReturned, f.mediator.Phase("A"))
	assert.Equal(t, 3, self.Hand.Len())
	require.NoError(t, f.state.CheckInvariants())
}
