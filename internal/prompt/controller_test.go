package prompt

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cardengine/table-client/internal/protocol"
	"github.com/cardengine/table-client/internal/session"
)

// newSession builds p1 (self) and p2, each with two cards in hand.
func newSession(t *testing.T) *session.State {
	t.Helper()
	s := session.New(session.Options{SelfName: "Alice"}, zap.NewNop())
	s.ApplyInfo(protocol.Info{Players: map[string]string{"p1": "Alice", "p2": "Bob"}})
	for _, ev := range []protocol.Event{
		{Event: session.EventDraw, Subject: "A", Controller: "p1"},
		{Event: session.EventDraw, Subject: "B", Controller: "p1"},
		{Event: session.EventDraw, Subject: "C", Controller: "p2"},
		{Event: session.EventDraw, Subject: "D", Controller: "p2"},
	} {
		require.NoError(t, s.ApplyEvent(ev))
	}
	return s
}

func decodePrompt(t *testing.T, raw string) protocol.Prompt {
	t.Helper()
	msg, err := protocol.Decode([]byte(raw))
	require.NoError(t, err)
	p, ok := msg.(protocol.Prompt)
	require.True(t, ok)
	return p
}

func instance(t *testing.T, s *session.State, id string) *session.CardInstance {
	t.Helper()
	inst, ok := s.Registry.Get(id)
	require.True(t, ok)
	return inst
}

func TestCardPromptSupersedesPrevious(t *testing.T) {
	s := newSession(t)
	c := NewController(s, zap.NewNop())

	c.Apply(protocol.Prompt{Action: protocol.PromptCard, Options: []string{"A", "B"}})
	assert.True(t, c.IsInstanceEligible("A"))
	assert.True(t, instance(t, s, "B").Eligible)

	c.Apply(protocol.Prompt{Action: protocol.PromptCard, Options: []string{"C"}})

	assert.False(t, c.IsInstanceEligible("A"))
	assert.False(t, c.IsInstanceEligible("B"))
	assert.True(t, c.IsInstanceEligible("C"))
	assert.False(t, instance(t, s, "A").Eligible)
	assert.False(t, instance(t, s, "B").Eligible)
	assert.True(t, instance(t, s, "C").Eligible)
	assert.False(t, instance(t, s, "D").Eligible)
}

func TestFieldPromptEnablesOnlyOwnSlots(t *testing.T) {
	s := newSession(t)
	c := NewController(s, zap.NewNop())

	// stale flags from an earlier state must not survive
	p2, _ := s.Players.Get("p2")
	require.NoError(t, p2.Board.SetEnabled(7, true))

	c.Apply(decodePrompt(t, `{"type":"game.prompt","data":{"action":"field","options":["2","3"]}}`))

	self, ok := s.Players.Self()
	require.True(t, ok)
	for slot := 0; slot < self.Board.Len(); slot++ {
		want := slot == 2 || slot == 3
		assert.Equal(t, want, self.Board.Enabled(slot), "own slot %d", slot)
		assert.Equal(t, want, c.IsSlotEligible("p1", slot), "own slot %d", slot)
	}
	for slot := 0; slot < p2.Board.Len(); slot++ {
		assert.False(t, p2.Board.Enabled(slot), "opponent slot %d", slot)
		assert.False(t, c.IsSlotEligible("p2", slot))
	}
	for _, id := range s.Registry.IDs() {
		assert.False(t, instance(t, s, id).Eligible)
	}
}

func TestFieldPromptAcceptsNumericOptions(t *testing.T) {
	s := newSession(t)
	c := NewController(s, zap.NewNop())

	c.Apply(decodePrompt(t, `{"type":"game.prompt","data":{"action":"field","options":[2,"3","x",42]}}`))

	assert.True(t, c.IsSlotEligible("p1", 2))
	assert.True(t, c.IsSlotEligible("p1", 3))
	assert.False(t, c.IsSlotEligible("p1", 42))
	assert.Equal(t, []string{"2", "3", "42"}, c.Describe().Options)
}

func TestCardPromptDisablesSlots(t *testing.T) {
	s := newSession(t)
	c := NewController(s, zap.NewNop())

	c.Apply(protocol.Prompt{Action: protocol.PromptField, Options: []string{"0"}})
	self, _ := s.Players.Self()
	require.True(t, self.Board.Enabled(0))

	c.Apply(protocol.Prompt{Action: protocol.PromptCard, Options: []string{"A"}})
	assert.False(t, self.Board.Enabled(0))
	assert.Empty(t, self.Board.EnabledSlots())
}

func TestAbilityPrompt(t *testing.T) {
	s := newSession(t)
	c := NewController(s, zap.NewNop())

	c.Apply(protocol.Prompt{Action: protocol.PromptAbility, Card: "A", Options: []string{"A:0", "A:2", "bogus"}})

	assert.Equal(t, KindAbility, c.Kind())
	assert.False(t, c.IsInstanceEligible("A"))

	opt, ok := c.AbilityOption("A", 2)
	require.True(t, ok)
	assert.Equal(t, "A:2", opt)

	_, ok = c.AbilityOption("A", 1)
	assert.False(t, ok)
	_, ok = c.AbilityOption("B", 0)
	assert.False(t, ok)

	st := c.State()
	assert.Equal(t, "A", st.Subject)
	assert.Len(t, st.Abilities, 2)
}

func TestTargetAndDiscardSelectInstances(t *testing.T) {
	s := newSession(t)
	c := NewController(s, zap.NewNop())

	c.Apply(protocol.Prompt{Action: protocol.PromptTarget, Options: []string{"C"}})
	assert.Equal(t, KindCard, c.Kind())
	assert.True(t, c.IsInstanceEligible("C"))

	c.Apply(protocol.Prompt{Action: protocol.PromptDiscard, Options: []string{"A"}})
	assert.True(t, c.IsInstanceEligible("A"))
	assert.False(t, c.IsInstanceEligible("C"))
}

func TestClearAndUnknownAction(t *testing.T) {
	s := newSession(t)
	c := NewController(s, zap.NewNop())

	c.Apply(protocol.Prompt{Action: protocol.PromptCard, Options: []string{"A"}})
	c.Clear()
	assert.Equal(t, KindNone, c.Kind())
	assert.False(t, instance(t, s, "A").Eligible)

	c.Apply(protocol.Prompt{Action: protocol.PromptCard, Options: []string{"A"}})
	c.Apply(protocol.Prompt{Action: "mulligan", Options: []string{"A"}})
	assert.Equal(t, KindNone, c.Kind())
	assert.False(t, instance(t, s, "A").Eligible)
}

func TestRefreshFlagsNewInstances(t *testing.T) {
	s := newSession(t)
	c := NewController(s, zap.NewNop())

	c.Apply(protocol.Prompt{Action: protocol.PromptCard, Options: []string{"E"}})
	require.NoError(t, s.ApplyEvent(protocol.Event{Event: session.EventDraw, Subject: "E", Controller: "p1"}))
	assert.False(t, instance(t, s, "E").Eligible)

	c.Refresh()
	assert.True(t, instance(t, s, "E").Eligible)
}

func TestStateIsACopy(t *testing.T) {
	s := newSession(t)
	c := NewController(s, nil)
	c.Apply(protocol.Prompt{Action: protocol.PromptCard, Options: []string{"A"}})

	st := c.State()
	delete(st.Instances, "A")
	assert.True(t, c.IsInstanceEligible("A"))

	desc := c.Describe()
	assert.Equal(t, "card", desc.Kind)
	assert.Equal(t, []string{"A"}, desc.Options)

	raw, err := json.Marshal(desc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"card","options":["A"]}`, string(raw))
}
