package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line string
		want Gesture
	}{
		{"down c1", Gesture{Kind: GesturePointerDown, InstanceID: "c1"}},
		{"drag c1", Gesture{Kind: GestureDragStart, InstanceID: "c1"}},
		{"  cancel   c1 ", Gesture{Kind: GestureCancel, InstanceID: "c1"}},
		{"move c1 10 20.5", Gesture{Kind: GestureDragMove, InstanceID: "c1", X: 10, Y: 20.5}},
		{"drop c1", Gesture{Kind: GestureDrop, InstanceID: "c1"}},
		{"drop c1 p1 3", Gesture{Kind: GestureDrop, InstanceID: "c1", Target: &Target{PlayerID: "p1", Slot: 3}}},
		{"ability c1 2", Gesture{Kind: GestureAbility, InstanceID: "c1", Ability: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := ParseCommand(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCommandErrors(t *testing.T) {
	for _, line := range []string{
		"",
		"drag",
		"fly c1",
		"drag c1 extra",
		"move c1 10",
		"move c1 a b",
		"drop c1 p1",
		"drop c1 p1 x",
		"ability c1",
		"ability c1 -1",
	} {
		_, err := ParseCommand(line)
		assert.ErrorIs(t, err, ErrBadCommand, line)
	}
}
