package input

import "fmt"

// GestureKind names a player gesture delivered by the presentation layer.
type GestureKind string

const (
	GesturePointerDown GestureKind = "pointer-down"
	GestureDragStart   GestureKind = "drag-start"
	GestureDragMove    GestureKind = "drag-move"
	GestureDrop        GestureKind = "drop"
	GestureCancel      GestureKind = "cancel"
	GestureAbility     GestureKind = "ability"
)

// Target identifies the zone a drop was released over.
type Target struct {
	PlayerID string
	Slot     int
}

// Gesture is one input event. Fields not used by Kind are zero.
type Gesture struct {
	Kind       GestureKind
	InstanceID string
	X          float64
	Y          float64
	// Target is nil for a drop outside every zone.
	Target *Target
	// Ability is the ability index for GestureAbility.
	Ability int
}

func (g Gesture) String() string {
	switch g.Kind {
	case GestureDragMove:
		return fmt.Sprintf("%s %s (%.0f,%.0f)", g.Kind, g.InstanceID, g.X, g.Y)
	case GestureDrop:
		if g.Target == nil {
			return fmt.Sprintf("%s %s outside", g.Kind, g.InstanceID)
		}
		return fmt.Sprintf("%s %s %s/%d", g.Kind, g.InstanceID, g.Target.PlayerID, g.Target.Slot)
	case GestureAbility:
		return fmt.Sprintf("%s %s #%d", g.Kind, g.InstanceID, g.Ability)
	default:
		return fmt.Sprintf("%s %s", g.Kind, g.InstanceID)
	}
}

// CancelPolicy decides whether returning a dragged card to hand is reported to the server.
type CancelPolicy string

const (
	// CancelPolicyNotify sends an empty choice whenever a drag ends back in hand, both on
	// explicit cancel and on a drop outside every zone.
	CancelPolicyNotify CancelPolicy = "notify"
	// CancelPolicySilent never reports returns.
	CancelPolicySilent CancelPolicy = "silent"
)

// ParseCancelPolicy validates a configured policy name.
func ParseCancelPolicy(s string) (CancelPolicy, error) {
	switch CancelPolicy(s) {
	case CancelPolicyNotify, CancelPolicySilent:
		return CancelPolicy(s), nil
	case "":
		return CancelPolicyNotify, nil
	default:
		return "", fmt.Errorf("unknown cancel policy %q", s)
	}
}
