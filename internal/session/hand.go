package session

import "math"

// HandScale is the scale applied to every card in a fanned hand.
const HandScale = 2.0

// HandLayout anchors the fan of one hand.
type HandLayout struct {
	CenterX float64
	CenterY float64
	Radius  float64
}

// DefaultHandLayout is used when no layout is configured.
var DefaultHandLayout = HandLayout{CenterX: 512, CenterY: 768, Radius: 200}

// HandList is one player's ordered hand. Order only drives the fan layout.
type HandList struct {
	owner   string
	layout  HandLayout
	members []*CardInstance
}

// NewHandList creates an empty hand.
func NewHandList(owner string, layout HandLayout) *HandList {
	return &HandList{owner: owner, layout: layout}
}

// Layout returns the fan anchor.
func (h *HandList) Layout() HandLayout { return h.layout }

// SetLayout moves the fan anchor and lays out the members again.
func (h *HandList) SetLayout(layout HandLayout) {
	h.layout = layout
	h.rearrange()
}

// Owner returns the player id the hand belongs to.
func (h *HandList) Owner() string { return h.owner }

// Add appends inst and marks it as in hand. Adding a present instance is a no-op
// and reports false.
func (h *HandList) Add(inst *CardInstance) bool {
	if h.Contains(inst.ID) {
		return false
	}
	h.members = append(h.members, inst)
	inst.Location = LocationHand
	inst.Slot = NoSlot
	h.rearrange()
	return true
}

// Remove drops inst from the hand. Removing an absent instance is a no-op and reports false.
func (h *HandList) Remove(inst *CardInstance) bool {
	idx := h.Index(inst.ID)
	if idx < 0 {
		return false
	}
	h.members = append(h.members[:idx], h.members[idx+1:]...)
	h.rearrange()
	return true
}

// Contains reports whether id is in the hand.
func (h *HandList) Contains(id string) bool {
	return h.Index(id) >= 0
}

// Index returns the position of id, or -1.
func (h *HandList) Index(id string) int {
	for i, m := range h.members {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// Len returns the number of cards in hand.
func (h *HandList) Len() int { return len(h.members) }

// IDs returns the hand's instance ids in order.
func (h *HandList) IDs() []string {
	ids := make([]string, len(h.members))
	for i, m := range h.members {
		ids[i] = m.ID
	}
	return ids
}

// Members returns the hand's instances in order. The slice must not be modified.
func (h *HandList) Members() []*CardInstance { return h.members }

// rearrange recomputes the symmetric fan for every member from its index and the hand size.
func (h *HandList) rearrange() {
	n := float64(len(h.members))
	for i, m := range h.members {
		rot := -(math.Pi / 4) / n * ((n-1)/2 - float64(i))
		m.Layout = Layout{
			X:        h.layout.CenterX + h.layout.Radius*math.Cos(-rot+math.Pi/2),
			Y:        h.layout.CenterY + h.layout.Radius - h.layout.Radius*math.Sin(-rot+math.Pi/2),
			Rotation: rot,
			Scale:    HandScale,
			Depth:    i,
		}
	}
}
