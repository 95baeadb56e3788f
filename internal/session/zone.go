package session

import "fmt"

// ZoneGrid is one player's board: rows x columns slots, each with at most one occupant
// and an enabled flag. Slots are indexed row-major from zero.
//
// The grid does not move instances out of other containers; callers detach first.
type ZoneGrid struct {
	owner     string
	rows      int
	columns   int
	occupants []*CardInstance
	enabled   []bool
}

// NewZoneGrid creates an empty grid.
func NewZoneGrid(owner string, rows, columns int) *ZoneGrid {
	if rows < 1 {
		rows = 1
	}
	if columns < 1 {
		columns = 1
	}
	n := rows * columns
	return &ZoneGrid{
		owner:     owner,
		rows:      rows,
		columns:   columns,
		occupants: make([]*CardInstance, n),
		enabled:   make([]bool, n),
	}
}

// Owner returns the player id the grid belongs to.
func (g *ZoneGrid) Owner() string { return g.owner }

// Rows returns the row count.
func (g *ZoneGrid) Rows() int { return g.rows }

// Columns returns the column count.
func (g *ZoneGrid) Columns() int { return g.columns }

// Len returns the number of slots.
func (g *ZoneGrid) Len() int { return len(g.occupants) }

// InRange reports whether slot addresses this grid.
func (g *ZoneGrid) InRange(slot int) bool {
	return slot >= 0 && slot < len(g.occupants)
}

// Position returns the row and column of slot.
func (g *ZoneGrid) Position(slot int) (row, column int) {
	return slot / g.columns, slot % g.columns
}

// CanPlace reports whether inst could be placed into slot.
func (g *ZoneGrid) CanPlace(slot int, inst *CardInstance) error {
	if !g.InRange(slot) {
		return fmt.Errorf("slot %d of %d on board %s: %w", slot, len(g.occupants), g.owner, ErrSlotOutOfRange)
	}
	if occupant := g.occupants[slot]; occupant != nil && occupant.ID != inst.ID {
		return fmt.Errorf("slot %d on board %s holds %s: %w", slot, g.owner, occupant.ID, ErrSlotOccupied)
	}
	return nil
}

// Place puts inst into slot and marks it as on the field.
func (g *ZoneGrid) Place(slot int, inst *CardInstance) error {
	if err := g.CanPlace(slot, inst); err != nil {
		return err
	}
	g.occupants[slot] = inst
	inst.Location = LocationField
	inst.Slot = slot
	return nil
}

// Remove takes inst off the grid. It reports whether inst was present.
func (g *ZoneGrid) Remove(inst *CardInstance) bool {
	slot := g.SlotOf(inst.ID)
	if slot == NoSlot {
		return false
	}
	g.occupants[slot] = nil
	inst.Slot = NoSlot
	return true
}

// Clear empties slot and returns the previous occupant, if any.
func (g *ZoneGrid) Clear(slot int) *CardInstance {
	if !g.InRange(slot) {
		return nil
	}
	prev := g.occupants[slot]
	g.occupants[slot] = nil
	if prev != nil {
		prev.Slot = NoSlot
	}
	return prev
}

// Occupant returns the instance in slot.
func (g *ZoneGrid) Occupant(slot int) (*CardInstance, bool) {
	if !g.InRange(slot) || g.occupants[slot] == nil {
		return nil, false
	}
	return g.occupants[slot], true
}

// SlotOf returns the slot holding id, or NoSlot.
func (g *ZoneGrid) SlotOf(id string) int {
	for slot, occupant := range g.occupants {
		if occupant != nil && occupant.ID == id {
			return slot
		}
	}
	return NoSlot
}

// SetEnabled toggles the enabled flag of slot regardless of occupancy.
func (g *ZoneGrid) SetEnabled(slot int, enabled bool) error {
	if !g.InRange(slot) {
		return fmt.Errorf("slot %d of %d on board %s: %w", slot, len(g.enabled), g.owner, ErrSlotOutOfRange)
	}
	g.enabled[slot] = enabled
	return nil
}

// Enabled reports the enabled flag of slot. Out of range slots are never enabled.
func (g *ZoneGrid) Enabled(slot int) bool {
	return g.InRange(slot) && g.enabled[slot]
}

// EnabledSlots returns the enabled slot indices in order.
func (g *ZoneGrid) EnabledSlots() []int {
	var out []int
	for slot, on := range g.enabled {
		if on {
			out = append(out, slot)
		}
	}
	return out
}

// Occupied returns the occupied slot indices in order.
func (g *ZoneGrid) Occupied() []int {
	var out []int
	for slot, occupant := range g.occupants {
		if occupant != nil {
			out = append(out, slot)
		}
	}
	return out
}
