package session

// Location is where an instance currently lives. The set is open; the server may
// introduce locations this client has no constant for.
type Location string

const (
	LocationDeck  Location = "deck"
	LocationHand  Location = "hand"
	LocationField Location = "field"
	LocationPile  Location = "pile"
)

// NoSlot marks an instance that is not on a board.
const NoSlot = -1

// Layout is the presentation target for an instance.
type Layout struct {
	X        float64
	Y        float64
	Rotation float64
	Scale    float64
	Depth    int
}

// CardInstance is one server-identified card during a session.
type CardInstance struct {
	ID       string
	Owner    string
	Location Location
	// Name is empty until the instance is revealed.
	Name string
	// Slot is meaningful only when Location is LocationField.
	Slot int
	// Abilities lists activated ability text copied from the catalog on reveal.
	// Ability prompts address entries by index.
	Abilities []string
	// Active mirrors the server's activate/deactivate events.
	Active bool

	// Dragging is local gesture state and is never sent to the server.
	Dragging bool
	// Eligible is maintained by the prompt controller.
	Eligible bool
	Layout   Layout
}

// Revealed reports whether the instance has a known name.
func (c *CardInstance) Revealed() bool {
	return c.Name != ""
}

// OnField reports whether the instance sits in a board slot.
func (c *CardInstance) OnField() bool {
	return c.Location == LocationField && c.Slot != NoSlot
}
