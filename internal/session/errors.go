package session

import (
	"errors"

	"github.com/cardengine/table-client/internal/catalog"
)

// Protocol inconsistencies: an update refers to something this client never saw.
var (
	ErrUnknownInstance = errors.New("unknown card instance")
	ErrUnknownPlayer   = errors.New("unknown player")
	ErrBadArgument     = errors.New("bad event argument")
)

// ErrMalformedDefinition is returned for catalog entries that cannot be used.
var ErrMalformedDefinition = catalog.ErrMalformedDefinition

// Invalid placements.
var (
	ErrSlotOutOfRange = errors.New("slot out of range")
	ErrSlotOccupied   = errors.New("slot occupied")
)

// ErrInvariantViolation means an instance is held by two containers at once.
// It is a programming error, never a protocol condition.
var ErrInvariantViolation = errors.New("session invariant violated")

// IsProtocolInconsistency reports whether err was caused by an update that referenced
// unknown state or carried unusable arguments.
func IsProtocolInconsistency(err error) bool {
	return errors.Is(err, ErrUnknownInstance) || errors.Is(err, ErrUnknownPlayer) || errors.Is(err, ErrBadArgument)
}

// IsInvalidPlacement reports whether err was caused by an unusable slot.
func IsInvalidPlacement(err error) bool {
	return errors.Is(err, ErrSlotOutOfRange) || errors.Is(err, ErrSlotOccupied)
}
