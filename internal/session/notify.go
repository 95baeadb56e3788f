package session

import "sync"

// ChangeKind indicates what part of the session changed.
type ChangeKind string

const (
	ChangeInstanceCreated  ChangeKind = "INSTANCE_CREATED"
	ChangeInstanceRevealed ChangeKind = "INSTANCE_REVEALED"
	ChangeInstanceMoved    ChangeKind = "INSTANCE_MOVED"
	ChangeInstanceActive   ChangeKind = "INSTANCE_ACTIVE"
	ChangeHand             ChangeKind = "HAND_CHANGED"
	ChangeBoard            ChangeKind = "BOARD_CHANGED"
	ChangePlayer           ChangeKind = "PLAYER_CHANGED"
	ChangeCatalog          ChangeKind = "CATALOG_CHANGED"
	ChangeTurn             ChangeKind = "TURN_CHANGED"
	ChangeEligibility      ChangeKind = "ELIGIBILITY_CHANGED"
	ChangeLayout           ChangeKind = "LAYOUT_CHANGED"
)

// Change tells presentation which entity to restyle.
type Change struct {
	Kind       ChangeKind
	InstanceID string
	PlayerID   string
	Slot       int
}

// Listener receives every change.
type Listener func(Change)

type typedListener struct {
	handle   int
	kind     ChangeKind
	callback Listener
}

// Notifier is a synchronous publish/subscribe hub for session changes. Listeners run on
// the publishing goroutine and must not mutate the session.
type Notifier struct {
	mu         sync.RWMutex
	listeners  map[int]Listener
	typed      map[ChangeKind][]typedListener
	nextHandle int
}

// NewNotifier constructs an empty notifier.
func NewNotifier() *Notifier {
	return &Notifier{
		listeners: make(map[int]Listener),
		typed:     make(map[ChangeKind][]typedListener),
	}
}

// Subscribe registers a listener for all changes and returns a handle.
func (n *Notifier) Subscribe(listener Listener) int {
	if listener == nil {
		return -1
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	handle := n.nextHandle
	n.nextHandle++
	n.listeners[handle] = listener
	return handle
}

// SubscribeKind registers a listener for one change kind and returns a handle.
func (n *Notifier) SubscribeKind(kind ChangeKind, listener Listener) int {
	if listener == nil {
		return -1
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	handle := n.nextHandle
	n.nextHandle++
	n.typed[kind] = append(n.typed[kind], typedListener{handle: handle, kind: kind, callback: listener})
	return handle
}

// Unsubscribe removes the listener registered under handle.
func (n *Notifier) Unsubscribe(handle int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.listeners, handle)
	for kind, listeners := range n.typed {
		for i := len(listeners) - 1; i >= 0; i-- {
			if listeners[i].handle == handle {
				n.typed[kind] = append(listeners[:i], listeners[i+1:]...)
				break
			}
		}
	}
}

// Publish delivers c to all matching listeners. Listeners run without the lock held, so
// they may subscribe or unsubscribe; such changes apply from the next Publish.
func (n *Notifier) Publish(c Change) {
	n.mu.RLock()
	targets := make([]Listener, 0, len(n.listeners)+len(n.typed[c.Kind]))
	for _, listener := range n.listeners {
		targets = append(targets, listener)
	}
	for _, l := range n.typed[c.Kind] {
		targets = append(targets, l.callback)
	}
	n.mu.RUnlock()

	for _, listener := range targets {
		listener(c)
	}
}
