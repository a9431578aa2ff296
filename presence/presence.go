// Package presence tracks which card, if any, is currently in front of
// the readers. Both hardware pollers report into a single Tracker so
// that a card seen by two interfaces at once is only processed once,
// and a removal is only announced when no interface sees it anymore.
package presence

import "sync"

// Interface identifies one hardware polling interface.
type Interface string

// Transition is the result of reporting a visible card.
type Transition int

const (
	// NoChange means the reported card is already being handled, or
	// another card is still active.
	NoChange Transition = iota

	// NewCard means this report claimed the active slot; the caller
	// must run the tag through the pipeline.
	NewCard
)

// Removal is the result of a removal check.
type Removal int

const (
	// NoCard means no card was active.
	NoCard Removal = iota

	// StillPresent means at least one interface still sees the card.
	StillPresent

	// Removed means the active card just went out of sight of every
	// interface. Returned at most once per card.
	Removed
)

// Tracker is the shared presence state machine. All methods take the
// internal lock; callers must never invoke them while doing hardware
// or socket I/O of their own.
type Tracker struct {
	mu         sync.Mutex
	currentUID string
	active     Interface
	health     map[Interface]bool
}

// NewTracker registers the given interfaces. A removal is only
// reported once every registered interface stops seeing the card, so
// all pollers sharing the tracker must be registered up front.
func NewTracker(interfaces ...Interface) *Tracker {
	health := make(map[Interface]bool, len(interfaces))
	for _, iface := range interfaces {
		health[iface] = false
	}
	return &Tracker{health: health}
}

// ReportSeen records that iface currently sees the card with the given
// UID. The first report of a UID while no card is active returns
// NewCard; everything else returns NoChange. A different UID while a
// card is still active is dropped (single card at a time).
func (t *Tracker) ReportSeen(iface Interface, uid string) Transition {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.health[iface] = true

	if t.currentUID == "" {
		t.currentUID = uid
		t.active = iface
		return NewCard
	}
	return NoChange
}

// ReportUnseen records that iface currently sees no card.
func (t *Tracker) ReportUnseen(iface Interface) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.health[iface] = false
}

// EvaluateRemoval clears the active card and returns Removed when
// every registered interface has reported it unseen.
func (t *Tracker) EvaluateRemoval() Removal {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.currentUID == "" {
		return NoCard
	}
	for _, seen := range t.health {
		if seen {
			return StillPresent
		}
	}

	t.currentUID = ""
	t.active = ""
	return Removed
}

// ActiveUID returns the UID of the active card, or "" if none.
func (t *Tracker) ActiveUID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.currentUID
}

// ActiveInterface returns the interface that first saw the active
// card, or "" if no card is active.
func (t *Tracker) ActiveInterface() Interface {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}
