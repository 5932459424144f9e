package domain

// PositionStore holds the open positions. Implementations must be safe for
// concurrent use and must never block on I/O: every operation is a single
// atomic step against in-process state, which is what gives closes their
// exactly-once semantics. Positions are passed and returned by value so
// callers can never mutate shared state through an alias.
type PositionStore interface {
	// Put inserts or replaces a position keyed by its ID.
	Put(p Position)

	// Get returns the position with the given ID.
	Get(id string) (Position, bool)

	// Remove atomically removes and returns the position with the given
	// ID. For any ID, exactly one caller ever observes ok == true; every
	// concurrent or later call observes ok == false.
	Remove(id string) (Position, bool)

	// Update applies fn to the stored position under the write lock and
	// returns the updated copy. ok is false when the ID is absent.
	Update(id string, fn func(*Position)) (Position, bool)

	// List returns a point-in-time snapshot ordered by open time, then ID.
	List() []Position

	// Len returns the number of stored positions.
	Len() int
}
