// Package dedup remembers which message ids have already entered the feed.
//
// The seen-set is bounded. Ids are kept in insertion order so that when the
// set grows past its soft limit the oldest ids are evicted first and the
// most recent ones survive.
package dedup

const (
	// DefaultSoftLimit is the size at which the set is trimmed.
	DefaultSoftLimit = 1000
	// DefaultRetain is how many of the most recent ids survive a trim.
	DefaultRetain = 500
)

// Filter is an insertion-ordered, bounded set of message ids.
// It is not safe for concurrent use; state.Store serializes access.
type Filter struct {
	softLimit int
	retain    int

	seen  map[string]struct{}
	order []string // oldest first

	processed  uint64
	duplicates uint64
}

// New creates a filter that trims to retain ids once it holds more than
// softLimit. Non-positive values fall back to the defaults.
func New(softLimit, retain int) *Filter {
	if softLimit <= 0 {
		softLimit = DefaultSoftLimit
	}
	if retain <= 0 || retain > softLimit {
		retain = min(DefaultRetain, softLimit)
	}
	return &Filter{
		softLimit: softLimit,
		retain:    retain,
		seen:      make(map[string]struct{}, softLimit+1),
	}
}

// IsNew reports whether id has not been seen before and records it.
func (f *Filter) IsNew(id string) bool {
	f.processed++
	if _, ok := f.seen[id]; ok {
		f.duplicates++
		return false
	}
	f.seen[id] = struct{}{}
	f.order = append(f.order, id)
	if len(f.order) > f.softLimit {
		f.trim()
	}
	return true
}

// Contains reports whether id is currently retained, without recording it.
func (f *Filter) Contains(id string) bool {
	_, ok := f.seen[id]
	return ok
}

// trim drops the oldest ids until only retain remain.
func (f *Filter) trim() {
	drop := len(f.order) - f.retain
	for _, id := range f.order[:drop] {
		delete(f.seen, id)
	}
	kept := make([]string, f.retain, f.softLimit+1)
	copy(kept, f.order[drop:])
	f.order = kept
}

// Clear forgets every id.
func (f *Filter) Clear() {
	f.seen = make(map[string]struct{}, f.softLimit+1)
	f.order = nil
}

// Len returns the number of retained ids.
func (f *Filter) Len() int {
	return len(f.order)
}

// Stats returns lookup counters and the current set size.
func (f *Filter) Stats() (processed uint64, duplicates uint64, size int) {
	return f.processed, f.duplicates, len(f.order)
}
