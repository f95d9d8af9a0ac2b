// Package queue holds entries waiting to be displayed.
//
// A Queue is not safe for concurrent use. It is owned by the scheduler and
// only touched from the scheduler's loop.
package queue

import (
	"cmp"
	"container/list"
	"fmt"
	"slices"
	"strings"

	"github.com/jmylchreest/entrykit/internal/model"
)

// Heuristic selects the order in which pending entries are promoted.
type Heuristic string

const (
	// HeuristicFIFO promotes entries in submission order.
	HeuristicFIFO Heuristic = "fifo"
	// HeuristicPriority promotes higher ranks first, submission order among equals.
	HeuristicPriority Heuristic = "priority"
)

// ValidHeuristics returns all valid heuristic values.
func ValidHeuristics() []Heuristic {
	return []Heuristic{HeuristicFIFO, HeuristicPriority}
}

// ParseHeuristic parses a heuristic name. "chronological" is accepted as an
// alias for fifo.
func ParseHeuristic(s string) (Heuristic, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fifo", "chronological":
		return HeuristicFIFO, nil
	case "priority":
		return HeuristicPriority, nil
	default:
		return "", fmt.Errorf("invalid queueing heuristic %q, must be one of: %v", s, ValidHeuristics())
	}
}

// item is a queued entry plus its arrival sequence.
type item struct {
	entry *model.Entry
	seq   uint64
}

// Queue is an ordered backlog of entries that are not yet active.
type Queue struct {
	heuristic Heuristic
	items     *list.List // of *item, in dequeue order
	nextSeq   uint64
}

// New creates an empty queue ordered by the given heuristic.
// Unknown heuristics fall back to priority ordering.
func New(h Heuristic) *Queue {
	if h != HeuristicFIFO {
		h = HeuristicPriority
	}
	return &Queue{
		heuristic: h,
		items:     list.New(),
	}
}

// Heuristic returns the active ordering.
func (q *Queue) Heuristic() Heuristic {
	return q.heuristic
}

// before reports whether a must be promoted ahead of b.
func (q *Queue) before(a, b *item) bool {
	if q.heuristic == HeuristicPriority {
		ra, rb := a.entry.Rank(), b.entry.Rank()
		if ra != rb {
			return ra > rb
		}
	}
	return a.seq < b.seq
}

// Enqueue inserts an entry at its heuristic position.
func (q *Queue) Enqueue(e *model.Entry) {
	it := &item{entry: e, seq: q.nextSeq}
	q.nextSeq++

	if q.heuristic == HeuristicFIFO {
		q.items.PushBack(it)
		return
	}

	// Walk from the front and stop at the first entry the new one outranks.
	for el := q.items.Front(); el != nil; el = el.Next() {
		if q.before(it, el.Value.(*item)) {
			q.items.InsertBefore(it, el)
			return
		}
	}
	q.items.PushBack(it)
}

// Dequeue removes and returns the next entry to promote.
func (q *Queue) Dequeue() (*model.Entry, bool) {
	front := q.items.Front()
	if front == nil {
		return nil, false
	}
	q.items.Remove(front)
	return front.Value.(*item).entry, true
}

// Peek returns the next entry without removing it.
func (q *Queue) Peek() (*model.Entry, bool) {
	front := q.items.Front()
	if front == nil {
		return nil, false
	}
	return front.Value.(*item).entry, true
}

// RemoveNamed removes every queued entry with the given name.
// It returns the removed entries in queue order.
func (q *Queue) RemoveNamed(name string) []*model.Entry {
	if name == "" {
		return nil
	}
	return q.removeWhere(func(e *model.Entry) bool {
		return e.Name == name
	})
}

// RemovePriorityAtOrBelow evicts entries ranked at or below the threshold.
// Unprioritized entries rank lowest and are always evicted.
func (q *Queue) RemovePriorityAtOrBelow(threshold model.Priority) []*model.Entry {
	return q.removeWhere(func(e *model.Entry) bool {
		return e.Rank() <= threshold
	})
}

// RemoveAll clears the backlog and returns what was in it.
func (q *Queue) RemoveAll() []*model.Entry {
	removed := q.Entries()
	q.items.Init()
	return removed
}

func (q *Queue) removeWhere(match func(*model.Entry) bool) []*model.Entry {
	var removed []*model.Entry
	for el := q.items.Front(); el != nil; {
		next := el.Next()
		if it := el.Value.(*item); match(it.entry) {
			removed = append(removed, it.entry)
			q.items.Remove(el)
		}
		el = next
	}
	return removed
}

// Contains reports whether an entry with the given name is queued.
func (q *Queue) Contains(name string) bool {
	if name == "" {
		return false
	}
	for el := q.items.Front(); el != nil; el = el.Next() {
		if el.Value.(*item).entry.Name == name {
			return true
		}
	}
	return false
}

// Len returns the number of queued entries.
func (q *Queue) Len() int {
	return q.items.Len()
}

// IsEmpty reports whether nothing is queued.
func (q *Queue) IsEmpty() bool {
	return q.items.Len() == 0
}

// Entries returns the queued entries in dequeue order.
func (q *Queue) Entries() []*model.Entry {
	entries := make([]*model.Entry, 0, q.items.Len())
	for el := q.items.Front(); el != nil; el = el.Next() {
		entries = append(entries, el.Value.(*item).entry)
	}
	return entries
}

// SetHeuristic reorders the backlog under a new heuristic.
// Arrival order is kept, so switching back and forth is lossless.
func (q *Queue) SetHeuristic(h Heuristic) {
	if h != HeuristicFIFO {
		h = HeuristicPriority
	}
	if h == q.heuristic {
		return
	}
	q.heuristic = h

	items := make([]*item, 0, q.items.Len())
	for el := q.items.Front(); el != nil; el = el.Next() {
		items = append(items, el.Value.(*item))
	}
	slices.SortFunc(items, func(a, b *item) int {
		if q.before(a, b) {
			return -1
		}
		if q.before(b, a) {
			return 1
		}
		return cmp.Compare(a.seq, b.seq)
	})

	q.items.Init()
	for _, it := range items {
		q.items.PushBack(it)
	}
}
