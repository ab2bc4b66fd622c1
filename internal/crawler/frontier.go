package crawler

// Item is one unit of crawl work.
// It is created when a discovered link passes the domain and validity
// filters, consumed exactly once by the scheduler, and never mutated.
type Item struct {
	// URL is the canonical form produced by Normalize.
	URL string

	// Depth is the link distance from the seed. The seed itself is depth 0.
	Depth int

	// Parent is the page the link was found on. Empty for the seed.
	Parent string
}

// Frontier is the ordered queue of crawl work.
//
// Push never deduplicates: links discovered by concurrent fetches in the
// same batch may enqueue the same canonical URL more than once, and racing
// a dedup check at push time would not close that window anyway. The
// scheduler filters duplicates against its visited set at dispatch time
// instead, which is the single point where the decision is race free.
//
// The frontier is owned by the scheduler goroutine and needs no locking.
type Frontier struct {
	items []Item
}

// NewFrontier creates an empty frontier.
func NewFrontier() *Frontier {
	return &Frontier{items: make([]Item, 0, 64)}
}

// Push appends an item to the tail of the queue.
func (f *Frontier) Push(item Item) {
	f.items = append(f.items, item)
}

// TakeBatch removes and returns up to n items from the head of the queue,
// preserving queue order. Items enqueued at shallower depth were pushed
// earlier, so consuming from the head approximates breadth-first order.
func (f *Frontier) TakeBatch(n int) []Item {
	if n <= 0 || len(f.items) == 0 {
		return nil
	}
	if n > len(f.items) {
		n = len(f.items)
	}

	batch := make([]Item, n)
	copy(batch, f.items[:n])
	f.items = f.items[n:]
	return batch
}

// IsEmpty reports whether the queue holds no items.
func (f *Frontier) IsEmpty() bool {
	return len(f.items) == 0
}

// Len returns the number of queued items.
func (f *Frontier) Len() int {
	return len(f.items)
}
