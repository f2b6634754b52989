package memory

import (
	"container/heap"
	"context"
	"sync"

	"github.com/JakeFAU/crawl-frontier/internal/frontier"
)

// Queue keeps one priority heap per domain plus the rotation of active
// domains used for round-robin dequeue. Higher score wins; ties go to the
// earlier enqueue sequence number, so dequeue order is deterministic.
type Queue struct {
	mu       sync.Mutex
	domains  map[string]*domainHeap
	rotation []string
	cursor   int
	seq      uint64
}

// NewQueue constructs an empty Queue.
func NewQueue() *Queue {
	return &Queue{domains: make(map[string]*domainHeap)}
}

// Insert adds a waiting entry, or re-scores it in place if already queued.
func (q *Queue) Insert(_ context.Context, domain, id string, score float64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	dh, ok := q.domains[domain]
	if !ok {
		dh = newDomainHeap()
		q.domains[domain] = dh
		q.rotation = append(q.rotation, domain)
	}
	if e, exists := dh.byID[id]; exists {
		e.score = score
		heap.Fix(&dh.entries, e.index)
		return nil
	}
	q.seq++
	e := &entry{id: id, score: score, seq: q.seq}
	dh.byID[id] = e
	heap.Push(&dh.entries, e)
	return nil
}

// Remove drops an entry if present. Emptying a domain drops the domain from
// the active rotation in the same step.
func (q *Queue) Remove(_ context.Context, domain, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	dh, ok := q.domains[domain]
	if !ok {
		return nil
	}
	e, exists := dh.byID[id]
	if !exists {
		return nil
	}
	heap.Remove(&dh.entries, e.index)
	delete(dh.byID, id)
	if len(dh.byID) == 0 {
		q.dropDomain(domain)
	}
	return nil
}

// PopHighest removes and returns the best entry for one domain.
func (q *Queue) PopHighest(_ context.Context, domain string) (frontier.Item, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.popLocked(domain)
}

// PopAny serves the next active domain in rotation, advancing the cursor so
// one domain's backlog cannot starve the others.
func (q *Queue) PopAny(_ context.Context) (frontier.Item, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.rotation) == 0 {
		return frontier.Item{}, false, nil
	}
	if q.cursor >= len(q.rotation) {
		q.cursor = 0
	}
	domain := q.rotation[q.cursor]
	item, ok, err := q.popLocked(domain)
	if err != nil || !ok {
		return frontier.Item{}, ok, err
	}
	// popLocked drops an emptied domain from the rotation, which slides the
	// next domain into the cursor slot; only advance past surviving domains.
	if _, alive := q.domains[domain]; alive {
		q.cursor++
	}
	if q.cursor >= len(q.rotation) {
		q.cursor = 0
	}
	return item, true, nil
}

// ActiveDomains lists domains with waiting entries, in rotation order.
func (q *Queue) ActiveDomains(_ context.Context) ([]string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, len(q.rotation))
	copy(out, q.rotation)
	return out, nil
}

// Len returns the number of waiting entries for one domain.
func (q *Queue) Len(_ context.Context, domain string) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	dh, ok := q.domains[domain]
	if !ok {
		return 0, nil
	}
	return len(dh.byID), nil
}

func (q *Queue) popLocked(domain string) (frontier.Item, bool, error) {
	dh, ok := q.domains[domain]
	if !ok || dh.entries.Len() == 0 {
		return frontier.Item{}, false, nil
	}
	e := heap.Pop(&dh.entries).(*entry)
	delete(dh.byID, e.id)
	if len(dh.byID) == 0 {
		q.dropDomain(domain)
	}
	return frontier.Item{Domain: domain, ID: e.id, Score: e.score}, true, nil
}

func (q *Queue) dropDomain(domain string) {
	delete(q.domains, domain)
	for i, d := range q.rotation {
		if d == domain {
			q.rotation = append(q.rotation[:i], q.rotation[i+1:]...)
			if q.cursor > i {
				q.cursor--
			}
			break
		}
	}
}

type entry struct {
	id    string
	score float64
	seq   uint64
	index int
}

type domainHeap struct {
	entries entryHeap
	byID    map[string]*entry
}

func newDomainHeap() *domainHeap {
	return &domainHeap{byID: make(map[string]*entry)}
}

type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].score != h[j].score {
		return h[i].score > h[j].score
	}
	return h[i].seq < h[j].seq
}

func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *entryHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}
