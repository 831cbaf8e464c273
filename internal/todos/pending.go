package todos

import "sync"

// pendingSet tracks which todo ids have a server-bound update or delete
// outstanding, and how many creates are in flight. Counts rather than
// booleans, so overlapping mutations on one id keep the flag up until the
// last one settles.
type pendingSet struct {
	mu      sync.Mutex
	creates int
	updates map[int]int
	deletes map[int]int
}

func newPendingSet() *pendingSet {
	return &pendingSet{
		updates: make(map[int]int),
		deletes: make(map[int]int),
	}
}

func (p *pendingSet) beginCreate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.creates++
}

func (p *pendingSet) endCreate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.creates > 0 {
		p.creates--
	}
}

func (p *pendingSet) creating() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.creates > 0
}

func (p *pendingSet) beginUpdate(id int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates[id]++
}

func (p *pendingSet) endUpdate(id int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.updates[id] > 1 {
		p.updates[id]--
		return
	}
	delete(p.updates, id)
}

func (p *pendingSet) beginDelete(id int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deletes[id]++
}

func (p *pendingSet) endDelete(id int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.deletes[id] > 1 {
		p.deletes[id]--
		return
	}
	delete(p.deletes, id)
}

func (p *pendingSet) updating(id int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.updates[id] > 0
}

func (p *pendingSet) deleting(id int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.deletes[id] > 0
}
