package render

import (
	"sort"
	"time"
)

type parked struct {
	req      Request
	seq      uint64
	deadline time.Time
}

// pendingRegistry holds private requests waiting for a key, one per element.
type pendingRegistry struct {
	ttl     time.Duration
	seq     uint64
	entries map[string]parked
}

func newPendingRegistry(ttl time.Duration) *pendingRegistry {
	return &pendingRegistry{ttl: ttl, entries: make(map[string]parked)}
}

// park stores req, replacing any older request for the same element. It
// reports the replaced request.
func (p *pendingRegistry) park(req Request, now time.Time) (Request, bool) {
	old, replaced := p.entries[req.ElementID]

	p.seq++
	entry := parked{req: req, seq: p.seq}
	if p.ttl > 0 {
		entry.deadline = now.Add(p.ttl)
	}
	p.entries[req.ElementID] = entry

	return old.req, replaced
}

// remove drops the parked request for an element.
func (p *pendingRegistry) remove(elementID string) (Request, bool) {
	entry, ok := p.entries[elementID]
	if ok {
		delete(p.entries, elementID)
	}
	return entry.req, ok
}

// drain empties the registry in park order.
func (p *pendingRegistry) drain() []Request {
	list := p.sorted()
	p.entries = make(map[string]parked)
	return list
}

// expire removes and returns requests whose deadline passed.
func (p *pendingRegistry) expire(now time.Time) []Request {
	if p.ttl <= 0 {
		return nil
	}

	var out []Request
	for _, entry := range p.ordered() {
		if !entry.deadline.After(now) {
			delete(p.entries, entry.req.ElementID)
			out = append(out, entry.req)
		}
	}
	return out
}

func (p *pendingRegistry) len() int {
	return len(p.entries)
}

func (p *pendingRegistry) sorted() []Request {
	entries := p.ordered()
	out := make([]Request, len(entries))
	for i, e := range entries {
		out[i] = e.req
	}
	return out
}

func (p *pendingRegistry) ordered() []parked {
	entries := make([]parked, 0, len(p.entries))
	for _, e := range p.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	return entries
}
