package feed

import "sync"

// Trigger turns a stream of visibility observations of a sentinel element into
// at most one call per hidden-to-visible transition.
type Trigger struct {
	mu      sync.Mutex
	visible bool
	fire    func()
}

// NewTrigger constructs a trigger that calls fire on each becoming-visible edge.
func NewTrigger(fire func()) *Trigger {
	return &Trigger{fire: fire}
}

// Observe records the sentinel's visibility and reports whether fire was called.
func (t *Trigger) Observe(visible bool) bool {
	t.mu.Lock()
	edge := visible && !t.visible
	t.visible = visible
	t.mu.Unlock()
	if edge {
		t.fire()
	}
	return edge
}
