package params

import (
	"sync"

	"k8s.io/klog/v2"
)

// Update is a deferred variable assignment.
type Update struct {
	// Name identifies the update in logs, usually the variable key.
	Name  string
	Apply func()
}

// UpdateQueue collects updates produced during a forward pass. The caller
// runs them once the step is done, so no forward output ever observes them.
type UpdateQueue struct {
	mu      sync.Mutex
	pending []Update
}

// Push appends an update.
func (q *UpdateQueue) Push(name string, apply func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, Update{Name: name, Apply: apply})
}

// Len returns the number of pending updates.
func (q *UpdateQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Names returns the names of the pending updates in queue order.
func (q *UpdateQueue) Names() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	names := make([]string, len(q.pending))
	for i, u := range q.pending {
		names[i] = u.Name
	}
	return names
}

// Apply runs and clears the pending updates in queue order. It returns the
// number of updates applied.
func (q *UpdateQueue) Apply() int {
	q.mu.Lock()
	pending := q.pending
	q.pending = nil
	q.mu.Unlock()

	for _, u := range pending {
		klog.V(4).Infof("params: applying update %s", u.Name)
		u.Apply()
	}
	return len(pending)
}

// Discard drops the pending updates without running them.
func (q *UpdateQueue) Discard() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = nil
}
