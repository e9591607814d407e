package form

import (
	"fmt"
	"sync"
	"time"

	"github.com/kalambet/jobportal/internal/apperr"
)

// Registry tracks open flows by id.
type Registry struct {
	mu    sync.Mutex
	flows map[string]*Flow
	opts  Options
}

func NewRegistry(opts Options) *Registry {
	return &Registry{flows: make(map[string]*Flow), opts: opts}
}

// Open starts a flow of the named form. initial overrides the definition's
// initial values, e.g. the plan chosen before checkout.
func (r *Registry) Open(name string, initial map[string]any) (*Flow, error) {
	def, ok := Lookup(name)
	if !ok {
		return nil, apperr.NotFound(fmt.Sprintf("unknown form %q", name)).WithOp("form.Open")
	}
	f := NewFlow(def, r.opts)
	if len(initial) > 0 {
		if err := f.Update(initial); err != nil {
			return nil, err
		}
	}
	r.mu.Lock()
	r.flows[f.ID()] = f
	r.mu.Unlock()
	return f, nil
}

func (r *Registry) Get(id string) (*Flow, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.flows[id]
	return f, ok
}

// Close closes and forgets a flow. It reports whether the id was known.
func (r *Registry) Close(id string) bool {
	r.mu.Lock()
	f, ok := r.flows[id]
	delete(r.flows, id)
	r.mu.Unlock()
	if ok {
		f.Close()
	}
	return ok
}

// Sweep closes flows idle since cutoff and returns how many it closed.
func (r *Registry) Sweep(cutoff time.Time) int {
	r.mu.Lock()
	var idle []*Flow
	for id, f := range r.flows {
		if f.IdleSince(cutoff) && !f.store.Submitting() {
			idle = append(idle, f)
			delete(r.flows, id)
		}
	}
	r.mu.Unlock()
	for _, f := range idle {
		f.Close()
	}
	return len(idle)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.flows)
}
