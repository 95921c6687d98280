package booking

import "sync"

// Registry keeps at most one open flow per chat.
type Registry struct {
	mu    sync.Mutex
	flows map[int64]*Flow
}

func NewRegistry() *Registry {
	return &Registry{flows: make(map[int64]*Flow)}
}

// Open registers f for the chat, closing whatever flow was open before.
func (r *Registry) Open(chatID int64, f *Flow) {
	r.mu.Lock()
	prev := r.flows[chatID]
	r.flows[chatID] = f
	r.mu.Unlock()

	if prev != nil && prev != f {
		prev.Close()
	}
}

// Get returns the chat's flow unless it has been closed.
func (r *Registry) Get(chatID int64) (*Flow, bool) {
	r.mu.Lock()
	f, ok := r.flows[chatID]
	r.mu.Unlock()
	if !ok || f.State() == StateClosed {
		return nil, false
	}
	return f, true
}

// Close closes and forgets the chat's flow.
func (r *Registry) Close(chatID int64) {
	r.mu.Lock()
	f := r.flows[chatID]
	delete(r.flows, chatID)
	r.mu.Unlock()

	if f != nil {
		f.Close()
	}
}

// Release forgets f if it is still the chat's flow, without closing it.
func (r *Registry) Release(chatID int64, f *Flow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.flows[chatID] == f {
		delete(r.flows, chatID)
	}
}

// Each calls fn for every open flow. fn runs without the registry lock.
func (r *Registry) Each(fn func(chatID int64, f *Flow)) {
	r.mu.Lock()
	open := make(map[int64]*Flow, len(r.flows))
	for id, f := range r.flows {
		open[id] = f
	}
	r.mu.Unlock()

	for id, f := range open {
		if f.State() != StateClosed {
			fn(id, f)
		}
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.flows)
}
