package mirror

// EventOp names a registry mutation for change subscribers.
type EventOp string

const (
	// EventOpDecorate is published when a class is decorated.
	EventOpDecorate EventOp = "decorate"
	// EventOpMemberSet is published when a member mirror is registered.
	EventOpMemberSet EventOp = "member.set"
	// EventOpMemberRemove is published when a member entry is removed.
	EventOpMemberRemove EventOp = "member.remove"
	// EventOpParameterSet is published when a parameter mirror is registered.
	EventOpParameterSet EventOp = "parameter.set"
	// EventOpReset is published when a store is cleared.
	EventOpReset EventOp = "reset"
)

// Event describes one registry mutation. Events carry names, not mirror
// references, so subscribers can serialize them directly.
type Event struct {
	Op    EventOp `json:"op"`
	Class string  `json:"class,omitempty"`
	Key   string  `json:"key,omitempty"`
}

// Subscribe registers a change callback and returns its cancel function.
// Callbacks run synchronously on the mutating goroutine, outside the
// store's map lock; they must not block.
func (s *Store) Subscribe(fn func(Event)) func() {
	if fn == nil {
		return func() {}
	}
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// publish delivers an event to every subscriber.
func (s *Store) publish(e Event) {
	s.subMu.RLock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.RUnlock()

	for _, fn := range fns {
		fn(e)
	}
}
