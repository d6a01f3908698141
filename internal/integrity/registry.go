package integrity

import "sync"

// Session pairs a mounted monitor with its own event target
type Session struct {
	mu      sync.Mutex
	target  *Dispatcher
	monitor *Monitor
	pending []Violation
}

// Process dispatches events in order and returns the per-event decisions
// together with every violation they raised
func (s *Session) Process(events []Event) ([]Decision, []Violation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	decisions := make([]Decision, len(events))
	for i, ev := range events {
		decisions[i] = s.target.Dispatch(ev)
	}

	violations := s.pending
	s.pending = nil
	return decisions, violations
}

func (s *Session) Locked() bool {
	return s.monitor.Locked()
}

// Registry keeps one mounted monitor per active assignment
type Registry struct {
	mu       sync.Mutex
	sessions map[uint]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[uint]*Session)}
}

// Open returns the session for assignmentID, mounting a new monitor on first use
func (r *Registry) Open(assignmentID uint, opts Options) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[assignmentID]; ok {
		return s
	}

	s := &Session{target: NewDispatcher()}
	// Process holds s.mu while dispatching, so the callback appends without locking again
	s.monitor = NewMonitor(func(v Violation) {
		s.pending = append(s.pending, v)
	}, opts)
	_ = s.monitor.Mount(s.target)

	r.sessions[assignmentID] = s
	return s
}

func (r *Registry) Get(assignmentID uint) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[assignmentID]
	return s, ok
}

// Close unmounts and forgets the session. Closing an unknown id is a no-op.
func (r *Registry) Close(assignmentID uint) {
	r.mu.Lock()
	s, ok := r.sessions[assignmentID]
	delete(r.sessions, assignmentID)
	r.mu.Unlock()

	if ok {
		s.monitor.Unmount()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
