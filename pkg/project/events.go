package project

// Event is a project lifecycle notification.
type Event string

const (
	EventActivated        Event = "noir_activated"
	EventCompilingStart   Event = "noir_compiling_start"
	EventCompilingDone    Event = "noir_compiling_done"
	EventCompilingErrored Event = "noir_compiling_errored"
)

// Listener receives lifecycle events.  err is set for
// EventCompilingErrored only.  Listeners are called synchronously on the
// goroutine that triggered the event.
type Listener func(ev Event, err error)

func (p *Project) emit(ev Event, err error) {
	p.mu.Lock()
	listeners := append([]Listener(nil), p.listeners...)
	p.mu.Unlock()
	for _, l := range listeners {
		l(ev, err)
	}
}

// AddListener registers l for all subsequent events.
func (p *Project) AddListener(l Listener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, l)
}
