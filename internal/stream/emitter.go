package stream

import "sync"

// Emitter receives events in the order a run produces them.
type Emitter interface {
	Emit(Event)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(Event)

// Emit implements Emitter.
func (f EmitterFunc) Emit(e Event) { f(e) }

// Discard drops every event.
var Discard Emitter = EmitterFunc(func(Event) {})

type multi []Emitter

func (m multi) Emit(e Event) {
	for _, em := range m {
		em.Emit(e)
	}
}

// Multi fans each event out to every non-nil emitter in order.
func Multi(emitters ...Emitter) Emitter {
	out := make(multi, 0, len(emitters))
	for _, em := range emitters {
		if em != nil {
			out = append(out, em)
		}
	}
	return out
}

// Recorder keeps every event it receives.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit implements Emitter.
func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types lists the recorded event types in order.
func (r *Recorder) Types() []Type {
	events := r.Events()
	out := make([]Type, 0, len(events))
	for _, e := range events {
		out = append(out, e.EventType())
	}
	return out
}
