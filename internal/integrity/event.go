package integrity

import (
	"sync"
	"time"
)

type EventKind string

const (
	EventVisibilityChange EventKind = "visibilitychange"
	EventBlur             EventKind = "blur"
	EventFullscreenChange EventKind = "fullscreenchange"
	EventContextMenu      EventKind = "contextmenu"
	EventCopy             EventKind = "copy"
	EventCut              EventKind = "cut"
	EventPaste            EventKind = "paste"
)

// Event is a browser event as observed by the exam page
type Event struct {
	Kind             EventKind `json:"kind" validate:"required,oneof=visibilitychange blur fullscreenchange contextmenu copy cut paste"`
	Hidden           bool      `json:"hidden,omitempty"`
	FullscreenActive bool      `json:"fullscreen_active,omitempty"`
	Text             string    `json:"text,omitempty" validate:"max=100000"`
	At               time.Time `json:"at"`
}

// Decision is what a listener asks the page to do with the event
type Decision struct {
	PreventDefault bool `json:"prevent_default"`
}

type Handler func(Event) Decision

// EventTarget is the surface listeners are attached to. The returned
// func removes the listener and is safe to call more than once.
type EventTarget interface {
	AddEventListener(kind EventKind, h Handler) (remove func())
}

// Dispatcher is an in-memory EventTarget
type Dispatcher struct {
	mu        sync.Mutex
	nextID    int
	listeners map[EventKind]map[int]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{listeners: make(map[EventKind]map[int]Handler)}
}

func (d *Dispatcher) AddEventListener(kind EventKind, h Handler) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	id := d.nextID
	if d.listeners[kind] == nil {
		d.listeners[kind] = make(map[int]Handler)
	}
	d.listeners[kind][id] = h

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			defer d.mu.Unlock()
			delete(d.listeners[kind], id)
			if len(d.listeners[kind]) == 0 {
				delete(d.listeners, kind)
			}
		})
	}
}

// Dispatch delivers ev to every listener for its kind. Handlers run outside the
// dispatcher lock so they may add or remove listeners.
func (d *Dispatcher) Dispatch(ev Event) Decision {
	d.mu.Lock()
	handlers := make([]Handler, 0, len(d.listeners[ev.Kind]))
	for _, h := range d.listeners[ev.Kind] {
		handlers = append(handlers, h)
	}
	d.mu.Unlock()

	var out Decision
	for _, h := range handlers {
		if h(ev).PreventDefault {
			out.PreventDefault = true
		}
	}
	return out
}

// ListenerCount returns the number of registered listeners across all kinds
func (d *Dispatcher) ListenerCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := 0
	for _, hs := range d.listeners {
		n += len(hs)
	}
	return n
}
