package obsws

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/dmhernandez2525/obs-tutorial-recorder/internal/domain"
)

// Handler receives a dispatched OBS event.
type Handler func(domain.Event)

type subscription struct {
	id int
	fn Handler
}

// Dispatcher routes events to typed subscribers (in registration order) and
// then to global subscribers. A panicking handler is isolated and logged so
// one bad subscriber cannot break frame processing or its peers.
//
// Go functions are not comparable, so On/OnAll return a handle used for
// removal instead of removing by callback identity.
type Dispatcher struct {
	log zerolog.Logger

	mu     sync.RWMutex
	nextID int
	byType map[string][]subscription
	global []subscription
}

func NewDispatcher(log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		log:    log,
		byType: make(map[string][]subscription),
	}
}

// On registers a callback for one event type and returns its handle.
func (d *Dispatcher) On(eventType string, fn Handler) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	d.byType[eventType] = append(d.byType[eventType], subscription{id: d.nextID, fn: fn})
	return d.nextID
}

// OnAll registers a catch-all callback fired after typed callbacks.
func (d *Dispatcher) OnAll(fn Handler) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	d.global = append(d.global, subscription{id: d.nextID, fn: fn})
	return d.nextID
}

// Off removes a typed callback by handle. Unknown handles are ignored.
func (d *Dispatcher) Off(eventType string, handle int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	subs := d.byType[eventType]
	for i, s := range subs {
		if s.id == handle {
			d.byType[eventType] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// OffAll removes a global callback by handle.
func (d *Dispatcher) OffAll(handle int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, s := range d.global {
		if s.id == handle {
			d.global = append(d.global[:i:i], d.global[i+1:]...)
			return
		}
	}
}

// Dispatch invokes matching typed callbacks then global callbacks,
// synchronously, on the caller's goroutine.
func (d *Dispatcher) Dispatch(ev domain.Event) {
	d.mu.RLock()
	typed := make([]subscription, len(d.byType[ev.Type]))
	copy(typed, d.byType[ev.Type])
	global := make([]subscription, len(d.global))
	copy(global, d.global)
	d.mu.RUnlock()

	for _, s := range typed {
		d.invoke(s, ev)
	}
	for _, s := range global {
		d.invoke(s, ev)
	}
}

func (d *Dispatcher) invoke(s subscription, ev domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Warn().Str("event", ev.Type).Any("panic", r).Msg("event callback panicked")
		}
	}()
	s.fn(ev)
}
