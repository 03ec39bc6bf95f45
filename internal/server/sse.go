package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/jonathan/cv-builder/internal/editor"
)

// eventStream writes editor events as Server-Sent Events.
type eventStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// newEventStream sends the stream headers.
func newEventStream(w http.ResponseWriter) (*eventStream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &eventStream{w: w, flusher: flusher}, nil
}

// send writes one named event with a JSON payload.
func (s *eventStream) send(name string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// ping writes a comment line so idle proxies keep the connection open.
func (s *eventStream) ping() error {
	if _, err := fmt.Fprint(s.w, ": ping\n\n"); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// eventBuffer is how many events a slow subscriber may lag behind before
// further events are dropped for it.
const eventBuffer = 16

// Events fans editor events out to stream subscribers. Pass Publish as the
// editor's OnEvent callback; it never blocks.
type Events struct {
	mu   sync.Mutex
	subs map[chan editor.Event]struct{}
}

// NewEvents returns an empty broker.
func NewEvents() *Events {
	return &Events{subs: make(map[chan editor.Event]struct{})}
}

// Publish delivers ev to every subscriber with room in its buffer.
func (e *Events) Publish(ev editor.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for ch := range e.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe returns a channel of future events and a function that ends the subscription.
func (e *Events) Subscribe() (<-chan editor.Event, func()) {
	ch := make(chan editor.Event, eventBuffer)
	e.mu.Lock()
	e.subs[ch] = struct{}{}
	e.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.subs, ch)
			e.mu.Unlock()
		})
	}
}
