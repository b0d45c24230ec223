package dashboard

import (
	"context"
	"net/http"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

const broadcastBuffer = 8

// BroadcastHook fans widget and preference events out to live dashboard
// clients. Slow subscribers drop events instead of blocking writers.
type BroadcastHook struct {
	mu     sync.RWMutex
	subs   map[int]subscriber
	next   int
	closed bool
}

// subscriber receives every event when scoped is false, otherwise only
// layout-wide events and events of its own viewer namespace.
type subscriber struct {
	ch        chan WidgetEvent
	namespace string
	scoped    bool
}

func (s subscriber) accepts(event WidgetEvent) bool {
	return !s.scoped || event.ViewerID == "" || event.ViewerID == s.namespace
}

// NewBroadcastHook creates a broadcast hook.
func NewBroadcastHook() *BroadcastHook {
	return &BroadcastHook{subs: make(map[int]subscriber)}
}

// WidgetUpdated satisfies RefreshHook.
func (h *BroadcastHook) WidgetUpdated(_ context.Context, event WidgetEvent) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		if !sub.accepts(event) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
		}
	}
	return nil
}

// Subscribe returns a channel of every event and a cancel func. Subscribing
// to a closed hook yields a closed channel.
func (h *BroadcastHook) Subscribe() (<-chan WidgetEvent, func()) {
	return h.subscribe(subscriber{})
}

// SubscribeViewer is Subscribe limited to layout-wide events and the events
// of viewer.
func (h *BroadcastHook) SubscribeViewer(viewer ViewerContext) (<-chan WidgetEvent, func()) {
	return h.subscribe(subscriber{namespace: viewerNamespace(viewer), scoped: true})
}

func (h *BroadcastHook) subscribe(sub subscriber) (<-chan WidgetEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sub.ch = make(chan WidgetEvent, broadcastBuffer)
	if h.closed {
		close(sub.ch)
		return sub.ch, func() {}
	}
	id := h.next
	h.next++
	h.subs[id] = sub
	return sub.ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if live, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(live.ch)
		}
	}
}

// Subscribers reports the number of live subscriptions.
func (h *BroadcastHook) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close ends every subscription so streaming handlers return.
func (h *BroadcastHook) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subs {
		delete(h.subs, id)
		close(sub.ch)
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades the request and streams the viewer's events as JSON
// messages.
func (h *BroadcastHook) ServeWebSocket(w http.ResponseWriter, r *http.Request, viewer ViewerContext) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer conn.Close()

	events, cancel := h.SubscribeViewer(viewer)
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}
}

// ServeSSE streams the viewer's events as Server-Sent Events named after the
// event reason.
func (h *BroadcastHook) ServeSSE(w http.ResponseWriter, r *http.Request, viewer ViewerContext) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	events, cancel := h.SubscribeViewer(viewer)
	defer cancel()

	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := writeSSE(w, event); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

func writeSSE(w http.ResponseWriter, event WidgetEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	frame := make([]byte, 0, len(payload)+32)
	if event.Reason != "" {
		frame = append(frame, "event: "+event.Reason+"\n"...)
	}
	frame = append(frame, "data: "...)
	frame = append(frame, payload...)
	frame = append(frame, "\n\n"...)
	_, err = w.Write(frame)
	return err
}
