// Package sse streams article change notifications to admin clients over
// Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// Article event kinds.
const (
	KindCreated = "created"
	KindUpdated = "updated"
	KindDeleted = "deleted"
)

// DedupeWindow is how long an identical article event is suppressed after
// it was broadcast. The admin API and the directory watcher both report
// local writes; clients see each change once.
const DedupeWindow = time.Second

type change struct {
	kind string
	slug string
}

// Broker fans article events out to subscribers. A single goroutine owns
// the client set, the listing throttle and the dedupe window; the public
// methods talk to it over channels.
//
// Every broadcast article event is followed by a "listing.updated" event,
// at most once per throttle interval, so clients can refetch the list.
type Broker struct {
	listingMin time.Duration
	logger     *slog.Logger

	joinCh  chan chan []byte
	leaveCh chan chan []byte
	changes chan change
	countCh chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker. A non-positive throttle defaults to 2s.
func NewBroker(listingThrottle time.Duration, logger *slog.Logger) *Broker {
	if listingThrottle <= 0 {
		listingThrottle = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	b := &Broker{
		listingMin: listingThrottle,
		logger:     logger,
		joinCh:     make(chan chan []byte),
		leaveCh:    make(chan chan []byte),
		changes:    make(chan change, 256),
		countCh:    make(chan chan int),
		stopCh:     make(chan struct{}),
		stopped:    make(chan struct{}),
	}

	go b.loop()
	return b
}

func frame(name string, data any) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", name, payload)), nil
}

func (b *Broker) loop() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	recent := make(map[change]time.Time)
	var lastListing time.Time

	send := func(name string, data any) {
		msg, err := frame(name, data)
		if err != nil {
			b.logger.Warn("sse: encode event", slog.String("event", name), slog.String("error", err.Error()))
			return
		}
		for ch := range clients {
			select {
			case ch <- msg:
			default: // subscriber buffer full, drop
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.joinCh:
			clients[ch] = struct{}{}

		case ch := <-b.leaveCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case c := <-b.changes:
			now := time.Now()
			for k, at := range recent {
				if now.Sub(at) >= DedupeWindow {
					delete(recent, k)
				}
			}
			if _, dup := recent[c]; dup {
				continue
			}
			recent[c] = now

			send("article."+c.kind, map[string]string{"slug": c.slug})
			if now.Sub(lastListing) >= b.listingMin {
				lastListing = now
				send("listing.updated", map[string]string{})
			}

		case resp := <-b.countCh:
			resp <- len(clients)
		}
	}
}

// Close stops the loop and closes every subscriber channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client. The channel is closed on Unsubscribe or
// Close.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}
	select {
	case b.joinCh <- ch:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.leaveCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	resp := make(chan int, 1)
	select {
	case b.countCh <- resp:
		return <-resp
	case <-b.stopped:
		return 0
	}
}

// PublishArticleEvent broadcasts article.<kind> for slug. Unknown kinds are
// ignored, as are repeats of the same kind and slug within DedupeWindow.
func (b *Broker) PublishArticleEvent(kind, slug string) {
	switch kind {
	case KindCreated, KindUpdated, KindDeleted:
	default:
		return
	}
	if b.closed.Load() {
		return
	}
	select {
	case b.changes <- change{kind: kind, slug: slug}:
	case <-b.stopped:
	}
}

// ServeHTTP streams events until the client disconnects.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if _, err := w.Write(msg); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
