// Package tracker pushes status events to citizens watching a grievance by
// its tracking code over a WebSocket.
package tracker

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"sampark/backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// EventsChannel is the redis channel shared by every API instance.
const EventsChannel = "grievance:events"

const eventBuffer = 64

// Subscriber is one live connection watching a single tracking code.
type Subscriber interface {
	TrackingID() string
	// SendChannel is written only by the hub.
	SendChannel() chan<- models.StatusEvent
	Run()
	// Close is called by the hub exactly once, after it forgets the subscriber.
	Close()
}

// Hub owns the subscriber set. Only the Run goroutine touches Subscribers.
type Hub struct {
	Subscribers map[string]map[Subscriber]bool

	RegisterCh   chan Subscriber
	UnregisterCh chan Subscriber
	EventCh      chan models.StatusEvent

	// Redis is optional. When set, events go through EventsChannel so that
	// watchers connected to other instances see them too.
	Redis *redis.Client

	done chan struct{}
}

func NewHub(rdb *redis.Client) *Hub {
	return &Hub{
		Subscribers:  make(map[string]map[Subscriber]bool),
		RegisterCh:   make(chan Subscriber),
		UnregisterCh: make(chan Subscriber),
		EventCh:      make(chan models.StatusEvent, eventBuffer),
		Redis:        rdb,
		done:         make(chan struct{}),
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} { return h.done }

// Register hands s to the hub; it is a no-op after the hub stopped.
func (h *Hub) Register(s Subscriber) bool {
	select {
	case h.RegisterCh <- s:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(s Subscriber) {
	select {
	case h.UnregisterCh <- s:
	case <-h.done:
	}
}

// Publish delivers ev to watchers. Delivery is best effort: with no redis
// the event is dropped when the local buffer is full.
func (h *Hub) Publish(ctx context.Context, ev models.StatusEvent) error {
	if h.Redis != nil {
		payload, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		return h.Redis.Publish(ctx, EventsChannel, payload).Err()
	}
	select {
	case h.EventCh <- ev:
	default:
		log.Printf("WARNING: tracker event buffer full, dropping %s for %s", ev.Status, ev.TrackingID)
	}
	return nil
}

// Run serves register, unregister and event requests until ctx is done,
// then closes every remaining subscriber.
func (h *Hub) Run(ctx context.Context) {
	var wg sync.WaitGroup
	defer func() {
		wg.Wait()
		close(h.done)
	}()

	if h.Redis != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.listen(ctx)
		}()
	}

	for {
		select {
		case <-ctx.Done():
			for code, set := range h.Subscribers {
				for s := range set {
					s.Close()
				}
				delete(h.Subscribers, code)
			}
			log.Println("INFO: tracker hub stopped")
			return

		case s := <-h.RegisterCh:
			set, ok := h.Subscribers[s.TrackingID()]
			if !ok {
				set = make(map[Subscriber]bool)
				h.Subscribers[s.TrackingID()] = set
			}
			set[s] = true

		case s := <-h.UnregisterCh:
			h.remove(s)

		case ev := <-h.EventCh:
			h.broadcast(ev)
		}
	}
}

func (h *Hub) broadcast(ev models.StatusEvent) {
	for s := range h.Subscribers[ev.TrackingID] {
		select {
		case s.SendChannel() <- ev:
		default:
			// Повільний клієнт: відключаємо, щоб не блокувати хаб.
			log.Printf("WARNING: dropping slow tracker subscriber for %s", ev.TrackingID)
			h.remove(s)
		}
	}
}

func (h *Hub) remove(s Subscriber) {
	set, ok := h.Subscribers[s.TrackingID()]
	if !ok || !set[s] {
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(h.Subscribers, s.TrackingID())
	}
	s.Close()
}

// listen forwards events published by any instance into EventCh.
func (h *Hub) listen(ctx context.Context) {
	pubsub := h.Redis.Subscribe(ctx, EventsChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev models.StatusEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("ERROR: Failed to decode tracker event: %v", err)
				continue
			}
			select {
			case h.EventCh <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}
