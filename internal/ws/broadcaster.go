package ws

import (
	"log"
	"sync"
)

// subscriberBuffer bounds each subscriber's pending events. A viewer
// that falls further behind than this loses the newest events and is
// expected to refetch authoritative state.
const subscriberBuffer = 16

// Broadcaster fans typed events out to every live subscriber of a
// quest. Injected where needed rather than held as a package global so
// tests can run isolated instances.
type Broadcaster struct {
	mu     sync.RWMutex
	quests map[uint]map[string]chan Event
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		quests: make(map[uint]map[string]chan Event),
	}
}

// Subscribe registers a live connection and returns the channel it will
// receive all future events for the quest on. Re-subscribing with an
// existing id replaces (and closes) the previous registration.
func (b *Broadcaster) Subscribe(questID uint, subscriberID string) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.quests[questID] == nil {
		b.quests[questID] = make(map[string]chan Event)
	}
	if old, ok := b.quests[questID][subscriberID]; ok {
		close(old)
	}
	ch := make(chan Event, subscriberBuffer)
	b.quests[questID][subscriberID] = ch
	log.Printf("ws: subscriber %s joined quest %d (total: %d)", subscriberID, questID, len(b.quests[questID]))
	return ch
}

// Unsubscribe removes a registration and closes its channel. Safe to
// call repeatedly or with an unknown id.
func (b *Broadcaster) Unsubscribe(questID uint, subscriberID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.quests[questID]
	if !ok {
		return
	}
	if ch, ok := subs[subscriberID]; ok {
		delete(subs, subscriberID)
		close(ch)
		if len(subs) == 0 {
			delete(b.quests, questID)
		}
		log.Printf("ws: subscriber %s left quest %d", subscriberID, questID)
	}
}

// Publish delivers the event to every current subscriber of the quest.
// Delivery is non-blocking per subscriber: a full buffer drops the
// event for that subscriber rather than stalling the publisher or the
// other subscribers. Buffered channels preserve publish order per
// subscriber.
func (b *Broadcaster) Publish(questID uint, event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.quests[questID] {
		select {
		case ch <- event:
		default:
			log.Printf("ws: subscriber %s on quest %d is behind, dropping %s", id, questID, event.Type)
		}
	}
}

// SubscriberCount reports the live subscribers for a quest.
func (b *Broadcaster) SubscriberCount(questID uint) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.quests[questID])
}
