package catalog

import (
	"log/slog"
	"sync"
)

// DocEventKind enumerates the lifecycle transitions a Doc can undergo.
type DocEventKind int

const (
	DocCreated DocEventKind = iota
	DocUpdated
	DocDeleted
	DocRenamed
	DocMoved
)

// DocEvent is published whenever a document is created, edited, deleted,
// renamed, or moved by the catalog service.
type DocEvent struct {
	Kind    DocEventKind
	Path    string // current/target rel_path for Created/Updated/Deleted
	OldPath string // source rel_path for Renamed/Moved
	NewPath string // destination rel_path for Renamed/Moved
}

// FolderEventKind enumerates the lifecycle transitions a Folder can undergo.
type FolderEventKind int

const (
	FolderCreated FolderEventKind = iota
	FolderDeleted
	FolderRenamed
	FolderMoved
)

// FolderEvent is published whenever a folder is created, deleted, renamed,
// or moved. RemovedDocs/AffectedDocs list the documents swept along with it.
type FolderEvent struct {
	Kind         FolderEventKind
	Path         string
	OldPath      string
	NewPath      string
	RemovedDocs  []string
	AffectedDocs [][2]string // [old, new] pairs
}

// Event is the union published on the bus: exactly one of Doc/Folder is set.
type Event struct {
	Doc    *DocEvent
	Folder *FolderEvent
}

// Lagged is delivered to a subscriber ahead of the next event it receives
// after events were dropped because its buffered channel was full. N is the
// number of dropped events.
type Lagged struct {
	N int
}

// subscription is one consumer's buffered mailbox plus its own lag counter.
type subscription struct {
	ch      chan any
	dropped int
}

const subscriberBufferSize = 256

// EventBus is a multi-producer, multi-consumer broadcast channel. Publish
// never blocks: a subscriber that cannot keep up sees a Lagged notification
// instead of every event.
type EventBus struct {
	mu     sync.RWMutex
	subs   map[int]*subscription
	nextID int
	log    *slog.Logger
}

// NewEventBus constructs an empty bus. A nil logger defaults to slog.Default().
func NewEventBus(log *slog.Logger) *EventBus {
	if log == nil {
		log = slog.Default()
	}
	return &EventBus{subs: make(map[int]*subscription), log: log}
}

// Subscription is the handle returned by Subscribe; callers receive events
// (and occasional Lagged markers) on Events() until they call Unsubscribe.
type Subscription struct {
	id   int
	bus  *EventBus
	sub  *subscription
}

// Subscribe registers a new consumer. It will observe every event published
// after this call returns.
func (b *EventBus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	sub := &subscription{ch: make(chan any, subscriberBufferSize)}
	b.subs[id] = sub
	return &Subscription{id: id, bus: b, sub: sub}
}

// Events returns the channel to range/receive from. Elements are either
// Event or Lagged.
func (s *Subscription) Events() <-chan any {
	return s.sub.ch
}

// Unsubscribe removes the subscription and closes its channel.
func (s *Subscription) Unsubscribe() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	if _, ok := s.bus.subs[s.id]; ok {
		delete(s.bus.subs, s.id)
		close(s.sub.ch)
	}
}

// publish fans an event out to every current subscriber without blocking.
// Events that do not fit a full buffer are counted; once the subscriber has
// room again it first receives a Lagged carrying that count, then new events.
func (b *EventBus) publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs {
		if sub.dropped > 0 {
			select {
			case sub.ch <- Lagged{N: sub.dropped}:
				sub.dropped = 0
			default:
			}
		}
		delivered := false
		if sub.dropped == 0 {
			select {
			case sub.ch <- ev:
				delivered = true
			default:
			}
		}
		if !delivered {
			sub.dropped++
			b.log.Warn("event subscriber buffer full, dropping event", slog.Int("dropped", sub.dropped))
		}
	}
}

// PublishDoc emits a DocEvent to every subscriber.
func (b *EventBus) PublishDoc(ev DocEvent) {
	b.publish(Event{Doc: &ev})
}

// PublishFolder emits a FolderEvent to every subscriber.
func (b *EventBus) PublishFolder(ev FolderEvent) {
	b.publish(Event{Folder: &ev})
}
