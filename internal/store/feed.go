package store

import (
	"context"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"
)

const (
	TableRooms          = "rooms"
	TablePlayers        = "players"
	TableChatMessages   = "chat_messages"
	TableEnigmaProgress = "enigma_progress"
)

type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
)

// Change announces that a row moved. RoomID is the owning room; for the
// rooms table it is the row's own id.
type Change struct {
	Table  string `json:"table"`
	Op     Op     `json:"op"`
	RoomID string `json:"room_id"`
	RowID  string `json:"row_id"`
}

// Filter selects changes by table and room. An empty Ops matches every
// operation.
type Filter struct {
	Table  string
	RoomID string
	Ops    []Op
}

func (f Filter) Match(change Change) bool {
	if f.Table != "" && f.Table != change.Table {
		return false
	}
	if f.RoomID != "" && f.RoomID != change.RoomID {
		return false
	}
	if len(f.Ops) > 0 && !slices.Contains(f.Ops, change.Op) {
		return false
	}
	return true
}

// Subscription is released with Unsubscribe. Calling it twice is harmless.
type Subscription interface {
	Unsubscribe()
}

type Feed interface {
	Publish(ctx context.Context, changes ...Change) error
	Subscribe(filter Filter, handler func(Change)) (Subscription, error)
}

const subscriberBuffer = 64

// LocalFeed fans changes out to in-process subscribers. Each subscriber has
// its own goroutine, so a slow handler never blocks a writer.
type LocalFeed struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*localSub
}

type localSub struct {
	feed    *LocalFeed
	id      int
	filter  Filter
	handler func(Change)
	queue   chan Change
	once    sync.Once
	done    chan struct{}
}

func NewLocalFeed() *LocalFeed {
	return &LocalFeed{subs: make(map[int]*localSub)}
}

func (f *LocalFeed) Publish(_ context.Context, changes ...Change) error {
	f.mu.Lock()
	targets := make([]*localSub, 0, len(f.subs))
	for _, sub := range f.subs {
		targets = append(targets, sub)
	}
	f.mu.Unlock()

	for _, change := range changes {
		for _, sub := range targets {
			if !sub.filter.Match(change) {
				continue
			}
			sub.deliver(change)
		}
	}
	return nil
}

func (f *LocalFeed) Subscribe(filter Filter, handler func(Change)) (Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub := &localSub{
		feed:    f,
		id:      f.nextID,
		filter:  filter,
		handler: handler,
		queue:   make(chan Change, subscriberBuffer),
		done:    make(chan struct{}),
	}
	f.nextID++
	f.subs[sub.id] = sub
	go sub.run()
	return sub, nil
}

// Subscribers reports how many subscriptions are open.
func (f *LocalFeed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (s *localSub) deliver(change Change) {
	select {
	case <-s.done:
	case s.queue <- change:
	default:
		// The queue is full of changes the handler has not consumed yet;
		// any of them already causes a refetch.
		logrus.WithFields(logrus.Fields{
			"table":   change.Table,
			"room_id": change.RoomID,
		}).Debug("change feed subscriber lagging, change coalesced")
	}
}

func (s *localSub) run() {
	for {
		select {
		case <-s.done:
			return
		case change := <-s.queue:
			s.handler(change)
		}
	}
}

func (s *localSub) Unsubscribe() {
	s.once.Do(func() {
		s.feed.mu.Lock()
		delete(s.feed.subs, s.id)
		s.feed.mu.Unlock()
		close(s.done)
	})
}
