package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// RedisFeed publishes changes on a Redis channel so every server instance
// sees writes made by the others. Received changes are fanned out to local
// subscribers through an embedded LocalFeed.
type RedisFeed struct {
	client  *redis.Client
	channel string
	local   *LocalFeed

	mu     sync.Mutex
	pubsub *redis.PubSub
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRedisFeed(client *redis.Client, keyPrefix string) *RedisFeed {
	if client == nil {
		panic("redis client cannot be nil for RedisFeed")
	}
	if keyPrefix == "" {
		keyPrefix = "rose:"
	}
	return &RedisFeed{
		client:  client,
		channel: keyPrefix + "changes",
		local:   NewLocalFeed(),
	}
}

// Start subscribes to the Redis channel and relays messages until ctx is
// cancelled or Close is called.
func (f *RedisFeed) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pubsub != nil {
		return errors.New("redis feed already started")
	}
	pubsub := f.client.Subscribe(ctx, f.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}
	runCtx, cancel := context.WithCancel(ctx)
	f.pubsub = pubsub
	f.cancel = cancel
	f.done = make(chan struct{})
	go f.relay(runCtx, pubsub.Channel(), f.done)
	logrus.WithField("channel", f.channel).Info("redis change feed subscribed")
	return nil
}

func (f *RedisFeed) relay(ctx context.Context, messages <-chan *redis.Message, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			change, err := decodeChange(msg.Payload)
			if err != nil {
				logrus.WithError(err).Warn("redis change feed: dropping malformed message")
				continue
			}
			_ = f.local.Publish(ctx, change)
		}
	}
}

func (f *RedisFeed) Publish(ctx context.Context, changes ...Change) error {
	for _, change := range changes {
		payload, err := json.Marshal(change)
		if err != nil {
			return err
		}
		if err := f.client.Publish(ctx, f.channel, payload).Err(); err != nil {
			return err
		}
	}
	return nil
}

func (f *RedisFeed) Subscribe(filter Filter, handler func(Change)) (Subscription, error) {
	return f.local.Subscribe(filter, handler)
}

func (f *RedisFeed) Close() error {
	f.mu.Lock()
	pubsub, cancel, done := f.pubsub, f.cancel, f.done
	f.pubsub, f.cancel, f.done = nil, nil, nil
	f.mu.Unlock()
	if pubsub == nil {
		return nil
	}
	cancel()
	err := pubsub.Close()
	<-done
	return err
}

func decodeChange(payload string) (Change, error) {
	var change Change
	if err := json.Unmarshal([]byte(payload), &change); err != nil {
		return Change{}, err
	}
	if change.Table == "" || change.RoomID == "" {
		return Change{}, errors.New("change is missing table or room_id")
	}
	return change, nil
}
