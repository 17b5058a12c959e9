// Package gamectx keeps one client's view of its room up to date. A Context
// reads the session ids, loads a snapshot, and reloads it whenever the
// change feed reports a write to the room, its players or its chat.
package gamectx

import (
	"context"
	"errors"
	"sync"
	"time"

	"escape-rose/internal/db"
	"escape-rose/internal/session"
	"escape-rose/internal/store"

	"github.com/sirupsen/logrus"
)

const (
	DefaultPollAttempts = 10
	DefaultPollDelay    = 100 * time.Millisecond
)

var ErrClosed = errors.New("game context closed")

// Repository is the part of game.Repository a Context needs.
type Repository interface {
	Snapshot(ctx context.Context, roomID, playerID string) (store.Snapshot, error)
	SendChatMessage(ctx context.Context, roomID, playerID, playerName, playerColor, message string) (*db.ChatMessage, error)
}

// State is the cached view handed to listeners.
type State struct {
	Room     *db.Room           `json:"room"`
	Player   *db.Player         `json:"player"`
	Players  []db.Player        `json:"players"`
	Messages []db.ChatMessage   `json:"messages"`
	Progress *db.EnigmaProgress `json:"progress"`
}

// Ready reports whether both the room and the current player are known.
func (s State) Ready() bool {
	return s.Room != nil && s.Player != nil
}

func emptyState() State {
	return State{Players: []db.Player{}, Messages: []db.ChatMessage{}}
}

type Option func(*Context)

// WithPolling sets how long Start waits for the session ids to appear.
func WithPolling(attempts int, delay time.Duration) Option {
	return func(c *Context) {
		if attempts > 0 {
			c.pollAttempts = attempts
		}
		if delay > 0 {
			c.pollDelay = delay
		}
	}
}

type Context struct {
	repo   Repository
	feed   store.Feed
	handle session.Handle

	pollAttempts int
	pollDelay    time.Duration

	// refreshMu orders refreshes so listeners see snapshots in read order.
	refreshMu sync.Mutex

	mu        sync.RWMutex
	state     State
	listeners []func(State)
	subs      []store.Subscription
	runCtx    context.Context
	cancel    context.CancelFunc
	closed    bool
}

func New(repo Repository, feed store.Feed, handle session.Handle, opts ...Option) *Context {
	c := &Context{
		repo:         repo,
		feed:         feed,
		handle:       handle,
		pollAttempts: DefaultPollAttempts,
		pollDelay:    DefaultPollDelay,
		state:        emptyState(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.runCtx, c.cancel = context.WithCancel(context.Background())
	return c
}

// State returns the current cached view.
func (c *Context) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// OnChange registers fn to run after every refresh with the new state.
func (c *Context) OnChange(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Refresh reloads the cached view. It returns true when both the room and
// the player exist.
func (c *Context) Refresh(ctx context.Context) bool {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	ids, ok := c.handle.IDs()
	if !ok {
		c.replace(emptyState())
		return false
	}
	snap, err := c.repo.Snapshot(ctx, ids.RoomID, ids.PlayerID)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"room_id":   ids.RoomID,
			"player_id": ids.PlayerID,
		}).Warn("refresh game context failed")
		return false
	}
	next := State{
		Room:     snap.Room,
		Player:   snap.Player,
		Players:  snap.Players,
		Messages: snap.Messages,
		Progress: snap.Progress,
	}
	if next.Players == nil {
		next.Players = []db.Player{}
	}
	if next.Messages == nil {
		next.Messages = []db.ChatMessage{}
	}
	c.replace(next)
	return next.Ready()
}

func (c *Context) replace(next State) {
	c.mu.Lock()
	c.state = next
	listeners := append([]func(State){}, c.listeners...)
	c.mu.Unlock()
	for _, fn := range listeners {
		fn(next)
	}
}

// SendMessage posts text as the current player. Without a loaded room and
// player it does nothing. The cache is not touched: the chat subscription
// brings the message back.
func (c *Context) SendMessage(ctx context.Context, text string) error {
	state := c.State()
	if !state.Ready() {
		return nil
	}
	_, err := c.repo.SendChatMessage(ctx, state.Room.ID, state.Player.ID, state.Player.Name, state.Player.Color, text)
	return err
}

// Start waits for the session ids, loads the first snapshot and subscribes
// to the room's changes. Without ids after polling, the context stays empty
// and nothing is subscribed.
func (c *Context) Start(ctx context.Context) error {
	ids, ok := c.waitForIDs(ctx)
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.isClosed() {
		return ErrClosed
	}
	c.Refresh(ctx)
	if !ok {
		logrus.Debug("game context started without session")
		return nil
	}

	filters := []store.Filter{
		{Table: store.TableRooms, RoomID: ids.RoomID},
		{Table: store.TablePlayers, RoomID: ids.RoomID},
		{Table: store.TableChatMessages, RoomID: ids.RoomID, Ops: []store.Op{store.OpInsert}},
	}
	subs := make([]store.Subscription, 0, len(filters))
	for _, filter := range filters {
		sub, err := c.feed.Subscribe(filter, c.onFeedChange)
		if err != nil {
			for _, s := range subs {
				s.Unsubscribe()
			}
			return err
		}
		subs = append(subs, sub)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		for _, s := range subs {
			s.Unsubscribe()
		}
		return ErrClosed
	}
	c.subs = subs
	c.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"room_id":   ids.RoomID,
		"player_id": ids.PlayerID,
	}).Debug("game context subscribed")
	return nil
}

func (c *Context) waitForIDs(ctx context.Context) (session.IDs, bool) {
	for attempt := 0; attempt < c.pollAttempts; attempt++ {
		if ids, ok := c.handle.IDs(); ok {
			return ids, true
		}
		timer := time.NewTimer(c.pollDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return session.IDs{}, false
		case <-c.runCtx.Done():
			timer.Stop()
			return session.IDs{}, false
		case <-timer.C:
		}
	}
	return c.handle.IDs()
}

func (c *Context) onFeedChange(change store.Change) {
	if c.isClosed() {
		return
	}
	logrus.WithFields(logrus.Fields{
		"table":   change.Table,
		"op":      change.Op,
		"room_id": change.RoomID,
	}).Debug("room changed, refreshing")
	c.Refresh(c.runCtx)
}

func (c *Context) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Close releases the subscriptions and stops a pending Start.
func (c *Context) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	c.cancel()
	for _, sub := range subs {
		sub.Unsubscribe()
	}
}
