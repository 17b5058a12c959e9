// Package session tracks which room and player a browser belongs to.
package session

import "sync"

// IDs identifies a player inside a room.
type IDs struct {
	RoomID   string `json:"room_id"`
	PlayerID string `json:"player_id"`
}

func (ids IDs) Complete() bool {
	return ids.RoomID != "" && ids.PlayerID != ""
}

// Handle is the per-client source of the current ids. IDs reports false
// until both ids are known.
type Handle interface {
	IDs() (IDs, bool)
	Clear()
}

// Memory is a Handle held in process, for one websocket client or a test.
type Memory struct {
	mu      sync.Mutex
	ids     IDs
	onClear func()
}

func NewMemory(ids IDs) *Memory {
	return &Memory{ids: ids}
}

func (m *Memory) IDs() (IDs, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ids, m.ids.Complete()
}

func (m *Memory) Set(ids IDs) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids = ids
}

// Clear forgets the ids and runs the OnClear callback, if any.
func (m *Memory) Clear() {
	m.mu.Lock()
	m.ids = IDs{}
	fn := m.onClear
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// OnClear registers fn to run after every Clear.
func (m *Memory) OnClear(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onClear = fn
}
