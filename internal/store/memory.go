package store

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"escape-rose/internal/db"

	"github.com/sirupsen/logrus"
)

// Memory keeps every table in process. Transactions are serialized behind a
// single mutex and roll back by restoring the tables copied at the start.
type Memory struct {
	mu          sync.Mutex
	feed        Feed
	tables      memoryTables
	nextEventID uint
}

type memoryTables struct {
	rooms    map[string]db.Room
	players  []db.Player
	messages []db.ChatMessage
	progress []db.EnigmaProgress
	events   []db.RoomEvent
}

func NewMemory(feed Feed) *Memory {
	return &Memory{
		feed: feed,
		tables: memoryTables{
			rooms: make(map[string]db.Room),
		},
		nextEventID: 1,
	}
}

func (t memoryTables) clone() memoryTables {
	return memoryTables{
		rooms:    maps.Clone(t.rooms),
		players:  slices.Clone(t.players),
		messages: slices.Clone(t.messages),
		progress: slices.Clone(t.progress),
		events:   slices.Clone(t.events),
	}
}

func (m *Memory) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	saved := m.tables.clone()
	savedEventID := m.nextEventID
	tx := &memoryTx{m: m}
	if err := fn(tx); err != nil {
		m.tables = saved
		m.nextEventID = savedEventID
		m.mu.Unlock()
		return err
	}
	m.mu.Unlock()
	publishChanges(ctx, m.feed, tx.pending)
	return nil
}

func (m *Memory) View(_ context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(&memoryTx{m: m, readOnly: true})
}

func (m *Memory) Close() error {
	return nil
}

// Events returns a copy of the audit trail for a room.
func (m *Memory) Events(roomID string) []db.RoomEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := make([]db.RoomEvent, 0)
	for _, event := range m.tables.events {
		if event.RoomID == roomID {
			list = append(list, event)
		}
	}
	return list
}

type memoryTx struct {
	m        *Memory
	readOnly bool
	pending  []Change
}

func (t *memoryTx) record(change Change) {
	t.pending = append(t.pending, change)
}

func (t *memoryTx) writable() error {
	if t.readOnly {
		return errReadOnly
	}
	return nil
}

func (t *memoryTx) InsertRoom(_ context.Context, room *db.Room) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, exists := t.m.tables.rooms[room.ID]; exists {
		return ErrDuplicate
	}
	code := strings.ToUpper(room.Code)
	for _, existing := range t.m.tables.rooms {
		if existing.Code == code {
			return ErrDuplicate
		}
	}
	room.Code = code
	stampRoom(room)
	t.m.tables.rooms[room.ID] = *room
	t.record(Change{Table: TableRooms, Op: OpInsert, RoomID: room.ID, RowID: room.ID})
	return nil
}

func (t *memoryTx) PatchRoom(_ context.Context, id string, patch RoomPatch) error {
	if err := t.writable(); err != nil {
		return err
	}
	room, ok := t.m.tables.rooms[id]
	if !ok {
		return ErrNotFound
	}
	if patch.empty() {
		return nil
	}
	patch.apply(&room)
	room.UpdatedAt = time.Now().UTC()
	t.m.tables.rooms[id] = room
	t.record(Change{Table: TableRooms, Op: OpUpdate, RoomID: id, RowID: id})
	return nil
}

func (t *memoryTx) DeleteRoom(_ context.Context, id string) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.m.tables.rooms[id]; !ok {
		return ErrNotFound
	}
	delete(t.m.tables.rooms, id)
	inRoom := func(roomID string) bool { return roomID == id }
	t.m.tables.players = slices.DeleteFunc(t.m.tables.players, func(p db.Player) bool { return inRoom(p.RoomID) })
	t.m.tables.messages = slices.DeleteFunc(t.m.tables.messages, func(m db.ChatMessage) bool { return inRoom(m.RoomID) })
	t.m.tables.progress = slices.DeleteFunc(t.m.tables.progress, func(p db.EnigmaProgress) bool { return inRoom(p.RoomID) })
	t.record(Change{Table: TableRooms, Op: OpDelete, RoomID: id, RowID: id})
	return nil
}

func (t *memoryTx) RoomByID(_ context.Context, id string) (*db.Room, error) {
	room, ok := t.m.tables.rooms[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &room, nil
}

func (t *memoryTx) RoomByCode(_ context.Context, code string) (*db.Room, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, room := range t.m.tables.rooms {
		if room.Code == code {
			found := room
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (t *memoryTx) LockRoom(ctx context.Context, id string) (*db.Room, error) {
	return t.RoomByID(ctx, id)
}

func (t *memoryTx) StaleRooms(_ context.Context, status string, createdBefore time.Time) ([]db.Room, error) {
	list := make([]db.Room, 0)
	for _, room := range t.m.tables.rooms {
		if room.Status == status && room.CreatedAt.Before(createdBefore) {
			list = append(list, room)
		}
	}
	slices.SortFunc(list, func(a, b db.Room) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return list, nil
}

func (t *memoryTx) InsertPlayer(_ context.Context, player *db.Player) error {
	if err := t.writable(); err != nil {
		return err
	}
	for _, existing := range t.m.tables.players {
		if existing.ID == player.ID {
			return ErrDuplicate
		}
	}
	now := time.Now().UTC()
	if player.JoinedAt.IsZero() {
		player.JoinedAt = now
	}
	player.CreatedAt = now
	player.UpdatedAt = now
	t.m.tables.players = append(t.m.tables.players, *player)
	t.record(Change{Table: TablePlayers, Op: OpInsert, RoomID: player.RoomID, RowID: player.ID})
	return nil
}

func (t *memoryTx) SetPlayerTeam(_ context.Context, id, team string) error {
	if err := t.writable(); err != nil {
		return err
	}
	for i := range t.m.tables.players {
		if t.m.tables.players[i].ID != id {
			continue
		}
		value := team
		t.m.tables.players[i].Team = &value
		t.m.tables.players[i].UpdatedAt = time.Now().UTC()
		t.record(Change{Table: TablePlayers, Op: OpUpdate, RoomID: t.m.tables.players[i].RoomID, RowID: id})
		return nil
	}
	return ErrNotFound
}

func (t *memoryTx) PlayerByID(_ context.Context, id string) (*db.Player, error) {
	for _, player := range t.m.tables.players {
		if player.ID == id {
			found := player
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

// PlayersByRoom returns players in join order. Rows are appended as they
// are inserted, so a stable sort on JoinedAt keeps insertion order on ties.
func (t *memoryTx) PlayersByRoom(_ context.Context, roomID string) ([]db.Player, error) {
	list := make([]db.Player, 0)
	for _, player := range t.m.tables.players {
		if player.RoomID == roomID {
			list = append(list, player)
		}
	}
	slices.SortStableFunc(list, func(a, b db.Player) int {
		return a.JoinedAt.Compare(b.JoinedAt)
	})
	return list, nil
}

func (t *memoryTx) InsertChatMessage(_ context.Context, msg *db.ChatMessage) error {
	if err := t.writable(); err != nil {
		return err
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	t.m.tables.messages = append(t.m.tables.messages, *msg)
	t.record(Change{Table: TableChatMessages, Op: OpInsert, RoomID: msg.RoomID, RowID: msg.ID})
	return nil
}

func (t *memoryTx) ChatMessagesByRoom(_ context.Context, roomID string) ([]db.ChatMessage, error) {
	list := make([]db.ChatMessage, 0)
	for _, msg := range t.m.tables.messages {
		if msg.RoomID == roomID {
			list = append(list, msg)
		}
	}
	slices.SortStableFunc(list, func(a, b db.ChatMessage) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return list, nil
}

func (t *memoryTx) UpsertProgress(_ context.Context, progress *db.EnigmaProgress) (bool, error) {
	if err := t.writable(); err != nil {
		return false, err
	}
	for _, existing := range t.m.tables.progress {
		if existing.RoomID == progress.RoomID && existing.EnigmaNumber == progress.EnigmaNumber {
			*progress = existing
			return false, nil
		}
	}
	if progress.StartedAt.IsZero() {
		progress.StartedAt = time.Now().UTC()
	}
	t.m.tables.progress = append(t.m.tables.progress, *progress)
	t.record(Change{Table: TableEnigmaProgress, Op: OpInsert, RoomID: progress.RoomID, RowID: progress.ID})
	return true, nil
}

func (t *memoryTx) ProgressByNumber(_ context.Context, roomID string, number int) (*db.EnigmaProgress, error) {
	for _, progress := range t.m.tables.progress {
		if progress.RoomID == roomID && progress.EnigmaNumber == number {
			found := progress
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (t *memoryTx) CompleteProgress(_ context.Context, id string, completedAt time.Time, timeSpent int) error {
	if err := t.writable(); err != nil {
		return err
	}
	for i := range t.m.tables.progress {
		if t.m.tables.progress[i].ID != id {
			continue
		}
		at := completedAt
		spent := timeSpent
		t.m.tables.progress[i].CompletedAt = &at
		t.m.tables.progress[i].TimeSpent = &spent
		t.record(Change{Table: TableEnigmaProgress, Op: OpUpdate, RoomID: t.m.tables.progress[i].RoomID, RowID: id})
		return nil
	}
	return ErrNotFound
}

func (t *memoryTx) InsertEvent(_ context.Context, event *db.RoomEvent) error {
	if err := t.writable(); err != nil {
		return err
	}
	event.ID = t.m.nextEventID
	t.m.nextEventID++
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	t.m.tables.events = append(t.m.tables.events, *event)
	return nil
}

func stampRoom(room *db.Room) {
	now := time.Now().UTC()
	if room.CreatedAt.IsZero() {
		room.CreatedAt = now
	}
	room.UpdatedAt = now
}

func publishChanges(ctx context.Context, feed Feed, changes []Change) {
	if feed == nil || len(changes) == 0 {
		return
	}
	if err := feed.Publish(context.WithoutCancel(ctx), changes...); err != nil {
		logrus.WithError(err).WithField("changes", len(changes)).Error("change feed publish failed")
	}
}
