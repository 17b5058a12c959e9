package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"escape-rose/internal/db"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Postgres is the gorm-backed Store. Writes run in a transaction and the
// changes they record are published once it commits.
type Postgres struct {
	db   *gorm.DB
	feed Feed
}

func NewPostgres(conn *gorm.DB, feed Feed) *Postgres {
	return &Postgres{db: conn, feed: feed}
}

func (p *Postgres) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	var pending []Change
	err := p.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		tx := &postgresTx{db: gtx}
		if err := fn(tx); err != nil {
			return err
		}
		pending = tx.pending
		return nil
	})
	if err != nil {
		return translateError(err)
	}
	publishChanges(ctx, p.feed, pending)
	return nil
}

func (p *Postgres) View(ctx context.Context, fn func(tx Tx) error) error {
	err := p.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(&postgresTx{db: gtx, readOnly: true})
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	return translateError(err)
}

func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type postgresTx struct {
	db       *gorm.DB
	readOnly bool
	pending  []Change
}

func (t *postgresTx) record(change Change) {
	t.pending = append(t.pending, change)
}

func (t *postgresTx) writable() error {
	if t.readOnly {
		return errReadOnly
	}
	return nil
}

func (t *postgresTx) InsertRoom(ctx context.Context, room *db.Room) error {
	if err := t.writable(); err != nil {
		return err
	}
	room.Code = strings.ToUpper(room.Code)
	if err := t.db.WithContext(ctx).Create(room).Error; err != nil {
		return translateError(err)
	}
	t.record(Change{Table: TableRooms, Op: OpInsert, RoomID: room.ID, RowID: room.ID})
	return nil
}

func (t *postgresTx) PatchRoom(ctx context.Context, id string, patch RoomPatch) error {
	if err := t.writable(); err != nil {
		return err
	}
	if patch.empty() {
		return nil
	}
	result := t.db.WithContext(ctx).Model(&db.Room{}).Where("id = ?", id).Updates(patch.columns())
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	t.record(Change{Table: TableRooms, Op: OpUpdate, RoomID: id, RowID: id})
	return nil
}

func (t *postgresTx) DeleteRoom(ctx context.Context, id string) error {
	if err := t.writable(); err != nil {
		return err
	}
	for _, model := range []any{&db.Player{}, &db.ChatMessage{}, &db.EnigmaProgress{}} {
		if err := t.db.WithContext(ctx).Where("room_id = ?", id).Delete(model).Error; err != nil {
			return translateError(err)
		}
	}
	result := t.db.WithContext(ctx).Where("id = ?", id).Delete(&db.Room{})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	t.record(Change{Table: TableRooms, Op: OpDelete, RoomID: id, RowID: id})
	return nil
}

func (t *postgresTx) RoomByID(ctx context.Context, id string) (*db.Room, error) {
	var room db.Room
	if err := t.db.WithContext(ctx).Where("id = ?", id).First(&room).Error; err != nil {
		return nil, translateError(err)
	}
	return &room, nil
}

func (t *postgresTx) RoomByCode(ctx context.Context, code string) (*db.Room, error) {
	var room db.Room
	code = strings.ToUpper(strings.TrimSpace(code))
	if err := t.db.WithContext(ctx).Where("code = ?", code).First(&room).Error; err != nil {
		return nil, translateError(err)
	}
	return &room, nil
}

func (t *postgresTx) LockRoom(ctx context.Context, id string) (*db.Room, error) {
	var room db.Room
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&room).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &room, nil
}

func (t *postgresTx) StaleRooms(ctx context.Context, status string, createdBefore time.Time) ([]db.Room, error) {
	var rooms []db.Room
	err := t.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", status, createdBefore).
		Order("created_at ASC").
		Find(&rooms).Error
	if err != nil {
		return nil, translateError(err)
	}
	return rooms, nil
}

func (t *postgresTx) InsertPlayer(ctx context.Context, player *db.Player) error {
	if err := t.writable(); err != nil {
		return err
	}
	if err := t.db.WithContext(ctx).Create(player).Error; err != nil {
		return translateError(err)
	}
	t.record(Change{Table: TablePlayers, Op: OpInsert, RoomID: player.RoomID, RowID: player.ID})
	return nil
}

func (t *postgresTx) SetPlayerTeam(ctx context.Context, id, team string) error {
	if err := t.writable(); err != nil {
		return err
	}
	var player db.Player
	if err := t.db.WithContext(ctx).Select("id", "room_id").Where("id = ?", id).First(&player).Error; err != nil {
		return translateError(err)
	}
	if err := t.db.WithContext(ctx).Model(&db.Player{}).Where("id = ?", id).Update("team", team).Error; err != nil {
		return translateError(err)
	}
	t.record(Change{Table: TablePlayers, Op: OpUpdate, RoomID: player.RoomID, RowID: id})
	return nil
}

func (t *postgresTx) PlayerByID(ctx context.Context, id string) (*db.Player, error) {
	var player db.Player
	if err := t.db.WithContext(ctx).Where("id = ?", id).First(&player).Error; err != nil {
		return nil, translateError(err)
	}
	return &player, nil
}

func (t *postgresTx) PlayersByRoom(ctx context.Context, roomID string) ([]db.Player, error) {
	players := make([]db.Player, 0)
	err := t.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("joined_at ASC, created_at ASC").
		Find(&players).Error
	if err != nil {
		return nil, translateError(err)
	}
	return players, nil
}

func (t *postgresTx) InsertChatMessage(ctx context.Context, msg *db.ChatMessage) error {
	if err := t.writable(); err != nil {
		return err
	}
	if err := t.db.WithContext(ctx).Create(msg).Error; err != nil {
		return translateError(err)
	}
	t.record(Change{Table: TableChatMessages, Op: OpInsert, RoomID: msg.RoomID, RowID: msg.ID})
	return nil
}

func (t *postgresTx) ChatMessagesByRoom(ctx context.Context, roomID string) ([]db.ChatMessage, error) {
	messages := make([]db.ChatMessage, 0)
	err := t.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at ASC").
		Find(&messages).Error
	if err != nil {
		return nil, translateError(err)
	}
	return messages, nil
}

func (t *postgresTx) UpsertProgress(ctx context.Context, progress *db.EnigmaProgress) (bool, error) {
	if err := t.writable(); err != nil {
		return false, err
	}
	result := t.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "room_id"}, {Name: "enigma_number"}},
			DoNothing: true,
		}).
		Create(progress)
	if result.Error != nil {
		return false, translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		existing, err := t.ProgressByNumber(ctx, progress.RoomID, progress.EnigmaNumber)
		if err != nil {
			return false, err
		}
		*progress = *existing
		return false, nil
	}
	t.record(Change{Table: TableEnigmaProgress, Op: OpInsert, RoomID: progress.RoomID, RowID: progress.ID})
	return true, nil
}

func (t *postgresTx) ProgressByNumber(ctx context.Context, roomID string, number int) (*db.EnigmaProgress, error) {
	var progress db.EnigmaProgress
	err := t.db.WithContext(ctx).
		Where("room_id = ? AND enigma_number = ?", roomID, number).
		First(&progress).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &progress, nil
}

func (t *postgresTx) CompleteProgress(ctx context.Context, id string, completedAt time.Time, timeSpent int) error {
	if err := t.writable(); err != nil {
		return err
	}
	var progress db.EnigmaProgress
	if err := t.db.WithContext(ctx).Select("id", "room_id").Where("id = ?", id).First(&progress).Error; err != nil {
		return translateError(err)
	}
	err := t.db.WithContext(ctx).Model(&db.EnigmaProgress{}).Where("id = ?", id).Updates(map[string]any{
		"completed_at": completedAt,
		"time_spent":   timeSpent,
	}).Error
	if err != nil {
		return translateError(err)
	}
	t.record(Change{Table: TableEnigmaProgress, Op: OpUpdate, RoomID: progress.RoomID, RowID: id})
	return nil
}

func (t *postgresTx) InsertEvent(ctx context.Context, event *db.RoomEvent) error {
	if err := t.writable(); err != nil {
		return err
	}
	return translateError(t.db.WithContext(ctx).Create(event).Error)
}

func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrDuplicate):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), isUniqueViolation(err):
		return ErrDuplicate
	default:
		return err
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
