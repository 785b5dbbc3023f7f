package conversation

import (
	"context"
	"errors"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hupe1980/agentlink/core"
	"github.com/hupe1980/agentlink/logging"
)

const defaultTTL = 30 * time.Minute

// Session is the persisted per-conversation row carrying the TTL horizon.
// ExpiresAt slides forward on every read and append.
type Session struct {
	ID        string    `gorm:"primaryKey;column:id"`
	ExpiresAt time.Time `gorm:"column:expires_at;index"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

// TableName pins the table name independent of gorm pluralization.
func (Session) TableName() string { return "conversation_sessions" }

// TurnRow is one persisted history entry. Ordering follows insertion order
// via the autoincrement key.
type TurnRow struct {
	ID             uint      `gorm:"primaryKey;autoIncrement"`
	ConversationID string    `gorm:"column:conversation_id;index;not null"`
	Role           string    `gorm:"column:role;not null"`
	Text           string    `gorm:"column:text;not null"`
	CreatedAt      time.Time `gorm:"column:created_at"`
}

// TableName pins the table name independent of gorm pluralization.
func (TurnRow) TableName() string { return "conversation_turns" }

// GormStoreOptions configures a GormStore.
type GormStoreOptions struct {
	// TTL is the sliding idle window after which a session expires.
	TTL time.Duration
	// Logger receives expiry housekeeping diagnostics.
	Logger logging.Logger
}

// GormStore is a durable ConversationStore backed by a gorm-managed database.
// A sliding TTL is enforced per session: the expiry horizon moves forward on
// every append and read, and expired sessions are dropped lazily on access.
type GormStore struct {
	db     *gorm.DB
	ttl    time.Duration
	logger logging.Logger
}

// OpenSQLite opens (or creates) a sqlite database at path suitable for
// NewGormStore. Use ":memory:" for tests.
func OpenSQLite(path string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
}

// NewGormStore constructs a GormStore and migrates its schema.
func NewGormStore(db *gorm.DB, optFns ...func(o *GormStoreOptions)) (*GormStore, error) {
	opts := GormStoreOptions{TTL: defaultTTL}

	for _, fn := range optFns {
		fn(&opts)
	}

	if err := db.AutoMigrate(&Session{}, &TurnRow{}); err != nil {
		return nil, core.WrapError(core.KindStore, err, "migrating conversation schema")
	}

	return &GormStore{db: db, ttl: opts.TTL, logger: logging.Ensure(opts.Logger)}, nil
}

// Append records a turn and slides the session expiry forward.
func (s *GormStore) Append(ctx context.Context, id string, turn core.Turn) error {
	now := time.Now().UTC()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.touchSession(tx, id, now); err != nil {
			return err
		}
		row := TurnRow{ConversationID: id, Role: turn.Role, Text: turn.Text, CreatedAt: now}
		return tx.Create(&row).Error
	})
	if err != nil {
		return core.WrapError(core.KindStore, err, "appending turn to %s", id)
	}

	s.purgeExpired(ctx, now)
	return nil
}

// History returns the ordered turns of a session. An expired session is
// removed and reported as empty; a live one has its expiry refreshed.
func (s *GormStore) History(ctx context.Context, id string) ([]core.Turn, error) {
	now := time.Now().UTC()

	var sess Session
	err := s.db.WithContext(ctx).First(&sess, "id = ?", id).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return []core.Turn{}, nil
	case err != nil:
		return nil, core.WrapError(core.KindStore, err, "loading session %s", id)
	}

	if sess.ExpiresAt.Before(now) {
		if err := s.Clear(ctx, id); err != nil {
			return nil, err
		}
		return []core.Turn{}, nil
	}

	if err := s.db.WithContext(ctx).Model(&Session{}).Where("id = ?", id).
		Update("expires_at", now.Add(s.ttl)).Error; err != nil {
		return nil, core.WrapError(core.KindStore, err, "refreshing session %s", id)
	}

	var rows []TurnRow
	if err := s.db.WithContext(ctx).Where("conversation_id = ?", id).
		Order("id").Find(&rows).Error; err != nil {
		return nil, core.WrapError(core.KindStore, err, "loading history of %s", id)
	}

	turns := make([]core.Turn, 0, len(rows))
	for _, row := range rows {
		turns = append(turns, core.Turn{Role: row.Role, Text: row.Text})
	}
	return turns, nil
}

// Clear removes the session and its turns.
func (s *GormStore) Clear(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", id).Delete(&TurnRow{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&Session{}).Error
	})
	if err != nil {
		return core.WrapError(core.KindStore, err, "clearing session %s", id)
	}
	return nil
}

// touchSession upserts the session row with a refreshed expiry horizon.
func (s *GormStore) touchSession(tx *gorm.DB, id string, now time.Time) error {
	var sess Session
	err := tx.First(&sess, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return tx.Create(&Session{ID: id, ExpiresAt: now.Add(s.ttl), CreatedAt: now}).Error
	}
	if err != nil {
		return err
	}
	return tx.Model(&Session{}).Where("id = ?", id).Update("expires_at", now.Add(s.ttl)).Error
}

// purgeExpired drops sessions whose horizon has passed. Best effort.
func (s *GormStore) purgeExpired(ctx context.Context, now time.Time) {
	var expired []Session
	if err := s.db.WithContext(ctx).Where("expires_at < ?", now).Find(&expired).Error; err != nil {
		s.logger.Warn("conversation.purge_scan_failed", "error", err)
		return
	}
	for _, sess := range expired {
		if err := s.Clear(ctx, sess.ID); err != nil {
			s.logger.Warn("conversation.purge_failed", "conversation_id", sess.ID, "error", err)
		}
	}
}

var _ core.ConversationStore = (*GormStore)(nil)
