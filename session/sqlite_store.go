package session

import (
	"context"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/errors"
)

// SqliteStore layers SQLite persistence over the in-memory store. Reads and
// writes go to memory first; Persist mirrors the memory to disk so sessions
// survive a restart for inspection. A write failure never fails the session.
type SqliteStore struct {
	*InMemoryStore
	db *gorm.DB
}

type sqliteSessionRecord struct {
	SessionID  string `gorm:"primaryKey"`
	LastActive time.Time `gorm:"index"`
	Memory     datatypes.JSONType[*Memory]
}

func (sqliteSessionRecord) TableName() string {
	return "session_memories"
}

func NewSqliteStore(dbPath string) (*SqliteStore, error) {
	db, err := gorm.Open(
		sqlite.Open(fmt.Sprintf("file:%s?cache=shared&mode=rwc&_journal_mode=WAL", dbPath)),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)},
	)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open sqlite database")
	}

	if err := db.AutoMigrate(&sqliteSessionRecord{}); err != nil {
		return nil, errors.Wrapf(err, "failed to migrate session table")
	}

	return &SqliteStore{
		InMemoryStore: NewInMemoryStore(),
		db:            db,
	}, nil
}

func (s *SqliteStore) Persist(ctx context.Context, memory *Memory) error {
	memory.mu.Lock()
	record := sqliteSessionRecord{
		SessionID:  memory.SessionID,
		LastActive: memory.LastActive,
		Memory:     datatypes.NewJSONType(memory),
	}
	memory.mu.Unlock()

	if err := s.db.WithContext(ctx).Save(&record).Error; err != nil {
		return errors.Wrapf(errors.ErrPersistenceFailure, "failed to persist session %s: %v", memory.SessionID, err)
	}
	return nil
}

func (s *SqliteStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.InMemoryStore.Delete(ctx, sessionID); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&sqliteSessionRecord{}, "session_id = ?", sessionID).Error; err != nil {
		return errors.Wrapf(errors.ErrPersistenceFailure, "failed to delete session %s: %v", sessionID, err)
	}
	return nil
}

func (s *SqliteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ Store = (*SqliteStore)(nil)
