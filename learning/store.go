package learning

import (
	"context"
	"fmt"
	"time"

	"github.com/mokiat/gog"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/errors"
)

// Store mirrors the engine's learned state. The engine never reads through
// it after startup.
type Store interface {
	Save(ctx context.Context, learned []*LearnedInfo, gaps []*KnowledgeGap) error
	Load(ctx context.Context) ([]*LearnedInfo, []*KnowledgeGap, error)
	Close() error
}

// NoopStore drops everything; learned state then lives only in memory.
type NoopStore struct{}

func NewNoopStore() *NoopStore {
	return &NoopStore{}
}

func (*NoopStore) Save(ctx context.Context, learned []*LearnedInfo, gaps []*KnowledgeGap) error {
	return nil
}

func (*NoopStore) Load(ctx context.Context) ([]*LearnedInfo, []*KnowledgeGap, error) {
	return nil, nil, nil
}

func (*NoopStore) Close() error {
	return nil
}

var _ Store = (*NoopStore)(nil)

// SqliteStore persists learned facts and gaps via gorm.
type SqliteStore struct {
	db *gorm.DB
}

type sqliteLearnedRecord struct {
	ID        string `gorm:"primaryKey"`
	Timestamp time.Time
	Position  int64 `gorm:"index"`
	Info      datatypes.JSONType[*LearnedInfo]
}

func (sqliteLearnedRecord) TableName() string {
	return "learned_information"
}

type sqliteGapRecord struct {
	ID        string `gorm:"primaryKey"`
	Timestamp time.Time
	Position  int64 `gorm:"index"`
	Gap       datatypes.JSONType[*KnowledgeGap]
}

func (sqliteGapRecord) TableName() string {
	return "knowledge_gaps"
}

func NewSqliteStore(dbPath string) (*SqliteStore, error) {
	db, err := gorm.Open(
		sqlite.Open(fmt.Sprintf("file:%s?cache=shared&mode=rwc&_journal_mode=WAL", dbPath)),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)},
	)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open sqlite database")
	}

	if err := db.AutoMigrate(&sqliteLearnedRecord{}, &sqliteGapRecord{}); err != nil {
		return nil, errors.Wrapf(err, "failed to migrate learning tables")
	}

	return &SqliteStore{db: db}, nil
}

// Save replaces the persisted state with the given snapshot.
func (s *SqliteStore) Save(ctx context.Context, learned []*LearnedInfo, gaps []*KnowledgeGap) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&sqliteLearnedRecord{}).Error; err != nil {
			return errors.Wrapf(err, "failed to clear learned records")
		}
		if err := tx.Where("1 = 1").Delete(&sqliteGapRecord{}).Error; err != nil {
			return errors.Wrapf(err, "failed to clear gap records")
		}

		for i, info := range learned {
			record := sqliteLearnedRecord{
				ID:        info.ID,
				Timestamp: info.Timestamp,
				Position:  int64(i),
				Info:      datatypes.NewJSONType(info),
			}
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&record).Error; err != nil {
				return errors.Wrapf(err, "failed to save learned record %s", info.ID)
			}
		}
		for i, gap := range gaps {
			record := sqliteGapRecord{
				ID:        gap.ID,
				Timestamp: gap.Timestamp,
				Position:  int64(i),
				Gap:       datatypes.NewJSONType(gap),
			}
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&record).Error; err != nil {
				return errors.Wrapf(err, "failed to save gap record %s", gap.ID)
			}
		}
		return nil
	})
}

func (s *SqliteStore) Load(ctx context.Context) ([]*LearnedInfo, []*KnowledgeGap, error) {
	var learnedRecords []sqliteLearnedRecord
	if err := s.db.WithContext(ctx).Order("position").Find(&learnedRecords).Error; err != nil {
		return nil, nil, errors.Wrapf(err, "failed to load learned records")
	}
	var gapRecords []sqliteGapRecord
	if err := s.db.WithContext(ctx).Order("position").Find(&gapRecords).Error; err != nil {
		return nil, nil, errors.Wrapf(err, "failed to load gap records")
	}

	learned := gog.Map(learnedRecords, func(record sqliteLearnedRecord) *LearnedInfo {
		return record.Info.Data()
	})
	gaps := gog.Map(gapRecords, func(record sqliteGapRecord) *KnowledgeGap {
		return record.Gap.Data()
	})
	return learned, gaps, nil
}

func (s *SqliteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ Store = (*SqliteStore)(nil)
