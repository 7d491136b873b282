package knowledge

import (
	"context"
	"fmt"
	"time"

	"github.com/mokiat/gog"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/errors"
)

// Store persists knowledge entries. The in-memory index stays authoritative;
// the store exists so a restart can rebuild the index without re-ingesting
// source documents.
type Store interface {
	SaveEntries(ctx context.Context, entries []*KnowledgeEntry) error
	LoadEntries(ctx context.Context) ([]*KnowledgeEntry, error)
	DeleteEntry(ctx context.Context, id string) error
	Close() error
}

// SqliteStore implements Store on SQLite via gorm.
type SqliteStore struct {
	db *gorm.DB
}

type sqliteEntryRecord struct {
	ID        string `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Title       string
	Content     string
	Category    string `gorm:"index"`
	Tags        datatypes.JSONType[[]string]
	SourceType  string `gorm:"index"`
	SourceFile  string
	DocumentID  string `gorm:"index"`
	SectionID   string
	SectionType string

	// Position preserves ingestion order across reloads so rebuilt indexes
	// iterate entries the same way the original one did.
	Position int64 `gorm:"index"`
}

func (sqliteEntryRecord) TableName() string {
	return "knowledge_entries"
}

func NewSqliteStore(dbPath string) (*SqliteStore, error) {
	db, err := gorm.Open(
		sqlite.Open(fmt.Sprintf("file:%s?cache=shared&mode=rwc&_journal_mode=WAL", dbPath)),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)},
	)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open sqlite database")
	}

	if err := db.AutoMigrate(&sqliteEntryRecord{}); err != nil {
		return nil, errors.Wrapf(err, "failed to migrate knowledge entries table")
	}

	return &SqliteStore{db: db}, nil
}

// SaveEntries upserts entries in one transaction.
func (s *SqliteStore) SaveEntries(ctx context.Context, entries []*KnowledgeEntry) error {
	if len(entries) == 0 {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxPos int64
		if err := tx.Model(&sqliteEntryRecord{}).Select("COALESCE(MAX(position), 0)").Scan(&maxPos).Error; err != nil {
			return errors.Wrapf(err, "failed to read entry positions")
		}

		for _, entry := range entries {
			record := sqliteEntryRecord{
				ID:          entry.ID,
				CreatedAt:   entry.CreatedAt,
				UpdatedAt:   entry.UpdatedAt,
				Title:       entry.Title,
				Content:     entry.Content,
				Category:    string(entry.Category),
				Tags:        datatypes.NewJSONType(entry.Tags),
				SourceType:  string(entry.SourceType),
				SourceFile:  entry.SourceFile,
				DocumentID:  entry.DocumentID,
				SectionID:   entry.SectionID,
				SectionType: entry.SectionType,
			}

			var existing sqliteEntryRecord
			err := tx.Select("position").First(&existing, "id = ?", entry.ID).Error
			switch {
			case err == nil:
				record.Position = existing.Position
			case errors.Is(err, gorm.ErrRecordNotFound):
				maxPos++
				record.Position = maxPos
			default:
				return errors.Wrapf(err, "failed to look up entry %s", entry.ID)
			}

			if err := tx.Save(&record).Error; err != nil {
				return errors.Wrapf(err, "failed to save entry %s", entry.ID)
			}
		}
		return nil
	})
}

// LoadEntries returns every persisted entry in ingestion order.
func (s *SqliteStore) LoadEntries(ctx context.Context) ([]*KnowledgeEntry, error) {
	var records []sqliteEntryRecord
	if err := s.db.WithContext(ctx).Order("position").Find(&records).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to load knowledge entries")
	}

	return gog.Map(records, func(record sqliteEntryRecord) *KnowledgeEntry {
		return &KnowledgeEntry{
			ID:          record.ID,
			Title:       record.Title,
			Content:     record.Content,
			Category:    Category(record.Category),
			Tags:        record.Tags.Data(),
			SourceType:  SourceType(record.SourceType),
			SourceFile:  record.SourceFile,
			DocumentID:  record.DocumentID,
			SectionID:   record.SectionID,
			SectionType: record.SectionType,
			CreatedAt:   record.CreatedAt,
			UpdatedAt:   record.UpdatedAt,
		}
	}), nil
}

func (s *SqliteStore) DeleteEntry(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&sqliteEntryRecord{}, "id = ?", id).Error; err != nil {
		return errors.Wrapf(err, "failed to delete entry %s", id)
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
