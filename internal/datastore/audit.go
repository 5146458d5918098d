// Package datastore keeps the append audit trail in SQLite through GORM.
package datastore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ecovision/mantaview/internal/errors"
	"github.com/ecovision/mantaview/internal/logger"
	"github.com/ecovision/mantaview/internal/mutation"
)

// AppendRecord is one row of the audit trail.
type AppendRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Source    string    `gorm:"size:16;index" json:"source"`
	Rows      int       `json:"rows"`
	SessionID string    `gorm:"size:64;index" json:"session_id"`
	StorePath string    `json:"store_path"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName pins the table name independent of the struct name.
func (AppendRecord) TableName() string {
	return "append_events"
}

// AuditStore records append events.
type AuditStore struct {
	db   *gorm.DB
	path string
}

// OpenAudit opens (and migrates) the SQLite audit database at path.
// Statements slower than slowThreshold are logged as warnings.
func OpenAudit(path string, slowThreshold time.Duration) (*AuditStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, dbError(err, "create_audit_dir", errors.PriorityHigh, "path", path)
		}
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(GetLogger(), slowThreshold),
	})
	if err != nil {
		return nil, dbError(err, "open_audit_db", errors.PriorityHigh, "path", path)
	}

	if err := db.AutoMigrate(&AppendRecord{}); err != nil {
		return nil, dbError(err, "migrate_audit_db", errors.PriorityHigh, "path", path)
	}

	GetLogger().Info("audit database ready", logger.String("path", path))
	return &AuditStore{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *AuditStore) Path() string {
	return s.path
}

// RecordAppend implements mutation.Auditor.
func (s *AuditStore) RecordAppend(ctx context.Context, ev mutation.Event) error {
	rec := AppendRecord{
		Source:    string(ev.Source),
		Rows:      ev.Rows,
		SessionID: ev.SessionID,
		StorePath: ev.StorePath,
		CreatedAt: ev.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return dbError(err, "record_append", "", "source", rec.Source, "rows", rec.Rows)
	}
	return nil
}

// Recent returns up to limit audit rows, newest first.
func (s *AuditStore) Recent(ctx context.Context, limit int) ([]AppendRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []AppendRecord
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, dbError(err, "list_appends", "", "limit", limit)
	}
	return records, nil
}

// Close releases the underlying connection pool.
func (s *AuditStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return dbError(err, "close_audit_db", "")
	}
	return sqlDB.Close()
}
