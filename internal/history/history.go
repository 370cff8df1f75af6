// Package history provides the audit log for network identity operations.
// It records profile, tunnel and backup lifecycle events in a local SQLite
// database so the management API can show what happened on the device and
// when.
package history

import (
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Event categories recorded in the audit log.
const (
	CategoryNetwork = "network"
	CategoryTunnel  = "tunnel"
	CategoryBackup  = "backup"
)

// Event represents one recorded lifecycle action.
type Event struct {
	ID        uint      `gorm:"primaryKey" json:"id"`            // Unique identifier for the event
	Timestamp time.Time `gorm:"index" json:"timestamp"`          // When the event occurred
	Category  string    `gorm:"not null;index" json:"category"`  // network, tunnel or backup
	Action    string    `gorm:"not null" json:"action"`          // e.g. "save", "activate", "setup", "export"
	Subject   string    `gorm:"index" json:"subject"`            // Profile id, interface name or file path
	Detail    string    `json:"detail,omitempty"`                // Free-form context for the event
}

// TableName returns the database table name for the Event model.
// This implements the GORM Tabler interface to specify custom table names.
func (Event) TableName() string {
	return "events"
}

// Database wraps a GORM database instance and provides high-level operations
// for the audit log.
type Database struct {
	*gorm.DB
}

// New creates a Database instance backed by SQLite at dbPath and runs the
// schema migration.
// Returns a Database instance or an error if connection or migration fails.
func New(dbPath string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&Event{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Database{DB: db}, nil
}

// Record inserts a new event into the audit log.
// Returns an error if the insert fails.
func (db *Database) Record(category, action, subject, detail string) error {
	event := &Event{
		Timestamp: time.Now(),
		Category:  category,
		Action:    action,
		Subject:   subject,
		Detail:    detail,
	}
	return db.Create(event).Error
}

// Recent returns the newest events, most recent first, up to limit.
// Returns an error if the query fails.
func (db *Database) Recent(limit int) ([]Event, error) {
	var events []Event
	err := db.Order("timestamp DESC, id DESC").Limit(limit).Find(&events).Error
	return events, err
}

// ForSubject returns the newest events for one subject, most recent first,
// up to limit. This is how the API shows the history of a single profile.
// Returns an error if the query fails.
func (db *Database) ForSubject(subject string, limit int) ([]Event, error) {
	var events []Event
	err := db.Where("subject = ?", subject).Order("timestamp DESC, id DESC").Limit(limit).Find(&events).Error
	return events, err
}

// PruneBefore deletes events older than the cutoff and returns how many
// were removed.
func (db *Database) PruneBefore(cutoff time.Time) (int64, error) {
	result := db.Where("timestamp < ?", cutoff).Delete(&Event{})
	return result.RowsAffected, result.Error
}
