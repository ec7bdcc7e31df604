package store

import (
	"time"

	"github.com/google/uuid"
)

// AuditEntry represents a row in access_log.
type AuditEntry struct {
	ID        string
	Name      string
	Action    string
	Detail    string
	CreatedAt time.Time
}

// LogAccess writes an audit entry.
func (d *DB) LogAccess(entry AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	_, err := d.conn.Exec(
		`INSERT INTO access_log (id, name, action, detail, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		entry.ID, entry.Name, entry.Action, entry.Detail,
		entry.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// GetAuditLog retrieves recent audit entries, newest first.
func (d *DB) GetAuditLog(limit int) ([]AuditEntry, error) {
	rows, err := d.conn.Query(
		"SELECT id, name, action, detail, created_at FROM access_log ORDER BY rowid DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var createdAt string
		if err := rows.Scan(&e.ID, &e.Name, &e.Action, &e.Detail, &createdAt); err != nil {
			return nil, err
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
