package store

import (
	"database/sql"
	"errors"
	"time"
)

// ErrExists is returned by InsertMount when the name is already taken.
var ErrExists = errors.New("name already exists")

// MountRow is a row in cifstab. Every field except Name holds base64
// ciphertext; the store never sees plaintext.
type MountRow struct {
	Name       string
	Address    string
	ShareName  string
	MountPoint string
	Options    string
	User       string
	Password   string
	CreatedAt  time.Time
}

// InsertMount adds a row. An existing row with the same name is left
// untouched and ErrExists is returned.
func (d *DB) InsertMount(r MountRow) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	res, err := d.conn.Exec(
		`INSERT INTO cifstab (name, address, sharename, mountpoint, options, user, password, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO NOTHING`,
		r.Name, r.Address, r.ShareName, r.MountPoint, r.Options, r.User, r.Password,
		r.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrExists
	}
	return nil
}

// GetMount retrieves a row by name. Returns nil, nil if absent.
func (d *DB) GetMount(name string) (*MountRow, error) {
	var r MountRow
	var createdAt string
	err := d.conn.QueryRow(
		`SELECT name, address, sharename, mountpoint, options, user, password, created_at
		 FROM cifstab WHERE name = ?`,
		name,
	).Scan(&r.Name, &r.Address, &r.ShareName, &r.MountPoint, &r.Options, &r.User, &r.Password, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &r, nil
}

// ListMounts returns every row without the user and password columns, in
// insertion order.
func (d *DB) ListMounts() ([]MountRow, error) {
	rows, err := d.conn.Query(
		`SELECT name, address, sharename, mountpoint, options, created_at
		 FROM cifstab ORDER BY rowid`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mounts []MountRow
	for rows.Next() {
		var r MountRow
		var createdAt string
		if err := rows.Scan(&r.Name, &r.Address, &r.ShareName, &r.MountPoint, &r.Options, &createdAt); err != nil {
			return nil, err
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		mounts = append(mounts, r)
	}
	return mounts, rows.Err()
}

// DeleteMount removes a row by name and reports whether one existed.
func (d *DB) DeleteMount(name string) (bool, error) {
	res, err := d.conn.Exec("DELETE FROM cifstab WHERE name = ?", name)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// MountCount returns the number of stored rows.
func (d *DB) MountCount() (int, error) {
	var count int
	err := d.conn.QueryRow("SELECT COUNT(*) FROM cifstab").Scan(&count)
	return count, err
}
