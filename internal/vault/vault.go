package vault

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/lovincyrus/cifscloak/internal/crypto"
	"github.com/lovincyrus/cifscloak/internal/store"
)

const (
	DatabaseFile = ".cifstab.db"
	KeyFile      = ".keyfile"

	metaKeyFingerprint = "key_fingerprint"
)

// Column names double as HKDF info strings; changing one orphans its data.
const (
	colAddress    = "address"
	colShare      = "sharename"
	colMountPoint = "mountpoint"
	colOptions    = "options"
	colUser       = "user"
	colPassword   = "password"
)

var validate = validator.New()

// Vault is the handle on the encrypted cifstab. It owns the single store
// connection and the in-memory key for the life of the process.
type Vault struct {
	db         *store.DB
	fields     *crypto.FieldCipher
	dir        string
	keyPath    string
	keyMatches bool
	log        *zap.Logger
}

// Open initializes the vault in dir: creates the directory owner-only,
// opens the store and applies its schema, then loads the key, generating it
// only if no key file exists yet. Every failure is a *StorageInitError.
func Open(dir string, log *zap.Logger) (*Vault, error) {
	if log == nil {
		log = zap.NewNop()
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, storageInitError("create directory", dir, err)
	}
	if err := os.Chmod(dir, 0700); err != nil {
		return nil, storageInitError("chmod directory", dir, err)
	}

	dbPath := filepath.Join(dir, DatabaseFile)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, storageInitError("open database", dbPath, err)
	}

	keyPath := filepath.Join(dir, KeyFile)
	key, created, err := loadOrCreateKey(keyPath)
	if err != nil {
		db.Close()
		return nil, err
	}
	if created {
		log.Info("generated new vault key", zap.String("key_file", keyPath))
	}

	fields, err := crypto.NewFieldCipher(key)
	crypto.Zero(key)
	if err != nil {
		db.Close()
		return nil, storageInitError("load key", keyPath, err)
	}
	lockMemory(fields.MasterKey())
	disableCoreDumps()

	v := &Vault{db: db, fields: fields, dir: dir, keyPath: keyPath, log: log}
	if err := v.checkFingerprint(); err != nil {
		v.Close()
		return nil, storageInitError("check key fingerprint", dbPath, err)
	}
	return v, nil
}

func storageInitError(op, path string, err error) error {
	var sie *StorageInitError
	if errors.As(err, &sie) {
		return err
	}
	wrapped := error(&StorageInitError{Op: op, Path: path, Err: err})
	if errors.Is(err, fs.ErrPermission) {
		wrapped = errors.WithHint(wrapped, "must be root user to read cifstab")
	}
	return wrapped
}

// checkFingerprint records the key fingerprint on first use. A mismatch is
// not fatal: records sealed under the old key fail one by one on read.
func (v *Vault) checkFingerprint() error {
	fp := crypto.Fingerprint(v.fields.MasterKey())
	stored, err := v.db.GetMeta(metaKeyFingerprint)
	if err != nil {
		return err
	}
	switch stored {
	case "":
		v.keyMatches = true
		return v.db.SetMeta(metaKeyFingerprint, fp)
	case fp:
		v.keyMatches = true
	default:
		v.keyMatches = false
		v.log.Warn("key file does not match the key the store was written with",
			zap.String("key_file", v.keyPath))
	}
	return nil
}

// Add encrypts every field except the name and stores a new record.
// An existing name is never overwritten.
func (v *Vault) Add(c Credential) error {
	if err := ValidateName(c.Name); err != nil {
		return err
	}
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}

	row := store.MountRow{Name: c.Name}
	for _, f := range []struct {
		col   string
		value string
		dst   *string
	}{
		{colAddress, c.Address, &row.Address},
		{colShare, c.Share, &row.ShareName},
		{colMountPoint, c.MountPoint, &row.MountPoint},
		{colOptions, c.Options, &row.Options},
		{colUser, c.User, &row.User},
		{colPassword, c.Password, &row.Password},
	} {
		sealed, err := v.fields.Seal(f.col, f.value)
		if err != nil {
			return errors.Wrapf(err, "encrypt %s", f.col)
		}
		*f.dst = sealed
	}

	if err := v.db.InsertMount(row); err != nil {
		if errors.Is(err, store.ErrExists) {
			return errors.WithHint(
				errors.Wrapf(ErrDuplicateName, "add %q", c.Name),
				"remove the existing entry with removemounts first, or choose another name")
		}
		return errors.Wrapf(err, "add %q", c.Name)
	}

	v.logAccess(c.Name, "add", "")
	return nil
}

// Remove deletes each named record. Names that are not stored are skipped.
func (v *Vault) Remove(names ...string) error {
	for _, name := range names {
		existed, err := v.db.DeleteMount(name)
		if err != nil {
			return errors.Wrapf(err, "remove %q", name)
		}
		if existed {
			v.logAccess(name, "remove", "")
		}
	}
	return nil
}

// Get returns the fully decrypted record. It returns ErrNotFound when the
// name is absent and a *DecryptionError when any column fails to open;
// never a partially decrypted record.
func (v *Vault) Get(name string) (*Credential, error) {
	row, err := v.db.GetMount(name)
	if err != nil {
		return nil, errors.Wrapf(err, "get %q", name)
	}
	if row == nil {
		return nil, errors.Wrapf(ErrNotFound, "get %q", name)
	}

	c := &Credential{Name: row.Name}
	for _, f := range []struct {
		col    string
		sealed string
		dst    *string
	}{
		{colAddress, row.Address, &c.Address},
		{colShare, row.ShareName, &c.Share},
		{colMountPoint, row.MountPoint, &c.MountPoint},
		{colOptions, row.Options, &c.Options},
		{colUser, row.User, &c.User},
		{colPassword, row.Password, &c.Password},
	} {
		plain, err := v.fields.Open(f.col, f.sealed)
		if err != nil {
			v.logAccess(name, "read_failed", f.col)
			return nil, &DecryptionError{Name: name, Column: f.col, Err: err}
		}
		*f.dst = plain
	}

	v.logAccess(name, "read", "")
	return c, nil
}

// List returns every stored name in insertion order. When verbose, the
// non-secret fields are decrypted too; a record that fails to decrypt is
// still listed, with Error set.
func (v *Vault) List(verbose bool) ([]MountInfo, error) {
	rows, err := v.db.ListMounts()
	if err != nil {
		return nil, errors.Wrap(err, "list mounts")
	}

	result := make([]MountInfo, 0, len(rows))
	for _, r := range rows {
		info := MountInfo{Name: r.Name}
		if verbose {
			if err := v.openInfo(&info, r); err != nil {
				v.log.Warn("cannot decrypt record", zap.String("name", r.Name), zap.Error(err))
				info = MountInfo{Name: r.Name, Error: err.Error()}
			}
		}
		result = append(result, info)
	}
	return result, nil
}

func (v *Vault) openInfo(info *MountInfo, r store.MountRow) error {
	for _, f := range []struct {
		col    string
		sealed string
		dst    *string
	}{
		{colAddress, r.Address, &info.Host},
		{colShare, r.ShareName, &info.Share},
		{colMountPoint, r.MountPoint, &info.MountPoint},
		{colOptions, r.Options, &info.Options},
	} {
		plain, err := v.fields.Open(f.col, f.sealed)
		if err != nil {
			return &DecryptionError{Name: r.Name, Column: f.col, Err: err}
		}
		*f.dst = plain
	}
	return nil
}

// Names returns every stored name in insertion order.
func (v *Vault) Names() ([]string, error) {
	infos, err := v.List(false)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name
	}
	return names, nil
}

// Status reports where the vault lives and whether its key matches.
func (v *Vault) Status() (*Status, error) {
	count, err := v.db.MountCount()
	if err != nil {
		return nil, err
	}
	return &Status{
		Home:           v.dir,
		Database:       v.db.Path(),
		KeyFile:        v.keyPath,
		Records:        count,
		KeyFingerprint: crypto.Fingerprint(v.fields.MasterKey())[:16],
		KeyMatches:     v.keyMatches,
	}, nil
}

// AuditLog returns recent audit entries, newest first.
func (v *Vault) AuditLog(limit int) ([]store.AuditEntry, error) {
	return v.db.GetAuditLog(limit)
}

// Close zeroes the key and closes the store.
func (v *Vault) Close() error {
	unlockMemory(v.fields.MasterKey())
	v.fields.Destroy()
	return v.db.Close()
}

// logAccess never fails the caller; the audit trail is best effort.
func (v *Vault) logAccess(name, action, detail string) {
	if err := v.db.LogAccess(store.AuditEntry{Name: name, Action: action, Detail: detail}); err != nil {
		v.log.Debug("audit write failed", zap.String("name", name), zap.Error(err))
	}
}

// formatValidationError reports the first failing field in plain words.
func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		e := verrs[0]
		return errors.Newf("invalid %s: failed %q check (value: %q)", e.Field(), e.Tag(), e.Value())
	}
	return err
}
