package vault

// Credential is a fully decrypted cifstab record.
type Credential struct {
	Name       string `json:"name" validate:"required"`
	Address    string `json:"address" validate:"required,hostname_rfc1123|ip"`
	Share      string `json:"share" validate:"required,excludesall=/"`
	MountPoint string `json:"mountpoint" validate:"required,startswith=/"`
	Options    string `json:"options"`
	User       string `json:"user" validate:"required"`
	Password   string `json:"-"`
}

// MountInfo is the display view of a record. It never carries the user
// or password. Only Name is set unless the listing was verbose.
type MountInfo struct {
	Name       string `json:"name"`
	Host       string `json:"host,omitempty"`
	Share      string `json:"share,omitempty"`
	MountPoint string `json:"mountpoint,omitempty"`
	Options    string `json:"options"`
	Error      string `json:"error,omitempty"`
}

// Status describes the vault on disk.
type Status struct {
	Home           string `json:"home"`
	Database       string `json:"database"`
	KeyFile        string `json:"key_file"`
	Records        int    `json:"records"`
	KeyFingerprint string `json:"key_fingerprint"`
	KeyMatches     bool   `json:"key_matches"`
}
