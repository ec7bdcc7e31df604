// Package systemd renders the oneshot unit that mounts vault shares at
// boot and unmounts them on shutdown.
package systemd

import (
	"bytes"
	"slices"
	"strings"
	"text/template"

	"github.com/cockroachdb/errors"
)

// BootRetries is the retry count written into ExecStart; shares are often
// unreachable for a while after boot.
const BootRetries = 6

// UnitParams selects which shares the unit manages.
type UnitParams struct {
	// Executable is the absolute path of the cifscloak binary.
	Executable string
	// All selects every share in the vault; Names is ignored.
	All   bool
	Names []string
	// Missing lists requested names the vault does not know.
	Missing []string
}

var unitTemplate = template.Must(template.New("unit").Parse(`{{.Comment}}
[Unit]
After=multi-user.target
Description=cifscloak

[Service]
Type=oneshot
RemainAfterExit=yes
ExecStart={{.Executable}} mount {{.Selection}} -r {{.Retries}}
ExecStop={{.Executable}} mount -u {{.Selection}}

[Install]
WantedBy=multi-user.target
`))

// Render returns the unit file text.
func Render(p UnitParams) (string, error) {
	if p.Executable == "" {
		return "", errors.New("systemd unit: executable path is required")
	}

	selection := "-a"
	if !p.All {
		names := dedupe(p.Names)
		if len(names) == 0 {
			return "", errors.New("systemd unit: no share names given")
		}
		selection = "-n " + strings.Join(names, " ")
	}

	comment := "# Generated by cifscloak"
	if missing := dedupe(p.Missing); !p.All && len(missing) > 0 {
		comment = "# ! WARNING ! Not in the cifstab: " + strings.Join(missing, " ")
	}

	var buf bytes.Buffer
	err := unitTemplate.Execute(&buf, struct {
		Comment    string
		Executable string
		Selection  string
		Retries    int
	}{comment, p.Executable, selection, BootRetries})
	if err != nil {
		return "", errors.Wrap(err, "render systemd unit")
	}
	return buf.String(), nil
}

// Missing returns the requested names not present in known, in request
// order.
func Missing(requested, known []string) []string {
	var out []string
	for _, n := range dedupe(requested) {
		if !slices.Contains(known, n) {
			out = append(out, n)
		}
	}
	return out
}

func dedupe(names []string) []string {
	var out []string
	for _, n := range names {
		if !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	return out
}
