package invoke

import "strings"

// CleanOutput turns raw terminal output into diagnostic text: empty lines
// and surrounding whitespace (including the pty's carriage returns) are
// removed. When afterPrompt is set the first line is dropped, since it is
// the terminal's echo of the password entry rather than anything the tool
// said.
func CleanOutput(raw string, afterPrompt bool) string {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		if line == "" {
			continue
		}
		lines = append(lines, strings.TrimSpace(line))
	}
	if afterPrompt && len(lines) > 0 {
		lines = lines[1:]
	}

	kept := lines[:0]
	for _, line := range lines {
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
