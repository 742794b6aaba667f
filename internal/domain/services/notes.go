package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ochairo/piko/internal/domain/entities"
)

// NotesInput holds what goes into a release description
type NotesInput struct {
	AppName      string // Display label, e.g. "Twitter"
	AppVersion   string
	Patches      entities.ToolRelease
	Integrations entities.ToolRelease
	CLI          entities.ToolRelease
	Checksums    map[string]string // asset name -> sha256 hex
}

// ComposeReleaseNotes renders the markdown body of a release
func ComposeReleaseNotes(in NotesInput) string {
	var b strings.Builder

	fmt.Fprintf(&b, "**Patches:** %s\n", in.Patches.Tag)
	fmt.Fprintf(&b, "**Integrations:** %s\n", in.Integrations.Tag)
	fmt.Fprintf(&b, "**CLI:** %s\n", in.CLI.Tag)
	fmt.Fprintf(&b, "**%s:** %s\n", in.AppName, in.AppVersion)

	writeSection(&b, "Patches", in.Patches.Body)
	writeSection(&b, "Integrations", in.Integrations.Body)

	if len(in.Checksums) > 0 {
		b.WriteString("\n## Checksums\n\n")
		names := make([]string, 0, len(in.Checksums))
		for name := range in.Checksums {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "- `%s` %s\n", in.Checksums[name], name)
		}
	}

	return b.String()
}

func writeSection(b *strings.Builder, title, body string) {
	changelog := ReformatChangelog(body)
	if changelog == "" {
		return
	}
	fmt.Fprintf(b, "\n## %s\n\n%s\n", title, changelog)
}

// ReformatChangelog nests an upstream changelog under a level-2 section.
// Top-level titles are dropped, other headings are demoted one level,
// "*" bullets become "-" and runs of blank lines collapse to one.
func ReformatChangelog(body string) string {
	lines := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	blank := false

	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		trimmed := strings.TrimLeft(line, " ")

		switch {
		case strings.HasPrefix(trimmed, "# "):
			continue
		case strings.HasPrefix(trimmed, "#"):
			line = "#" + trimmed
		case strings.HasPrefix(trimmed, "* "):
			line = line[:len(line)-len(trimmed)] + "- " + trimmed[2:]
		}

		if line == "" {
			if blank || len(out) == 0 {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, line)
	}

	return strings.TrimSpace(strings.Join(out, "\n"))
}
