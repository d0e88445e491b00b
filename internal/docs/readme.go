// Package docs renders the command reference for README.md.
package docs

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/template"

	"github.com/keshon/jukebox/internal/command"
	"github.com/keshon/jukebox/internal/version"
	"github.com/keshon/jukebox/pkg/cmd"
)

// GroupWeights orders README sections by command group; unknown groups sort
// last.
var GroupWeights = map[string]int{
	"music": 0,
	"core":  10,
}

type entry struct {
	name, usage, description string
	group, category          string
	aliases                  []string
}

// CommandSections lists every command of reg in markdown, one section per
// category.
func CommandSections(reg *cmd.Registry, prefix string) string {
	var entries []entry
	for _, c := range reg.GetAll() {
		e := entry{name: c.Name(), description: c.Description(), category: "Other"}
		if meta, ok := cmd.Root(c).(command.Meta); ok {
			e.group = meta.Group()
			e.category = meta.Category()
			e.usage = meta.Usage()
		}
		if a, ok := cmd.Root(c).(cmd.Aliased); ok {
			e.aliases = a.Aliases()
		}
		entries = append(entries, e)
	}

	slices.SortStableFunc(entries, func(a, b entry) int {
		if wa, wb := weight(a.group), weight(b.group); wa != wb {
			return wa - wb
		}
		if c := strings.Compare(a.category, b.category); c != 0 {
			return c
		}
		return strings.Compare(a.name, b.name)
	})

	var buf bytes.Buffer
	current := ""
	for _, e := range entries {
		if e.category != current {
			if current != "" {
				buf.WriteString("\n")
			}
			current = e.category
			fmt.Fprintf(&buf, "### %s\n\n", current)
		}
		usage := e.usage
		if usage == "" {
			usage = e.name
		}
		fmt.Fprintf(&buf, "- **`%s%s`** or **`/%s`**: %s", prefix, usage, e.name, e.description)
		if len(e.aliases) > 0 {
			fmt.Fprintf(&buf, " (aliases: %s)", strings.Join(e.aliases, ", "))
		}
		buf.WriteString("\n")
	}
	return buf.String()
}

// Render executes tmpl with the app name, version and command sections.
func Render(w io.Writer, tmpl string, reg *cmd.Registry, prefix string) error {
	t, err := template.New("readme").Parse(tmpl)
	if err != nil {
		return fmt.Errorf("parse template: %w", err)
	}
	data := struct {
		AppName         string
		Description     string
		Version         string
		Prefix          string
		CommandSections string
	}{
		AppName:         version.AppName,
		Description:     version.AppDescription,
		Version:         version.Version,
		Prefix:          prefix,
		CommandSections: CommandSections(reg, prefix),
	}
	return t.Execute(w, data)
}

func weight(group string) int {
	if w, ok := GroupWeights[group]; ok {
		return w
	}
	return 100
}
