// Package core holds commands about the bot itself.
package core

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/jukebox/internal/command"
	"github.com/keshon/jukebox/internal/version"
	"github.com/keshon/jukebox/pkg/cmd"
)

// HelpCommand lists the registry it was built with, grouped by category.
type HelpCommand struct {
	Registry *cmd.Registry
	Prefix   string
}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Description() string { return "Get a list of available commands" }
func (c *HelpCommand) Aliases() []string   { return []string{"h"} }
func (c *HelpCommand) Group() string       { return "core" }
func (c *HelpCommand) Category() string    { return "🕯️ Information" }
func (c *HelpCommand) Usage() string       { return "help" }

func (c *HelpCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
	}
}

func (c *HelpCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	dc, err := command.FromInvocation(inv)
	if err != nil {
		return err
	}
	return dc.Reply(c.build())
}

func (c *HelpCommand) build() string {
	byCategory := make(map[string][]cmd.Command)
	for _, each := range c.Registry.GetAll() {
		cat := "Other"
		if meta, ok := cmd.Root(each).(command.Meta); ok && meta.Category() != "" {
			cat = meta.Category()
		}
		byCategory[cat] = append(byCategory[cat], each)
	}

	cats := make([]string, 0, len(byCategory))
	for cat := range byCategory {
		cats = append(cats, cat)
	}
	sort.Strings(cats)

	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s** - %s\n", version.AppName, version.AppDescription)
	for _, cat := range cats {
		fmt.Fprintf(&sb, "\n**%s**\n", cat)
		for _, each := range byCategory[cat] {
			sb.WriteString(c.line(each))
		}
	}
	return sb.String()
}

func (c *HelpCommand) line(each cmd.Command) string {
	usage := each.Name()
	if meta, ok := cmd.Root(each).(command.Meta); ok && meta.Usage() != "" {
		usage = meta.Usage()
	}
	line := fmt.Sprintf("`%s%s` - %s", c.Prefix, usage, each.Description())
	if a, ok := cmd.Root(each).(cmd.Aliased); ok && len(a.Aliases()) > 0 {
		line += fmt.Sprintf(" (aliases: %s)", strings.Join(a.Aliases(), ", "))
	}
	return line + "\n"
}
