package music

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/jukebox/internal/command"
	"github.com/keshon/jukebox/pkg/cmd"
)

type HistoryCommand struct{ *Deps }

func (c *HistoryCommand) Name() string        { return "history" }
func (c *HistoryCommand) Description() string { return "Show recently played tracks" }
func (c *HistoryCommand) Group() string       { return group }
func (c *HistoryCommand) Category() string    { return category }
func (c *HistoryCommand) Usage() string       { return "history" }

func (c *HistoryCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return plainSlash(c.Name(), c.Description())
}

func (c *HistoryCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	dc, err := command.FromInvocation(inv)
	if err != nil {
		return err
	}
	if dc.Storage == nil {
		return dc.Reply("Nothing has been played yet")
	}

	records, err := dc.Storage.FetchTrackHistory(dc.GuildID)
	if err != nil {
		return fmt.Errorf("fetch track history: %w", err)
	}
	if len(records) == 0 {
		return dc.Reply("Nothing has been played yet")
	}

	var sb strings.Builder
	sb.WriteString("Recently played:")
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		fmt.Fprintf(&sb, "\n%d. %s (%s)", len(records)-i, r.Title, r.PlayedAt.UTC().Format("2006-01-02 15:04"))
	}
	return dc.Reply(sb.String())
}
