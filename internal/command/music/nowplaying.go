package music

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/jukebox/internal/command"
	"github.com/keshon/jukebox/internal/music/player"
	"github.com/keshon/jukebox/pkg/cmd"
)

type NowPlayingCommand struct{ *Deps }

func (c *NowPlayingCommand) Name() string        { return "nowplaying" }
func (c *NowPlayingCommand) Description() string { return "Show the current track" }
func (c *NowPlayingCommand) Aliases() []string   { return []string{"np"} }
func (c *NowPlayingCommand) Group() string       { return group }
func (c *NowPlayingCommand) Category() string    { return category }
func (c *NowPlayingCommand) Usage() string       { return "nowplaying" }

func (c *NowPlayingCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return plainSlash(c.Name(), c.Description())
}

func (c *NowPlayingCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	dc, err := command.FromInvocation(inv)
	if err != nil {
		return err
	}
	pl := c.Players.Get(dc.GuildID)

	t, ok := pl.Current()
	if !ok || pl.State() == player.Stopped {
		return dc.Reply("Nothing is playing")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%s", t.FullTitle(), pl.State())
	pos := clock(pl.Position())
	if t.Duration > 0 {
		fmt.Fprintf(&sb, ", %s / %s", pos, clock(t.Duration))
	} else {
		fmt.Fprintf(&sb, ", %s", pos)
	}
	sb.WriteString(")")
	if t.URL != "" {
		sb.WriteString("\n<" + t.URL + ">")
	}
	return dc.Reply(sb.String())
}
