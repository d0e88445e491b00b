package music

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/jukebox/internal/command"
	"github.com/keshon/jukebox/internal/music/player"
	"github.com/keshon/jukebox/internal/music/sources"
	"github.com/keshon/jukebox/pkg/cmd"
)

type PlayCommand struct{ *Deps }

func (c *PlayCommand) Name() string        { return "play" }
func (c *PlayCommand) Description() string { return "Play a track right away" }
func (c *PlayCommand) Aliases() []string   { return []string{"p"} }
func (c *PlayCommand) Group() string       { return group }
func (c *PlayCommand) Category() string    { return category }
func (c *PlayCommand) Usage() string       { return "play <link or search query>" }

func (c *PlayCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "query",
				Description: "Link or search query",
				Required:    true,
			},
		},
	}
}

func (c *PlayCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	dc, err := command.FromInvocation(inv)
	if err != nil {
		return err
	}

	query := strings.TrimSpace(strings.Join(inv.Args, " "))
	if query == "" {
		return dc.Replyf("Usage: `%s`", c.Usage())
	}

	if err := announceJoin(ctx, c.Deps, dc); err != nil {
		return err
	}

	tracks, err := c.Provider.Search(ctx, query)
	if errors.Is(err, sources.ErrNotFound) {
		return dc.Replyf("Nothing found for %s", query)
	}
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	track := tracks[0]
	if err := c.Players.Get(dc.GuildID).Play(ctx, track); err != nil {
		if errors.Is(err, player.ErrInterrupted) {
			return dc.Reply(interruptedReply)
		}
		return err
	}
	return dc.Replyf("%s is playing now", track.FullTitle())
}

type PlaylistCommand struct{ *Deps }

func (c *PlaylistCommand) Name() string { return "playlist" }
func (c *PlaylistCommand) Description() string {
	return "Replace the queue with a playlist of a channel"
}
func (c *PlaylistCommand) Group() string    { return group }
func (c *PlaylistCommand) Category() string { return category }
func (c *PlaylistCommand) Usage() string    { return "playlist <channel or playlist link> [number=1]" }

func (c *PlaylistCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "profile",
				Description: "Channel handle, channel ID or playlist link",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "kind",
				Description: "Which of the channel's playlists, starting at 1",
				Required:    false,
			},
		},
	}
}

func (c *PlaylistCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	dc, err := command.FromInvocation(inv)
	if err != nil {
		return err
	}

	profile := inv.Arg(0, "")
	if profile == "" {
		return dc.Replyf("Usage: `%s`", c.Usage())
	}
	kind, err := strconv.Atoi(inv.Arg(1, "1"))
	if err != nil || kind < 1 {
		return dc.Replyf("Usage: `%s`", c.Usage())
	}

	if err := announceJoin(ctx, c.Deps, dc); err != nil {
		return err
	}

	tracks, err := c.Provider.Playlist(ctx, profile, kind)
	if errors.Is(err, sources.ErrNotFound) {
		return dc.Replyf("Nothing found for %s", profile)
	}
	if err != nil {
		return fmt.Errorf("load playlist: %w", err)
	}

	pl := c.Players.Get(dc.GuildID)
	if err := pl.Playlist(ctx, tracks); err != nil {
		if errors.Is(err, player.ErrEndOfQueue) {
			return dc.Reply("None of the tracks could be played")
		}
		if errors.Is(err, player.ErrInterrupted) {
			return dc.Reply(interruptedReply)
		}
		return err
	}

	first, _ := pl.Current()
	return dc.Replyf("%d tracks added to the queue\n%s is playing now", len(tracks), first.FullTitle())
}

// announceJoin joins the author's channel and says so when the bot moved.
func announceJoin(ctx context.Context, d *Deps, dc *command.Context) error {
	moved, err := joinAuthor(ctx, d, dc)
	if err != nil {
		return err
	}
	if !moved {
		return nil
	}
	userCh, _ := d.Voice.UserChannel(dc.GuildID, dc.UserID)
	return dc.Replyf("Successfully connected to %s", d.Voice.ChannelName(userCh))
}
