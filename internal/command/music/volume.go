package music

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/jukebox/internal/command"
	"github.com/keshon/jukebox/internal/music/player"
	"github.com/keshon/jukebox/pkg/cmd"
)

type VolumeCommand struct{ *Deps }

func (c *VolumeCommand) Name() string        { return "volume" }
func (c *VolumeCommand) Description() string { return "Show or change the volume" }
func (c *VolumeCommand) Group() string       { return group }
func (c *VolumeCommand) Category() string    { return category }
func (c *VolumeCommand) Usage() string       { return "volume [percent]" }

func (c *VolumeCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionNumber,
				Name:        "percent",
				Description: "New volume in percent",
				Required:    false,
			},
		},
	}
}

func (c *VolumeCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	dc, err := command.FromInvocation(inv)
	if err != nil {
		return err
	}
	pl := c.Players.Get(dc.GuildID)

	arg := inv.Arg(0, "")
	if arg == "" {
		return dc.Replyf("The volume is %s%%", percent(pl.Volume()))
	}

	v, err := strconv.ParseFloat(strings.TrimSuffix(arg, "%"), 64)
	if err != nil {
		return dc.Replyf("Usage: `%s`", c.Usage())
	}

	if err := pl.SetVolume(ctx, v); err != nil {
		if errors.Is(err, player.ErrInvalidVolume) {
			return dc.Replyf("The volume must be between 0 and %s%%", percent(pl.MaxVolume()))
		}
		return err
	}

	if dc.Storage != nil {
		if err := dc.Storage.SetVolume(dc.GuildID, v); err != nil {
			c.Log.Warn().Err(err).Str("guild", dc.GuildID).Msg("Failed to persist volume")
		}
	}
	return dc.Replyf("Changed the volume to %s%%", percent(v))
}
