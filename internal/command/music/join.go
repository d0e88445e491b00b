package music

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/jukebox/internal/command"
	"github.com/keshon/jukebox/pkg/cmd"
)

type JoinCommand struct{ *Deps }

func (c *JoinCommand) Name() string        { return "join" }
func (c *JoinCommand) Description() string { return "Join your voice channel" }
func (c *JoinCommand) Aliases() []string   { return []string{"j"} }
func (c *JoinCommand) Group() string       { return group }
func (c *JoinCommand) Category() string    { return category }
func (c *JoinCommand) Usage() string       { return "join" }

func (c *JoinCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
	}
}

func (c *JoinCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	dc, err := command.FromInvocation(inv)
	if err != nil {
		return err
	}

	userCh, _ := c.Voice.UserChannel(dc.GuildID, dc.UserID)
	if _, err := joinAuthor(ctx, c.Deps, dc); err != nil {
		return err
	}
	return dc.Replyf("Successfully connected to %s", c.Voice.ChannelName(userCh))
}

type LeaveCommand struct{ *Deps }

func (c *LeaveCommand) Name() string        { return "leave" }
func (c *LeaveCommand) Description() string { return "Leave the voice channel" }
func (c *LeaveCommand) Aliases() []string   { return []string{"l", "exit"} }
func (c *LeaveCommand) Group() string       { return group }
func (c *LeaveCommand) Category() string    { return category }
func (c *LeaveCommand) Usage() string       { return "leave" }

func (c *LeaveCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
	}
}

func (c *LeaveCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	dc, err := command.FromInvocation(inv)
	if err != nil {
		return err
	}

	userCh, _ := c.Voice.UserChannel(dc.GuildID, dc.UserID)
	c.Players.Remove(dc.GuildID)
	if err := c.Voice.Leave(ctx, dc.GuildID); err != nil {
		return err
	}
	return dc.Replyf("Successfully disconnected from %s", c.Voice.ChannelName(userCh))
}
