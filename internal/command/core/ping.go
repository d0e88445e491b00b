package core

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/jukebox/internal/command"
	"github.com/keshon/jukebox/pkg/cmd"
)

type PingCommand struct{}

func (c *PingCommand) Name() string        { return "ping" }
func (c *PingCommand) Description() string { return "Check bot latency" }
func (c *PingCommand) Group() string       { return "core" }
func (c *PingCommand) Category() string    { return "🛠️ Maintenance" }
func (c *PingCommand) Usage() string       { return "ping" }

func (c *PingCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
	}
}

func (c *PingCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	dc, err := command.FromInvocation(inv)
	if err != nil {
		return err
	}
	if dc.Session == nil {
		return dc.Reply("🏓 Pong!")
	}
	return dc.Replyf("🏓 Pong! %dms", dc.Session.HeartbeatLatency().Milliseconds())
}

// Register adds the core commands.
func Register(reg *cmd.Registry, prefix string, mws ...cmd.Middleware) {
	command.Register(reg, &HelpCommand{Registry: reg, Prefix: prefix}, mws...)
	command.Register(reg, &PingCommand{}, mws...)
}
