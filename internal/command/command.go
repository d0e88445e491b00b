// Package command binds the transport-agnostic command core to Discord.
package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/jukebox/internal/storage"
	"github.com/keshon/jukebox/pkg/cmd"
)

var ErrNoContext = errors.New("invocation carries no discord context")

// Context is what both Discord transports put into Invocation.Data.
type Context struct {
	GuildID   string
	ChannelID string
	UserID    string
	Username  string

	Session *discordgo.Session
	// Message is set for prefix commands, Interaction for slash commands.
	Message     *discordgo.MessageCreate
	Interaction *discordgo.InteractionCreate

	Storage *storage.Storage

	// Reply sends content back to wherever the command came from.
	Reply func(content string) error
}

func (c *Context) Replyf(format string, args ...any) error {
	return c.Reply(fmt.Sprintf(format, args...))
}

func FromInvocation(inv *cmd.Invocation) (*Context, error) {
	if inv == nil {
		return nil, ErrNoContext
	}
	c, ok := inv.Data.(*Context)
	if !ok || c == nil {
		return nil, ErrNoContext
	}
	return c, nil
}

// Meta is read by help and middleware.
type Meta interface {
	Group() string
	Category() string
	Usage() string
}

// SlashProvider is implemented by commands that are also slash commands.
type SlashProvider interface {
	SlashDefinition() *discordgo.ApplicationCommand
}

// Voice is the view of voice state commands and checks need.
type Voice interface {
	// UserChannel returns the voice channel the user sits in.
	UserChannel(guildID, userID string) (string, bool)
	// BotChannel returns the channel the bot is connected to.
	BotChannel(guildID string) (string, bool)
	ChannelName(channelID string) string
	// Join connects to channelID or moves there when already connected.
	Join(ctx context.Context, guildID, channelID string) error
	Leave(ctx context.Context, guildID string) error
	// Busy reports whether the bot is playing something in the guild.
	Busy(guildID string) bool
}

// Register applies mws to c and adds the result to reg.
func Register(reg *cmd.Registry, c cmd.Command, mws ...cmd.Middleware) {
	reg.Register(cmd.Apply(c, mws...))
}
