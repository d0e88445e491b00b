package middleware

import (
	"context"

	"github.com/keshon/jukebox/internal/command"
	"github.com/keshon/jukebox/pkg/cmd"
)

// Check returns a message for the user when the command must not run.
type Check func(v command.Voice, c *command.Context) (string, bool)

// WithChecks runs checks in order. The first failing check replies and the
// command is not run.
func WithChecks(v command.Voice, checks ...Check) cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			dc, err := command.FromInvocation(inv)
			if err != nil {
				return err
			}
			for _, check := range checks {
				if msg, ok := check(v, dc); !ok {
					return dc.Reply(msg)
				}
			}
			return c.Run(ctx, inv)
		})
	}
}

func AuthorInAnyChannel(v command.Voice, c *command.Context) (string, bool) {
	if _, ok := v.UserChannel(c.GuildID, c.UserID); !ok {
		return "You are not connected to a voice channel", false
	}
	return "", true
}

func BotInAnyChannel(v command.Voice, c *command.Context) (string, bool) {
	if _, ok := v.BotChannel(c.GuildID); !ok {
		return "I am not connected to a voice channel", false
	}
	return "", true
}

func InSameChannel(v command.Voice, c *command.Context) (string, bool) {
	user, _ := v.UserChannel(c.GuildID, c.UserID)
	bot, _ := v.BotChannel(c.GuildID)
	if user == "" || user != bot {
		return "You have to be in the same voice channel as me", false
	}
	return "", true
}

// BotInAnotherChannel passes unless the bot is playing in a channel other than
// the author's.
func BotInAnotherChannel(v command.Voice, c *command.Context) (string, bool) {
	bot, ok := v.BotChannel(c.GuildID)
	if !ok {
		return "", true
	}
	user, _ := v.UserChannel(c.GuildID, c.UserID)
	if bot == user || !v.Busy(c.GuildID) {
		return "", true
	}
	return "I am already playing in " + v.ChannelName(bot), false
}
