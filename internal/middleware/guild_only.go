package middleware

import (
	"context"

	"github.com/keshon/jukebox/internal/command"
	"github.com/keshon/jukebox/pkg/cmd"
)

// WithGuildOnly refuses commands sent outside a server.
func WithGuildOnly() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			dc, err := command.FromInvocation(inv)
			if err != nil {
				return c.Run(ctx, inv)
			}
			if dc.GuildID == "" {
				return dc.Reply("This command can only be used in a server.")
			}
			return c.Run(ctx, inv)
		})
	}
}
