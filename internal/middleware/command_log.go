package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/keshon/jukebox/internal/command"
	"github.com/keshon/jukebox/internal/metrics"
	"github.com/keshon/jukebox/internal/storage"
	"github.com/keshon/jukebox/pkg/cmd"
)

// WithCommandLogger logs every run, appends it to the guild's command history
// and counts it.
func WithCommandLogger(log zerolog.Logger, m *metrics.Metrics) cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			start := time.Now()
			err := c.Run(ctx, inv)
			m.ObserveCommand(c.Name(), err)

			dc, cerr := command.FromInvocation(inv)
			if cerr != nil {
				return err
			}

			param := strings.Join(inv.Args, " ")
			ev := log.Info()
			if err != nil {
				ev = log.Error().Err(err)
			}
			ev.Str("command", c.Name()).
				Str("guild", dc.GuildID).
				Str("user", dc.Username).
				Str("args", param).
				Dur("took", time.Since(start)).
				Msg("Command handled")

			if dc.Storage != nil && dc.GuildID != "" {
				rec := storage.CommandHistoryRecord{
					ChannelID: dc.ChannelID,
					UserID:    dc.UserID,
					Username:  dc.Username,
					Command:   c.Name(),
					Param:     param,
					Datetime:  time.Now(),
				}
				if serr := dc.Storage.AppendCommandToHistory(dc.GuildID, rec); serr != nil {
					log.Warn().Err(serr).Str("command", c.Name()).Msg("Failed to store command history")
				}
			}
			return err
		})
	}
}
