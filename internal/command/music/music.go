// Package music holds the voice and playback commands.
package music

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/keshon/jukebox/internal/command"
	"github.com/keshon/jukebox/internal/middleware"
	"github.com/keshon/jukebox/internal/music/player"
	"github.com/keshon/jukebox/internal/music/sources"
	"github.com/keshon/jukebox/pkg/cmd"
)

const (
	group    = "music"
	category = "🎵 Music"

	defaultQueueAmount = 10

	interruptedReply = "Interrupted by another command"
)

// Deps is shared by every music command.
type Deps struct {
	Voice    command.Voice
	Players  *player.Pool
	Provider sources.Provider
	Log      zerolog.Logger
}

// Register adds the music commands with their voice checks. mws are applied
// on top of the checks.
func Register(reg *cmd.Registry, d *Deps, mws ...cmd.Middleware) {
	withVoice := func(checks ...middleware.Check) []cmd.Middleware {
		return append([]cmd.Middleware{middleware.WithChecks(d.Voice, checks...)}, mws...)
	}
	inChannel := withVoice(middleware.AuthorInAnyChannel, middleware.BotInAnyChannel, middleware.InSameChannel)
	joining := withVoice(middleware.AuthorInAnyChannel, middleware.BotInAnotherChannel)

	command.Register(reg, &JoinCommand{d}, withVoice(middleware.AuthorInAnyChannel)...)
	command.Register(reg, &PlayCommand{d}, joining...)
	command.Register(reg, &PlaylistCommand{d}, joining...)

	for _, c := range []cmd.Command{
		&LeaveCommand{d},
		&VolumeCommand{d},
		&PauseCommand{d},
		&ResumeCommand{d},
		&StopCommand{d},
		&SkipCommand{d},
		&ShuffleCommand{d},
		&QueueCommand{d},
		&ClearCommand{d},
		&NowPlayingCommand{d},
	} {
		command.Register(reg, c, inChannel...)
	}
	command.Register(reg, &HistoryCommand{d}, mws...)
}

// joinAuthor brings the bot into the author's channel. It reports whether
// the bot had to connect or move.
func joinAuthor(ctx context.Context, d *Deps, dc *command.Context) (bool, error) {
	userCh, ok := d.Voice.UserChannel(dc.GuildID, dc.UserID)
	if !ok {
		return false, fmt.Errorf("user %s is not in a voice channel", dc.UserID)
	}
	if botCh, ok := d.Voice.BotChannel(dc.GuildID); ok && botCh == userCh {
		return false, nil
	}
	if err := d.Voice.Join(ctx, dc.GuildID, userCh); err != nil {
		return false, fmt.Errorf("join voice channel: %w", err)
	}
	return true, nil
}

func numbered(tracks []sources.Track) string {
	var sb strings.Builder
	for i, t := range tracks {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%d. %s", i+1, t.FullTitle())
	}
	return sb.String()
}

func percent(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func clock(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
