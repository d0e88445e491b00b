package discord

import (
	"context"
	"time"

	"github.com/keshon/jukebox/internal/logger"
	"github.com/keshon/jukebox/internal/music/player"
	"github.com/keshon/jukebox/internal/music/sources"
	"github.com/keshon/jukebox/internal/music/stream"
	"github.com/keshon/jukebox/internal/storage"
)

const streamRecoveries = 3

// newPlayer is the pool factory. The volume a guild last chose survives
// restarts through storage.
func (b *Bot) newPlayer(guildID string) *player.Player {
	volume := b.cfg.DefaultVolume
	if b.storage != nil {
		v, ok, err := b.storage.Volume(guildID)
		switch {
		case err != nil:
			b.log.Warn().Err(err).Str("guild", guildID).Msg("Failed to load volume")
		case ok:
			volume = v
		}
	}

	st := stream.New(b.dg, guildID, b.provider, stream.Options{
		Bitrate:        b.cfg.AudioBitrate,
		BufferedFrames: b.cfg.AudioBufferedFrames,
		MaxRecoveries:  streamRecoveries,
	}, logger.Component(b.log, "stream"))
	// A nil *stream.Session must not end up inside a non-nil player.Session.
	streamer := player.StreamerFunc(func(ctx context.Context, t sources.Track, vol float64, offset time.Duration) (player.Session, error) {
		sess, err := st.Start(ctx, t, vol, offset)
		if err != nil {
			return nil, err
		}
		return sess, nil
	})

	return player.New(player.Options{
		GuildID:   guildID,
		Streamer:  streamer,
		Volume:    volume,
		MaxVolume: b.cfg.MaxVolume,
		Listener:  b.onPlayerEvent,
		Logger:    logger.Component(b.log, "player"),
	})
}

// onPlayerEvent runs under the player lock.
func (b *Bot) onPlayerEvent(ev player.Event) {
	switch ev.Kind {
	case player.TrackStarted:
		if b.metrics != nil {
			b.metrics.TracksStarted.Inc()
		}
		if b.storage == nil {
			return
		}
		err := b.storage.AppendTrackToHistory(ev.GuildID, storage.TrackHistoryRecord{
			TrackID:  ev.Track.ID,
			Title:    ev.Track.FullTitle(),
			Source:   ev.Track.Source,
			PlayedAt: time.Now(),
		})
		if err != nil {
			b.log.Warn().Err(err).Str("guild", ev.GuildID).Msg("Failed to record track history")
		}
	case player.TrackFailed:
		if b.metrics != nil {
			b.metrics.TracksFailed.Inc()
		}
		b.log.Warn().Err(ev.Err).Str("guild", ev.GuildID).Str("track", ev.Track.ID).Msg("Track failed")
	case player.QueueFinished:
		b.log.Debug().Str("guild", ev.GuildID).Msg("Queue finished")
	}
}

func (b *Bot) observePool(size int) {
	if b.metrics != nil {
		b.metrics.ActivePlayers.Set(float64(size))
	}
}
