// Package stream encodes tracks with ffmpeg through dca and sends the opus
// frames to a guild's voice connection.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/jonas747/dca"
	"github.com/rs/zerolog"

	"github.com/keshon/jukebox/internal/music/sources"
)

var ErrNotConnected = errors.New("not connected to a voice channel")

// Resolver turns a track into a URL ffmpeg can open.
type Resolver interface {
	StreamURL(ctx context.Context, t sources.Track) (string, error)
}

type Options struct {
	Bitrate        int
	BufferedFrames int
	// MaxRecoveries bounds how often a stream that dies early is reopened at
	// its last position.
	MaxRecoveries int
}

// Streamer plays tracks into the voice connection of one guild.
type Streamer struct {
	dg       *discordgo.Session
	guildID  string
	resolver Resolver
	opts     Options
	log      zerolog.Logger

	// speakMu orders speaking updates; active is the session that owns the
	// speaking flag of the connection.
	speakMu sync.Mutex
	active  *Session
	speak   func(vc *discordgo.VoiceConnection, on bool)
}

func New(dg *discordgo.Session, guildID string, resolver Resolver, opts Options, log zerolog.Logger) *Streamer {
	if opts.MaxRecoveries < 0 {
		opts.MaxRecoveries = 0
	}
	return &Streamer{
		dg:       dg,
		guildID:  guildID,
		resolver: resolver,
		opts:     opts,
		log:      log.With().Str("guild", guildID).Logger(),
		speak: func(vc *discordgo.VoiceConnection, on bool) {
			_ = vc.Speaking(on)
		},
	}
}

// Start begins streaming t at volume percent from offset. The returned
// session reports on Done once, when the stream ends for good.
func (s *Streamer) Start(ctx context.Context, t sources.Track, volume float64, offset time.Duration) (*Session, error) {
	sess := s.newSession(t, volume)
	if err := sess.open(ctx, offset); err != nil {
		return nil, err
	}
	go sess.watch()
	return sess, nil
}

func (s *Streamer) newSession(t sources.Track, volume float64) *Session {
	return &Session{
		streamer: s,
		track:    t,
		volume:   volume,
		done:     make(chan error, 1),
		stopped:  make(chan struct{}),
	}
}

// speaking sets the speaking flag for owner. Clearing it is a no-op once a
// newer session has taken over the connection.
func (s *Streamer) speaking(owner *Session, vc *discordgo.VoiceConnection, on bool) {
	s.speakMu.Lock()
	defer s.speakMu.Unlock()
	if on {
		s.active = owner
	} else {
		if s.active != owner {
			return
		}
		s.active = nil
	}
	s.speak(vc, on)
}

func (s *Streamer) voice() (*discordgo.VoiceConnection, error) {
	s.dg.RLock()
	vc, ok := s.dg.VoiceConnections[s.guildID]
	s.dg.RUnlock()
	if !ok || vc == nil {
		return nil, ErrNotConnected
	}
	return vc, nil
}

// Session is one playing track. Recoveries happen inside the session and are
// invisible to the caller.
type Session struct {
	streamer *Streamer
	track    sources.Track
	volume   float64

	mu       sync.Mutex
	encoder  *dca.EncodeSession
	stream   *dca.StreamingSession
	vc       *discordgo.VoiceConnection
	startAt  time.Duration
	paused   bool
	attempts int
	current  chan error

	done     chan error
	stopOnce sync.Once
	stopped  chan struct{}
}

func (s *Session) open(ctx context.Context, offset time.Duration) error {
	st := s.streamer
	offset = offset.Truncate(time.Second)

	vc, err := st.voice()
	if err != nil {
		return err
	}

	link, err := st.resolver.StreamURL(ctx, s.track)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", s.track.ID, err)
	}

	enc, err := dca.EncodeFile(link, encodeOptions(st.opts, s.volume, offset))
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.track.ID, err)
	}

	st.speaking(s, vc, true)
	current := make(chan error, 1)

	s.mu.Lock()
	s.encoder = enc
	s.vc = vc
	s.startAt = offset
	s.current = current
	s.stream = dca.NewStream(enc, vc, current)
	if s.paused {
		s.stream.SetPaused(true)
	}
	s.mu.Unlock()

	st.log.Debug().Str("track", s.track.ID).Dur("offset", offset).Msg("Stream opened")
	return nil
}

func (s *Session) watch() {
	for {
		s.mu.Lock()
		current := s.current
		s.mu.Unlock()

		var err error
		select {
		case err = <-current:
		case <-s.stopped:
			s.finish(nil)
			return
		}

		if isStopped(s.stopped) {
			s.finish(nil)
			return
		}
		if err == nil || errors.Is(err, io.EOF) {
			s.finish(nil)
			return
		}

		s.mu.Lock()
		s.attempts++
		attempts := s.attempts
		s.mu.Unlock()

		if attempts > s.streamer.opts.MaxRecoveries {
			s.finish(err)
			return
		}

		pos := s.Position()
		s.streamer.log.Warn().Err(err).Str("track", s.track.ID).Int("attempt", attempts).
			Dur("position", pos).Msg("Stream ended early, reopening")
		s.cleanupEncoder()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		oerr := s.open(ctx, pos)
		cancel()
		if oerr != nil {
			s.finish(oerr)
			return
		}
	}
}

func (s *Session) finish(err error) {
	s.cleanupEncoder()
	s.mu.Lock()
	vc := s.vc
	s.mu.Unlock()
	if vc != nil {
		s.streamer.speaking(s, vc, false)
	}
	s.done <- err
	close(s.done)
}

func (s *Session) cleanupEncoder() {
	s.mu.Lock()
	enc := s.encoder
	s.encoder = nil
	s.mu.Unlock()
	if enc != nil {
		_ = enc.Stop()
		enc.Cleanup()
	}
}

// Done yields nil when the track played to its end, or the error that ended
// it. Stopped sessions yield nil as well.
func (s *Session) Done() <-chan error { return s.done }

func (s *Session) SetPaused(paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = paused
	if s.stream != nil {
		s.stream.SetPaused(paused)
	}
}

func (s *Session) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// Position is the playback position within the track.
func (s *Session) Position() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream == nil {
		return s.startAt
	}
	return s.startAt + s.stream.PlaybackPosition()
}

// Stop ends the session. It is safe to call more than once.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopped)
		s.cleanupEncoder()
	})
}

func isStopped(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

// dcaVolume maps a percentage onto dca's scale where 256 is unchanged.
func dcaVolume(percent float64) int {
	if percent < 0 {
		percent = 0
	}
	return int(percent * 256 / 100)
}

func encodeOptions(o Options, volume float64, offset time.Duration) *dca.EncodeOptions {
	opts := *dca.StdEncodeOptions
	opts.RawOutput = true
	opts.Application = dca.AudioApplicationLowDelay
	opts.Volume = dcaVolume(volume)
	if o.Bitrate > 0 {
		opts.Bitrate = o.Bitrate
	}
	if o.BufferedFrames > 0 {
		opts.BufferedFrames = o.BufferedFrames
	}
	if offset > 0 {
		opts.StartTime = int(offset / time.Second)
	}
	return &opts
}
