// Package player holds the per-guild track list and drives playback through a
// Streamer.
package player

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/keshon/jukebox/internal/music/sources"
)

type State int

const (
	Stopped State = iota
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "stopped"
	}
}

var (
	ErrNotPlaying      = errors.New("nothing is playing")
	ErrNothingToResume = errors.New("nothing to resume")
	ErrEndOfQueue      = errors.New("no more tracks in the queue")
	ErrEmptyPlaylist   = errors.New("playlist is empty")
	ErrInvalidVolume   = errors.New("volume out of range")
	// ErrInterrupted is returned when another call took over the player while
	// a track was still opening.
	ErrInterrupted = errors.New("playback was interrupted")
)

// Session is a single track being streamed.
type Session interface {
	SetPaused(paused bool)
	Position() time.Duration
	Stop()
	// Done yields once when the stream ends, nil on a normal end.
	Done() <-chan error
}

type Streamer interface {
	Start(ctx context.Context, t sources.Track, volume float64, offset time.Duration) (Session, error)
}

type StreamerFunc func(ctx context.Context, t sources.Track, volume float64, offset time.Duration) (Session, error)

func (f StreamerFunc) Start(ctx context.Context, t sources.Track, volume float64, offset time.Duration) (Session, error) {
	return f(ctx, t, volume, offset)
}

type EventKind int

const (
	TrackStarted EventKind = iota
	TrackFailed
	QueueFinished
)

func (k EventKind) String() string {
	switch k {
	case TrackStarted:
		return "track_started"
	case TrackFailed:
		return "track_failed"
	default:
		return "queue_finished"
	}
}

type Event struct {
	GuildID string
	Kind    EventKind
	Track   sources.Track
	Err     error
}

// Listener is called with the player lock held and must not call back into
// the Player.
type Listener func(Event)

type Options struct {
	GuildID   string
	Streamer  Streamer
	Volume    float64
	MaxVolume float64
	Listener  Listener
	Logger    zerolog.Logger
}

// Player owns the track list of one voice connection. The current track sits
// at pos; everything after it is the queue.
type Player struct {
	mu sync.Mutex

	guildID   string
	streamer  Streamer
	listener  Listener
	log       zerolog.Logger
	maxVolume float64

	tracks  []sources.Track
	pos     int
	volume  float64
	state   State
	session Session
	gen     uint64
	// cancelStart aborts the track that is currently being opened.
	cancelStart context.CancelFunc
}

func New(opts Options) *Player {
	if opts.MaxVolume <= 0 {
		opts.MaxVolume = 200
	}
	if opts.Volume < 0 || opts.Volume > opts.MaxVolume {
		opts.Volume = 100
	}
	return &Player{
		guildID:   opts.GuildID,
		streamer:  opts.Streamer,
		listener:  opts.Listener,
		log:       opts.Logger.With().Str("guild", opts.GuildID).Logger(),
		maxVolume: opts.MaxVolume,
		pos:       -1,
		volume:    opts.Volume,
	}
}

func (p *Player) GuildID() string { return p.guildID }

func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Current returns the track at the current position, whether or not it is
// playing.
func (p *Player) Current() (sources.Track, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pos < 0 || p.pos >= len(p.tracks) {
		return sources.Track{}, false
	}
	return p.tracks[p.pos], true
}

// Position is how far into the current track playback is.
func (p *Player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return 0
	}
	return p.session.Position()
}

func (p *Player) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

func (p *Player) MaxVolume() float64 { return p.maxVolume }

// Play puts t right after the current track and starts it.
func (p *Player) Play(ctx context.Context, t sources.Track) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	at := p.pos + 1
	p.tracks = slices.Insert(p.tracks, at, t)
	p.pos = at
	return p.startLocked(ctx, 0, true)
}

// Playlist replaces the track list and starts from its first playable track.
func (p *Player) Playlist(ctx context.Context, tracks []sources.Track) error {
	if len(tracks) == 0 {
		return ErrEmptyPlaylist
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopSessionLocked()
	p.tracks = slices.Clone(tracks)
	p.pos = -1
	return p.advanceLocked(ctx)
}

func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != Playing {
		return ErrNotPlaying
	}
	p.session.SetPaused(true)
	p.state = Paused
	return nil
}

// Resume unpauses, or restarts the current track from the beginning when
// playback was stopped.
func (p *Player) Resume(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case p.state == Paused:
		p.session.SetPaused(false)
		p.state = Playing
		return nil
	case p.state == Stopped && p.pos >= 0 && p.pos < len(p.tracks):
		return p.startLocked(ctx, 0, true)
	default:
		return ErrNothingToResume
	}
}

// Stop ends playback but keeps the track list and position.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopSessionLocked()
}

// Skip starts the next playable track. At the end of the list playback stops
// and ErrEndOfQueue is returned.
func (p *Player) Skip(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopSessionLocked()
	return p.advanceLocked(ctx)
}

// Shuffle reorders the upcoming tracks. The current one stays put.
func (p *Player) Shuffle() {
	p.mu.Lock()
	defer p.mu.Unlock()

	upcoming := p.tracks[p.pos+1:]
	rand.Shuffle(len(upcoming), func(i, j int) {
		upcoming[i], upcoming[j] = upcoming[j], upcoming[i]
	})
}

// Queue returns up to n tracks after the current one.
func (p *Player) Queue(n int) []sources.Track {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n <= 0 {
		return nil
	}
	from := p.pos + 1
	to := min(from+n, len(p.tracks))
	if from >= to {
		return nil
	}
	return slices.Clone(p.tracks[from:to])
}

// Clear drops every upcoming track.
func (p *Player) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tracks = slices.Clip(p.tracks[:p.pos+1])
}

// SetVolume changes the volume in percent. A live track is reopened at its
// current position so the change is audible right away.
func (p *Player) SetVolume(ctx context.Context, v float64) error {
	if math.IsNaN(v) || v < 0 || v > p.maxVolume {
		return fmt.Errorf("%w: %v is not within 0-%v", ErrInvalidVolume, v, p.maxVolume)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.volume = v
	if p.session == nil {
		return nil
	}

	wasPaused := p.state == Paused
	offset := p.session.Position()
	if err := p.startLocked(ctx, offset, false); err != nil {
		// Whoever took over opens with the new volume.
		if errors.Is(err, ErrInterrupted) {
			return nil
		}
		return err
	}
	if wasPaused {
		p.session.SetPaused(true)
		p.state = Paused
	}
	return nil
}

// startLocked opens the current track at offset, replacing any live session.
// The lock is released while the streamer opens the track; if another call
// takes over the player meanwhile, the new session is dropped and
// ErrInterrupted is returned.
func (p *Player) startLocked(ctx context.Context, offset time.Duration, announce bool) error {
	p.stopSessionLocked()
	gen := p.gen
	t := p.tracks[p.pos]
	volume := p.volume

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	p.cancelStart = cancel

	p.mu.Unlock()
	sess, err := p.streamer.Start(ctx, t, volume, offset)
	p.mu.Lock()

	if gen != p.gen {
		if err == nil {
			sess.Stop()
		}
		return ErrInterrupted
	}
	p.cancelStart = nil

	if err != nil {
		p.log.Warn().Err(err).Str("track", t.ID).Msg("Failed to start track")
		p.emit(Event{Kind: TrackFailed, Track: t, Err: err})
		return fmt.Errorf("start %q: %w", t.FullTitle(), err)
	}

	p.session = sess
	p.state = Playing
	go p.await(sess, gen)

	if announce {
		p.log.Info().Str("track", t.ID).Str("title", t.FullTitle()).Msg("Track started")
		p.emit(Event{Kind: TrackStarted, Track: t})
	}
	return nil
}

// advanceLocked moves forward until a track starts, skipping tracks that fail
// to open.
func (p *Player) advanceLocked(ctx context.Context) error {
	for p.pos+1 < len(p.tracks) {
		p.pos++
		err := p.startLocked(ctx, 0, true)
		if err == nil || errors.Is(err, ErrInterrupted) {
			return err
		}
	}
	p.log.Debug().Msg("Queue finished")
	p.emit(Event{Kind: QueueFinished})
	return ErrEndOfQueue
}

// stopSessionLocked ends the live session and supersedes any track that is
// still being opened.
func (p *Player) stopSessionLocked() {
	p.gen++
	if p.cancelStart != nil {
		p.cancelStart()
		p.cancelStart = nil
	}
	if p.session != nil {
		p.session.Stop()
		p.session = nil
	}
	p.state = Stopped
}

// await waits for a session to end and moves on to the next track, unless
// the session has been superseded in the meantime.
func (p *Player) await(sess Session, gen uint64) {
	err := <-sess.Done()

	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.gen || p.session != sess {
		return
	}
	p.session = nil
	p.state = Stopped

	if err != nil {
		t := p.tracks[p.pos]
		p.log.Warn().Err(err).Str("track", t.ID).Msg("Stream ended with error")
		p.emit(Event{Kind: TrackFailed, Track: t, Err: err})
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	_ = p.advanceLocked(ctx)
}

func (p *Player) emit(ev Event) {
	if p.listener == nil {
		return
	}
	ev.GuildID = p.guildID
	p.listener(ev)
}
