package stream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/jonas747/dca"
	"github.com/rs/zerolog"

	"github.com/keshon/jukebox/internal/music/sources"
)

func TestDCAVolume(t *testing.T) {
	cases := map[float64]int{
		0:    0,
		50:   128,
		100:  256,
		150:  384,
		200:  512,
		12.5: 32,
		-10:  0,
	}
	for in, want := range cases {
		if got := dcaVolume(in); got != want {
			t.Errorf("dcaVolume(%v) = %d, want %d", in, got, want)
		}
	}
}

func TestEncodeOptions(t *testing.T) {
	opts := encodeOptions(Options{Bitrate: 128, BufferedFrames: 50}, 50, 90*time.Second+400*time.Millisecond)

	if opts.Volume != 128 {
		t.Errorf("Volume = %d, want 128", opts.Volume)
	}
	if opts.Bitrate != 128 || opts.BufferedFrames != 50 {
		t.Errorf("Bitrate = %d, BufferedFrames = %d", opts.Bitrate, opts.BufferedFrames)
	}
	if opts.StartTime != 90 {
		t.Errorf("StartTime = %d, want 90", opts.StartTime)
	}
	if !opts.RawOutput || opts.Application != dca.AudioApplicationLowDelay {
		t.Errorf("RawOutput = %v, Application = %v", opts.RawOutput, opts.Application)
	}
}

func TestEncodeOptionsKeepsDefaults(t *testing.T) {
	opts := encodeOptions(Options{}, 100, 0)
	if opts.Bitrate != dca.StdEncodeOptions.Bitrate {
		t.Errorf("Bitrate = %d, want default %d", opts.Bitrate, dca.StdEncodeOptions.Bitrate)
	}
	if opts.StartTime != 0 {
		t.Errorf("StartTime = %d, want 0", opts.StartTime)
	}
	if opts == dca.StdEncodeOptions {
		t.Error("encodeOptions returned the shared defaults")
	}
}

func TestStartWithoutVoiceConnection(t *testing.T) {
	dg := &discordgo.Session{VoiceConnections: map[string]*discordgo.VoiceConnection{}}
	s := New(dg, "guild", nil, Options{}, zerolog.Nop())

	if _, err := s.Start(context.Background(), sources.Track{ID: "x"}, 100, 0); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("err = %v, want ErrNotConnected", err)
	}
}

func TestFinishedSessionKeepsNewerSpeaking(t *testing.T) {
	dg := &discordgo.Session{VoiceConnections: map[string]*discordgo.VoiceConnection{}}
	s := New(dg, "guild", nil, Options{}, zerolog.Nop())
	var flags []bool
	s.speak = func(_ *discordgo.VoiceConnection, on bool) { flags = append(flags, on) }

	vc := &discordgo.VoiceConnection{}
	older := s.newSession(sources.Track{ID: "a"}, 100)
	older.vc = vc
	newer := s.newSession(sources.Track{ID: "b"}, 100)
	newer.vc = vc

	s.speaking(older, vc, true)
	s.speaking(newer, vc, true)
	older.finish(nil)
	if len(flags) != 2 || !flags[1] {
		t.Fatalf("older session cleared speaking: %v", flags)
	}
	if err := <-older.Done(); err != nil {
		t.Errorf("older done = %v", err)
	}

	newer.finish(nil)
	if len(flags) != 3 || flags[2] {
		t.Errorf("newer session kept speaking: %v", flags)
	}
}
