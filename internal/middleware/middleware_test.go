package middleware

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/keshon/jukebox/internal/command"
	"github.com/keshon/jukebox/internal/metrics"
	"github.com/keshon/jukebox/internal/storage"
	"github.com/keshon/jukebox/pkg/cmd"
)

type fakeVoice struct {
	users map[string]string
	bot   string
	busy  bool
}

func (f *fakeVoice) UserChannel(_, userID string) (string, bool) {
	ch, ok := f.users[userID]
	return ch, ok
}

func (f *fakeVoice) BotChannel(string) (string, bool) { return f.bot, f.bot != "" }
func (f *fakeVoice) ChannelName(id string) string     { return "#" + id }
func (f *fakeVoice) Join(context.Context, string, string) error {
	return nil
}
func (f *fakeVoice) Leave(context.Context, string) error { return nil }
func (f *fakeVoice) Busy(string) bool                    { return f.busy }

type recorder struct {
	runs int
	err  error
}

func (p *recorder) Name() string        { return "recorder" }
func (p *recorder) Description() string { return "records runs" }
func (p *recorder) Run(context.Context, *cmd.Invocation) error {
	p.runs++
	return p.err
}

func invocation(guildID, userID string, replies *[]string) *cmd.Invocation {
	return &cmd.Invocation{
		Args: []string{"some", "args"},
		Data: &command.Context{
			GuildID:  guildID,
			UserID:   userID,
			Username: "name-" + userID,
			Reply: func(s string) error {
				*replies = append(*replies, s)
				return nil
			},
		},
	}
}

func TestWithGuildOnly(t *testing.T) {
	p := &recorder{}
	c := cmd.Apply(p, WithGuildOnly())
	var replies []string

	_ = c.Run(context.Background(), invocation("", "u1", &replies))
	if p.runs != 0 || len(replies) != 1 {
		t.Fatalf("DM: runs=%d replies=%v", p.runs, replies)
	}

	_ = c.Run(context.Background(), invocation("g1", "u1", &replies))
	if p.runs != 1 {
		t.Errorf("guild: runs=%d", p.runs)
	}
}

func TestChecks(t *testing.T) {
	cases := []struct {
		name   string
		voice  *fakeVoice
		checks []Check
		pass   bool
	}{
		{"author absent", &fakeVoice{}, []Check{AuthorInAnyChannel}, false},
		{"author present", &fakeVoice{users: map[string]string{"u1": "a"}}, []Check{AuthorInAnyChannel}, true},
		{"bot absent", &fakeVoice{users: map[string]string{"u1": "a"}}, []Check{BotInAnyChannel}, false},
		{"bot present", &fakeVoice{bot: "a"}, []Check{BotInAnyChannel}, true},
		{"same channel", &fakeVoice{users: map[string]string{"u1": "a"}, bot: "a"}, []Check{InSameChannel}, true},
		{"different channel", &fakeVoice{users: map[string]string{"u1": "a"}, bot: "b"}, []Check{InSameChannel}, false},
		{"both absent is not same", &fakeVoice{}, []Check{InSameChannel}, false},
		{"another: bot absent", &fakeVoice{users: map[string]string{"u1": "a"}}, []Check{BotInAnotherChannel}, true},
		{"another: same channel busy", &fakeVoice{users: map[string]string{"u1": "a"}, bot: "a", busy: true}, []Check{BotInAnotherChannel}, true},
		{"another: elsewhere idle", &fakeVoice{users: map[string]string{"u1": "a"}, bot: "b"}, []Check{BotInAnotherChannel}, true},
		{"another: elsewhere busy", &fakeVoice{users: map[string]string{"u1": "a"}, bot: "b", busy: true}, []Check{BotInAnotherChannel}, false},
		{"first failure wins", &fakeVoice{bot: "b"}, []Check{AuthorInAnyChannel, BotInAnyChannel}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := &recorder{}
			c := cmd.Apply(p, WithChecks(tc.voice, tc.checks...))
			var replies []string

			if err := c.Run(context.Background(), invocation("g1", "u1", &replies)); err != nil {
				t.Fatalf("Run: %v", err)
			}
			if tc.pass && (p.runs != 1 || len(replies) != 0) {
				t.Errorf("expected pass: runs=%d replies=%v", p.runs, replies)
			}
			if !tc.pass && (p.runs != 0 || len(replies) != 1) {
				t.Errorf("expected refusal: runs=%d replies=%v", p.runs, replies)
			}
		})
	}
}

func TestChecksFirstFailureReply(t *testing.T) {
	p := &recorder{}
	c := cmd.Apply(p, WithChecks(&fakeVoice{bot: "b"}, AuthorInAnyChannel, BotInAnyChannel))
	var replies []string
	_ = c.Run(context.Background(), invocation("g1", "u1", &replies))
	if len(replies) != 1 || replies[0] != "You are not connected to a voice channel" {
		t.Errorf("replies = %v", replies)
	}
}

func TestChecksWithoutContext(t *testing.T) {
	c := cmd.Apply(&recorder{}, WithChecks(&fakeVoice{}, AuthorInAnyChannel))
	if err := c.Run(context.Background(), &cmd.Invocation{}); !errors.Is(err, command.ErrNoContext) {
		t.Errorf("err = %v, want ErrNoContext", err)
	}
}

func TestWithCooldown(t *testing.T) {
	p := &recorder{}
	c := cmd.Apply(p, WithCooldown(time.Hour, 2))
	var replies []string

	for range 3 {
		_ = c.Run(context.Background(), invocation("g1", "u1", &replies))
	}
	if p.runs != 2 || len(replies) != 1 {
		t.Errorf("u1: runs=%d replies=%v", p.runs, replies)
	}

	_ = c.Run(context.Background(), invocation("g1", "u2", &replies))
	if p.runs != 3 {
		t.Errorf("u2 was throttled by u1's bucket")
	}
}

func TestCooldownDropsIdleBuckets(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	cd := newCooldown(time.Minute, 2, func() time.Time { return clock })

	cd.allow("u1")
	cd.allow("u2")
	clock = clock.Add(90 * time.Second)
	cd.allow("u2")
	if cd.size() != 2 {
		t.Fatalf("buckets = %d before they refill", cd.size())
	}

	// u1 has been full for a while, u2 is still refilling.
	clock = clock.Add(45 * time.Second)
	cd.allow("u3")
	if cd.size() != 2 {
		t.Errorf("buckets = %d, want u2 and u3", cd.size())
	}
	if _, ok := cd.buckets["u1"]; ok {
		t.Error("idle bucket of u1 was kept")
	}

	clock = clock.Add(time.Hour)
	cd.allow("u4")
	if cd.size() != 1 {
		t.Errorf("buckets = %d, want only u4", cd.size())
	}
}

func TestCooldownDroppedBucketStartsFull(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	cd := newCooldown(time.Minute, 2, func() time.Time { return clock })

	if !cd.allow("u1") || !cd.allow("u1") || cd.allow("u1") {
		t.Fatal("burst of 2 not enforced")
	}
	clock = clock.Add(3 * time.Minute)
	cd.allow("u2")
	if !cd.allow("u1") || !cd.allow("u1") {
		t.Error("user was throttled after the bucket refilled")
	}
}

func TestWithCooldownDisabled(t *testing.T) {
	p := &recorder{}
	c := cmd.Apply(p, WithCooldown(0, 0))
	var replies []string
	for range 5 {
		_ = c.Run(context.Background(), invocation("g1", "u1", &replies))
	}
	if p.runs != 5 {
		t.Errorf("runs = %d, want 5", p.runs)
	}
}

func TestWithCommandLogger(t *testing.T) {
	st, err := storage.New(context.Background(), filepath.Join(t.TempDir(), "store.json"))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	m := metrics.New()

	p := &recorder{}
	c := cmd.Apply(p, WithCommandLogger(zerolog.Nop(), m))
	var replies []string
	inv := invocation("g1", "u1", &replies)
	inv.Data.(*command.Context).Storage = st

	if err := c.Run(context.Background(), inv); err != nil {
		t.Fatal(err)
	}
	p.err = errors.New("boom")
	if err := c.Run(context.Background(), inv); !errors.Is(err, p.err) {
		t.Errorf("error not passed through: %v", err)
	}

	hist, err := st.FetchCommandHistory("g1")
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 2 || hist[0].Command != "recorder" || hist[0].Param != "some args" || hist[0].Username != "name-u1" {
		t.Errorf("history = %+v", hist)
	}
	if got := testutil.ToFloat64(m.Commands.WithLabelValues("recorder", "ok")); got != 1 {
		t.Errorf("ok count = %v", got)
	}
	if got := testutil.ToFloat64(m.Commands.WithLabelValues("recorder", "error")); got != 1 {
		t.Errorf("error count = %v", got)
	}
}
