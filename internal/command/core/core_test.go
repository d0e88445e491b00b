package core

import (
	"context"
	"strings"
	"testing"

	"github.com/keshon/jukebox/internal/command"
	"github.com/keshon/jukebox/pkg/cmd"
)

type fakeMusic struct{}

func (fakeMusic) Name() string                               { return "play" }
func (fakeMusic) Description() string                        { return "Play a track right away" }
func (fakeMusic) Aliases() []string                          { return []string{"p"} }
func (fakeMusic) Group() string                              { return "music" }
func (fakeMusic) Category() string                           { return "🎵 Music" }
func (fakeMusic) Usage() string                              { return "play <query>" }
func (fakeMusic) Run(context.Context, *cmd.Invocation) error { return nil }

func TestHelpListsCommands(t *testing.T) {
	reg := cmd.NewRegistry()
	Register(reg, "!")
	reg.Register(fakeMusic{})

	var reply string
	help, ok := reg.Get("h")
	if !ok {
		t.Fatal("help not registered under h")
	}
	err := help.Run(context.Background(), &cmd.Invocation{Data: &command.Context{
		Reply: func(s string) error { reply = s; return nil },
	}})
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		"**🎵 Music**",
		"`!play <query>` - Play a track right away (aliases: p)",
		"`!ping` - Check bot latency",
		"`!help` - Get a list of available commands (aliases: h)",
	} {
		if !strings.Contains(reply, want) {
			t.Errorf("help output misses %q:\n%s", want, reply)
		}
	}
}

func TestPingWithoutSession(t *testing.T) {
	var reply string
	err := (&PingCommand{}).Run(context.Background(), &cmd.Invocation{Data: &command.Context{
		Reply: func(s string) error { reply = s; return nil },
	}})
	if err != nil || reply != "🏓 Pong!" {
		t.Errorf("reply = %q, err = %v", reply, err)
	}
}
