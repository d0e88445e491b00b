package music

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/jukebox/internal/command"
	"github.com/keshon/jukebox/internal/music/player"
	"github.com/keshon/jukebox/pkg/cmd"
)

func plainSlash(name, description string) *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        name,
		Description: description,
		Type:        discordgo.ChatApplicationCommand,
	}
}

type PauseCommand struct{ *Deps }

func (c *PauseCommand) Name() string        { return "pause" }
func (c *PauseCommand) Description() string { return "Pause the current track" }
func (c *PauseCommand) Group() string       { return group }
func (c *PauseCommand) Category() string    { return category }
func (c *PauseCommand) Usage() string       { return "pause" }

func (c *PauseCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return plainSlash(c.Name(), c.Description())
}

func (c *PauseCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	dc, err := command.FromInvocation(inv)
	if err != nil {
		return err
	}
	if err := c.Players.Get(dc.GuildID).Pause(); errors.Is(err, player.ErrNotPlaying) {
		return dc.Reply("Nothing is playing")
	}
	return dc.Reply("Paused")
}

type ResumeCommand struct{ *Deps }

func (c *ResumeCommand) Name() string        { return "resume" }
func (c *ResumeCommand) Description() string { return "Resume playback" }
func (c *ResumeCommand) Aliases() []string   { return []string{"r"} }
func (c *ResumeCommand) Group() string       { return group }
func (c *ResumeCommand) Category() string    { return category }
func (c *ResumeCommand) Usage() string       { return "resume" }

func (c *ResumeCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return plainSlash(c.Name(), c.Description())
}

func (c *ResumeCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	dc, err := command.FromInvocation(inv)
	if err != nil {
		return err
	}
	err = c.Players.Get(dc.GuildID).Resume(ctx)
	switch {
	case errors.Is(err, player.ErrNothingToResume):
		return dc.Reply("Nothing to resume")
	case errors.Is(err, player.ErrInterrupted):
		return dc.Reply(interruptedReply)
	case err != nil:
		return err
	}
	return dc.Reply("Resumed")
}

type StopCommand struct{ *Deps }

func (c *StopCommand) Name() string        { return "stop" }
func (c *StopCommand) Description() string { return "Stop playback, the queue is kept" }
func (c *StopCommand) Group() string       { return group }
func (c *StopCommand) Category() string    { return category }
func (c *StopCommand) Usage() string       { return "stop" }

func (c *StopCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return plainSlash(c.Name(), c.Description())
}

func (c *StopCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	dc, err := command.FromInvocation(inv)
	if err != nil {
		return err
	}
	c.Players.Get(dc.GuildID).Stop()
	return dc.Reply("Stopped")
}

type SkipCommand struct{ *Deps }

func (c *SkipCommand) Name() string        { return "skip" }
func (c *SkipCommand) Description() string { return "Skip to the next track" }
func (c *SkipCommand) Aliases() []string   { return []string{"n", "next"} }
func (c *SkipCommand) Group() string       { return group }
func (c *SkipCommand) Category() string    { return category }
func (c *SkipCommand) Usage() string       { return "skip" }

func (c *SkipCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return plainSlash(c.Name(), c.Description())
}

func (c *SkipCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	dc, err := command.FromInvocation(inv)
	if err != nil {
		return err
	}
	err = c.Players.Get(dc.GuildID).Skip(ctx)
	switch {
	case errors.Is(err, player.ErrEndOfQueue):
		return dc.Reply("No more tracks in the queue")
	case errors.Is(err, player.ErrInterrupted):
		return dc.Reply(interruptedReply)
	case err != nil:
		return err
	}
	return dc.Reply("Next track")
}
