package music

import (
	"context"
	"strconv"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/jukebox/internal/command"
	"github.com/keshon/jukebox/pkg/cmd"
)

type ShuffleCommand struct{ *Deps }

func (c *ShuffleCommand) Name() string        { return "shuffle" }
func (c *ShuffleCommand) Description() string { return "Shuffle the upcoming tracks" }
func (c *ShuffleCommand) Aliases() []string   { return []string{"mix"} }
func (c *ShuffleCommand) Group() string       { return group }
func (c *ShuffleCommand) Category() string    { return category }
func (c *ShuffleCommand) Usage() string       { return "shuffle" }

func (c *ShuffleCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return plainSlash(c.Name(), c.Description())
}

func (c *ShuffleCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	dc, err := command.FromInvocation(inv)
	if err != nil {
		return err
	}
	pl := c.Players.Get(dc.GuildID)
	pl.Shuffle()
	return dc.Reply("Tracks are mixed, here are the next 10 tracks:\n" + numbered(pl.Queue(defaultQueueAmount)))
}

type QueueCommand struct{ *Deps }

func (c *QueueCommand) Name() string        { return "queue" }
func (c *QueueCommand) Description() string { return "Show the upcoming tracks" }
func (c *QueueCommand) Group() string       { return group }
func (c *QueueCommand) Category() string    { return category }
func (c *QueueCommand) Usage() string       { return "queue [amount=10]" }

func (c *QueueCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "amount",
				Description: "How many tracks to show",
				Required:    false,
			},
		},
	}
}

func (c *QueueCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	dc, err := command.FromInvocation(inv)
	if err != nil {
		return err
	}
	amount, err := strconv.Atoi(inv.Arg(0, strconv.Itoa(defaultQueueAmount)))
	if err != nil {
		return dc.Replyf("Usage: `%s`", c.Usage())
	}

	queue := c.Players.Get(dc.GuildID).Queue(amount)
	if len(queue) == 0 {
		return dc.Reply("The queue is empty")
	}
	return dc.Replyf("Next %d tracks:\n%s", len(queue), numbered(queue))
}

type ClearCommand struct{ *Deps }

func (c *ClearCommand) Name() string        { return "clear" }
func (c *ClearCommand) Description() string { return "Remove all upcoming tracks" }
func (c *ClearCommand) Aliases() []string   { return []string{"c", "clr"} }
func (c *ClearCommand) Group() string       { return group }
func (c *ClearCommand) Category() string    { return category }
func (c *ClearCommand) Usage() string       { return "clear" }

func (c *ClearCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return plainSlash(c.Name(), c.Description())
}

func (c *ClearCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	dc, err := command.FromInvocation(inv)
	if err != nil {
		return err
	}
	c.Players.Get(dc.GuildID).Clear()
	return dc.Reply("The queue cleared")
}
