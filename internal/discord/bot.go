// Package discord runs the bot: gateway session, command dispatch for prefix
// and slash commands, voice connections and the per-guild players.
package discord

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/keshon/jukebox/internal/command"
	"github.com/keshon/jukebox/internal/command/core"
	"github.com/keshon/jukebox/internal/command/music"
	"github.com/keshon/jukebox/internal/config"
	"github.com/keshon/jukebox/internal/logger"
	"github.com/keshon/jukebox/internal/metrics"
	"github.com/keshon/jukebox/internal/middleware"
	"github.com/keshon/jukebox/internal/music/player"
	"github.com/keshon/jukebox/internal/music/sources"
	"github.com/keshon/jukebox/internal/storage"
	"github.com/keshon/jukebox/pkg/cmd"
)

const commandTimeout = 2 * time.Minute

type Options struct {
	Config   *config.Config
	Storage  *storage.Storage
	Provider sources.Provider
	Metrics  *metrics.Metrics
	Logger   zerolog.Logger
}

// Bot is a Discord bot
type Bot struct {
	dg       *discordgo.Session
	cfg      *config.Config
	storage  *storage.Storage
	provider sources.Provider
	metrics  *metrics.Metrics
	log      zerolog.Logger

	registry *cmd.Registry
	players  *player.Pool
	voice    *voice

	mu  sync.RWMutex
	ctx context.Context
}

// New builds the session and registers every command. Nothing connects until
// Run.
func New(opts Options) (*Bot, error) {
	dg, err := discordgo.New("Bot " + opts.Config.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	b := &Bot{
		dg:       dg,
		cfg:      opts.Config,
		storage:  opts.Storage,
		provider: opts.Provider,
		metrics:  opts.Metrics,
		log:      logger.Component(opts.Logger, "discord"),
		registry: cmd.NewRegistry(),
		ctx:      context.Background(),
	}
	b.players = player.NewPool(b.newPlayer, b.observePool)
	b.voice = &voice{dg: dg, players: b.players}
	b.registerCommands()
	return b, nil
}

// Registry returns the commands the bot dispatches to.
func (b *Bot) Registry() *cmd.Registry { return b.registry }

func (b *Bot) registerCommands() {
	logged := middleware.WithCommandLogger(logger.Component(b.log, "command"), b.metrics)
	cooldown := middleware.WithCooldown(b.cfg.CommandCooldown, b.cfg.CommandBurst)

	core.Register(b.registry, b.cfg.CommandPrefix, cooldown, logged)
	music.Register(b.registry, &music.Deps{
		Voice:    b.voice,
		Players:  b.players,
		Provider: b.provider,
		Log:      logger.Component(b.log, "music"),
	}, middleware.WithGuildOnly(), cooldown, logged)
}

// Run connects to the gateway and blocks until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	b.mu.Lock()
	b.ctx = ctx
	b.mu.Unlock()

	b.dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	b.dg.AddHandler(b.onReady)
	b.dg.AddHandler(b.onGuildCreate)
	b.dg.AddHandler(b.onMessageCreate)
	b.dg.AddHandler(b.onInteractionCreate)
	b.dg.AddHandler(b.onVoiceStateUpdate)

	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer b.dg.Close()

	<-ctx.Done()
	b.log.Info().Msg("Shutdown signal received, leaving voice channels")
	b.shutdown()
	return nil
}

func (b *Bot) shutdown() {
	b.dg.RLock()
	conns := make(map[string]*discordgo.VoiceConnection, len(b.dg.VoiceConnections))
	for id, vc := range b.dg.VoiceConnections {
		conns[id] = vc
	}
	b.dg.RUnlock()

	for guildID, vc := range conns {
		b.players.Remove(guildID)
		if err := vc.Disconnect(); err != nil {
			b.log.Warn().Err(err).Str("guild", guildID).Msg("Failed to disconnect voice")
		}
	}
}

// commandContext derives the context a single command runs under.
func (b *Bot) commandContext() (context.Context, context.CancelFunc) {
	b.mu.RLock()
	parent := b.ctx
	b.mu.RUnlock()
	return context.WithTimeout(parent, commandTimeout)
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	for _, g := range r.Guilds {
		if b.isGuildBlacklisted(g.ID) {
			b.leaveGuild(s, g.ID)
		}
	}
	if err := s.UpdateListeningStatus(b.cfg.CommandPrefix + "help"); err != nil {
		b.log.Warn().Err(err).Msg("Failed to update status")
	}
	b.log.Info().Str("user", r.User.Username).Int("guilds", len(r.Guilds)).Msg("Discord bot is running")
}

func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if b.isGuildBlacklisted(g.ID) {
		b.leaveGuild(s, g.ID)
		return
	}
	if !b.cfg.InitSlashCommands {
		return
	}
	ctx, cancel := b.commandContext()
	defer cancel()
	if err := b.syncCommands(ctx, g.ID); err != nil {
		b.log.Error().Err(err).Str("guild", g.ID).Msg("Failed to register slash commands")
	}
}

// onVoiceStateUpdate drops the player once the bot is out of voice, whether
// it left on its own or was kicked.
func (b *Bot) onVoiceStateUpdate(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	if s.State == nil || s.State.User == nil || v.UserID != s.State.User.ID {
		return
	}
	if v.ChannelID != "" {
		return
	}
	if b.players.Remove(v.GuildID) {
		b.log.Info().Str("guild", v.GuildID).Msg("Disconnected from voice, player removed")
	}
}

func (b *Bot) leaveGuild(s *discordgo.Session, guildID string) {
	b.log.Info().Str("guild", guildID).Msg("Leaving blacklisted guild")
	if err := s.GuildLeave(guildID); err != nil {
		b.log.Error().Err(err).Str("guild", guildID).Msg("Failed to leave guild")
	}
}

func (b *Bot) isGuildBlacklisted(guildID string) bool {
	return slices.Contains(b.cfg.DiscordGuildBlacklist, guildID)
}

// runCommand executes c and reports unexpected errors back to the user.
func (b *Bot) runCommand(c cmd.Command, args []string, dc *command.Context) {
	ctx, cancel := b.commandContext()
	defer cancel()

	err := c.Run(ctx, &cmd.Invocation{Args: args, Data: dc})
	if err == nil {
		return
	}
	b.log.Error().Err(err).Str("command", c.Name()).Str("guild", dc.GuildID).Msg("Error running command")
	if rerr := dc.Replyf("Error running command: %v", err); rerr != nil {
		b.log.Warn().Err(rerr).Msg("Failed to report command error")
	}
}
