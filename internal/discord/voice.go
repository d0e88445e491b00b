package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/jukebox/internal/music/player"
)

// voice answers voice questions from the gateway state cache and owns
// joining and leaving channels.
type voice struct {
	dg      *discordgo.Session
	players *player.Pool
}

func (v *voice) UserChannel(guildID, userID string) (string, bool) {
	vs, err := v.dg.State.VoiceState(guildID, userID)
	if err != nil || vs.ChannelID == "" {
		return "", false
	}
	return vs.ChannelID, true
}

func (v *voice) BotChannel(guildID string) (string, bool) {
	vc := v.connection(guildID)
	if vc == nil {
		return "", false
	}
	vc.RLock()
	defer vc.RUnlock()
	return vc.ChannelID, vc.ChannelID != ""
}

func (v *voice) ChannelName(channelID string) string {
	if ch, err := v.dg.State.Channel(channelID); err == nil {
		return ch.Name
	}
	if ch, err := v.dg.Channel(channelID); err == nil {
		return ch.Name
	}
	return channelID
}

// Join connects to channelID, moving the existing connection if there is one.
func (v *voice) Join(ctx context.Context, guildID, channelID string) error {
	type result struct {
		vc  *discordgo.VoiceConnection
		err error
	}
	done := make(chan result, 1)
	go func() {
		vc, err := v.dg.ChannelVoiceJoin(guildID, channelID, false, true)
		done <- result{vc, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return fmt.Errorf("failed to join voice channel: %w", r.err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (v *voice) Leave(_ context.Context, guildID string) error {
	vc := v.connection(guildID)
	if vc == nil {
		return nil
	}
	if err := vc.Disconnect(); err != nil {
		return fmt.Errorf("failed to leave voice channel: %w", err)
	}
	return nil
}

func (v *voice) Busy(guildID string) bool {
	p, ok := v.players.Find(guildID)
	return ok && p.State() == player.Playing
}

func (v *voice) connection(guildID string) *discordgo.VoiceConnection {
	v.dg.RLock()
	defer v.dg.RUnlock()
	return v.dg.VoiceConnections[guildID]
}
