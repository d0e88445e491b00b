package discord

import (
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"
)

// syncCommands brings a guild's slash commands in line with the registry:
// obsolete ones are deleted, changed ones re-created. Hashes of what was last
// registered live in storage so unchanged commands cost no API calls.
func (b *Bot) syncCommands(ctx context.Context, guildID string) error {
	appID, err := b.appID()
	if err != nil {
		return err
	}

	remote, err := b.dg.ApplicationCommands(appID, guildID)
	if err != nil {
		return fmt.Errorf("list commands: %w", err)
	}
	cached, err := b.storage.CommandHashes(guildID)
	if err != nil {
		return fmt.Errorf("load command hashes: %w", err)
	}

	wanted := b.definitions()
	plan := planSync(remote, wanted, cached)
	limiter := rate.NewLimiter(rate.Every(25*time.Millisecond), 1)

	for _, rc := range plan.obsolete {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		if err := b.dg.ApplicationCommandDelete(appID, guildID, rc.ID); err != nil {
			b.log.Error().Err(err).Str("guild", guildID).Str("command", rc.Name).Msg("Failed to delete command")
			continue
		}
		delete(plan.hashes, rc.Name)
		b.log.Info().Str("guild", guildID).Str("command", rc.Name).Msg("Deleted obsolete command")
	}

	for _, def := range plan.changed {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		if _, err := b.dg.ApplicationCommandCreate(appID, guildID, def); err != nil {
			b.log.Error().Err(err).Str("guild", guildID).Str("command", def.Name).Msg("Failed to register command")
			delete(plan.hashes, def.Name)
			continue
		}
		b.log.Info().Str("guild", guildID).Str("command", def.Name).Msg("Registered command")
	}

	return b.storage.SetCommandHashes(guildID, plan.hashes)
}

func (b *Bot) definitions() []*discordgo.ApplicationCommand {
	var defs []*discordgo.ApplicationCommand
	for _, c := range b.registry.GetAll() {
		if def := commandDefinition(c); def != nil {
			defs = append(defs, def)
		}
	}
	return defs
}

type syncPlan struct {
	obsolete []*discordgo.ApplicationCommand
	changed  []*discordgo.ApplicationCommand
	// hashes is the cache to store once the plan has been carried out.
	hashes map[string]string
}

// planSync compares what Discord has, what the registry wants and what was
// registered last time. A command missing remotely is always re-created, even
// if its hash is cached.
func planSync(remote, wanted []*discordgo.ApplicationCommand, cached map[string]string) syncPlan {
	plan := syncPlan{hashes: make(map[string]string, len(wanted))}

	wantedNames := make(map[string]bool, len(wanted))
	for _, d := range wanted {
		wantedNames[d.Name] = true
	}
	remoteNames := make(map[string]bool, len(remote))
	for _, rc := range remote {
		remoteNames[rc.Name] = true
		if !wantedNames[rc.Name] {
			plan.obsolete = append(plan.obsolete, rc)
		}
	}

	for _, d := range wanted {
		h := hashCommand(d)
		plan.hashes[d.Name] = h
		if cached[d.Name] != h || !remoteNames[d.Name] {
			plan.changed = append(plan.changed, d)
		}
	}
	return plan
}

// appID returns the bot's application ID, fetching from Discord if not cached in State.
func (b *Bot) appID() (string, error) {
	if b.dg.State != nil && b.dg.State.User != nil && b.dg.State.User.ID != "" {
		return b.dg.State.User.ID, nil
	}
	u, err := b.dg.User("@me")
	if err != nil {
		return "", fmt.Errorf("failed to fetch bot user: %w", err)
	}
	return u.ID, nil
}

// hashCommand returns a deterministic SHA-1 of a command's stable fields.
func hashCommand(c *discordgo.ApplicationCommand) string {
	stable := map[string]any{
		"name":        c.Name,
		"description": c.Description,
		"type":        c.Type,
	}
	if len(c.Options) > 0 {
		stable["options"] = normalizeOptions(c.Options)
	}
	data, _ := json.Marshal(stable)
	return fmt.Sprintf("%x", sha1.Sum(data))
}

func normalizeOptions(opts []*discordgo.ApplicationCommandOption) []map[string]any {
	out := make([]map[string]any, len(opts))
	for i, o := range opts {
		entry := map[string]any{
			"name":        o.Name,
			"description": o.Description,
			"type":        o.Type,
			"required":    o.Required,
		}
		if o.MinValue != nil {
			entry["min"] = *o.MinValue
		}
		if o.MaxValue != 0 {
			entry["max"] = o.MaxValue
		}
		if len(o.Choices) > 0 {
			choices := make([]map[string]any, len(o.Choices))
			for j, ch := range o.Choices {
				choices[j] = map[string]any{"name": ch.Name, "value": ch.Value}
			}
			entry["choices"] = choices
		}
		if len(o.Options) > 0 {
			entry["options"] = normalizeOptions(o.Options)
		}
		out[i] = entry
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i]["name"].(string) < out[j]["name"].(string)
	})
	return out
}
