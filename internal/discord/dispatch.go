package discord

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/jukebox/internal/command"
	"github.com/keshon/jukebox/pkg/cmd"
)

// messageLimit is the longest message Discord accepts.
const messageLimit = 2000

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if m.GuildID != "" && b.isGuildBlacklisted(m.GuildID) {
		return
	}

	prefixes := []string{b.cfg.CommandPrefix}
	if s.State != nil && s.State.User != nil {
		id := s.State.User.ID
		prefixes = append(prefixes, "<@"+id+">", "<@!"+id+">")
	}
	name, args, ok := parseMessage(m.Content, prefixes...)
	if !ok {
		return
	}
	c, ok := b.registry.Get(name)
	if !ok {
		return
	}

	channelID := m.ChannelID
	b.runCommand(c, args, &command.Context{
		GuildID:   m.GuildID,
		ChannelID: channelID,
		UserID:    m.Author.ID,
		Username:  m.Author.Username,
		Session:   s,
		Message:   m,
		Storage:   b.storage,
		Reply: func(content string) error {
			for _, part := range splitMessage(content, messageLimit) {
				if _, err := s.ChannelMessageSend(channelID, part); err != nil {
					return err
				}
			}
			return nil
		},
	})
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()

	c, ok := b.registry.Get(data.Name)
	if !ok {
		b.log.Warn().Str("command", data.Name).Msg("Unknown slash command")
		return
	}

	// Playback commands can outlast the three second window, so acknowledge
	// first and answer with edits and followups.
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		b.log.Error().Err(err).Str("command", data.Name).Msg("Failed to acknowledge interaction")
		return
	}

	user := i.User
	if i.Member != nil && i.Member.User != nil {
		user = i.Member.User
	}
	if user == nil {
		return
	}

	r := &interactionReplier{s: s, i: i}
	b.runCommand(c, slashArgs(commandDefinition(c), data.Options), &command.Context{
		GuildID:     i.GuildID,
		ChannelID:   i.ChannelID,
		UserID:      user.ID,
		Username:    user.Username,
		Session:     s,
		Interaction: i,
		Storage:     b.storage,
		Reply:       r.reply,
	})

	if !r.replied {
		if err := s.InteractionResponseDelete(i.Interaction); err != nil {
			b.log.Debug().Err(err).Msg("Failed to drop deferred response")
		}
	}
}

// interactionReplier turns the first reply into the deferred response and
// every later one into a followup.
type interactionReplier struct {
	s       *discordgo.Session
	i       *discordgo.InteractionCreate
	replied bool
}

func (r *interactionReplier) reply(content string) error {
	for _, part := range splitMessage(content, messageLimit) {
		if !r.replied {
			if _, err := r.s.InteractionResponseEdit(r.i.Interaction, &discordgo.WebhookEdit{Content: &part}); err != nil {
				return err
			}
			r.replied = true
			continue
		}
		if _, err := r.s.FollowupMessageCreate(r.i.Interaction, true, &discordgo.WebhookParams{Content: part}); err != nil {
			return err
		}
	}
	return nil
}

// parseMessage splits "<prefix>name arg1 arg2" into a lowercase command name
// and its arguments. The first matching prefix wins.
func parseMessage(content string, prefixes ...string) (string, []string, bool) {
	content = strings.TrimSpace(content)
	for _, p := range prefixes {
		if p == "" || !strings.HasPrefix(content, p) {
			continue
		}
		fields := strings.Fields(content[len(p):])
		if len(fields) == 0 {
			return "", nil, false
		}
		return strings.ToLower(fields[0]), fields[1:], true
	}
	return "", nil, false
}

// slashArgs lays slash options out as positional arguments in the order the
// definition declares them. Positions stop at the first option not given.
func slashArgs(def *discordgo.ApplicationCommand, opts []*discordgo.ApplicationCommandInteractionDataOption) []string {
	if len(opts) == 0 {
		return nil
	}
	byName := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, o := range opts {
		byName[o.Name] = o
	}

	var order []string
	if def != nil {
		for _, o := range def.Options {
			order = append(order, o.Name)
		}
	} else {
		for _, o := range opts {
			order = append(order, o.Name)
		}
	}

	var args []string
	for _, name := range order {
		o, ok := byName[name]
		if !ok {
			break
		}
		args = append(args, optionString(o))
	}
	return args
}

func optionString(o *discordgo.ApplicationCommandInteractionDataOption) string {
	switch o.Type {
	case discordgo.ApplicationCommandOptionString:
		return o.StringValue()
	case discordgo.ApplicationCommandOptionInteger:
		return strconv.FormatInt(o.IntValue(), 10)
	case discordgo.ApplicationCommandOptionNumber:
		return strconv.FormatFloat(o.FloatValue(), 'f', -1, 64)
	case discordgo.ApplicationCommandOptionBoolean:
		return strconv.FormatBool(o.BoolValue())
	default:
		if s, ok := o.Value.(string); ok {
			return s
		}
		return ""
	}
}

// splitMessage cuts content into pieces of at most limit bytes, preferring
// line breaks and never splitting a rune.
func splitMessage(content string, limit int) []string {
	if len(content) <= limit {
		return []string{content}
	}

	var parts []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			parts = append(parts, cur.String())
			cur.Reset()
		}
	}

	for _, line := range strings.SplitAfter(content, "\n") {
		if cur.Len()+len(line) > limit {
			flush()
		}
		for len(line) > limit {
			cut := limit
			for cut > 0 && !utf8.RuneStart(line[cut]) {
				cut--
			}
			parts = append(parts, line[:cut])
			line = line[cut:]
		}
		cur.WriteString(line)
	}
	flush()

	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSuffix(p, "\n"); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// commandDefinition returns the slash definition of a registered command,
// looking through middleware wrappers.
func commandDefinition(c cmd.Command) *discordgo.ApplicationCommand {
	slash, ok := cmd.Root(c).(command.SlashProvider)
	if !ok {
		return nil
	}
	def := slash.SlashDefinition()
	if def != nil && def.Type == 0 {
		def.Type = discordgo.ChatApplicationCommand
	}
	return def
}
