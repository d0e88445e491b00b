package player

import "sync"

// Factory builds the player for a guild when the pool has none.
type Factory func(guildID string) *Player

// Pool maps guilds to their players. discordgo keeps one voice connection per
// guild, so the guild ID identifies the connection.
type Pool struct {
	mu      sync.Mutex
	players map[string]*Player
	factory Factory
	observe func(size int)
}

// NewPool creates an empty pool. observe, if set, is told the pool size after
// every change.
func NewPool(factory Factory, observe func(size int)) *Pool {
	return &Pool{
		players: make(map[string]*Player),
		factory: factory,
		observe: observe,
	}
}

func (p *Pool) Find(guildID string) (*Player, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pl, ok := p.players[guildID]
	return pl, ok
}

// Register creates a fresh player for the guild. A player already registered
// for it is stopped and replaced.
func (p *Pool) Register(guildID string) *Player {
	p.mu.Lock()
	old := p.players[guildID]
	pl := p.factory(guildID)
	p.players[guildID] = pl
	size := len(p.players)
	p.mu.Unlock()

	if old != nil {
		old.Stop()
	}
	p.notify(size)
	return pl
}

// Get returns the guild's player, registering one if needed.
func (p *Pool) Get(guildID string) *Player {
	p.mu.Lock()
	if pl, ok := p.players[guildID]; ok {
		p.mu.Unlock()
		return pl
	}
	pl := p.factory(guildID)
	p.players[guildID] = pl
	size := len(p.players)
	p.mu.Unlock()

	p.notify(size)
	return pl
}

// Remove stops and forgets the guild's player.
func (p *Pool) Remove(guildID string) bool {
	p.mu.Lock()
	pl, ok := p.players[guildID]
	delete(p.players, guildID)
	size := len(p.players)
	p.mu.Unlock()

	if !ok {
		return false
	}
	pl.Stop()
	p.notify(size)
	return true
}

func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.players)
}

func (p *Pool) notify(size int) {
	if p.observe != nil {
		p.observe(size)
	}
}
