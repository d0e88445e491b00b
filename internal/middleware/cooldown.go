package middleware

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/keshon/jukebox/internal/command"
	"github.com/keshon/jukebox/pkg/cmd"
)

// WithCooldown gives each user a token bucket refilled once per every, holding
// at most burst tokens. The buckets are shared by every command wrapped with
// the returned middleware.
func WithCooldown(every time.Duration, burst int) cmd.Middleware {
	if every <= 0 {
		return func(c cmd.Command) cmd.Command { return c }
	}
	cd := newCooldown(every, burst, time.Now)
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			dc, err := command.FromInvocation(inv)
			if err != nil {
				return c.Run(ctx, inv)
			}
			if !cd.allow(dc.UserID) {
				return dc.Reply("Slow down a little, try again in a moment")
			}
			return c.Run(ctx, inv)
		})
	}
}

type bucket struct {
	limiter *rate.Limiter
	lastUse time.Time
}

type cooldown struct {
	mu    sync.Mutex
	now   func() time.Time
	limit rate.Limit
	burst int
	// idle is how long a bucket takes to refill completely. Buckets unused for
	// longer are full and get dropped.
	idle      time.Duration
	lastSweep time.Time
	buckets   map[string]*bucket
}

func newCooldown(every time.Duration, burst int, now func() time.Time) *cooldown {
	burst = max(1, burst)
	return &cooldown{
		now:       now,
		limit:     rate.Every(every),
		burst:     burst,
		idle:      every * time.Duration(burst),
		lastSweep: now(),
		buckets:   make(map[string]*bucket),
	}
}

func (c *cooldown) allow(userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if now.Sub(c.lastSweep) > c.idle {
		c.sweepLocked(now)
	}

	b, ok := c.buckets[userID]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(c.limit, c.burst)}
		c.buckets[userID] = b
	}
	b.lastUse = now
	return b.limiter.AllowN(now, 1)
}

func (c *cooldown) sweepLocked(now time.Time) {
	for id, b := range c.buckets {
		if now.Sub(b.lastUse) > c.idle {
			delete(c.buckets, id)
		}
	}
	c.lastSweep = now
}

func (c *cooldown) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buckets)
}
