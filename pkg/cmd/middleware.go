package cmd

// Middleware wraps a command (checks, logging, rate limits).
type Middleware func(Command) Command

// Apply applies middlewares in order: the last one listed ends up outermost
// and runs first.
func Apply(c Command, mws ...Middleware) Command {
	for _, mw := range mws {
		c = mw(c)
	}
	return c
}
