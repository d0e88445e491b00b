// Package cmd is the transport-agnostic command core. A command has a name,
// a description and Run(ctx, invocation). Transports (chat prefix, slash
// interactions) look commands up in a Registry and hand them their own
// payload through Invocation.Data.
package cmd

import "context"

// Invocation is what a transport passes to a command: positional arguments
// and an opaque payload owned by the transport.
type Invocation struct {
	Args []string
	Data any
}

// Arg returns the i-th argument or def when it is missing.
func (inv *Invocation) Arg(i int, def string) string {
	if inv == nil || i < 0 || i >= len(inv.Args) {
		return def
	}
	return inv.Args[i]
}

// Command is the universal contract.
type Command interface {
	Name() string
	Description() string
	Run(ctx context.Context, inv *Invocation) error
}

// Aliased is implemented by commands reachable under extra names.
type Aliased interface {
	Aliases() []string
}
