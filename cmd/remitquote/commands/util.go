package commands

import (
	"context"
	"time"
)

// timeoutContext returns a background context bounded to 10 seconds,
// used for the one-shot administrative calls the CLI subcommands make
// (cache invalidation, the one-shot quote, provider-state restore)
// where there's no inbound request context to inherit from.
func timeoutContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}
