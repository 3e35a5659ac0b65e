// Package groutine starts goroutines tagged with a name. The name is attached
// as a pprof label so the session owner, the event pump and the radio workers
// can be told apart in goroutine dumps and profiles.
package groutine

import (
	"context"
	"runtime/pprof"
)

type ctxKey string

const nameKey ctxKey = "goroutine_name"

// Go runs fn on a new goroutine labelled with name.
// A nil parent is treated as context.Background().
//
//	groutine.Go(ctx, "receiver-session", func(ctx context.Context) {
//	    // loop until ctx is done
//	})
func Go(parent context.Context, name string, fn func(ctx context.Context)) {
	if parent == nil {
		parent = context.Background()
	}

	go pprof.Do(parent, pprof.Labels("goroutine_name", name), func(ctx context.Context) {
		fn(context.WithValue(ctx, nameKey, name))
	})
}

// Name returns the name Go attached to ctx, or "" if ctx did not come from Go.
func Name(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(nameKey).(string); ok {
		return v
	}
	return ""
}
