package groutine

import (
	"context"
	"runtime/pprof"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGo_AttachesNameAndLabel(t *testing.T) {
	type result struct {
		name  string
		label string
	}
	done := make(chan result, 1)

	Go(context.Background(), "worker-1", func(ctx context.Context) {
		label, _ := pprof.Label(ctx, "goroutine_name")
		done <- result{name: Name(ctx), label: label}
	})

	select {
	case r := <-done:
		assert.Equal(t, "worker-1", r.name)
		assert.Equal(t, "worker-1", r.label)
	case <-time.After(time.Second):
		require.Fail(t, "goroutine MUST run")
	}
}

func TestGo_NilParent(t *testing.T) {
	done := make(chan string, 1)
	//nolint:staticcheck // nil parent is part of the contract
	Go(nil, "nil-parent", func(ctx context.Context) {
		done <- Name(ctx)
	})
	assert.Equal(t, "nil-parent", <-done)
}

func TestName_Unnamed(t *testing.T) {
	assert.Empty(t, Name(context.Background()))
	//nolint:staticcheck
	assert.Empty(t, Name(nil))
}
