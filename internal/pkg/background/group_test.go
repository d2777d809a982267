package background

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroup_WaitDrainsWork(t *testing.T) {
	var g Group
	var n atomic.Int32
	for i := 0; i < 5; i++ {
		g.Go(context.Background(), func(context.Context) {
			time.Sleep(5 * time.Millisecond)
			n.Add(1)
		})
	}

	require.NoError(t, g.Wait(context.Background()))
	assert.EqualValues(t, 5, n.Load())
}

func TestGroup_WorkSurvivesCallerCancel(t *testing.T) {
	var g Group
	ctx, cancel := context.WithCancel(context.Background())
	var sawErr atomic.Value

	g.Go(ctx, func(ctx context.Context) {
		time.Sleep(5 * time.Millisecond)
		sawErr.Store(ctx.Err() == nil)
	})
	cancel()

	require.NoError(t, g.Wait(context.Background()))
	assert.Equal(t, true, sawErr.Load())
}

func TestGroup_WaitGivesUpOnDeadline(t *testing.T) {
	var g Group
	release := make(chan struct{})
	defer close(release)
	g.Go(context.Background(), func(context.Context) { <-release })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.True(t, errors.Is(g.Wait(ctx), context.DeadlineExceeded))
}
