package main

import (
	"context"
	"testing"
	"time"

	"github.com/maikeln/wlcoro/internal/ioscheduler"
	"github.com/maikeln/wlcoro/internal/pool"
	"github.com/maikeln/wlcoro/taskrt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleAfterExample_ElapsesAtLeastRequestedDelay(t *testing.T) {
	reactor, err := ioscheduler.New()
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go reactor.Run(ctx)

	start := time.Now()
	out := taskrt.SyncWait(context.Background(), reactor.Scheduler().ScheduleAfter(20*time.Millisecond))
	assert.True(t, out.Ok())
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestBulkExample_CoversEveryIndex(t *testing.T) {
	workers := pool.New(2, pool.DefaultBwosParams)
	defer workers.Stop()

	const n = 16
	results := make([]int, n)
	out := taskrt.SyncWait(context.Background(), workers.ScheduleBulk(n, func(i int) {
		results[i] = i * i
	}))
	require.True(t, out.Ok())
	for i, v := range results {
		assert.Equal(t, i*i, v)
	}
}
