package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/tieredcache/cache"
	"github.com/jonwraymond/tieredcache/observe"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run set, get, expiry and memoization against a fresh engine",
	Long: `Run a short walkthrough against an in-memory engine on a simulated
clock: store a value with a 5s TTL, read it back, advance the clock past the
TTL, sweep, then memoize a computation. Statistics are printed at the end.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDemo(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(demoCmd)
}

// simClock is a clock that only moves when advanced.
type simClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *simClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *simClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type demoRecord struct {
	N int `json:"n"`
}

func runDemo(ctx context.Context, out io.Writer) error {
	clock := &simClock{now: time.Now()}
	engine := cache.New(cache.DefaultPolicy(), cache.WithClock(clock.Now))
	monitor := observe.NewMonitor(nil, nil, nil)

	engine.SetWithTTL(ctx, "a", demoRecord{N: 1}, 5*time.Second)

	var got demoRecord
	found := engine.Get(ctx, "a", &got)
	fmt.Fprintf(out, "get a        -> %+v (found=%t)\n", got, found)

	clock.Advance(6 * time.Second)
	found = engine.Get(ctx, "a", &got)
	fmt.Fprintf(out, "get a +6s    -> found=%t\n", found)
	fmt.Fprintf(out, "cleanup      -> removed %d\n", engine.CleanupExpired(ctx))

	runs := 0
	square := cache.Memoize1(engine, "square", func(_ context.Context, n int) (int, error) {
		runs++
		return n * n, nil
	})
	timed := observe.Monitored(monitor, observe.Operation{Namespace: "demo", Name: "square"}, func(ctx context.Context) (int, error) {
		return square(ctx, 12)
	})
	for i := 0; i < 3; i++ {
		v, err := timed(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "square(12)   -> %d\n", v)
	}
	fmt.Fprintf(out, "computations -> %d\n", runs)

	st := engine.Stats()
	fmt.Fprintf(out, "stats        -> hits=%d misses=%d sets=%d hit_rate=%.2f local_entries=%d\n",
		st.Hits, st.Misses, st.Sets, st.HitRate, st.LocalEntries)
	return nil
}
