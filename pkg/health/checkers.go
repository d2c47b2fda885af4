package health

import (
	"context"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/go-faster/errors"
)

// GoroutineCountCheck fails when more than limit goroutines are running.
func GoroutineCountCheck(limit int) CheckFunc {
	return func(context.Context) error {
		if n := runtime.NumGoroutine(); n > limit {
			return errors.Errorf("goroutine count %d exceeds threshold %d", n, limit)
		}
		return nil
	}
}

// GCMaxPauseCheck fails when any recent stop-the-world GC pause exceeded
// limit.
func GCMaxPauseCheck(limit time.Duration) CheckFunc {
	return func(context.Context) error {
		var stats debug.GCStats
		debug.ReadGCStats(&stats)
		if worst := longest(stats.Pause); worst > limit {
			return errors.Errorf("GC pause %s exceeds threshold %s", worst, limit)
		}
		return nil
	}
}

func longest(pauses []time.Duration) time.Duration {
	var worst time.Duration
	for _, p := range pauses {
		worst = max(worst, p)
	}
	return worst
}
