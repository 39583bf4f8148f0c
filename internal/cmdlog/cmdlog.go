package cmdlog

import (
	"time"

	"eviltwitter/internal/logging"
	"eviltwitter/internal/metrics"
)

// Run executes a CLI command body, counting it and logging the outcome.
func Run(cmd string, f func() error) error {
	metrics.IncCommandRun(cmd)
	start := time.Now()
	err := f()
	if err != nil {
		metrics.IncCommandError(cmd)
		logging.Error(cmd+"_error", map[string]any{"error": err.Error()})
	} else {
		logging.Debug(cmd+"_ok", map[string]any{"took_ms": time.Since(start).Milliseconds()})
	}
	return err
}
