package workers

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/process"
)

const defaultHealthInterval = 30 * time.Second

// StatsSource reports application-level gauges alongside the process
// figures. Typically backed by the connection registry and the queue.
type StatsSource func() map[string]any

// HealthWorker periodically logs process health (RSS, CPU, goroutines)
// plus the application gauges. It runs under the supervisor like any
// other worker.
type HealthWorker struct {
	log      *slog.Logger
	interval time.Duration
	source   StatsSource
}

func NewHealthWorker(log *slog.Logger, interval time.Duration, source StatsSource) *HealthWorker {
	if interval <= 0 {
		interval = defaultHealthInterval
	}
	return &HealthWorker{log: log, interval: interval, source: source}
}

func (w *HealthWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			attrs := []any{"goroutines", runtime.NumGoroutine()}

			if mem, err := proc.MemoryInfo(); err == nil {
				attrs = append(attrs, "rss_bytes", mem.RSS)
			}
			if cpu, err := proc.CPUPercent(); err == nil {
				attrs = append(attrs, "cpu_percent", cpu)
			}
			if w.source != nil {
				for k, v := range w.source() {
					attrs = append(attrs, k, v)
				}
			}
			w.log.Info("health", attrs...)
		}
	}
}
