package internal

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

// AppStatsProvider returns application counters for the stats page:
// online users, queue depth, recent activity, whatever the caller
// wires in.
type AppStatsProvider func() map[string]any

// StartDebugServer exposes /stats and /healthz on a side port. The
// payload mixes process-level figures (RSS, CPU, file descriptors)
// with the application counters. Never expose this port publicly.
func StartDebugServer(log *slog.Logger, port int, provider AppStatsProvider) {
	mux := http.NewServeMux()
	started := time.Now().UTC()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		stats := map[string]any{
			"uptime": time.Since(started).Round(time.Second).String(),
		}

		if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
			if mem, err := proc.MemoryInfo(); err == nil {
				stats["rss_bytes"] = mem.RSS
			}
			if cpu, err := proc.CPUPercent(); err == nil {
				stats["cpu_percent"] = cpu
			}
			if fds, err := proc.NumFDs(); err == nil {
				stats["open_fds"] = fds
			}
			if threads, err := proc.NumThreads(); err == nil {
				stats["threads"] = threads
			}
		}

		if provider != nil {
			for k, v := range provider() {
				stats[k] = v
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(stats); err != nil {
			log.Debug("stats encoding failed", "error", err)
		}
	})

	go func() {
		addr := fmt.Sprintf("127.0.0.1:%d", port)
		log.Info("debug server listening", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error("debug server stopped", "error", err)
		}
	}()
}
