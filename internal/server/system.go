package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

var startedAt = time.Now()

func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	cpuPercent := 0.0
	// 100ms keeps the call short; status pages poll it.
	if pct, err := cpu.PercentWithContext(r.Context(), 100*time.Millisecond, false); err != nil {
		s.log.Warn().Err(err).Msg("failed to get CPU percentage")
	} else if len(pct) > 0 {
		cpuPercent = pct[0]
	}
	memPercent := 0.0
	if vm, err := mem.VirtualMemoryWithContext(r.Context()); err != nil {
		s.log.Warn().Err(err).Msg("failed to get memory statistics")
	} else {
		memPercent = vm.UsedPercent
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":         "running",
		"uptime_seconds": int64(time.Since(startedAt).Seconds()),
		"goroutines":     runtime.NumGoroutine(),
		"heap_alloc_mb":  m.HeapAlloc / 1024 / 1024,
		"num_gc":         m.NumGC,
		"cpu_percent":    cpuPercent,
		"ram_percent":    memPercent,
	})
}
