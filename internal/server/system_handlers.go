package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// handleSystemStatus reports host resource usage and process info.
func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"service":    "aetherquant",
		"go_version": runtime.Version(),
		"goroutines": runtime.NumGoroutine(),
		"data_dir":   s.cfg.DataDir,
	}

	if cpuPercent, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(cpuPercent) > 0 {
		status["cpu_percent"] = cpuPercent[0]
	} else if err != nil {
		s.log.Warn().Err(err).Msg("Failed to read CPU usage")
	}

	if memStat, err := mem.VirtualMemory(); err == nil {
		status["memory"] = map[string]any{
			"total_mb":     memStat.Total / 1024 / 1024,
			"used_mb":      memStat.Used / 1024 / 1024,
			"used_percent": memStat.UsedPercent,
		}
	} else {
		s.log.Warn().Err(err).Msg("Failed to read memory usage")
	}

	if diskStat, err := disk.Usage(s.cfg.DataDir); err == nil {
		status["disk"] = map[string]any{
			"total_gb":     float64(diskStat.Total) / 1024 / 1024 / 1024,
			"free_gb":      float64(diskStat.Free) / 1024 / 1024 / 1024,
			"used_percent": diskStat.UsedPercent,
		}
	} else {
		s.log.Warn().Err(err).Msg("Failed to read disk usage")
	}

	s.writeJSON(w, http.StatusOK, status)
}
