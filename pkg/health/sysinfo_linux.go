//go:build linux

package health

import (
	"context"
	"fmt"

	"golang.org/x/sys/unix"
)

// SystemMemoryCheck guards host memory usage.
type SystemMemoryCheck struct {
	MaxUsagePercent float64
}

func (c *SystemMemoryCheck) Check(ctx context.Context) CheckResult {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return unhealthy(fmt.Sprintf("sysinfo: %v", err))
	}

	total := info.Totalram * uint64(info.Unit)
	free := info.Freeram * uint64(info.Unit)
	var usedPct float64
	if total > 0 {
		usedPct = float64(total-free) / float64(total) * 100
	}

	res := CheckResult{Metadata: map[string]any{
		"total_bytes":   total,
		"free_bytes":    free,
		"usage_percent": fmt.Sprintf("%.2f%%", usedPct),
	}}
	if c.MaxUsagePercent > 0 && usedPct > c.MaxUsagePercent {
		res.Status = StatusDegraded
		res.Error = fmt.Sprintf("memory usage %.2f%% exceeds %.2f%%", usedPct, c.MaxUsagePercent)
		return res
	}
	res.Status = StatusHealthy
	res.Message = fmt.Sprintf("memory usage: %.2f%%", usedPct)
	return res
}
