//go:build !linux

package health

import (
	"context"
	"runtime"
)

// SystemMemoryCheck guards host memory usage. Host figures are only read on
// Linux; elsewhere the check reports unknown.
type SystemMemoryCheck struct {
	MaxUsagePercent float64
}

func (c *SystemMemoryCheck) Check(ctx context.Context) CheckResult {
	return CheckResult{
		Status:   StatusUnknown,
		Message:  "host memory not available on " + runtime.GOOS,
		Metadata: map[string]any{"platform": runtime.GOOS},
	}
}
