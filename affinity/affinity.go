// Package affinity pins the orchestrator's single worker goroutine to one
// CPU core and reports ambient load, satisfying the "core-pinning glue"
// external collaborator named out of scope in §1 — this package is the
// concrete, narrow surface main wires up, not a scheduler.
//
// The teacher pack never pins goroutines to cores itself, but its go.mod
// already carries github.com/shirou/gopsutil/v3 as an indirect dependency
// (pulled in by something else in the dependency graph) and
// golang.org/x/sys as a direct one; this package is this exercise's one
// chance to give both an actual, wired home rather than leaving gopsutil
// dangling as dead weight in go.mod.
package affinity

import (
	"context"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
)

// Pin locks the calling goroutine to a single OS thread and restricts that
// thread's scheduling affinity to exactly one logical CPU core. It must be
// called from the goroutine that is to be pinned — typically the first
// line of the orchestrator's worker loop.
func Pin(coreID int) error {
	runtime.LockOSThread()
	return pin(coreID)
}

// LoadReport is a point-in-time snapshot of the pinned core's utilization,
// used only for the orchestrator's own health logging — never consulted by
// any latency-sensitive path.
type LoadReport struct {
	CoreID        int
	UtilizationPct float64
}

// ReportLoad samples per-core CPU utilization since the previous sample (a
// zero interval, so it does not block) and returns the reading for coreID. It is safe to call from any goroutine,
// including ones other than the pinned worker (it's a diagnostic, not a
// control path).
func ReportLoad(ctx context.Context, coreID int) (LoadReport, error) {
	percents, err := cpu.PercentWithContext(ctx, 0, true)
	if err != nil {
		return LoadReport{}, fmt.Errorf("affinity: sampling cpu load: %w", err)
	}
	if coreID < 0 || coreID >= len(percents) {
		return LoadReport{}, fmt.Errorf("affinity: core %d out of range (host reports %d cores)", coreID, len(percents))
	}
	return LoadReport{CoreID: coreID, UtilizationPct: percents[coreID]}, nil
}
