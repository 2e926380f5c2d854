package export

import (
	"time"

	"github.com/renderprobe/probe"
)

// Snapshot is one exported view of a kernel's telemetry: every component's
// aggregates, the event timeline, and the session-wide stats, captured
// atomically enough for offline analysis.
type Snapshot struct {
	KernelID     string                            `json:"kernel_id"`
	SessionStart time.Time                         `json:"session_start"`
	CapturedAt   time.Time                         `json:"captured_at"`
	Stats        probe.Stats                       `json:"stats"`
	Components   map[string]probe.ComponentMetrics `json:"components"`
	Timeline     []probe.TimelineEvent             `json:"timeline"`
	Tree         *probe.TreeNode                   `json:"tree,omitempty"`
}

// BuildSnapshot captures the current state of k's metrics store. The result
// is fully detached: the store's defensive copies mean a snapshot can be
// encoded and shipped without racing further mutations.
func BuildSnapshot(k *probe.Kernel) Snapshot {
	store := k.Metrics()
	return Snapshot{
		KernelID:     k.ID(),
		SessionStart: store.SessionStart(),
		CapturedAt:   time.Now(),
		Stats:        store.Stats(),
		Components:   store.All(),
		Timeline:     store.Timeline(),
		Tree:         store.Tree(),
	}
}
