package probe

import (
	"time"
)

// RenderRecord is one measured render of a component.
type RenderRecord struct {
	Timestamp    time.Time     `json:"timestamp"`
	Duration     time.Duration `json:"duration"`
	Phase        RenderPhase   `json:"phase"`
	Wasted       bool          `json:"wasted,omitempty"`
	ChangedProps []string      `json:"changed_props,omitempty"`
}

// ComponentMetrics holds the authoritative aggregates for one component.
//
// AverageRenderTime is derived: TotalRenderTime / RenderCount, zero while
// RenderCount is zero. The store recomputes it on every merge that touches
// either input, never callers.
type ComponentMetrics struct {
	ComponentID string `json:"component_id"`
	Name        string `json:"name"`

	RenderCount       int64         `json:"render_count"`
	TotalRenderTime   time.Duration `json:"total_render_time"`
	AverageRenderTime time.Duration `json:"average_render_time"`
	LastRenderTime    time.Duration `json:"last_render_time"`
	WastedRenders     int64         `json:"wasted_renders"`

	Mounted     bool       `json:"mounted"`
	MountCount  int64      `json:"mount_count"`
	MountedAt   *time.Time `json:"mounted_at,omitempty"`
	UnmountedAt *time.Time `json:"unmounted_at,omitempty"`

	PropsChanges int64 `json:"props_changes"`

	RenderHistory []RenderRecord `json:"render_history,omitempty"`

	ParentID string   `json:"parent_id,omitempty"`
	ChildIDs []string `json:"child_ids,omitempty"`
}

// clone returns a deep copy so store reads never alias internal state.
func (m ComponentMetrics) clone() ComponentMetrics {
	out := m
	if m.MountedAt != nil {
		t := *m.MountedAt
		out.MountedAt = &t
	}
	if m.UnmountedAt != nil {
		t := *m.UnmountedAt
		out.UnmountedAt = &t
	}
	if m.RenderHistory != nil {
		out.RenderHistory = make([]RenderRecord, len(m.RenderHistory))
		copy(out.RenderHistory, m.RenderHistory)
	}
	if m.ChildIDs != nil {
		out.ChildIDs = make([]string, len(m.ChildIDs))
		copy(out.ChildIDs, m.ChildIDs)
	}
	return out
}

// MetricsUpdate is a partial ComponentMetrics merge. Nil fields are left
// untouched. Render, when set, is appended to the component's bounded render
// history.
type MetricsUpdate struct {
	Name            *string
	RenderCount     *int64
	TotalRenderTime *time.Duration
	LastRenderTime  *time.Duration
	WastedRenders   *int64
	Mounted         *bool
	MountCount      *int64
	MountedAt       *time.Time
	UnmountedAt     *time.Time
	PropsChanges    *int64
	ParentID        *string
	Render          *RenderRecord
}

// touchesAverage reports whether the merge must recompute AverageRenderTime.
func (u MetricsUpdate) touchesAverage() bool {
	return u.RenderCount != nil || u.TotalRenderTime != nil
}

// Pointer helpers for building a MetricsUpdate inline.

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Float64 returns a pointer to v.
func Float64(v float64) *float64 { return &v }

// Duration returns a pointer to v.
func Duration(v time.Duration) *time.Duration { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }

// String returns a pointer to v.
func String(v string) *string { return &v }

// Time returns a pointer to v.
func Time(v time.Time) *time.Time { return &v }

// Stats are session-wide aggregates folded on demand over every component,
// never cached, so they are always consistent with the latest mutation.
type Stats struct {
	Components        int           `json:"components"`
	TotalRenders      int64         `json:"total_renders"`
	WastedRenders     int64         `json:"wasted_renders"`
	AverageRenderTime time.Duration `json:"average_render_time"`
	MountedComponents int           `json:"mounted_components"`
	SessionDuration   time.Duration `json:"session_duration"`
}
