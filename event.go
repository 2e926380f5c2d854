package probe

import (
	"time"

	"github.com/google/uuid"
)

// EventType tags a domain event. The set is closed: the kernel dispatches
// over exactly these seven types and a plugin hook exists per type.
type EventType string

const (
	// EventRender is emitted after a component render has been measured.
	EventRender EventType = "render"
	// EventMount is emitted when a component mounts.
	EventMount EventType = "mount"
	// EventUnmount is emitted when a component unmounts.
	EventUnmount EventType = "unmount"
	// EventPropsChange is emitted when a component's props changed.
	EventPropsChange EventType = "props-change"
	// EventStateChange is emitted when a component's state changed.
	EventStateChange EventType = "state-change"
	// EventMetricsUpdate is re-emitted by the kernel after a metrics merge.
	EventMetricsUpdate EventType = "metrics-update"
	// EventError is emitted when a component raised an error.
	EventError EventType = "error"
)

// EventTypes returns the closed set of domain event types, in dispatch order.
func EventTypes() []EventType {
	return []EventType{
		EventRender,
		EventMount,
		EventUnmount,
		EventPropsChange,
		EventStateChange,
		EventMetricsUpdate,
		EventError,
	}
}

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	switch t {
	case EventRender, EventMount, EventUnmount, EventPropsChange,
		EventStateChange, EventMetricsUpdate, EventError:
		return true
	}
	return false
}

// RenderPhase distinguishes the first render of a mounted component from
// re-renders.
type RenderPhase string

const (
	// PhaseMount is the initial render.
	PhaseMount RenderPhase = "mount"
	// PhaseUpdate is a re-render of an already mounted component.
	PhaseUpdate RenderPhase = "update"
)

// Event is a single domain event flowing through the kernel.
//
// ID and Timestamp are filled by the kernel on emit when zero. The remaining
// fields are type-specific:
//   - render: Duration, Phase, Wasted, ChangedProps
//   - mount: ParentID
//   - props-change: ChangedProps
//   - error: Err
//   - metrics-update: Metrics (post-merge snapshot)
type Event struct {
	ID            string    `json:"id"`
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	ComponentID   string    `json:"component_id,omitempty"`
	ComponentName string    `json:"component_name,omitempty"`

	ParentID     string        `json:"parent_id,omitempty"`
	Duration     time.Duration `json:"duration,omitempty"`
	Phase        RenderPhase   `json:"phase,omitempty"`
	Wasted       bool          `json:"wasted,omitempty"`
	ChangedProps []string      `json:"changed_props,omitempty"`
	Err          error         `json:"-"`

	Metrics *ComponentMetrics `json:"metrics,omitempty"`

	// Data carries adapter-specific extras that no typed field covers.
	Data map[string]any `json:"data,omitempty"`
}

// TimelineEvent is the compact, append-only record the kernel keeps for every
// domain event that passed the gate, independent of any single component's
// history.
type TimelineEvent struct {
	ID            string    `json:"id"`
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	ComponentID   string    `json:"component_id,omitempty"`
	ComponentName string    `json:"component_name,omitempty"`
}

// NewID generates a new unique ID.
func NewID() string {
	u, err := uuid.NewRandom()
	if err != nil {
		return ""
	}
	return u.String()
}
