package probe

import (
	"log/slog"
	"sync"
	"time"

	"github.com/renderprobe/probe/history"
)

// DefaultMaxHistorySize bounds the timeline and per-component render
// histories unless configured otherwise.
const DefaultMaxHistorySize = 1000

// componentRecord is the store-internal state for one component. The public
// ComponentMetrics snapshot is materialized on read; the render history lives
// in its own bounded ring.
type componentRecord struct {
	metrics ComponentMetrics
	history *history.Ring[RenderRecord]
}

// Store holds the authoritative per-component aggregates, the component
// tree, and the bounded event timeline. It is pure data manipulation: no
// event dispatch, no plugin knowledge.
//
// Every read hands out a defensive copy; mutating a returned value never
// affects the store.
type Store struct {
	mu         sync.RWMutex
	logger     *slog.Logger
	clock      func() time.Time
	maxHistory int

	records map[string]*componentRecord

	nodes  map[string]*treeNode
	rootID string

	timeline *history.Ring[TimelineEvent]

	sessionStart time.Time
	lastUpdate   time.Time
}

// NewStore creates a store whose timeline and render histories are bounded
// at maxHistorySize entries. Negative sizes are treated as zero.
func NewStore(maxHistorySize int) *Store {
	return newStore(nil, time.Now, maxHistorySize)
}

func newStore(logger *slog.Logger, clock func() time.Time, maxHistorySize int) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = time.Now
	}
	if maxHistorySize < 0 {
		maxHistorySize = 0
	}
	now := clock()
	return &Store{
		logger:       logger.With("component", "store"),
		clock:        clock,
		maxHistory:   maxHistorySize,
		records:      make(map[string]*componentRecord),
		nodes:        make(map[string]*treeNode),
		timeline:     history.New[TimelineEvent](maxHistorySize),
		sessionStart: now,
		lastUpdate:   now,
	}
}

// touchLocked refreshes the last-mutation timestamp. Callers hold s.mu.
func (s *Store) touchLocked() {
	s.lastUpdate = s.clock()
}

func (s *Store) snapshotLocked(rec *componentRecord) ComponentMetrics {
	out := rec.metrics.clone()
	out.RenderHistory = rec.history.Items()
	return out
}

// Get returns a copy of the metrics for id.
func (s *Store) Get(id string) (ComponentMetrics, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return ComponentMetrics{}, false
	}
	return s.snapshotLocked(rec), true
}

// Set replaces the metrics for id. The render history carried on m seeds the
// component's bounded history, trimmed to the current bound.
func (s *Store) Set(id string, m ComponentMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m = m.clone()
	m.ComponentID = id
	ring := history.New[RenderRecord](s.maxHistory)
	for _, r := range m.RenderHistory {
		ring.Append(r)
	}
	m.RenderHistory = nil
	recomputeAverage(&m)
	s.records[id] = &componentRecord{metrics: m, history: ring}
	s.touchLocked()
}

// Update merges the partial u into the metrics for id. If RenderCount or
// TotalRenderTime is among the merged fields the average is recomputed from
// the merged result. Returns the post-merge snapshot, or false when no
// metrics exist for id.
func (s *Store) Update(id string, u MetricsUpdate) (ComponentMetrics, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return ComponentMetrics{}, false
	}
	m := &rec.metrics
	if u.Name != nil {
		m.Name = *u.Name
	}
	if u.RenderCount != nil {
		m.RenderCount = *u.RenderCount
	}
	if u.TotalRenderTime != nil {
		m.TotalRenderTime = *u.TotalRenderTime
	}
	if u.LastRenderTime != nil {
		m.LastRenderTime = *u.LastRenderTime
	}
	if u.WastedRenders != nil {
		m.WastedRenders = *u.WastedRenders
	}
	if u.Mounted != nil {
		m.Mounted = *u.Mounted
	}
	if u.MountCount != nil {
		m.MountCount = *u.MountCount
	}
	if u.MountedAt != nil {
		t := *u.MountedAt
		m.MountedAt = &t
	}
	if u.UnmountedAt != nil {
		t := *u.UnmountedAt
		m.UnmountedAt = &t
	}
	if u.PropsChanges != nil {
		m.PropsChanges = *u.PropsChanges
	}
	if u.ParentID != nil {
		m.ParentID = *u.ParentID
	}
	if u.Render != nil {
		rec.history.Append(*u.Render)
	}
	if u.touchesAverage() {
		recomputeAverage(m)
	}
	s.touchLocked()
	return s.snapshotLocked(rec), true
}

// recomputeAverage derives AverageRenderTime from the merged totals.
func recomputeAverage(m *ComponentMetrics) {
	if m.RenderCount > 0 {
		m.AverageRenderTime = m.TotalRenderTime / time.Duration(m.RenderCount)
	} else {
		m.AverageRenderTime = 0
	}
}

// Delete removes the metrics for id and the corresponding tree node.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	s.removeFromTreeLocked(id)
	s.touchLocked()
}

// All returns a defensive copy of every component's metrics, keyed by id.
func (s *Store) All() map[string]ComponentMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]ComponentMetrics, len(s.records))
	for id, rec := range s.records {
		out[id] = s.snapshotLocked(rec)
	}
	return out
}

// Len returns the number of tracked components.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// AddTimelineEvent appends ev to the bounded timeline, evicting the oldest
// entry when full.
func (s *Store) AddTimelineEvent(ev TimelineEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeline.Append(ev)
	s.touchLocked()
}

// Timeline returns a copy of the timeline, oldest first. With a limit, only
// the most recent limit entries are returned.
func (s *Store) Timeline(limit ...int) []TimelineEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(limit) > 0 {
		return s.timeline.Last(limit[0])
	}
	return s.timeline.Items()
}

// ClearTimeline drops all timeline entries.
func (s *Store) ClearTimeline() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeline.Clear()
	s.touchLocked()
}

// SetMaxHistorySize updates the bound and immediately trims the timeline and
// every component's render history to it, keeping the most recent entries.
func (s *Store) SetMaxHistorySize(n int) {
	if n < 0 {
		n = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxHistory = n
	s.timeline.SetCap(n)
	for _, rec := range s.records {
		rec.history.SetCap(n)
	}
	s.touchLocked()
}

// MaxHistorySize returns the current history bound.
func (s *Store) MaxHistorySize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxHistory
}

// Stats folds session-wide aggregates over every component.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{
		Components:      len(s.records),
		SessionDuration: s.clock().Sub(s.sessionStart),
	}
	var total time.Duration
	var renders int64
	for _, rec := range s.records {
		renders += rec.metrics.RenderCount
		total += rec.metrics.TotalRenderTime
		st.WastedRenders += rec.metrics.WastedRenders
		if rec.metrics.Mounted {
			st.MountedComponents++
		}
	}
	st.TotalRenders = renders
	if renders > 0 {
		st.AverageRenderTime = total / time.Duration(renders)
	}
	return st
}

// SessionStart returns when this session began (construction or last Clear).
func (s *Store) SessionStart() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionStart
}

// LastUpdate returns the time of the most recent mutation.
func (s *Store) LastUpdate() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdate
}

// SessionDuration returns how long the session has been running.
func (s *Store) SessionDuration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clock().Sub(s.sessionStart)
}

// Clear resets the store: all metrics, the tree, and the timeline are
// dropped and the session restarts.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]*componentRecord)
	s.nodes = make(map[string]*treeNode)
	s.rootID = ""
	s.timeline = history.New[TimelineEvent](s.maxHistory)
	now := s.clock()
	s.sessionStart = now
	s.lastUpdate = now
}
