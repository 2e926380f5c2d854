package probe

// treeNode is the store-internal hierarchy node. The exported TreeNode
// snapshot is materialized on read.
type treeNode struct {
	id       string
	name     string
	parentID string
	children []string
	depth    int
	expanded bool
}

// TreeNode is a read-only snapshot of one node in the component tree.
// Expanded is pure presentation state for visual consumers; the kernel never
// reads it.
type TreeNode struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Depth    int              `json:"depth"`
	Expanded bool             `json:"expanded"`
	Metrics  ComponentMetrics `json:"metrics"`
	Children []*TreeNode      `json:"children,omitempty"`
}

// UpdateTree creates or refreshes the tree node for id. When parentID names
// a known node the component is attached as its child; re-attaching an
// already attached child is a no-op, and an attach that would close a cycle
// is refused and logged. The first parentless component becomes the root
// (detached from any stale parent edge first); later parentless components
// are not promoted.
func (s *Store) UpdateTree(id, name, parentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, ok := s.nodes[id]
	if !ok {
		node = &treeNode{id: id, expanded: true}
		s.nodes[id] = node
	}
	node.name = name

	if parentID == "" {
		if s.rootID == "" {
			s.detachLocked(node)
			s.syncLineageLocked(node)
			s.rootID = id
			node.depth = 0
			s.refreshDepthsLocked(node)
		}
		s.touchLocked()
		return
	}

	parent, ok := s.nodes[parentID]
	if !ok {
		// Parent not observed yet; the node stays unplaced until it is.
		s.touchLocked()
		return
	}
	if node.parentID != parentID {
		if s.isAncestorLocked(id, parentID) {
			// Contradictory observation: attaching here would close a cycle.
			s.logger.Warn("ignoring tree attach that would create a cycle",
				"component_id", id, "parent_id", parentID)
			s.touchLocked()
			return
		}
		s.detachLocked(node)
		node.parentID = parentID
		parent.children = append(parent.children, id)
	}
	node.depth = parent.depth + 1
	s.refreshDepthsLocked(node)
	s.syncLineageLocked(node)
	s.touchLocked()
}

// detachLocked removes node from its current parent's child list and scrubs
// the parent's ChildIDs aggregate.
func (s *Store) detachLocked(node *treeNode) {
	if node.parentID == "" {
		return
	}
	if parent, ok := s.nodes[node.parentID]; ok {
		parent.children = removeString(parent.children, node.id)
	}
	if rec, ok := s.records[node.parentID]; ok {
		rec.metrics.ChildIDs = removeString(rec.metrics.ChildIDs, node.id)
	}
	node.parentID = ""
}

// syncLineageLocked mirrors the tree edge into the metrics aggregates: the
// child's ParentID and the parent's ChildIDs, kept set-like.
func (s *Store) syncLineageLocked(node *treeNode) {
	if rec, ok := s.records[node.id]; ok {
		rec.metrics.ParentID = node.parentID
	}
	if node.parentID == "" {
		return
	}
	if rec, ok := s.records[node.parentID]; ok {
		rec.metrics.ChildIDs = appendUnique(rec.metrics.ChildIDs, node.id)
	}
}

// isAncestorLocked reports whether id appears on the parent chain of otherID
// (including otherID itself). The walk is bounded because the stored tree is
// acyclic.
func (s *Store) isAncestorLocked(id, otherID string) bool {
	for cur := otherID; cur != ""; {
		if cur == id {
			return true
		}
		node, ok := s.nodes[cur]
		if !ok {
			return false
		}
		cur = node.parentID
	}
	return false
}

// refreshDepthsLocked walks node's subtree reasserting depth = parent+1.
func (s *Store) refreshDepthsLocked(node *treeNode) {
	for _, childID := range node.children {
		child, ok := s.nodes[childID]
		if !ok {
			continue
		}
		child.depth = node.depth + 1
		s.refreshDepthsLocked(child)
	}
}

// RemoveFromTree detaches id from its parent and drops it from the node map.
// Its children stay tracked but unplaced; they are not promoted to root.
func (s *Store) RemoveFromTree(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeFromTreeLocked(id)
	s.touchLocked()
}

func (s *Store) removeFromTreeLocked(id string) {
	node, ok := s.nodes[id]
	if !ok {
		return
	}
	s.detachLocked(node)
	for _, childID := range node.children {
		child, ok := s.nodes[childID]
		if !ok {
			continue
		}
		child.parentID = ""
		if rec, ok := s.records[childID]; ok {
			rec.metrics.ParentID = ""
		}
	}
	if rec, ok := s.records[id]; ok {
		rec.metrics.ParentID = ""
	}
	delete(s.nodes, id)
	if s.rootID == id {
		s.rootID = ""
	}
}

// SetExpanded toggles the presentation expand/collapse flag for id.
func (s *Store) SetExpanded(id string, expanded bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if node, ok := s.nodes[id]; ok {
		node.expanded = expanded
	}
}

// Tree returns a deep snapshot of the component tree from the root, or nil
// when no root has been observed.
func (s *Store) Tree() *TreeNode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.rootID == "" {
		return nil
	}
	return s.treeSnapshotLocked(s.rootID)
}

// Node returns a deep snapshot of the subtree rooted at id, or nil when the
// node is not in the tree.
func (s *Store) Node(id string) *TreeNode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.treeSnapshotLocked(id)
}

func (s *Store) treeSnapshotLocked(id string) *TreeNode {
	node, ok := s.nodes[id]
	if !ok {
		return nil
	}
	out := &TreeNode{
		ID:       node.id,
		Name:     node.name,
		Depth:    node.depth,
		Expanded: node.expanded,
	}
	if rec, ok := s.records[id]; ok {
		out.Metrics = s.snapshotLocked(rec)
	}
	for _, childID := range node.children {
		if child := s.treeSnapshotLocked(childID); child != nil {
			out.Children = append(out.Children, child)
		}
	}
	return out
}

func removeString(list []string, v string) []string {
	out := list[:0]
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}
