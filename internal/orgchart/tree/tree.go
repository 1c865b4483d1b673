// Package tree holds the pure org-chart computations: the hierarchy builder,
// the primary-chain descendant walk backing the ancestor guard, and the
// department grouper. Everything here is a deterministic function of its
// input snapshot; persistence and caching live in the orgchart service.
package tree

import (
	"sort"
	"strings"

	"github.com/bwmarrin/snowflake"
	memberdomain "github.com/wellspringhq/foundation/internal/member/domain"
	reportingdomain "github.com/wellspringhq/foundation/internal/reporting/domain"
)

// Node is one member with its ordinary (primary-chain) children.
type Node struct {
	Member   memberdomain.Member `json:"member"`
	Children []*Node             `json:"children"`
}

// SharedChild is a member whose root-level reporting fans out to more than
// one top-level node. It keeps its own subtree but is rendered outside any
// single root's column.
type SharedChild struct {
	Child     *Node          `json:"child"`
	ParentIDs []snowflake.ID `json:"parent_ids"`
}

// Hierarchy is the renderable forest plus the shared children.
type Hierarchy struct {
	Roots          []*Node       `json:"roots"`
	SharedChildren []SharedChild `json:"shared_children"`
}

// Build computes the hierarchy over active members only.
//
// A root is an active member whose ParentID is nil or does not resolve to
// another active member in the snapshot. A member whose effective root-level
// manager set (resolved primary parent when it is a root, plus every
// non-primary manager that is a root) has more than one entry becomes a
// shared child. Sibling ordering is SortOrder ascending with name and id
// tie-breaks, applied recursively; traversal is bounded by a visited set so
// inconsistent imported data (primary cycles) surfaces members as their own
// roots instead of looping.
func Build(members []memberdomain.Member, rels []reportingdomain.ReportingRelationship) Hierarchy {
	active := make(map[snowflake.ID]memberdomain.Member, len(members))
	for _, m := range members {
		if m.IsActive {
			active[m.ID] = m
		}
	}

	// Primary parent, only when it resolves to an active member.
	parentOf := make(map[snowflake.ID]snowflake.ID, len(active))
	isRoot := make(map[snowflake.ID]bool, len(active))
	for id, m := range active {
		if m.ParentID != nil && *m.ParentID != id {
			if _, ok := active[*m.ParentID]; ok {
				parentOf[id] = *m.ParentID
				continue
			}
		}
		isRoot[id] = true
	}

	// Non-primary managers per member, both endpoints active.
	dotted := make(map[snowflake.ID][]snowflake.ID)
	for _, rel := range rels {
		if rel.IsPrimary {
			continue
		}
		if _, ok := active[rel.MemberID]; !ok {
			continue
		}
		if _, ok := active[rel.ManagerID]; !ok {
			continue
		}
		dotted[rel.MemberID] = append(dotted[rel.MemberID], rel.ManagerID)
	}

	shared := make(map[snowflake.ID][]snowflake.ID)
	for id := range active {
		rootManagers := make([]snowflake.ID, 0, 2)
		seen := make(map[snowflake.ID]bool)
		if p, ok := parentOf[id]; ok && isRoot[p] {
			rootManagers = append(rootManagers, p)
			seen[p] = true
		}
		for _, mgr := range dotted[id] {
			if isRoot[mgr] && !seen[mgr] && mgr != id {
				rootManagers = append(rootManagers, mgr)
				seen[mgr] = true
			}
		}
		if len(rootManagers) > 1 {
			shared[id] = rootManagers
		}
	}

	// Ordinary children adjacency; shared members never attach under a parent.
	childrenOf := make(map[snowflake.ID][]snowflake.ID)
	for id, p := range parentOf {
		if _, isShared := shared[id]; isShared {
			continue
		}
		childrenOf[p] = append(childrenOf[p], id)
	}

	visited := make(map[snowflake.ID]bool, len(active))
	var build func(id snowflake.ID) *Node
	build = func(id snowflake.ID) *Node {
		visited[id] = true
		node := &Node{Member: active[id], Children: []*Node{}}
		kids := make([]memberdomain.Member, 0, len(childrenOf[id]))
		for _, kid := range childrenOf[id] {
			if !visited[kid] {
				kids = append(kids, active[kid])
			}
		}
		sortMembers(kids)
		for _, kid := range kids {
			if visited[kid.ID] {
				continue
			}
			node.Children = append(node.Children, build(kid.ID))
		}
		return node
	}

	rootMembers := make([]memberdomain.Member, 0, len(isRoot))
	for id := range isRoot {
		if _, isShared := shared[id]; isShared {
			continue
		}
		rootMembers = append(rootMembers, active[id])
	}
	sortMembers(rootMembers)

	hierarchy := Hierarchy{Roots: []*Node{}, SharedChildren: []SharedChild{}}
	for _, m := range rootMembers {
		if visited[m.ID] {
			continue
		}
		hierarchy.Roots = append(hierarchy.Roots, build(m.ID))
	}

	sharedMembers := make([]memberdomain.Member, 0, len(shared))
	for id := range shared {
		sharedMembers = append(sharedMembers, active[id])
	}
	sortMembers(sharedMembers)
	for _, m := range sharedMembers {
		if visited[m.ID] {
			continue
		}
		node := build(m.ID)
		parentIDs := append([]snowflake.ID(nil), shared[m.ID]...)
		sortIDsByMember(parentIDs, active)
		hierarchy.SharedChildren = append(hierarchy.SharedChildren, SharedChild{
			Child:     node,
			ParentIDs: parentIDs,
		})
	}

	// Anything still unvisited sits on a primary cycle: no valid root. Emit
	// each remaining member as its own root rather than dropping or looping.
	leftovers := make([]memberdomain.Member, 0)
	for id := range active {
		if !visited[id] {
			leftovers = append(leftovers, active[id])
		}
	}
	sortMembers(leftovers)
	for _, m := range leftovers {
		if visited[m.ID] {
			continue
		}
		hierarchy.Roots = append(hierarchy.Roots, build(m.ID))
	}

	return hierarchy
}

// PrimaryDescendants returns excludeID plus every member whose primary chain
// passes through it, transitively. The walk is bounded by a visited set so a
// pre-existing primary cycle degrades to a no-op instead of recursing forever.
// Non-primary edges never affect tree acyclicity and are ignored.
func PrimaryDescendants(members []memberdomain.Member, excludeID snowflake.ID) map[snowflake.ID]bool {
	childrenOf := make(map[snowflake.ID][]snowflake.ID, len(members))
	for _, m := range members {
		if m.ParentID == nil || *m.ParentID == m.ID {
			continue
		}
		childrenOf[*m.ParentID] = append(childrenOf[*m.ParentID], m.ID)
	}

	excluded := make(map[snowflake.ID]bool)
	queue := []snowflake.ID{excludeID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if excluded[id] {
			continue
		}
		excluded[id] = true
		queue = append(queue, childrenOf[id]...)
	}
	return excluded
}

// Flatten returns every member in the hierarchy exactly once, roots first.
func Flatten(h Hierarchy) []memberdomain.Member {
	out := make([]memberdomain.Member, 0)
	var walk func(n *Node)
	walk = func(n *Node) {
		out = append(out, n.Member)
		for _, child := range n.Children {
			walk(child)
		}
	}
	for _, root := range h.Roots {
		walk(root)
	}
	for _, sc := range h.SharedChildren {
		walk(sc.Child)
	}
	return out
}

func sortMembers(members []memberdomain.Member) {
	sort.SliceStable(members, func(i, j int) bool {
		if members[i].SortOrder != members[j].SortOrder {
			return members[i].SortOrder < members[j].SortOrder
		}
		ni := strings.ToLower(members[i].Name)
		nj := strings.ToLower(members[j].Name)
		if ni != nj {
			return ni < nj
		}
		return members[i].ID < members[j].ID
	})
}

func sortIDsByMember(ids []snowflake.ID, lookup map[snowflake.ID]memberdomain.Member) {
	sort.SliceStable(ids, func(i, j int) bool {
		a, b := lookup[ids[i]], lookup[ids[j]]
		if a.SortOrder != b.SortOrder {
			return a.SortOrder < b.SortOrder
		}
		na := strings.ToLower(a.Name)
		nb := strings.ToLower(b.Name)
		if na != nb {
			return na < nb
		}
		return ids[i] < ids[j]
	})
}
