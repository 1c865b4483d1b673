package tree

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	memberdomain "github.com/wellspringhq/foundation/internal/member/domain"
	reportingdomain "github.com/wellspringhq/foundation/internal/reporting/domain"
)

var testNode, _ = snowflake.NewNode(1)

func newMember(name string, sortOrder int, parentID *snowflake.ID) memberdomain.Member {
	return memberdomain.Member{
		ID:        testNode.Generate(),
		Name:      name,
		SortOrder: sortOrder,
		IsActive:  true,
		ParentID:  parentID,
	}
}

func idPtr(id snowflake.ID) *snowflake.ID { return &id }

func dottedRel(memberID, managerID snowflake.ID) reportingdomain.ReportingRelationship {
	return reportingdomain.ReportingRelationship{
		ID:         testNode.Generate(),
		MemberID:   memberID,
		ManagerID:  managerID,
		ReportType: reportingdomain.ReportTypeDotted,
	}
}

func TestBuild_SharedChildScenario(t *testing.T) {
	a := newMember("Alice", 1, nil)
	b := newMember("Bob", 2, nil)
	c := newMember("Cara", 1, idPtr(a.ID))

	h := Build(
		[]memberdomain.Member{a, b, c},
		[]reportingdomain.ReportingRelationship{dottedRel(c.ID, b.ID)},
	)

	require.Len(t, h.Roots, 2)
	assert.Equal(t, a.ID, h.Roots[0].Member.ID)
	assert.Equal(t, b.ID, h.Roots[1].Member.ID)
	assert.Empty(t, h.Roots[0].Children, "shared child must not appear under A")
	assert.Empty(t, h.Roots[1].Children, "shared child must not appear under B")

	require.Len(t, h.SharedChildren, 1)
	assert.Equal(t, c.ID, h.SharedChildren[0].Child.Member.ID)
	assert.Equal(t, []snowflake.ID{a.ID, b.ID}, h.SharedChildren[0].ParentIDs)
}

func TestBuild_FlattenCoversEveryActiveMemberOnce(t *testing.T) {
	a := newMember("Alice", 1, nil)
	b := newMember("Bob", 2, nil)
	c := newMember("Cara", 1, idPtr(a.ID))
	d := newMember("Dan", 2, idPtr(c.ID))
	e := newMember("Eli", 3, idPtr(b.ID))
	inactive := newMember("Gone", 0, idPtr(a.ID))
	inactive.IsActive = false

	h := Build(
		[]memberdomain.Member{a, b, c, d, e, inactive},
		[]reportingdomain.ReportingRelationship{dottedRel(c.ID, b.ID)},
	)

	flat := Flatten(h)
	seen := make(map[snowflake.ID]int)
	for _, m := range flat {
		seen[m.ID]++
	}
	assert.Len(t, flat, 5)
	for _, m := range []memberdomain.Member{a, b, c, d, e} {
		assert.Equal(t, 1, seen[m.ID], "member %s must appear exactly once", m.Name)
	}
	assert.Zero(t, seen[inactive.ID])

	// D follows its shared parent C into sharedChildren.
	require.Len(t, h.SharedChildren, 1)
	require.Len(t, h.SharedChildren[0].Child.Children, 1)
	assert.Equal(t, d.ID, h.SharedChildren[0].Child.Children[0].Member.ID)
}

func TestBuild_SiblingOrdering(t *testing.T) {
	root := newMember("Root", 0, nil)
	z := newMember("Zoe", 1, idPtr(root.ID))
	a2 := newMember("Ann", 2, idPtr(root.ID))
	a1 := newMember("Abe", 2, idPtr(root.ID))

	h := Build([]memberdomain.Member{root, z, a2, a1}, nil)

	require.Len(t, h.Roots, 1)
	kids := h.Roots[0].Children
	require.Len(t, kids, 3)
	assert.Equal(t, z.ID, kids[0].Member.ID, "lower sortOrder first")
	assert.Equal(t, a1.ID, kids[1].Member.ID, "name breaks sortOrder ties")
	assert.Equal(t, a2.ID, kids[2].Member.ID)
}

func TestBuild_Deterministic(t *testing.T) {
	root := newMember("Root", 0, nil)
	members := []memberdomain.Member{root}
	for i := 0; i < 20; i++ {
		members = append(members, newMember("Member", 0, idPtr(root.ID)))
	}

	first := Build(members, nil)
	for i := 0; i < 5; i++ {
		again := Build(members, nil)
		assert.Equal(t, Flatten(first), Flatten(again))
	}
}

func TestBuild_UnresolvableParentBecomesRoot(t *testing.T) {
	ghost := testNode.Generate()
	orphan := newMember("Orphan", 1, idPtr(ghost))

	inactiveParent := newMember("Inactive", 0, nil)
	inactiveParent.IsActive = false
	child := newMember("Child", 2, idPtr(inactiveParent.ID))

	h := Build([]memberdomain.Member{orphan, inactiveParent, child}, nil)

	require.Len(t, h.Roots, 2)
	assert.Equal(t, orphan.ID, h.Roots[0].Member.ID)
	assert.Equal(t, child.ID, h.Roots[1].Member.ID)
}

func TestBuild_PrimaryCycleDoesNotLoop(t *testing.T) {
	a := newMember("Ana", 1, nil)
	b := newMember("Ben", 2, nil)
	a.ParentID = idPtr(b.ID)
	b.ParentID = idPtr(a.ID)

	h := Build([]memberdomain.Member{a, b}, nil)

	flat := Flatten(h)
	assert.Len(t, flat, 2, "cycle members surface instead of disappearing")
	require.NotEmpty(t, h.Roots)
	// The first cycle member becomes its own root and carries the rest.
	assert.Equal(t, a.ID, h.Roots[0].Member.ID)
}

func TestBuild_DottedEdgeToNonRootIsNotShared(t *testing.T) {
	root := newMember("Root", 0, nil)
	mid := newMember("Mid", 1, idPtr(root.ID))
	leaf := newMember("Leaf", 2, idPtr(mid.ID))

	h := Build(
		[]memberdomain.Member{root, mid, leaf},
		[]reportingdomain.ReportingRelationship{dottedRel(leaf.ID, root.ID)},
	)

	// Leaf's primary parent is Mid (not a root), so its root-level manager
	// set is just {Root} and it stays an ordinary child of Mid.
	assert.Empty(t, h.SharedChildren)
	require.Len(t, h.Roots, 1)
	require.Len(t, h.Roots[0].Children, 1)
	require.Len(t, h.Roots[0].Children[0].Children, 1)
	assert.Equal(t, leaf.ID, h.Roots[0].Children[0].Children[0].Member.ID)
}

func TestPrimaryDescendants_ChainExclusion(t *testing.T) {
	a := newMember("Alice", 1, nil)
	b := newMember("Bob", 2, idPtr(a.ID))
	c := newMember("Cara", 3, idPtr(b.ID))
	d := newMember("Dana", 4, nil)

	excluded := PrimaryDescendants([]memberdomain.Member{a, b, c, d}, a.ID)

	assert.True(t, excluded[a.ID])
	assert.True(t, excluded[b.ID])
	assert.True(t, excluded[c.ID])
	assert.False(t, excluded[d.ID])
}

func TestPrimaryDescendants_CycleTerminates(t *testing.T) {
	a := newMember("Ana", 1, nil)
	b := newMember("Ben", 2, nil)
	a.ParentID = idPtr(b.ID)
	b.ParentID = idPtr(a.ID)

	excluded := PrimaryDescendants([]memberdomain.Member{a, b}, a.ID)
	assert.True(t, excluded[a.ID])
	assert.True(t, excluded[b.ID])
}

func TestGroupByDepartment_CanonicalOrderAndUnknownLast(t *testing.T) {
	finance := "Finance"
	board := "Board of Trustees"
	catering := "Catering"

	m1 := newMember("Fin", 1, nil)
	m1.Department = &finance
	m2 := newMember("Board", 1, nil)
	m2.Department = &board
	m3 := newMember("Cater", 1, nil)
	m3.Department = &catering

	groups := GroupByDepartment(
		[]memberdomain.Member{m1, m2, m3},
		[]string{"Board of Trustees", "Executive", "Finance"},
		"Other",
	)

	labels := make([]string, 0, len(groups))
	for _, g := range groups {
		labels = append(labels, g.Department)
	}
	assert.Equal(t, []string{"Board of Trustees", "Finance", "Catering"}, labels)
}

func TestGroupByDepartment_FallbackBucketSortsLast(t *testing.T) {
	finance := "Finance"
	m1 := newMember("Fin", 1, nil)
	m1.Department = &finance
	m2 := newMember("NoDept", 1, nil)
	empty := "  "
	m3 := newMember("Blank", 2, nil)
	m3.Department = &empty

	groups := GroupByDepartment([]memberdomain.Member{m2, m1, m3}, []string{"Finance"}, "Other")

	require.Len(t, groups, 2)
	assert.Equal(t, "Finance", groups[0].Department)
	assert.Equal(t, "Other", groups[1].Department)
	require.Len(t, groups[1].Members, 2)
	assert.Equal(t, m2.ID, groups[1].Members[0].ID)
}

func TestGroupByDepartment_MembersSortedInsideGroup(t *testing.T) {
	dept := "Program"
	second := newMember("Second", 2, nil)
	second.Department = &dept
	first := newMember("First", 1, nil)
	first.Department = &dept

	groups := GroupByDepartment([]memberdomain.Member{second, first}, nil, "Other")

	require.Len(t, groups, 1)
	assert.Equal(t, first.ID, groups[0].Members[0].ID)
	assert.Equal(t, second.ID, groups[0].Members[1].ID)
}
