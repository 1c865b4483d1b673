package domain

import (
	"context"

	"github.com/wellspringhq/foundation/internal/orgchart/tree"
)

type Service interface {
	GetOrgChart(ctx context.Context) (tree.Hierarchy, error)
	GetDepartments(ctx context.Context) ([]tree.DepartmentGroup, error)

	// Invalidate drops the cached chart. Mutating handlers call it so the
	// next read rebuilds from a fresh snapshot instead of waiting out the TTL.
	Invalidate()
}
