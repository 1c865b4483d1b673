package tree

import (
	"strings"

	memberdomain "github.com/wellspringhq/foundation/internal/member/domain"
)

// DepartmentGroup is one department bucket with its members in display order.
type DepartmentGroup struct {
	Department string                `json:"department"`
	Members    []memberdomain.Member `json:"members"`
}

// GroupByDepartment buckets members by department label. Canonical
// departments come first in priority order, departments present in the data
// but absent from the priority list follow in first-seen order, and members
// without a department collect under fallbackLabel, which sorts last unless
// the priority list places it elsewhere. Members inside each bucket are
// ordered by SortOrder with name and id tie-breaks.
func GroupByDepartment(members []memberdomain.Member, priority []string, fallbackLabel string) []DepartmentGroup {
	fallbackLabel = strings.TrimSpace(fallbackLabel)
	if fallbackLabel == "" {
		fallbackLabel = "Other"
	}

	canonical := make(map[string]bool, len(priority))
	for _, label := range priority {
		canonical[strings.TrimSpace(label)] = true
	}

	buckets := make(map[string][]memberdomain.Member)
	extras := make([]string, 0) // non-canonical labels in first-seen order
	for _, m := range members {
		label := strings.TrimSpace(m.DepartmentLabel())
		if label == "" {
			label = fallbackLabel
		}
		if _, exists := buckets[label]; !exists && !canonical[label] && label != fallbackLabel {
			extras = append(extras, label)
		}
		buckets[label] = append(buckets[label], m)
	}

	out := make([]DepartmentGroup, 0, len(buckets))
	emit := func(label string) {
		group, ok := buckets[label]
		if !ok {
			return
		}
		sortMembers(group)
		out = append(out, DepartmentGroup{Department: label, Members: group})
		delete(buckets, label)
	}

	for _, label := range priority {
		emit(strings.TrimSpace(label))
	}
	for _, label := range extras {
		emit(label)
	}
	emit(fallbackLabel)

	return out
}
