// Package notify fans hierarchy change events out to the configured
// channels. Delivery is best effort: dispatch happens off the request path
// and a failing channel only logs.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

type Kind string

const (
	KindMemberAdded      Kind = "member_added"
	KindMemberRemoved    Kind = "member_removed"
	KindHierarchyChanged Kind = "hierarchy_changed"
)

// ChangeEvent describes one structural change to the organization.
type ChangeEvent struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	MemberName string    `json:"member_name"`
	Detail     string    `json:"detail"`
	ActorEmail string    `json:"actor_email"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewChangeEvent(kind Kind, memberName, detail, actorEmail string) ChangeEvent {
	return ChangeEvent{
		ID:         ulid.Make().String(),
		Kind:       kind,
		MemberName: memberName,
		Detail:     detail,
		ActorEmail: actorEmail,
		OccurredAt: time.Now().UTC(),
	}
}

func (e ChangeEvent) Summary() string {
	switch e.Kind {
	case KindMemberAdded:
		return fmt.Sprintf("%s joined the organization", e.MemberName)
	case KindMemberRemoved:
		return fmt.Sprintf("%s left the organization", e.MemberName)
	default:
		if e.Detail != "" {
			return fmt.Sprintf("Org chart updated: %s", e.Detail)
		}
		return "Org chart updated"
	}
}

// Sink is one delivery channel.
type Sink interface {
	Deliver(ctx context.Context, event ChangeEvent) error
	Name() string
}

type Dispatcher interface {
	Dispatch(ctx context.Context, event ChangeEvent)
}
