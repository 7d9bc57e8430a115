package domain

import (
	"context"
	"time"
)

// EntityKind names the collection a change event refers to
type EntityKind string

const (
	EntityUser   EntityKind = "user"
	EntityCourse EntityKind = "course"
)

// ChangeOp is the kind of mutation that produced an event
type ChangeOp string

const (
	OpCreate ChangeOp = "create"
	OpUpdate ChangeOp = "update"
	OpDelete ChangeOp = "delete"
)

// ChangeEvent is emitted after a committed mutation of a user or course
type ChangeEvent struct {
	Kind EntityKind `json:"kind"`
	Op   ChangeOp   `json:"op"`
	ID   string     `json:"id"`
	At   time.Time  `json:"at"`
}

// ChangePublisher delivers change events to the stats aggregator
type ChangePublisher interface {
	Publish(ctx context.Context, event ChangeEvent) error
}
