// Package tagclient is the consumer side of the tag collection endpoint: a
// Backend that speaks to it, a Selector that drives an incremental
// search-or-create tag picker, and an Ensurer that reconciles a tag list on
// save.
package tagclient

import "context"

type Status int

const (
	StatusCreated Status = iota + 1
	StatusExisted
	// StatusConflict is a creation that lost a race to a concurrent caller.
	// The tag exists, so this is as good as StatusExisted.
	StatusConflict
)

func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusExisted:
		return "existed"
	case StatusConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

type Created struct {
	Name   string
	Status Status
}

// Backend is the tag service as seen from a client.
type Backend interface {
	ListTags(ctx context.Context) ([]string, error)
	CreateTag(ctx context.Context, name string) (Created, error)
}
