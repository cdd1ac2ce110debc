package tagclient

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/arawak/toolshelf/internal/apperr"
	"github.com/arawak/toolshelf/internal/tagname"
)

// memBackend is an in-memory Backend that records the order of calls.
type memBackend struct {
	mu      sync.Mutex
	tags    map[string]bool
	failOn  map[string]error
	listErr error
	events  []string

	// block, when set, holds CreateTag until it is closed.
	block chan struct{}
}

func newMemBackend(names ...string) *memBackend {
	b := &memBackend{tags: map[string]bool{}, failOn: map[string]error{}}
	for _, n := range names {
		b.tags[n] = true
	}
	return b
}

func (b *memBackend) ListTags(ctx context.Context) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, "list")
	if b.listErr != nil {
		return nil, b.listErr
	}
	out := make([]string, 0, len(b.tags))
	for n := range b.tags {
		out = append(out, n)
	}
	sort.Strings(out)
	return out, nil
}

func (b *memBackend) CreateTag(ctx context.Context, name string) (Created, error) {
	if b.block != nil {
		select {
		case <-b.block:
		case <-ctx.Done():
			return Created{}, ctx.Err()
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, "create:"+name)
	if err := b.failOn[name]; err != nil {
		return Created{}, err
	}
	name = tagname.Normalize(name)
	if name == "" {
		return Created{}, apperr.New(apperr.KindValidation, "Tag name is required.")
	}
	if b.tags[name] {
		return Created{Name: name, Status: StatusExisted}, nil
	}
	b.tags[name] = true
	return Created{Name: name, Status: StatusCreated}, nil
}

func (b *memBackend) Events() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.events...)
}

var errOffline = apperr.Wrap(apperr.KindTransport, "Could not reach the tag service.", errors.New("connection refused"))
