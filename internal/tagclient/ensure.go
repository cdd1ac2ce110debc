package tagclient

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/arawak/toolshelf/internal/tagname"
)

const DefaultEnsureConcurrency = 8

// Report summarizes an Ensure run. Names are canonical and sorted.
type Report struct {
	Created  []string
	Existing []string
	Failed   map[string]error
}

func (r Report) OK() bool {
	return len(r.Failed) == 0
}

// Ensurer makes sure every tag an entry is saved with exists in the tag
// service. It is best effort: a failing name is logged and skipped, and the
// caller's save goes ahead regardless.
type Ensurer struct {
	backend     Backend
	logger      *slog.Logger
	concurrency int
}

func NewEnsurer(backend Backend, logger *slog.Logger) *Ensurer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ensurer{backend: backend, logger: logger, concurrency: DefaultEnsureConcurrency}
}

// WithConcurrency bounds the number of creations in flight. n <= 0 removes
// the bound.
func (e *Ensurer) WithConcurrency(n int) *Ensurer {
	e.concurrency = n
	return e
}

// Ensure creates every name that does not exist yet. Creations run
// concurrently in no particular order. An existing tag, including one created
// by a concurrent caller, counts as success.
func (e *Ensurer) Ensure(ctx context.Context, names []string) Report {
	canonical := tagname.NormalizeAll(names)
	report := Report{Failed: map[string]error{}}
	if len(canonical) == 0 {
		return report
	}

	var mu sync.Mutex
	var g errgroup.Group
	if e.concurrency > 0 {
		g.SetLimit(e.concurrency)
	}
	for _, name := range canonical {
		g.Go(func() error {
			res, err := e.backend.CreateTag(ctx, name)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				e.logger.Warn("ensure tag failed", "tag", name, "error", err)
				report.Failed[name] = err
				return nil
			}
			if res.Status == StatusCreated {
				report.Created = append(report.Created, name)
			} else {
				report.Existing = append(report.Existing, name)
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(report.Created)
	sort.Strings(report.Existing)
	return report
}
