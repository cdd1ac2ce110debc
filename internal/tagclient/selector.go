package tagclient

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/arawak/toolshelf/internal/tagname"
)

// MaxSuggestions bounds how many pool matches are offered at once.
const MaxSuggestions = 10

// State is what the picker is doing right now.
type State int

const (
	StateIdle State = iota
	StateSuggesting
	StateCreating
)

func (s State) String() string {
	switch s {
	case StateSuggesting:
		return "suggesting"
	case StateCreating:
		return "creating"
	default:
		return "idle"
	}
}

// ErrBusy is returned by Commit while an earlier commit is still in flight.
var ErrBusy = errors.New("tag creation already in progress")

// Selector holds the tags attached to the entry being edited and offers
// completions from the known pool. New names are created through the Backend
// before they are attached.
//
// Methods are safe for concurrent use. No lock is held across a Backend call.
type Selector struct {
	backend Backend
	logger  *slog.Logger

	// OnChange, when set, receives a copy of the selection after each change.
	OnChange func(selected []string)

	mu       sync.Mutex
	state    State
	selected []string
	pool     []string
	draft    string

	// created holds names this selector created. They are selectable before
	// a pool refresh lists them.
	created map[string]struct{}
}

func NewSelector(backend Backend, selected []string, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Selector{backend: backend, logger: logger, created: map[string]struct{}{}}
	for _, name := range selected {
		if n := tagname.Normalize(name); n != "" && !slices.Contains(s.selected, n) {
			s.selected = append(s.selected, n)
		}
	}
	return s
}

// Mount loads the tag pool in the background. The returned channel is closed
// once loading has finished, successfully or not. The selector is usable with
// an empty pool in the meantime.
func (s *Selector) Mount(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.refresh(ctx)
	}()
	return done
}

// refresh replaces the pool. On failure the previous pool is kept.
func (s *Selector) refresh(ctx context.Context) {
	names, err := s.backend.ListTags(ctx)
	if err != nil {
		s.logger.Warn("fetch tags failed", "error", err)
		return
	}
	s.mu.Lock()
	s.pool = names
	s.mu.Unlock()
}

// SetDraft records what the user has typed so far. The suggestion panel opens
// for non-empty text and closes for empty text.
func (s *Selector) SetDraft(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = text
	if s.state == StateCreating {
		return
	}
	if text != "" {
		s.state = StateSuggesting
	} else {
		s.state = StateIdle
	}
}

// Focus reopens the suggestion panel if there is draft text.
func (s *Selector) Focus() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateIdle && s.draft != "" {
		s.state = StateSuggesting
	}
}

// Dismiss closes the suggestion panel, e.g. on escape or a click outside. The
// selection and the draft are left alone.
func (s *Selector) Dismiss() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSuggesting {
		s.state = StateIdle
	}
}

// Suggestions lists pool names containing the draft, ignoring case, that are
// not selected yet. At most MaxSuggestions are returned.
func (s *Selector) Suggestions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.suggestionsLocked()
}

func (s *Selector) suggestionsLocked() []string {
	out := make([]string, 0, MaxSuggestions)
	for _, name := range s.pool {
		if !tagname.ContainsFold(name, s.draft) || slices.Contains(s.selected, name) {
			continue
		}
		out = append(out, name)
		if len(out) == MaxSuggestions {
			break
		}
	}
	return out
}

// CanCreate reports whether a "create" affordance should be offered for the
// draft: it must normalize to something new that is neither in the pool nor
// already selected.
func (s *Selector) CanCreate() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := tagname.Normalize(s.draft)
	if name == "" || slices.Contains(s.selected, name) {
		return false
	}
	for _, p := range s.pool {
		if tagname.Normalize(p) == name {
			return false
		}
	}
	return true
}

// Select attaches a tag from the pool or one created by this selector and
// reports whether name was accepted. Unknown names are ignored. Selecting an
// attached tag changes nothing but still clears the draft and closes the
// panel.
func (s *Selector) Select(name string) bool {
	s.mu.Lock()
	name = tagname.Normalize(name)
	if !s.knownLocked(name) {
		s.mu.Unlock()
		return false
	}
	changed := s.addLocked(name)
	s.draft = ""
	if s.state != StateCreating {
		s.state = StateIdle
	}
	snapshot, notify := s.snapshotLocked(changed)
	s.mu.Unlock()
	notify(snapshot)
	return true
}

func (s *Selector) knownLocked(name string) bool {
	if name == "" {
		return false
	}
	if _, ok := s.created[name]; ok {
		return true
	}
	if slices.Contains(s.selected, name) {
		return true
	}
	return slices.ContainsFunc(s.pool, func(p string) bool { return tagname.Normalize(p) == name })
}

// Remove detaches name. The pool is not touched.
func (s *Selector) Remove(name string) {
	s.mu.Lock()
	name = tagname.Normalize(name)
	before := len(s.selected)
	s.selected = slices.DeleteFunc(s.selected, func(v string) bool { return v == name })
	snapshot, notify := s.snapshotLocked(len(s.selected) != before)
	s.mu.Unlock()
	notify(snapshot)
}

// Commit turns the draft into a tag. An already selected name only clears
// the draft. Anything else is created through the Backend first; it is
// attached only once creation succeeded, and the pool is refreshed after
// that. When creation fails the draft is kept so the user can try again.
func (s *Selector) Commit(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateCreating {
		s.mu.Unlock()
		return ErrBusy
	}
	name := tagname.Normalize(s.draft)
	if name == "" {
		s.mu.Unlock()
		return nil
	}
	if slices.Contains(s.selected, name) {
		s.draft = ""
		s.state = StateIdle
		s.mu.Unlock()
		return nil
	}
	prev := s.state
	s.state = StateCreating
	s.mu.Unlock()

	created, err := s.backend.CreateTag(ctx, name)
	if err != nil {
		s.logger.Error("create tag failed", "tag", name, "error", err)
		s.mu.Lock()
		s.state = prev
		s.mu.Unlock()
		return err
	}
	if created.Name != "" {
		name = created.Name
	}

	s.mu.Lock()
	s.created[name] = struct{}{}
	changed := s.addLocked(name)
	snapshot, notify := s.snapshotLocked(changed)
	s.mu.Unlock()
	notify(snapshot)

	s.refresh(ctx)

	s.mu.Lock()
	s.draft = ""
	s.state = StateIdle
	s.mu.Unlock()
	return nil
}

func (s *Selector) addLocked(name string) bool {
	if name == "" || slices.Contains(s.selected, name) {
		return false
	}
	s.selected = append(s.selected, name)
	return true
}

// snapshotLocked captures the selection for OnChange so the callback can run
// after the lock is released.
func (s *Selector) snapshotLocked(changed bool) ([]string, func([]string)) {
	if !changed || s.OnChange == nil {
		return nil, func([]string) {}
	}
	return slices.Clone(s.selected), s.OnChange
}

func (s *Selector) Selected() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.selected)
}

func (s *Selector) Pool() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.pool)
}

func (s *Selector) Draft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

func (s *Selector) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
