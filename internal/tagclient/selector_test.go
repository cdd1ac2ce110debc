package tagclient

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mounted(t *testing.T, b Backend, selected ...string) *Selector {
	t.Helper()
	s := NewSelector(b, selected, nil)
	select {
	case <-s.Mount(context.Background()):
	case <-time.After(5 * time.Second):
		t.Fatal("pool load did not finish")
	}
	return s
}

func TestSuggestionsFilterScenario(t *testing.T) {
	s := mounted(t, newMemBackend("design", "dev", "marketing"), "dev")

	s.SetDraft("de")
	assert.Equal(t, StateSuggesting, s.State())
	assert.Equal(t, []string{"design"}, s.Suggestions())

	s.SetDraft("DE")
	assert.Equal(t, []string{"design"}, s.Suggestions())
}

func TestSuggestionsCapped(t *testing.T) {
	var names []string
	for i := 0; i < 25; i++ {
		names = append(names, fmt.Sprintf("tag%02d", i))
	}
	s := mounted(t, newMemBackend(names...))

	s.SetDraft("tag")
	got := s.Suggestions()
	require.Len(t, got, MaxSuggestions)
	assert.Equal(t, "tag00", got[0])
	assert.Equal(t, "tag09", got[9])
}

func TestSelectIsSetLike(t *testing.T) {
	s := mounted(t, newMemBackend("design", "dev"))

	s.SetDraft("de")
	s.Select("design")
	assert.Equal(t, []string{"design"}, s.Selected())
	assert.Empty(t, s.Draft())
	assert.Equal(t, StateIdle, s.State())

	s.SetDraft("des")
	s.Select("design")
	assert.Equal(t, []string{"design"}, s.Selected())
	assert.Empty(t, s.Draft())

	s.Select("dev")
	assert.Equal(t, []string{"design", "dev"}, s.Selected())
}

func TestCommitCreatesThenRefreshes(t *testing.T) {
	b := newMemBackend("design")
	s := mounted(t, b)

	var changes [][]string
	s.OnChange = func(sel []string) { changes = append(changes, sel) }

	s.SetDraft("  Research ")
	require.True(t, s.CanCreate())
	require.NoError(t, s.Commit(context.Background()))

	assert.Equal(t, []string{"research"}, s.Selected())
	assert.Empty(t, s.Draft())
	assert.Equal(t, StateIdle, s.State())
	assert.Equal(t, []string{"design", "research"}, s.Pool())
	assert.Equal(t, [][]string{{"research"}}, changes)
	// Initial load, creation, then the refresh strictly after it.
	assert.Equal(t, []string{"list", "create:research", "list"}, b.Events())
}

func TestCommitFailureKeepsDraft(t *testing.T) {
	b := newMemBackend("design")
	b.failOn["research"] = errOffline
	s := mounted(t, b, "design")

	s.SetDraft("Research")
	err := s.Commit(context.Background())
	require.ErrorIs(t, err, errOffline)

	assert.Equal(t, "Research", s.Draft())
	assert.Equal(t, []string{"design"}, s.Selected())
	assert.Equal(t, StateSuggesting, s.State())
	assert.Equal(t, []string{"design"}, s.Pool())

	delete(b.failOn, "research")
	require.NoError(t, s.Commit(context.Background()))
	assert.Equal(t, []string{"design", "research"}, s.Selected())
}

func TestCommitAlreadySelectedIsNoop(t *testing.T) {
	b := newMemBackend("design")
	s := mounted(t, b, "design")

	s.SetDraft(" DESIGN ")
	assert.False(t, s.CanCreate())
	require.NoError(t, s.Commit(context.Background()))

	assert.Empty(t, s.Draft())
	assert.Equal(t, []string{"design"}, s.Selected())
	assert.Equal(t, []string{"list"}, b.Events())
}

func TestCommitEmptyDraftIsNoop(t *testing.T) {
	b := newMemBackend()
	s := mounted(t, b)

	s.SetDraft("   ")
	require.NoError(t, s.Commit(context.Background()))
	assert.Empty(t, s.Selected())
	assert.Equal(t, []string{"list"}, b.Events())
}

func TestCanCreate(t *testing.T) {
	s := mounted(t, newMemBackend("design", "dev"), "dev")

	cases := map[string]bool{
		"":         false,
		"   ":      false,
		"Design":   false,
		" dev ":    false,
		"devops":   true,
		"New  Tag": true,
	}
	for draft, expect := range cases {
		s.SetDraft(draft)
		assert.Equal(t, expect, s.CanCreate(), "draft %q", draft)
	}
}

func TestRemoveLeavesPool(t *testing.T) {
	s := mounted(t, newMemBackend("design", "dev"), "design", "dev")

	s.Remove("design")
	assert.Equal(t, []string{"dev"}, s.Selected())
	assert.Equal(t, []string{"design", "dev"}, s.Pool())

	s.Remove("missing")
	assert.Equal(t, []string{"dev"}, s.Selected())
}

func TestDismissAndFocus(t *testing.T) {
	s := mounted(t, newMemBackend("design"), "dev")

	s.SetDraft("des")
	s.Dismiss()
	assert.Equal(t, StateIdle, s.State())
	assert.Equal(t, "des", s.Draft())
	assert.Equal(t, []string{"dev"}, s.Selected())

	s.Focus()
	assert.Equal(t, StateSuggesting, s.State())

	s.SetDraft("")
	assert.Equal(t, StateIdle, s.State())
	s.Focus()
	assert.Equal(t, StateIdle, s.State())
}

func TestMountFailureLeavesEmptyPool(t *testing.T) {
	b := newMemBackend("design")
	b.listErr = errOffline
	s := mounted(t, b)

	assert.Empty(t, s.Pool())
	s.SetDraft("design")
	assert.Empty(t, s.Suggestions())
	assert.True(t, s.CanCreate())
}

func TestCommitWhileCreatingIsBusy(t *testing.T) {
	b := newMemBackend()
	s := mounted(t, b)
	b.block = make(chan struct{})

	s.SetDraft("first")
	errc := make(chan error, 1)
	go func() { errc <- s.Commit(context.Background()) }()

	require.Eventually(t, func() bool { return s.State() == StateCreating }, 2*time.Second, 5*time.Millisecond)
	s.SetDraft("second")
	assert.Equal(t, StateCreating, s.State())
	assert.ErrorIs(t, s.Commit(context.Background()), ErrBusy)

	close(b.block)
	require.NoError(t, <-errc)
	assert.Equal(t, []string{"first"}, s.Selected())
	assert.Equal(t, StateIdle, s.State())
}

func TestSelectedWithinPoolOrCreated(t *testing.T) {
	b := newMemBackend("design", "dev")
	s := mounted(t, b)

	assert.True(t, s.Select("design"))
	assert.False(t, s.Select("ghost"))
	s.SetDraft("brand new")
	require.NoError(t, s.Commit(context.Background()))

	pool := map[string]bool{}
	for _, n := range s.Pool() {
		pool[n] = true
	}
	for _, n := range s.Selected() {
		assert.True(t, pool[n], "%q selected but not known", n)
	}
}

func TestSelectIgnoresUnknownName(t *testing.T) {
	s := mounted(t, newMemBackend("design"))
	var changes int
	s.OnChange = func([]string) { changes++ }

	s.SetDraft("gh")
	assert.False(t, s.Select("ghost"))
	assert.False(t, s.Select("   "))
	assert.Empty(t, s.Selected())
	assert.Equal(t, "gh", s.Draft())
	assert.Equal(t, StateSuggesting, s.State())
	assert.Zero(t, changes)

	assert.True(t, s.Select(" DESIGN "))
	assert.Equal(t, []string{"design"}, s.Selected())
}

func TestCreatedNameSelectableWithoutRefresh(t *testing.T) {
	b := newMemBackend("design")
	s := mounted(t, b)

	b.mu.Lock()
	b.listErr = errOffline
	b.mu.Unlock()

	s.SetDraft("research")
	require.NoError(t, s.Commit(context.Background()))
	assert.Equal(t, []string{"design"}, s.Pool())

	s.Remove("research")
	assert.Empty(t, s.Selected())
	assert.True(t, s.Select("research"))
	assert.Equal(t, []string{"research"}, s.Selected())
}

func TestNewSelectorNormalizesInitialSelection(t *testing.T) {
	s := NewSelector(newMemBackend(), []string{" Design", "design", "", "DEV"}, nil)
	assert.Equal(t, []string{"design", "dev"}, s.Selected())
}
