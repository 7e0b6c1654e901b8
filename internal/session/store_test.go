// ABOUTME: Tests for the in-memory session store and per-record state.
// ABOUTME: Covers history capping, clear semantics, preferences, and concurrency.

package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_GetOrCreate(t *testing.T) {
	store := NewStore(0, nil)

	rec := store.GetOrCreate("s1")
	require.NotNil(t, rec)
	assert.Equal(t, "s1", rec.ID())
	assert.Equal(t, 1, store.Len())

	// Same id returns the same record
	again := store.GetOrCreate("s1")
	assert.Same(t, rec, again)
	assert.Equal(t, 1, store.Len())
}

func TestStore_Get_Missing(t *testing.T) {
	store := NewStore(0, nil)

	_, ok := store.Get("missing")
	assert.False(t, ok)
}

func TestRecord_CompleteTurn(t *testing.T) {
	store := NewStore(0, nil)
	rec := store.GetOrCreate("s1")

	rec.CompleteTurn("what is 2 + 2", "2 + 2 = 4", "math")

	assert.Equal(t, 1, rec.TurnCount())
	assert.Equal(t, "math", rec.LastAgent())

	history := rec.History()
	require.Len(t, history, 2)
	assert.Equal(t, RoleUser, history[0].Role)
	assert.Equal(t, "what is 2 + 2", history[0].Text)
	assert.Equal(t, RoleAssistant, history[1].Role)
	assert.Equal(t, "2 + 2 = 4", history[1].Text)
}

func TestRecord_CompleteTurn_EmptyAgentKeepsLastAgent(t *testing.T) {
	store := NewStore(0, nil)
	rec := store.GetOrCreate("s1")

	rec.CompleteTurn("list my repos", "here you go", "github")
	rec.CompleteTurn("show me the files", "which repository?", "")

	assert.Equal(t, 2, rec.TurnCount())
	assert.Equal(t, "github", rec.LastAgent())
}

func TestRecord_HistoryCap(t *testing.T) {
	store := NewStore(6, nil)
	rec := store.GetOrCreate("s1")

	for i := 0; i < 10; i++ {
		rec.CompleteTurn(fmt.Sprintf("question %d", i), fmt.Sprintf("answer %d", i), "echo")
	}

	history := rec.History()
	require.Len(t, history, 6)
	// Oldest entries dropped; the cap keeps the most recent turns.
	assert.Equal(t, "question 7", history[0].Text)
	assert.Equal(t, "answer 9", history[5].Text)
	// Turn count is not affected by the cap.
	assert.Equal(t, 10, rec.TurnCount())
}

func TestStore_ClearHistory_KeepsPreferences(t *testing.T) {
	store := NewStore(0, nil)
	rec := store.GetOrCreate("s1")
	rec.SetPreference("default_repo", "microsoft/vscode")
	rec.CompleteTurn("hello github", "hi", "github")

	store.ClearHistory("s1")

	assert.Empty(t, rec.History())
	assert.Equal(t, 0, rec.TurnCount())
	assert.Empty(t, rec.LastAgent())

	v, ok := rec.Preference("default_repo")
	require.True(t, ok)
	assert.Equal(t, "microsoft/vscode", v)
}

func TestStore_ClearHistory_MissingSessionIsNoop(t *testing.T) {
	store := NewStore(0, nil)
	store.ClearHistory("missing")
	assert.Equal(t, 0, store.Len())
}

func TestStore_Clear(t *testing.T) {
	store := NewStore(0, nil)
	store.GetOrCreate("s1")

	assert.True(t, store.Clear("s1"))
	_, ok := store.Get("s1")
	assert.False(t, ok)

	assert.False(t, store.Clear("s1"), "already removed")
	assert.False(t, store.Clear("never-existed"))
}

func TestRecord_PendingClarification(t *testing.T) {
	store := NewStore(0, nil)
	rec := store.GetOrCreate("s1")

	assert.Nil(t, rec.TakePendingClarification())

	rec.SetPendingClarification(&PendingClarification{
		Type:          "missing_repository",
		Suggestion:    "microsoft/vscode",
		PreferenceKey: "default_repo",
	})

	p := rec.TakePendingClarification()
	require.NotNil(t, p)
	assert.Equal(t, "microsoft/vscode", p.Suggestion)

	// Taking clears the wait.
	assert.Nil(t, rec.TakePendingClarification())
}

func TestRecord_ResetHistoryClearsPending(t *testing.T) {
	store := NewStore(0, nil)
	rec := store.GetOrCreate("s1")
	rec.SetPendingClarification(&PendingClarification{Type: "missing_repository"})

	rec.ResetHistory()

	assert.Nil(t, rec.TakePendingClarification())
}

func TestRecord_ClearPreferences(t *testing.T) {
	store := NewStore(0, nil)
	rec := store.GetOrCreate("s1")
	rec.SetPreference("default_repo", "golang/go")
	rec.CompleteTurn("q", "a", "github")

	rec.ClearPreferences()

	assert.Empty(t, rec.Preferences())
	// History untouched
	assert.Equal(t, 1, rec.TurnCount())
}

func TestStore_SetPreference_CreatesSession(t *testing.T) {
	store := NewStore(0, nil)

	store.SetPreference("s1", "default_repo", "golang/go")

	rec, ok := store.Get("s1")
	require.True(t, ok)
	v, ok := rec.Preference("default_repo")
	require.True(t, ok)
	assert.Equal(t, "golang/go", v)
}

func TestRecord_DebugToggle(t *testing.T) {
	store := NewStore(0, nil)
	rec := store.GetOrCreate("s1")

	assert.False(t, rec.Debug())
	rec.SetDebug(true)
	assert.True(t, rec.Debug())
}

func TestRecord_ConcurrentTurns(t *testing.T) {
	store := NewStore(200, nil)
	rec := store.GetOrCreate("s1")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec.CompleteTurn(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i), "echo")
			rec.SetPreference(fmt.Sprintf("k%d", i), "v")
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, rec.TurnCount())
	assert.Len(t, rec.History(), 100)
	assert.Len(t, rec.Preferences(), 50)
}

func TestStore_ConcurrentGetOrCreate(t *testing.T) {
	store := NewStore(0, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store.GetOrCreate(fmt.Sprintf("s%d", i%10))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, store.Len())
}
