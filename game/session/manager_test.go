package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/knightboard/game/board"
	"github.com/wricardo/knightboard/game/engine"
)

func testRules(t *testing.T) *engine.Rules {
	t.Helper()
	rules, err := engine.NewRules(board.MustParse("S . .\n. B .\n. . E"))
	require.NoError(t, err)
	return rules
}

func TestManager_Create(t *testing.T) {
	m := NewManager()

	tests := []struct {
		name    string
		id      string
		wantErr error
	}{
		{name: "generated id", id: ""},
		{name: "explicit id", id: "alpha"},
		{name: "duplicate id", id: "alpha", wantErr: ErrSessionAlreadyExists},
		{name: "duplicate id differing in case", id: "ALPHA", wantErr: ErrSessionAlreadyExists},
		{name: "invalid id", id: "../etc", wantErr: ErrInvalidSessionID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess, err := m.Create(tt.id, "small", testRules(t))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, sess.ID)
			assert.Equal(t, "small", sess.BoardName)
			assert.False(t, sess.CreatedAt.IsZero())
		})
	}

	_, err := m.Create("nil-rules", "small", nil)
	assert.Error(t, err)
}

func TestManager_Get(t *testing.T) {
	m := NewManager()
	created, err := m.Create("Mixed", "small", testRules(t))
	require.NoError(t, err)

	got, err := m.Get("mixed")
	require.NoError(t, err)
	assert.Same(t, created, got)

	_, err = m.Get("absent")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.Get("../../x")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManager_Delete(t *testing.T) {
	m := NewManager()
	_, err := m.Create("gone", "small", testRules(t))
	require.NoError(t, err)

	require.NoError(t, m.Delete("GONE"))
	assert.Equal(t, 0, m.Count())
	assert.ErrorIs(t, m.Delete("gone"), ErrSessionNotFound)
	assert.ErrorIs(t, m.DeleteFromMemory("gone"), ErrSessionNotFound)
}

func TestManager_List(t *testing.T) {
	m := NewManager()
	for i := 0; i < 3; i++ {
		_, err := m.Create(fmt.Sprintf("s%d", i), "small", testRules(t))
		require.NoError(t, err)
	}
	assert.Len(t, m.List(), 3)
	assert.Equal(t, 3, m.Count())
}

func TestManager_UpdateLastAccessed(t *testing.T) {
	m := NewManager()
	sess, err := m.Create("touch", "small", testRules(t))
	require.NoError(t, err)

	before := sess.LastAccessedAt
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, m.UpdateLastAccessed("touch"))
	assert.True(t, sess.LastAccessedAt.After(before))

	assert.ErrorIs(t, m.UpdateLastAccessed("absent"), ErrSessionNotFound)
}

func TestManager_CleanupExpired(t *testing.T) {
	m := NewManager()
	old, err := m.Create("old", "small", testRules(t))
	require.NoError(t, err)
	_, err = m.Create("fresh", "small", testRules(t))
	require.NoError(t, err)
	old.LastAccessedAt = time.Now().Add(-2 * time.Hour)

	assert.Equal(t, 1, m.CleanupExpiredSessions(time.Hour))
	_, err = m.Get("old")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.Get("fresh")
	assert.NoError(t, err)
}

func TestManager_SessionIDGeneration(t *testing.T) {
	m := NewManager()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		sess, err := m.Create("", "small", testRules(t))
		require.NoError(t, err)
		assert.Len(t, sess.ID, 4)
		assert.False(t, seen[sess.ID], "duplicate id %s", sess.ID)
		seen[sess.ID] = true
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	m := NewManager()
	rules := testRules(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("c%d", i)
			_, err := m.Create(id, "small", rules.Clone())
			assert.NoError(t, err)
			_, err = m.Get(id)
			assert.NoError(t, err)
			assert.NoError(t, m.UpdateLastAccessed(id))
			m.List()
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 20, m.Count())
}

func TestValidID(t *testing.T) {
	assert.True(t, validID("ab12"))
	assert.True(t, validID("my-session_2"))
	assert.False(t, validID(""))
	assert.False(t, validID("a/b"))
	assert.False(t, validID("a.b"))
}
