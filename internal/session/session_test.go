package session

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/mdschema/internal/doctree"
	"github.com/dgallion1/mdschema/internal/parser"
)

func newStore(t *testing.T, ttl time.Duration, max int) *Store {
	t.Helper()
	return NewStore(ttl, max, nil, parser.WithMinBlock(10))
}

func TestStore_CreateGetDelete(t *testing.T) {
	st := newStore(t, time.Hour, 0)
	s, err := st.Create(parser.Config{})
	require.NoError(t, err)
	require.NotEmpty(t, s.ID)

	got, err := st.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Equal(t, 1, st.Len())

	require.NoError(t, st.Delete(s.ID))
	_, err = st.Get(s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, st.Delete(s.ID), ErrNotFound)
}

func TestStore_MaxSessions(t *testing.T) {
	st := newStore(t, time.Hour, 2)
	for i := 0; i < 2; i++ {
		_, err := st.Create(parser.Config{})
		require.NoError(t, err)
	}
	_, err := st.Create(parser.Config{})
	assert.ErrorIs(t, err, ErrFull)
}

func TestStore_Cleanup(t *testing.T) {
	st := newStore(t, time.Minute, 0)
	old, err := st.Create(parser.Config{})
	require.NoError(t, err)
	fresh, err := st.Create(parser.Config{})
	require.NoError(t, err)

	old.mu.Lock()
	old.UpdatedAt = time.Now().Add(-2 * time.Minute)
	old.mu.Unlock()

	assert.Equal(t, 1, st.Cleanup())
	_, err = st.Get(old.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = st.Get(fresh.ID)
	assert.NoError(t, err)
}

func TestStore_FullStoreEvictsExpired(t *testing.T) {
	st := newStore(t, time.Minute, 1)
	old, err := st.Create(parser.Config{})
	require.NoError(t, err)
	old.mu.Lock()
	old.UpdatedAt = time.Now().Add(-time.Hour)
	old.mu.Unlock()

	_, err = st.Create(parser.Config{})
	assert.NoError(t, err)
}

func TestSession_AppendStreams(t *testing.T) {
	st := newStore(t, time.Hour, 0)
	s, err := st.Create(parser.Config{})
	require.NoError(t, err)

	u, err := s.Append("# Title\n\n**bo")
	require.NoError(t, err)
	assert.Equal(t, 1, u.Seq)
	require.Len(t, u.Schema, 2)

	para := u.Schema[1].(*doctree.Element)
	bold := para.Children[len(para.Children)-1].(*doctree.Leaf)
	assert.True(t, bold.Bold)
	assert.True(t, bold.IsUnfinished())

	u, err = s.Append("ld** text")
	require.NoError(t, err)
	assert.Equal(t, 2, u.Seq)
	para = u.Schema[1].(*doctree.Element)
	assert.Equal(t, "bold text", doctree.PlainText(para))
	assert.Equal(t, "# Title\n\n**bold** text", s.Markdown())
}

func TestSession_ReusesCacheAcrossAppends(t *testing.T) {
	st := newStore(t, time.Hour, 0)
	s, err := st.Create(parser.Config{})
	require.NoError(t, err)

	_, err = s.Append("First paragraph is settled.\n\nsecond block")
	require.NoError(t, err)
	_, err = s.Append(" keeps growing")
	require.NoError(t, err)
	assert.EqualValues(t, 1, s.parser.CacheStats().Hits)
}

func TestSession_ReplaceAndFinish(t *testing.T) {
	st := newStore(t, time.Hour, 0)
	s, err := st.Create(parser.Config{})
	require.NoError(t, err)

	_, err = s.Append("draft")
	require.NoError(t, err)
	u, err := s.Replace("final")
	require.NoError(t, err)
	assert.Equal(t, "final", doctree.PlainText(u.Schema[0]))

	done := s.Finish()
	assert.Equal(t, u.Seq, done.Seq)
	_, err = s.Append("more")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Replace("other")
	assert.ErrorIs(t, err, ErrClosed)

	snap := s.Snapshot()
	assert.True(t, snap.Done)
	assert.Equal(t, len("final"), snap.Bytes)
	assert.Equal(t, 1, snap.Tokens)
}

func TestSession_SnapshotBeforeParse(t *testing.T) {
	st := newStore(t, time.Hour, 0)
	s, err := st.Create(parser.Config{})
	require.NoError(t, err)
	snap := s.Snapshot()
	assert.Equal(t, 0, snap.Seq)
	assert.Equal(t, doctree.Nodes{doctree.EmptyParagraph()}, snap.Schema)
}

func TestSession_ConcurrentAppends(t *testing.T) {
	st := newStore(t, time.Hour, 0)
	s, err := st.Create(parser.Config{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Append("x")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, strings.Repeat("x", 8), s.Markdown())
	assert.Equal(t, 8, s.Snapshot().Seq)
}
