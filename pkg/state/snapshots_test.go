package state

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestSnapshotStore(t *testing.T) *SnapshotStore {
	t.Helper()
	store, err := OpenSnapshotStore(context.Background(), filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSnapshotStoreSaveAndLatest(t *testing.T) {
	store := openTestSnapshotStore(t)
	ctx := context.Background()

	latest, err := store.Latest(ctx, "session-1")
	require.NoError(t, err)
	assert.Nil(t, latest)

	first := map[string]map[string]any{"calculator": {"history": []any{}}}
	second := map[string]map[string]any{"calculator": {"history": []any{"2 + 2 = 4"}}}
	delta := json.RawMessage(`[{"op":"add","path":"/history/0","value":"2 + 2 = 4"}]`)

	require.NoError(t, store.Save(ctx, "session-1", first, nil))
	require.NoError(t, store.Save(ctx, "session-1", second, delta))

	latest, err = store.Latest(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, second, latest)
}

func TestSnapshotStoreHistory(t *testing.T) {
	store := openTestSnapshotStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "session-1", map[string]map[string]any{"a": {}}, nil))
	require.NoError(t, store.Save(ctx, "session-1", map[string]map[string]any{"a": {"x": true}},
		json.RawMessage(`[{"op":"add","path":"/x","value":true}]`)))
	require.NoError(t, store.Save(ctx, "session-2", map[string]map[string]any{"b": {}}, nil))

	history, err := store.History(ctx, "session-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.False(t, history[0].Delta.Valid)
	assert.True(t, history[1].Delta.Valid)
}

func TestSnapshotRoundTripThroughStore(t *testing.T) {
	store := openTestSnapshotStore(t)
	ctx := context.Background()

	s, err := NewStore([]Descriptor{calculatorDescriptor()})
	require.NoError(t, err)
	require.NoError(t, s.Commit("calculator", map[string]any{"history": []any{"2 + 2 = 4"}}))

	snapshot, err := s.Snapshot()
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, "session-1", snapshot, nil))

	restored, err := store.Latest(ctx, "session-1")
	require.NoError(t, err)

	fresh, err := NewStore([]Descriptor{calculatorDescriptor()})
	require.NoError(t, err)
	require.NoError(t, fresh.Restore(restored))

	value, err := fresh.GetNamespace("calculator")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"history": []any{"2 + 2 = 4"}}, value)
}
