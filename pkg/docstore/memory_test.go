package docstore

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testDoc struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"`
	Label string `json:"label,omitempty"`
	Count int    `json:"count"`
}

func TestMemoryCreateGet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Create(ctx, "docs", "a", testDoc{ID: "a", Kind: "widget", Count: 1}))

	raw, err := m.Get(ctx, "docs", "a")
	require.NoError(t, err)
	var got testDoc
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "widget", got.Kind)
	assert.Equal(t, 1, got.Count)

	_, err = m.Get(ctx, "docs", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryCreateDuplicate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Create(ctx, "docs", "a", testDoc{ID: "a"}))
	assert.ErrorIs(t, m.Create(ctx, "docs", "a", testDoc{ID: "a"}), ErrExists)
}

func TestMemoryMergeIsShallow(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Create(ctx, "docs", "a", testDoc{ID: "a", Kind: "widget", Label: "first", Count: 3}))
	require.NoError(t, m.Merge(ctx, "docs", "a", map[string]any{"label": "second"}))

	var got testDoc
	require.NoError(t, GetAs(ctx, m, "docs", "a", &got))
	assert.Equal(t, "second", got.Label)
	// untouched fields survive the merge
	assert.Equal(t, "widget", got.Kind)
	assert.Equal(t, 3, got.Count)

	assert.ErrorIs(t, m.Merge(ctx, "docs", "missing", map[string]any{"label": "x"}), ErrNotFound)
}

func TestMemoryQueryByField(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Create(ctx, "docs", "a", testDoc{ID: "a", Kind: "widget"}))
	require.NoError(t, m.Create(ctx, "docs", "b", testDoc{ID: "b", Kind: "gadget"}))
	require.NoError(t, m.Create(ctx, "docs", "c", testDoc{ID: "c", Kind: "widget"}))

	raws, err := m.Query(ctx, "docs", "kind", "widget")
	require.NoError(t, err)
	require.Len(t, raws, 2)

	ids := make([]string, 0, 2)
	for _, raw := range raws {
		var d testDoc
		require.NoError(t, json.Unmarshal(raw, &d))
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"a", "c"}, ids, "insertion order preserved")
}

func TestMemoryDeleteThenRecreate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Create(ctx, "docs", "a", testDoc{ID: "a", Kind: "widget"}))
	require.NoError(t, m.Delete(ctx, "docs", "a"))

	_, err := m.Get(ctx, "docs", "a")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.Create(ctx, "docs", "a", testDoc{ID: "a", Kind: "widget"}))
	raws, err := m.Query(ctx, "docs", "kind", "widget")
	require.NoError(t, err)
	assert.Len(t, raws, 1, "recreated document appears exactly once")
}
