package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchSeed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		keyword   string
		wantIDs   []int64
		wantEmpty bool
	}{
		{name: "name match", keyword: "플래너", wantIDs: []int64{1, 3}},
		{name: "description match", keyword: "뽀모도로", wantIDs: []int64{2}},
		{name: "tag match", keyword: "선물", wantIDs: []int64{4}},
		{name: "case insensitive", keyword: "tech", wantEmpty: true}, // category is not searched
		{name: "no match", keyword: "노트북", wantEmpty: true},
		{name: "blank keyword", keyword: "   ", wantEmpty: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := searchSeed(tt.keyword)
			if tt.wantEmpty {
				assert.Empty(t, got)
				return
			}

			ids := make([]int64, 0, len(got))
			for _, p := range got {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

// brokenDB fails every call, simulating an unreachable database.
type brokenDB struct{}

func (brokenDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("connection refused")
}

func (brokenDB) QueryRow(context.Context, string, ...any) pgx.Row {
	panic("not used")
}

func (brokenDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("connection refused")
}

func TestSearchFallsBackWhenDatabaseIsDown(t *testing.T) {
	t.Parallel()

	store := New(brokenDB{}, nil)

	products, err := store.SearchByKeyword(context.Background(), "플래너")
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "시그니처 플래너", products[0].Name)
	assert.Equal(t, "굿노트 디지털 플래너", products[1].Name)
}

func TestSearchSeedReturnsCopies(t *testing.T) {
	t.Parallel()

	first := searchSeed("타이머")
	require.Len(t, first, 1)
	first[0].Stock = 0
	first[0].Tags[0] = "mutated"

	second := searchSeed("타이머")
	require.Len(t, second, 1)
	assert.Equal(t, 18, second[0].Stock)
	assert.Equal(t, "타이머", second[0].Tags[0])
}
