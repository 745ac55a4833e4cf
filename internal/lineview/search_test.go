package lineview

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sha1n/ghproxy/internal/domain"
)

const searchFixture = `package main

import "fmt"

func main() {
	fmt.Println("hello world")
}

func helper() string {
	return "hello again"
}
`

func TestSearch(t *testing.T) {
	t.Parallel()

	view := newTestView(t, newFakeReader(searchFixture), 16)

	res, err := view.Search(context.Background(), testHandle, "hello", 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), res.TotalHits)
	assert.Equal(t, 11, res.Total)
	require.Len(t, res.Matches, 2)
	assert.Equal(t, 5, res.Matches[0].Line)
	assert.Contains(t, res.Matches[0].Text, "hello world")
	assert.Equal(t, 9, res.Matches[1].Line)
	assert.Positive(t, res.Matches[0].Score)
}

func TestSearch_AllTermsRequired(t *testing.T) {
	t.Parallel()

	view := newTestView(t, newFakeReader(searchFixture), 50000)

	res, err := view.Search(context.Background(), testHandle, "hello world", 10)
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, 5, res.Matches[0].Line)
}

func TestSearch_Limit(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	for i := range 30 {
		fmt.Fprintf(&sb, "needle %d\n", i)
	}
	view := newTestView(t, newFakeReader(sb.String()), 64)

	res, err := view.Search(context.Background(), testHandle, "needle", 5)
	require.NoError(t, err)
	assert.Len(t, res.Matches, 5)
	assert.Equal(t, uint64(30), res.TotalHits)
	for i := 1; i < len(res.Matches); i++ {
		assert.Less(t, res.Matches[i-1].Line, res.Matches[i].Line)
	}
}

func TestSearch_NoMatches(t *testing.T) {
	t.Parallel()

	view := newTestView(t, newFakeReader(searchFixture), 50000)

	res, err := view.Search(context.Background(), testHandle, "nonexistent", 0)
	require.NoError(t, err)
	assert.Empty(t, res.Matches)
	assert.Equal(t, uint64(0), res.TotalHits)
}

func TestSearch_EmptyQuery(t *testing.T) {
	t.Parallel()

	reader := newFakeReader(searchFixture)
	view := newTestView(t, reader, 50000)

	_, err := view.Search(context.Background(), testHandle, "  ", 10)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.Equal(t, 0, reader.metaCalls)
}

func TestSearch_PropagatesNotFound(t *testing.T) {
	t.Parallel()

	reader := newFakeReader("")
	reader.metaErr = domain.ErrNotFound
	view := newTestView(t, reader, 50000)

	_, err := view.Search(context.Background(), testHandle, "x", 10)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
