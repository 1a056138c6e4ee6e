package ingest_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iota-uz/campus-feed/pkg/ingest"
)

func TestMarkIfNew_FirstClaimWins(t *testing.T) {
	r := ingest.NewRegistry()

	fresh, divergent := r.MarkIfNew(ingest.KindSchool, "School A", "1 Main St")
	require.True(t, fresh)
	require.False(t, divergent)

	fresh, divergent = r.MarkIfNew(ingest.KindSchool, "School A", "1 Main St")
	require.False(t, fresh)
	require.False(t, divergent)

	fresh, divergent = r.MarkIfNew(ingest.KindSchool, "School A", "2 Other St")
	require.False(t, fresh)
	require.True(t, divergent)
}

func TestMarkIfNew_KeysAreScopedPerKind(t *testing.T) {
	r := ingest.NewRegistry()

	fresh, _ := r.MarkIfNew(ingest.KindSchool, "Chess", "")
	require.True(t, fresh)
	fresh, _ = r.MarkIfNew(ingest.KindTag, "Chess", "")
	require.True(t, fresh)
	require.Equal(t, 2, r.Len())
}

func TestMarkIfNew_ConcurrentClaims(t *testing.T) {
	r := ingest.NewRegistry()

	const workers = 32
	var wg sync.WaitGroup
	freshCount := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fresh, _ := r.MarkIfNew(ingest.KindUser, "a@b.c", "")
			freshCount <- fresh
		}()
	}
	wg.Wait()
	close(freshCount)

	total := 0
	for fresh := range freshCount {
		if fresh {
			total++
		}
	}
	require.Equal(t, 1, total)
	require.Equal(t, 1, r.Len())
}
