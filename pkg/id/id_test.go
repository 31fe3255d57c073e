package id

import (
	"math/rand"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratorUsesClock(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	g := NewGenerator(func() time.Time { return at })

	s, err := g.New()
	require.NoError(t, err)
	require.Len(t, s, 26)

	u, err := ulid.Parse(s)
	require.NoError(t, err)
	assert.Equal(t, ulid.Timestamp(at), u.Time())
}

func TestGeneratorMonotonicWithinMillisecond(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	g := NewGeneratorWithEntropy(func() time.Time { return at }, rand.New(rand.NewSource(1)))

	ids := make([]string, 100)
	for i := range ids {
		s, err := g.New()
		require.NoError(t, err)
		ids[i] = s
	}
	assert.True(t, sort.StringsAreSorted(ids))
	assert.Len(t, unique(ids), len(ids))
}

func TestGeneratorDeterministicWithSeed(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	clock := func() time.Time { return at }

	a, err := NewGeneratorWithEntropy(clock, rand.New(rand.NewSource(7))).New()
	require.NoError(t, err)
	b, err := NewGeneratorWithEntropy(clock, rand.New(rand.NewSource(7))).New()
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGeneratorConcurrent(t *testing.T) {
	t.Parallel()

	g := NewGenerator(nil)

	var (
		mu  sync.Mutex
		ids []string
		wg  sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s, err := g.New()
				assert.NoError(t, err)
				mu.Lock()
				ids = append(ids, s)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, unique(ids), 400)
}

func TestNew(t *testing.T) {
	t.Parallel()

	a, b := New(), New()
	assert.NotEqual(t, a, b)
	assert.Less(t, a, b)
}

func unique(ids []string) map[string]struct{} {
	m := make(map[string]struct{}, len(ids))
	for _, s := range ids {
		m[s] = struct{}{}
	}
	return m
}
