package snapshot

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type state struct {
	cycle int
	items []string
}

func TestSlotEmpty(t *testing.T) {
	s := New[state]()

	assert.Nil(t, s.Load())
	assert.False(t, s.Ready())
	assert.True(t, s.UpdatedAt().IsZero())
	assert.Equal(t, uint64(0), s.Generation())
}

func TestSlotStoreReplaces(t *testing.T) {
	s := New[state]()

	first := &state{cycle: 1, items: []string{"a"}}
	s.Store(first)
	require.True(t, s.Ready())
	assert.Same(t, first, s.Load())

	second := &state{cycle: 2, items: []string{"b", "c"}}
	s.Store(second)
	assert.Same(t, second, s.Load())
	assert.Equal(t, uint64(2), s.Generation())
	assert.False(t, s.UpdatedAt().IsZero())

	// a reader holding the first value keeps a consistent view
	assert.Equal(t, []string{"a"}, first.items)
}

func TestSlotConcurrentReaders(t *testing.T) {
	s := New[state]()
	s.Store(&state{cycle: 0, items: []string{}})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				v := s.Load()
				// every observed value is internally consistent
				if len(v.items) != v.cycle {
					t.Errorf("inconsistent snapshot: cycle=%d items=%d", v.cycle, len(v.items))
					return
				}
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for c := 1; c <= 100; c++ {
			items := make([]string, c)
			s.Store(&state{cycle: c, items: items})
		}
	}()

	wg.Wait()
	assert.Equal(t, 100, s.Load().cycle)
}
