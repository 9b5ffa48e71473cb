package concurrent

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap_StoreLoad(t *testing.T) {
	m := NewMap[string, int]()
	m.Store("a", 1)

	val, ok := m.Load("a")
	assert.True(t, ok)
	assert.Equal(t, 1, val)

	_, ok = m.Load("missing")
	assert.False(t, ok)
}

func TestMap_Length(t *testing.T) {
	m := NewMap[string, int]()
	m.Store("a", 1)
	m.Store("b", 2)
	assert.Equal(t, 2, m.Length())
}

func TestMap_Delete(t *testing.T) {
	m := NewMap[string, int]()
	m.Store("a", 1)
	m.Delete("a")

	_, ok := m.Load("a")
	assert.False(t, ok)
	assert.Equal(t, 0, m.Length())

	// Deleting an absent key is a no-op, not an error.
	m.Delete("never-there")
}

func TestMap_DrainAll(t *testing.T) {
	m := NewMap[string, int]()
	m.Store("a", 1)
	m.Store("b", 2)

	drained := m.DrainAll()
	assert.Equal(t, map[string]int{"a": 1, "b": 2}, drained)
	assert.Equal(t, 0, m.Length())

	_, ok := m.Load("a")
	assert.False(t, ok)
}

func TestMap_Range(t *testing.T) {
	m := NewMap[string, int]()
	m.Store("a", 1)
	m.Store("b", 2)

	seen := make(map[string]int)
	m.Range(func(k string, v int) bool {
		seen[k] = v
		return true
	})
	assert.Equal(t, map[string]int{"a": 1, "b": 2}, seen)
}

func TestMap_Concurrent(t *testing.T) {
	m := NewMap[int, int]()
	var wg sync.WaitGroup

	for i := range 100 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			m.Store(n, n*10)
		}(i)
	}
	wg.Wait()

	require.Equal(t, 100, m.Length())
}
