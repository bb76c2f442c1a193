package cache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func byteCost(b []byte) int { return len(b) }

func TestLRU_EvictsByCost(t *testing.T) {
	c := NewLRU[uint32, []byte](10, byteCost)

	c.Set(1, make([]byte, 4))
	c.Set(2, make([]byte, 4))
	assert.Equal(t, 8, c.Used())

	// Touch 1 so 2 becomes the eviction candidate.
	_, ok := c.Get(1)
	require.True(t, ok)

	c.Set(3, make([]byte, 5))
	_, ok = c.Get(2)
	assert.False(t, ok)
	_, ok = c.Get(1)
	assert.True(t, ok)
	assert.Equal(t, 9, c.Used())
	assert.Equal(t, 2, c.Len())
}

func TestLRU_SkipsOversizedValues(t *testing.T) {
	c := NewLRU[uint32, []byte](4, byteCost)
	c.Set(1, []byte{1, 2})
	c.Set(2, make([]byte, 5))

	_, ok := c.Get(2)
	assert.False(t, ok)
	_, ok = c.Get(1)
	assert.True(t, ok, "existing entries survive an oversized insert")
}

func TestLRU_ReplaceUpdatesCost(t *testing.T) {
	c := NewLRU[string, []byte](10, byteCost)
	c.Set("a", make([]byte, 6))
	c.Set("a", make([]byte, 2))
	assert.Equal(t, 2, c.Used())
	assert.Equal(t, 1, c.Len())

	c.Remove("a")
	assert.Zero(t, c.Used())

	c.Set("b", []byte{1})
	c.Clear()
	assert.Zero(t, c.Len())
	assert.Zero(t, c.Used())
}

func TestLRU_DefaultCostCountsEntries(t *testing.T) {
	c := NewLRU[string, int](2, nil)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestLRU_ConcurrentAccess(t *testing.T) {
	c := NewLRU[int, int](64, nil)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				c.Set(g*1000+i, i)
				c.Get(g*1000 + i/2)
			}
		}(g)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 64)
}
