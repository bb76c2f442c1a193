package mainloop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queuePost(queue *[]func()) func(func()) bool {
	return func(fn func()) bool {
		*queue = append(*queue, fn)
		return true
	}
}

func TestCoalescer_MergesProgressBurst(t *testing.T) {
	var queue []func()
	c := NewCoalescer(queuePost(&queue))

	progress := 0
	for p := 10; p <= 100; p += 10 {
		c.Post("progress:tab-1", func() { progress = p })
	}

	require.Len(t, queue, 1)
	queue[0]()
	assert.Equal(t, 100, progress)
}

func TestCoalescer_KeysAreIndependent(t *testing.T) {
	var queue []func()
	c := NewCoalescer(queuePost(&queue))

	got := map[string]int{}
	c.Post("progress:a", func() { got["a"] = 1 })
	c.Post("progress:b", func() { got["b"] = 2 })

	require.Len(t, queue, 2)
	for _, fn := range queue {
		fn()
	}
	assert.Equal(t, map[string]int{"a": 1, "b": 2}, got)
}

func TestCoalescer_CancelAndDestroyDropWork(t *testing.T) {
	var queue []func()
	c := NewCoalescer(queuePost(&queue))

	ran := false
	c.Post("progress:closed-tab", func() { ran = true })
	c.Cancel("progress:closed-tab")
	queue[0]()
	assert.False(t, ran)

	c.Post("progress:other", func() { ran = true })
	c.Destroy()
	queue[1]()
	assert.False(t, ran)

	c.Post("progress:other", func() { ran = true })
	assert.Len(t, queue, 2)
}

func TestNewCoalescer_PanicsOnNilPost(t *testing.T) {
	assert.Panics(t, func() { _ = NewCoalescer(nil) })
}
