package debounce

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncer_coalesces(t *testing.T) {
	d := New(30 * time.Millisecond)

	var calls int32
	var last int32
	for i := 1; i <= 5; i++ {
		i := int32(i)
		d.Schedule("t1", func() {
			atomic.AddInt32(&calls, 1)
			atomic.StoreInt32(&last, i)
		})
	}
	assert.Equal(t, 1, d.Pending())

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(5), atomic.LoadInt32(&last))
	assert.Equal(t, 0, d.Pending())
}

func TestDebouncer_keysAreIndependent(t *testing.T) {
	d := New(10 * time.Millisecond)

	var mu sync.Mutex
	got := make(map[string]int)
	for _, key := range []string{"a", "b", "a", "c", "b"} {
		key := key
		d.Schedule(key, func() {
			mu.Lock()
			got[key]++
			mu.Unlock()
		})
	}

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 3
	}, time.Second, 5*time.Millisecond)
	mu.Lock()
	assert.Equal(t, map[string]int{"a": 1, "b": 1, "c": 1}, got)
	mu.Unlock()
}

func TestDebouncer_Flush(t *testing.T) {
	d := New(time.Hour)

	var calls int32
	d.Schedule("t1", func() { atomic.AddInt32(&calls, 1) })
	d.Schedule("t2", func() { atomic.AddInt32(&calls, 1) })

	d.Flush()
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, 0, d.Pending())

	assert.False(t, d.Schedule("t3", func() { atomic.AddInt32(&calls, 1) }))
}
