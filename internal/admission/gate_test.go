package admission

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGateAdmitsOnce(t *testing.T) {
	g := NewGate()

	assert.True(t, g.Admit("mintA"))
	assert.True(t, g.Processing())
	assert.False(t, g.Admit("mintB"), "busy gate must reject")

	g.Release()
	assert.False(t, g.Processing())
	assert.False(t, g.Admit("mintA"), "seen asset must never be re-admitted")
	assert.True(t, g.Admit("mintB"))
}

func TestGateRejectedWhileBusyIsNotRecorded(t *testing.T) {
	g := NewGate()
	assert.True(t, g.Admit("first"))
	assert.False(t, g.Admit("second"))
	assert.False(t, g.Seen("second"))

	g.Release()
	assert.True(t, g.Admit("second"))
}

func TestGateSeenSetOnlyGrows(t *testing.T) {
	g := NewGate()
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("mint-%d", i)
		assert.True(t, g.Admit(id))
		g.Release()
		assert.Equal(t, i+1, g.Len())
	}
	for i := 0; i < 5; i++ {
		assert.True(t, g.Seen(fmt.Sprintf("mint-%d", i)))
	}
}

func TestGateConcurrentAdmit(t *testing.T) {
	g := NewGate()
	var admitted int32
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if g.Admit(fmt.Sprintf("mint-%d", i%10)) {
				atomic.AddInt32(&admitted, 1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), admitted)
	assert.Equal(t, 1, g.Len())
}
