package worker

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestPanicRecovery 测试 panic 不影响后续任务
func TestPanicRecovery(t *testing.T) {
	pool := NewPool(2, 10)

	var completed int32
	panicTask := func() { panic("intentional panic for testing") }
	normalTask := func() { atomic.AddInt32(&completed, 1) }

	assert.True(t, pool.Submit(panicTask))
	assert.True(t, pool.Submit(panicTask))
	for i := 0; i < 3; i++ {
		assert.True(t, pool.Submit(normalTask))
	}

	pool.Stop()

	assert.Equal(t, int32(3), atomic.LoadInt32(&completed))
	stats := pool.GetStats()
	assert.Equal(t, int64(2), stats.Failed)
	assert.Equal(t, int64(5), stats.Executed)
}

// TestGracefulShutdown 测试关闭时等待正在执行的任务
func TestGracefulShutdown(t *testing.T) {
	pool := NewPool(2, 10)

	var completed int32
	var started sync.WaitGroup
	started.Add(1)

	pool.Submit(func() {
		started.Done()
		time.Sleep(200 * time.Millisecond)
		atomic.AddInt32(&completed, 1)
	})
	started.Wait()

	begin := time.Now()
	pool.Stop()

	assert.GreaterOrEqual(t, time.Since(begin), 150*time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&completed))
}

// TestSubmitAfterStop 测试停止后提交被拒绝
func TestSubmitAfterStop(t *testing.T) {
	pool := NewPool(1, 1)
	pool.Stop()
	pool.Stop()

	assert.False(t, pool.Submit(func() {}))
	assert.Equal(t, int64(1), pool.GetStats().Dropped)
}

// TestQueueFull 测试队列满时丢弃
func TestQueueFull(t *testing.T) {
	pool := NewPool(1, 1)
	block := make(chan struct{})
	var started sync.WaitGroup
	started.Add(1)

	pool.Submit(func() {
		started.Done()
		<-block
	})
	started.Wait()

	assert.True(t, pool.Submit(func() {}))
	assert.False(t, pool.Submit(func() {}))
	assert.False(t, pool.TrySubmit(func() {}, 1, time.Millisecond))

	close(block)
	pool.Stop()
	assert.Equal(t, int64(3), pool.GetStats().Dropped)
}
