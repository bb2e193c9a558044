// Package worker 提供有界的异步任务协程池
package worker

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// Task 异步任务
type Task func()

// Stats 协程池统计
type Stats struct {
	Submitted int64
	Executed  int64
	Failed    int64
	Dropped   int64
}

// Pool 协程池
type Pool struct {
	workers int
	queue   chan Task
	wg      sync.WaitGroup

	mu      sync.RWMutex
	stopped bool

	submitted atomic.Int64
	executed  atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

// NewPool 创建并启动协程池
func NewPool(workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU() * 2
	}
	if queueSize <= 0 {
		queueSize = 1000
	}

	p := &Pool{
		workers: workers,
		queue:   make(chan Task, queueSize),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	log.Info().Int("workers", workers).Msg("Async worker pool started")
	return p
}

// Submit 提交任务（非阻塞，队列满或已停止时丢弃）
func (p *Pool) Submit(task Task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		p.dropped.Add(1)
		return false
	}

	select {
	case p.queue <- task:
		p.submitted.Add(1)
		return true
	default:
		p.dropped.Add(1)
		log.Warn().Msg("Worker pool queue is full, task dropped")
		return false
	}
}

// TrySubmit 尝试提交任务，可配置重试次数和间隔
func (p *Pool) TrySubmit(task Task, retries int, interval time.Duration) bool {
	for i := 0; i <= retries; i++ {
		if i > 0 {
			time.Sleep(interval)
		}
		if p.Submit(task) {
			return true
		}
	}
	return false
}

// Stop 停止接收新任务，等待队列中的任务执行完毕
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	log.Info().Msg("Async worker pool stopped")
}

// GetStats 返回统计信息
func (p *Pool) GetStats() Stats {
	return Stats{
		Submitted: p.submitted.Load(),
		Executed:  p.executed.Load(),
		Failed:    p.failed.Load(),
		Dropped:   p.dropped.Load(),
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.queue {
		p.execute(task)
	}
}

// execute 执行任务并捕获 panic
func (p *Pool) execute(task Task) {
	defer func() {
		p.executed.Add(1)
		if r := recover(); r != nil {
			p.failed.Add(1)
			log.Error().Interface("panic", r).Msg("Panic recovered in async task")
		}
	}()
	task()
}
