package services

import (
	"errors"
	"sync"
	"zero-tags/logger"
)

const (
	// DefaultWorkers 是工作池默认的 worker 数量
	DefaultWorkers = 4
	// DefaultQueueSize 是工作池默认的队列长度
	DefaultQueueSize = 64
)

// ErrPoolClosed 表示工作池已关闭，不再接受新任务。
var ErrPoolClosed = errors.New("工作池已关闭")

// WorkerPool 是固定数量 worker 加有界队列的后台任务池。
// 每个任务只会被执行一次，任务中的 panic 会被恢复并记录，不会影响其他任务。
type WorkerPool struct {
	tasks  chan func()
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// NewWorkerPool 创建并启动一个工作池。
func NewWorkerPool(workers, queueSize int) *WorkerPool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if queueSize < 0 {
		queueSize = DefaultQueueSize
	}
	p := &WorkerPool{tasks: make(chan func(), queueSize)}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

// Submit 把任务放入队列，队列已满时阻塞。
// 工作池关闭后返回 ErrPoolClosed。
func (p *WorkerPool) Submit(task func()) error {
	if task == nil {
		return errors.New("任务不能为空")
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	p.tasks <- task
	return nil
}

// Close 停止接受新任务，并等待队列中的任务全部执行完毕。
func (p *WorkerPool) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.run(task)
	}
}

func (p *WorkerPool) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("后台任务发生 panic: %v", r)
		}
	}()
	task()
}
