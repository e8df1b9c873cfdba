package world

import (
	"context"
	"sync"
	"time"

	"github.com/annel0/tileworld/internal/vec"
	"golang.org/x/sync/errgroup"
)

// GenerationTask задача генерации одного чанка
type GenerationTask struct {
	Coord     vec.Vec2
	Submitted time.Time
}

// GenerationResult завершенная задача
type GenerationResult struct {
	Coord     vec.Vec2
	Data      *ChunkData
	FromCache bool
	Elapsed   time.Duration
}

// workFunc выполняет задачу на воркере
type workFunc func(ctx context.Context, task GenerationTask) GenerationResult

// pool ограниченный пул воркеров генерации.
// trySubmit и poll никогда не блокируют вызывающий тик.
// Канал результатов вмещает queueSize+workers значений: если у потребителя
// не больше queueSize задач в работе, воркер никогда не ждет на отправке.
type pool struct {
	jobs    chan GenerationTask
	results chan GenerationResult
	group   *errgroup.Group
	cancel  context.CancelFunc

	closeOnce sync.Once
	closed    bool
}

func newPool(parent context.Context, workers, queueSize int, work workFunc) *pool {
	ctx, cancel := context.WithCancel(parent)
	group, gctx := errgroup.WithContext(ctx)

	p := &pool{
		jobs:    make(chan GenerationTask, queueSize),
		results: make(chan GenerationResult, queueSize+workers),
		group:   group,
		cancel:  cancel,
	}

	for i := 0; i < workers; i++ {
		group.Go(func() error {
			return p.worker(gctx, work)
		})
	}
	return p
}

func (p *pool) worker(ctx context.Context, work workFunc) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case task, ok := <-p.jobs:
			if !ok {
				return nil
			}
			result := work(ctx, task)
			select {
			case p.results <- result:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// trySubmit ставит задачу, если в очереди есть место
func (p *pool) trySubmit(task GenerationTask) bool {
	if p.closed {
		return false
	}
	select {
	case p.jobs <- task:
		return true
	default:
		return false
	}
}

// poll забирает один готовый результат, не блокируясь
func (p *pool) poll() (GenerationResult, bool) {
	select {
	case r := <-p.results:
		return r, true
	default:
		return GenerationResult{}, false
	}
}

// close останавливает воркеров. Незавершенные задачи отбрасываются.
func (p *pool) close() error {
	var err error
	p.closeOnce.Do(func() {
		p.closed = true
		p.cancel()
		close(p.jobs)
		err = p.group.Wait()
	})
	return err
}
