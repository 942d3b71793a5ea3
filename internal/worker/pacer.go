package worker

import (
	"context"
	"sync"
	"time"
)

// ComputeDelay вычисляет паузу перед следующей task.
//
// delay = max(0, minInterval - elapsed); если получился 0, то есть
// task обрабатывалась не быстрее минимального интервала, пауза
// принудительно равна fallback.
func ComputeDelay(minInterval, fallback, elapsed time.Duration) time.Duration {
	delay := minInterval - elapsed
	if delay <= 0 {
		return fallback
	}
	return delay
}

// Pacer ограничивает темп обращений к каталогу.
//
// Хранит одну величину: паузу, вычисленную после последней task.
// Начальная пауза — 0.
type Pacer struct {
	minInterval time.Duration
	fallback    time.Duration

	mu    sync.Mutex
	delay time.Duration
}

// NewPacer создаёт Pacer.
func NewPacer(minInterval, fallback time.Duration) *Pacer {
	return &Pacer{
		minInterval: minInterval,
		fallback:    fallback,
	}
}

// Delay возвращает текущую паузу.
func (p *Pacer) Delay() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.delay
}

// Record запоминает длительность обработанной task и возвращает новую паузу.
func (p *Pacer) Record(elapsed time.Duration) time.Duration {
	delay := ComputeDelay(p.minInterval, p.fallback, elapsed)

	p.mu.Lock()
	p.delay = delay
	p.mu.Unlock()

	return delay
}

// Postpone задаёт паузу перед следующей task не короче d.
func (p *Pacer) Postpone(d time.Duration) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if d > p.delay {
		p.delay = d
	}
	return p.delay
}

// Wait ждёт текущую паузу или отмену ctx.
func (p *Pacer) Wait(ctx context.Context) error {
	delay := p.Delay()
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
