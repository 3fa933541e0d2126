package timewheel

import (
	"sync"
	"time"
)

// SimpleTimeWheel 单层时间轮，到期后回调 handler
// key 唯一，重复 Add 会覆盖旧任务
type SimpleTimeWheel[T any] struct {
	interval time.Duration
	ticker   *time.Ticker
	stopChan chan struct{}
	stopOnce sync.Once

	mu      sync.Mutex
	slots   []map[string]*task[T]
	keySlot map[string]int
	pos     int

	handler Handler[T]
}

type Handler[T any] func(wheel *SimpleTimeWheel[T], key string, value T)

type task[T any] struct {
	circle int
	value  T
}

func NewSimpleTimeWheel[T any](interval time.Duration, numSlot int, handler Handler[T]) *SimpleTimeWheel[T] {
	slots := make([]map[string]*task[T], numSlot)
	for i := range slots {
		slots[i] = make(map[string]*task[T])
	}

	return &SimpleTimeWheel[T]{
		interval: interval,
		stopChan: make(chan struct{}),
		slots:    slots,
		keySlot:  make(map[string]int),
		handler:  handler,
	}
}

func (t *SimpleTimeWheel[T]) Start() {
	t.ticker = time.NewTicker(t.interval)
	defer t.ticker.Stop()

	for {
		select {
		case <-t.stopChan:
			return
		case <-t.ticker.C:
			t.tick()
		}
	}
}

func (t *SimpleTimeWheel[T]) Stop() {
	t.stopOnce.Do(func() {
		close(t.stopChan)
	})
}

func (t *SimpleTimeWheel[T]) Add(key string, value T, delay time.Duration) {
	if delay < t.interval {
		delay = t.interval
	}
	steps := int(delay / t.interval)

	t.mu.Lock()
	defer t.mu.Unlock()

	t.remove(key)

	slot := (t.pos + steps) % len(t.slots)
	t.slots[slot][key] = &task[T]{
		circle: steps / len(t.slots),
		value:  value,
	}
	t.keySlot[key] = slot
}

func (t *SimpleTimeWheel[T]) Remove(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.remove(key)
}

func (t *SimpleTimeWheel[T]) remove(key string) {
	if slot, ok := t.keySlot[key]; ok {
		delete(t.slots[slot], key)
		delete(t.keySlot, key)
	}
}

func (t *SimpleTimeWheel[T]) tick() {
	t.mu.Lock()
	t.pos = (t.pos + 1) % len(t.slots)
	bucket := t.slots[t.pos]

	expired := make(map[string]T)
	for key, tk := range bucket {
		if tk.circle > 0 {
			tk.circle--
			continue
		}
		expired[key] = tk.value
		delete(bucket, key)
		delete(t.keySlot, key)
	}
	t.mu.Unlock()

	// 回调放到锁外，handler 里允许再次 Add
	for key, value := range expired {
		go t.handler(t, key, value)
	}
}
