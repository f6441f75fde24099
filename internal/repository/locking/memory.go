package locking

import (
	"context"
	"sync"
)

var _ Locker = (*memoryLocker)(nil)

type memoryLocker struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch      chan struct{}
	waiters int
}

func NewMemoryLocker() Locker {
	return &memoryLocker{
		slots: make(map[string]*slot),
	}
}

func (l *memoryLocker) Lock(ctx context.Context, orderID string) (func(), error) {
	l.mu.Lock()
	s, ok := l.slots[orderID]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[orderID] = s
	}
	s.waiters++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(orderID, s, false)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.release(orderID, s, true)
		})
	}, nil
}

func (l *memoryLocker) release(orderID string, s *slot, held bool) {
	if held {
		<-s.ch
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	s.waiters--
	if s.waiters == 0 {
		delete(l.slots, orderID)
	}
}
