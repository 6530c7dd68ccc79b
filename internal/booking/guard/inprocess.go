package guard

import (
	"context"
	"sync"
)

// InProcess is a keyed mutex. Entries are dropped once no goroutine holds
// or waits on them.
type InProcess struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

func NewInProcess() *InProcess {
	return &InProcess{locks: make(map[string]*keyLock)}
}

func (l *InProcess) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &keyLock{ch: make(chan struct{}, 1)}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.ch <- struct{}{}:
	case <-ctx.Done():
		l.unref(key, entry)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.ch
			l.unref(key, entry)
		})
	}, nil
}

func (l *InProcess) unref(key string, entry *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, key)
	}
}

func (l *InProcess) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
