package indexer

import (
	"context"
	"sort"
	"sync"
)

// KeyLock сериализует работу с одной сущностью, не блокируя остальные.
// Запись о ключе удаляется, когда её больше никто не держит и не ждёт.
type KeyLock struct {
	mu    sync.Mutex
	locks map[string]*keyEntry
}

type keyEntry struct {
	sem  chan struct{}
	refs int
}

func NewKeyLock() *KeyLock {
	return &KeyLock{locks: make(map[string]*keyEntry)}
}

func (l *KeyLock) acquire(key string) *keyEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.locks[key]
	if !ok {
		e = &keyEntry{sem: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++
	return e
}

func (l *KeyLock) release(key string, e *keyEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
}

// Lock захватывает ключ или возвращает ошибку контекста.
func (l *KeyLock) Lock(ctx context.Context, key string) (func(), error) {
	e := l.acquire(key)
	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			l.release(key, e)
		})
	}, nil
}

// LockAll захватывает ключи в переданном порядке, пропуская повторы.
// Вызывающие обязаны соблюдать общий порядок: спор раньше задачи.
func (l *KeyLock) LockAll(ctx context.Context, keys []string) (func(), error) {
	seen := make(map[string]struct{}, len(keys))
	unlocks := make([]func(), 0, len(keys))
	unlockAll := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}

	for _, key := range keys {
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unlock, err := l.Lock(ctx, key)
		if err != nil {
			unlockAll()
			return nil, err
		}
		unlocks = append(unlocks, unlock)
	}
	return unlockAll, nil
}

// Held возвращает ключи, которые сейчас кем-то заняты или ожидаются.
func (l *KeyLock) Held() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.locks))
	for k := range l.locks {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
