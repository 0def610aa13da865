package service

import (
	"context"
	"sync"
)

// CityLocker serialises the load, mutate and save cycle of a city's value table
type CityLocker interface {
	Lock(ctx context.Context, city string) (unlock func(), err error)
}

// KeyedMutex is an in-process CityLocker
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	sem  chan struct{}
	refs int
}

// NewKeyedMutex creates an empty KeyedMutex
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedLock)}
}

// Lock blocks until the city is free or ctx is done
func (k *KeyedMutex) Lock(ctx context.Context, city string) (func(), error) {
	k.mu.Lock()
	l, ok := k.locks[city]
	if !ok {
		l = &keyedLock{sem: make(chan struct{}, 1)}
		k.locks[city] = l
	}
	l.refs++
	k.mu.Unlock()

	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		k.release(city, l)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.sem
			k.release(city, l)
		})
	}, nil
}

func (k *KeyedMutex) release(city string, l *keyedLock) {
	k.mu.Lock()
	defer k.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(k.locks, city)
	}
}

// held returns the number of cities with a holder or waiter
func (k *KeyedMutex) held() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
