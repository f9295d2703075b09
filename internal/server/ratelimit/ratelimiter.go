// Package ratelimit bounds how often a single client key may attempt an
// endpoint within a trailing window.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter tracks request timestamps in a sliding window per key.
//
// The window is evaluated fresh on every call against the stored history:
// a rejected attempt is not recorded, so a client hammering a full window
// regains budget as soon as old entries age out.
type Limiter struct {
	mu      sync.RWMutex
	clients map[string]*clientWindow
	now     func() time.Time
}

// clientWindow carries its own lock so unrelated clients never serialize
// on each other.
type clientWindow struct {
	mu         sync.Mutex
	timestamps []time.Time
}

// NewLimiter creates a limiter with in-memory tracking.
func NewLimiter() *Limiter {
	return &Limiter{
		clients: make(map[string]*clientWindow),
		now:     time.Now,
	}
}

// Allow returns true and records the attempt if key has made fewer than
// limit admitted requests inside the trailing window. An entry exactly
// window old is outside the interval (half-open (now-window, now]).
func (l *Limiter) Allow(key string, limit int, window time.Duration) bool {
	if limit <= 0 {
		return true
	}

	win := l.window(key)

	win.mu.Lock()
	defer win.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-window)

	kept := win.timestamps[:0]
	for _, ts := range win.timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	win.timestamps = kept

	if len(win.timestamps) >= limit {
		return false
	}

	win.timestamps = append(win.timestamps, now)
	return true
}

func (l *Limiter) window(key string) *clientWindow {
	l.mu.RLock()
	win, ok := l.clients[key]
	l.mu.RUnlock()
	if ok {
		return win
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if win, ok = l.clients[key]; ok {
		return win
	}
	win = &clientWindow{}
	l.clients[key] = win
	return win
}

// StartCleanup periodically evicts keys whose whole history has aged out,
// to limit memory usage.
func (l *Limiter) StartCleanup(interval, window time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for range ticker.C {
			cutoff := l.now().Add(-window)

			l.mu.Lock()
			for key, win := range l.clients {
				win.mu.Lock()
				stale := len(win.timestamps) == 0 ||
					!win.timestamps[len(win.timestamps)-1].After(cutoff)
				win.mu.Unlock()
				if stale {
					delete(l.clients, key)
				}
			}
			l.mu.Unlock()
		}
	}()
}
