// Package limiter provides a fixed-window rate limiter keyed by
// caller id, with an HTTP middleware for rejecting over-limit
// requests.
package limiter

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Window caps the number of requests inside a fixed interval. A
// limiter can enforce several at once, e.g. a burst window and a
// sustained one.
type Window struct {
	Interval time.Duration
	Max      int
}

// Limiter tracks request counts per caller id across its windows.
// Close stops the background cleanup.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*clientState

	windows []Window

	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

type clientState struct {
	counts map[time.Duration]int
	starts map[time.Duration]time.Time
}

// New creates a Limiter enforcing the given windows. Idle client
// state is dropped every cleanupInterval; zero or negative means
// every minute.
func New(cleanupInterval time.Duration, windows ...Window) *Limiter {
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}

	l := &Limiter{
		clients: make(map[string]*clientState),
		windows: windows,
		stopCh:  make(chan struct{}),
	}

	l.wg.Add(1)
	go l.cleanupLoop(cleanupInterval)

	return l
}

// Close stops the cleanup goroutine. It is safe to call more than
// once.
func (l *Limiter) Close() {
	l.closeOnce.Do(func() {
		close(l.stopCh)
		l.wg.Wait()
	})
}

// Allow reports whether a request from id fits inside every window,
// and counts it when it does. A denied request consumes no quota.
func (l *Limiter) Allow(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	client, ok := l.clients[id]
	if !ok {
		client = &clientState{
			counts: make(map[time.Duration]int),
			starts: make(map[time.Duration]time.Time),
		}
		l.clients[id] = client
	}

	for _, w := range l.windows {
		start, ok := client.starts[w.Interval]
		if !ok || now.Sub(start) >= w.Interval {
			client.starts[w.Interval] = now
			client.counts[w.Interval] = 0
			continue
		}
		if client.counts[w.Interval] >= w.Max {
			return false
		}
	}

	for _, w := range l.windows {
		client.counts[w.Interval]++
	}
	return true
}

// NextAllowed returns when a request from id will fit again. For an
// unknown or within-limits id it returns the current time.
func (l *Limiter) NextAllowed(id string) time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	client, ok := l.clients[id]
	if !ok {
		return now
	}

	var next time.Time
	for _, w := range l.windows {
		if client.counts[w.Interval] < w.Max {
			continue
		}
		resetAt := client.starts[w.Interval].Add(w.Interval)
		if next.IsZero() || resetAt.Before(next) {
			next = resetAt
		}
	}

	if next.IsZero() {
		return now
	}
	return next
}

// Middleware rejects over-limit requests with 429 and a Retry-After
// header. keyFn derives the caller id from the request; nil uses the
// remote address.
func (l *Limiter) Middleware(keyFn func(r *http.Request) string) func(http.Handler) http.Handler {
	if keyFn == nil {
		keyFn = remoteHost
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := keyFn(r)
			if !l.Allow(id) {
				retryIn := time.Until(l.NextAllowed(id))
				secs := int(math.Ceil(retryIn.Seconds()))
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (l *Limiter) cleanupLoop(interval time.Duration) {
	defer l.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.removeIdle()
		case <-l.stopCh:
			return
		}
	}
}

// removeIdle drops clients whose every window has fully elapsed.
func (l *Limiter) removeIdle() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for id, client := range l.clients {
		idle := true
		for _, w := range l.windows {
			if now.Sub(client.starts[w.Interval]) < w.Interval {
				idle = false
				break
			}
		}
		if idle {
			delete(l.clients, id)
		}
	}
}
