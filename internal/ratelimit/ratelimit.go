package ratelimit

import (
	"sync"
	"time"
)

// Token-bucket limiter: refills at rate tokens per second up to burst
type Limiter struct {
	rate       float64
	burst      int
	tokens     float64
	lastUpdate time.Time
	mu         sync.Mutex
}

func NewLimiter(rate float64, burst int) *Limiter {
	return &Limiter{
		rate:       rate,
		burst:      burst,
		tokens:     float64(burst),
		lastUpdate: time.Now(),
	}
}

// Reports whether one event may proceed, consuming a token if so
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(l.lastUpdate).Seconds()
	l.lastUpdate = now

	l.tokens += elapsed * l.rate
	if l.tokens > float64(l.burst) {
		l.tokens = float64(l.burst)
	}

	if l.tokens >= 1 {
		l.tokens--
		return true
	}
	return false
}

// Per-client limiter registry, keyed by connection id. Entries are
// created lazily and must be removed when the connection goes away;
// the size cap is a backstop against leaked ids.
type PerClient struct {
	limiters   map[string]*Limiter
	rate       float64
	burst      int
	maxEntries int
	mu         sync.Mutex
}

func NewPerClient(rate float64, burst int) *PerClient {
	return &PerClient{
		limiters:   make(map[string]*Limiter),
		rate:       rate,
		burst:      burst,
		maxEntries: 10000,
	}
}

// Checks the limiter for the given client, creating it on first use
func (p *PerClient) Allow(clientID string) bool {
	p.mu.Lock()
	limiter, ok := p.limiters[clientID]
	if !ok {
		if len(p.limiters) >= p.maxEntries {
			p.limiters = make(map[string]*Limiter)
		}
		limiter = NewLimiter(p.rate, p.burst)
		p.limiters[clientID] = limiter
	}
	p.mu.Unlock()

	return limiter.Allow()
}

func (p *PerClient) Remove(clientID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.limiters, clientID)
}
