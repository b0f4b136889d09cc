package middleware

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter keeps one token bucket per client address. Buckets idle for
// longer than idleTTL are dropped, so a full bucket is what a returning client
// would have had anyway.
type IPRateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientLimiter
	rateLimit rate.Limit
	burstRate int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func NewIPRateLimiter(r rate.Limit, b int, idleTTL time.Duration) *IPRateLimiter {
	return &IPRateLimiter{
		clients:   make(map[string]*clientLimiter),
		rateLimit: r,
		burstRate: b,
		idleTTL:   idleTTL,
		now:       time.Now,
	}
}

// Allow spends one token from ip's bucket.
func (i *IPRateLimiter) Allow(ip string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	now := i.now()
	i.sweep(now)
	client, exists := i.clients[ip]
	if !exists {
		client = &clientLimiter{limiter: rate.NewLimiter(i.rateLimit, i.burstRate)}
		i.clients[ip] = client
	}
	client.lastSeen = now
	return client.limiter.AllowN(now, 1)
}

// Tracked is the number of client buckets currently held.
func (i *IPRateLimiter) Tracked() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.clients)
}

// sweep runs at most once per idleTTL. Callers hold mu.
func (i *IPRateLimiter) sweep(now time.Time) {
	if i.idleTTL <= 0 || now.Sub(i.lastSweep) < i.idleTTL {
		return
	}
	i.lastSweep = now
	for ip, client := range i.clients {
		if now.Sub(client.lastSeen) >= i.idleTTL {
			delete(i.clients, ip)
		}
	}
}
