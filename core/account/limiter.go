package account

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// CodeLimiter caps login code requests (or verification attempts) per email over a fixed window.
type CodeLimiter struct {
	max   int
	store *cache.Cache
}

func NewCodeLimiter(max int, window time.Duration) *CodeLimiter {
	return &CodeLimiter{
		max:   max,
		store: cache.New(window, 2*window),
	}
}

// Allow counts one request for key and reports whether it is within the limit.
func (l *CodeLimiter) Allow(key string) bool {
	if l.max <= 0 {
		return true
	}
	if err := l.store.Add(key, 1, cache.DefaultExpiration); err == nil {
		return true
	}
	n, err := l.store.IncrementInt(key, 1)
	if err != nil { // expired in between
		_ = l.store.Add(key, 1, cache.DefaultExpiration)
		return true
	}
	return n <= l.max
}

// Spent reports whether key has used up its allowance.
func (l *CodeLimiter) Spent(key string) bool {
	if l.max <= 0 {
		return false
	}
	n, ok := l.store.Get(key)
	return ok && n.(int) >= l.max
}

func (l *CodeLimiter) Reset(key string) {
	l.store.Delete(key)
}
