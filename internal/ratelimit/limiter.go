// Package ratelimit implements C8: a per-source-IP sliding window rate
// limiter with one bucket per endpoint class, grounded on the teacher's
// middleware/ratelimit.go (header names, allow/reject shape) but
// replacing its Redis-backed per-user-tier counter with an in-memory
// sliding window per (IP, class), since the recommendation core has no
// user accounts to key on.
package ratelimit

import (
	"strings"
	"sync"
	"time"
)

// Class is an endpoint class from spec §4.8.
type Class string

const (
	ClassSession   Class = "session"
	ClassRecommend Class = "recommend"
	ClassFeedback  Class = "feedback"
	ClassBatch     Class = "batch"
	ClassGeneral   Class = "general"
)

// Rule is a class's window and request ceiling.
type Rule struct {
	Window time.Duration
	Max    int
}

// DefaultRules match the literal table in spec §4.8.
var DefaultRules = map[Class]Rule{
	ClassSession:   {Window: 60 * time.Second, Max: 5},
	ClassRecommend: {Window: 60 * time.Second, Max: 30},
	ClassFeedback:  {Window: 60 * time.Second, Max: 50},
	ClassBatch:     {Window: 60 * time.Second, Max: 10},
	ClassGeneral:   {Window: 60 * time.Second, Max: 100},
}

// Decision reports the outcome of a rate-limit check, with enough
// information to populate the X-RateLimit-* / Retry-After headers
// whether the request is allowed or not.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

type bucket struct {
	hits []time.Time // ascending timestamps within the current window
}

// Limiter is a process-wide table of (ip, class) -> sliding window
// buckets, plus a static IP whitelist that bypasses every class.
type Limiter struct {
	mu        sync.Mutex
	rules     map[Class]Rule
	buckets   map[string]*bucket
	whitelist map[string]struct{}
}

// New builds a Limiter. whitelist entries bypass all classes.
func New(rules map[Class]Rule, whitelist []string) *Limiter {
	if rules == nil {
		rules = DefaultRules
	}
	wl := make(map[string]struct{}, len(whitelist))
	for _, ip := range whitelist {
		wl[ip] = struct{}{}
	}
	return &Limiter{
		rules:     rules,
		buckets:   make(map[string]*bucket),
		whitelist: wl,
	}
}

// ClassOf maps a request path to its endpoint class. Batch wins over
// the recommend/feedback substrings so both batch endpoints land in the
// batch bucket.
func ClassOf(path string) Class {
	switch {
	case strings.Contains(path, "/cache"), strings.Contains(path, "/duplicate-detection"):
		return ClassGeneral
	case strings.Contains(path, "/batch"):
		return ClassBatch
	case strings.Contains(path, "/session"):
		return ClassSession
	case strings.Contains(path, "/recommend"):
		return ClassRecommend
	case strings.Contains(path, "/feedback"):
		return ClassFeedback
	default:
		return ClassGeneral
	}
}

// Allow checks and, if permitted, records a hit for (ip, class) at now.
func (l *Limiter) Allow(ip string, class Class, now time.Time) Decision {
	if _, ok := l.whitelist[ip]; ok {
		return Decision{Allowed: true, Limit: -1, Remaining: -1}
	}

	rule, ok := l.rules[class]
	if !ok {
		rule = l.rules[ClassGeneral]
	}

	key := string(class) + "|" + ip

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{}
		l.buckets[key] = b
	}

	cutoff := now.Add(-rule.Window)
	b.hits = pruneBefore(b.hits, cutoff)

	if len(b.hits) >= rule.Max {
		resetAt := b.hits[0].Add(rule.Window)
		return Decision{
			Allowed:    false,
			Limit:      rule.Max,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: resetAt.Sub(now),
		}
	}

	b.hits = append(b.hits, now)
	remaining := rule.Max - len(b.hits)
	resetAt := now.Add(rule.Window)
	if len(b.hits) > 0 {
		resetAt = b.hits[0].Add(rule.Window)
	}
	return Decision{Allowed: true, Limit: rule.Max, Remaining: remaining, ResetAt: resetAt}
}

func pruneBefore(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && hits[i].Before(cutoff) {
		i++
	}
	if i == 0 {
		return hits
	}
	return append([]time.Time(nil), hits[i:]...)
}

// Sweep removes buckets with no hits inside the widest configured
// window, bounding memory growth from IPs seen once. Intended to run
// every 60s alongside the guard's own maintenance sweep.
func (l *Limiter) Sweep(now time.Time) {
	widest := time.Duration(0)
	for _, r := range l.rules {
		if r.Window > widest {
			widest = r.Window
		}
	}
	cutoff := now.Add(-widest)

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		b.hits = pruneBefore(b.hits, cutoff)
		if len(b.hits) == 0 {
			delete(l.buckets, key)
		}
	}
}
