package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	burstCapacityMultiplier    int     = 2
	maxClients                 int     = 10000
	defaultGlobalRPS           int     = 100
	defaultClientRPS           int     = 20
	thresholdMultiplier        float64 = 0.8
	thresholdPercentage        int     = 80
	rateLimiterCleanupInterval         = 5 * time.Minute
	rateLimiterIdleTimeout             = 1 * time.Hour
)

type (
	// RateLimiter decides whether a request from clientID may proceed.
	RateLimiter interface {
		Allow(clientID string) bool
	}

	// InMemoryRateLimiter implements RateLimiter with token buckets from
	// golang.org/x/time/rate.
	//
	// Two tiers apply to every request: a global bucket shared by all clients,
	// then a bucket per client address. Client buckets are created lazily and
	// removed by a background sweep once idle longer than IdleTimeout.
	InMemoryRateLimiter struct {
		global        *rate.Limiter
		perClient     map[string]*clientLimiter
		mu            sync.RWMutex
		cleanupTicker *time.Ticker
		done          chan struct{}
		closeOnce     sync.Once

		clientRPS       int
		clientBurst     int
		cleanupInterval time.Duration
		idleTimeout     time.Duration
		maxClients      int
	}

	clientLimiter struct {
		limiter    *rate.Limiter
		lastAccess time.Time
		mu         sync.Mutex
	}
)

// NewInMemoryRateLimiter creates a two-tier limiter and starts its cleanup
// goroutine. Callers must Close it.
//
// Burst capacity defaults to 2 × rate unless overridden in config.
//
//	rl := NewInMemoryRateLimiter(&Config{GlobalRPS: 100, ClientRPS: 20})
//	defer rl.Close()
func NewInMemoryRateLimiter(config *Config) *InMemoryRateLimiter {
	globalBurst := computeBurstCapacity(config.GlobalRPS, config.GlobalBurst)
	clientBurst := computeBurstCapacity(config.ClientRPS, config.ClientBurst)

	rl := &InMemoryRateLimiter{
		global:          rate.NewLimiter(rate.Limit(config.GlobalRPS), globalBurst),
		perClient:       make(map[string]*clientLimiter),
		done:            make(chan struct{}),
		clientRPS:       config.ClientRPS,
		clientBurst:     clientBurst,
		cleanupInterval: config.CleanupInterval,
		idleTimeout:     config.IdleTimeout,
		maxClients:      config.MaxClients,
	}

	rl.startCleanup()

	return rl
}

// computeBurstCapacity returns burstOverride when positive, otherwise
// 2 × rate.
//
//	computeBurstCapacity(100, 0)   // 200
//	computeBurstCapacity(100, 500) // 500
func computeBurstCapacity(rate, burstOverride int) int {
	if burstOverride > 0 {
		return burstOverride
	}

	return rate * burstCapacityMultiplier
}

// Allow checks the global bucket first, then the bucket for clientID.
func (rl *InMemoryRateLimiter) Allow(clientID string) bool {
	if !rl.global.Allow() {
		return false
	}

	rl.mu.RLock()
	cl, ok := rl.perClient[clientID]
	rl.mu.RUnlock()

	if !ok {
		rl.mu.Lock()
		if cl, ok = rl.perClient[clientID]; !ok {
			cl = &clientLimiter{
				limiter:    rate.NewLimiter(rate.Limit(rl.clientRPS), rl.clientBurst),
				lastAccess: time.Now(),
			}

			rl.perClient[clientID] = cl

			currentCount := len(rl.perClient)
			threshold := int(float64(rl.maxClients) * thresholdMultiplier)

			if rl.maxClients > 0 && currentCount >= threshold {
				slog.Warn("rate limiter approaching max clients limit",
					"current_clients", currentCount,
					"max_clients", rl.maxClients,
					"threshold_percent", thresholdPercentage)
			}
		}

		rl.mu.Unlock()
	}

	cl.mu.Lock()
	cl.lastAccess = time.Now()
	cl.mu.Unlock()

	return cl.limiter.Allow()
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (rl *InMemoryRateLimiter) Close() error {
	rl.closeOnce.Do(func() {
		if rl.cleanupTicker != nil {
			rl.cleanupTicker.Stop()
		}

		close(rl.done)
	})

	return nil
}

func (rl *InMemoryRateLimiter) startCleanup() {
	cleanupInterval := rl.cleanupInterval
	if cleanupInterval == 0 {
		cleanupInterval = rateLimiterCleanupInterval
	}

	rl.cleanupTicker = time.NewTicker(cleanupInterval)

	go func() {
		for {
			select {
			case <-rl.cleanupTicker.C:
				rl.cleanup()
			case <-rl.done:
				return
			}
		}
	}()
}

// cleanup removes client limiters that haven't been accessed recently.
func (rl *InMemoryRateLimiter) cleanup() {
	idleTimeout := rl.idleTimeout
	if idleTimeout == 0 {
		idleTimeout = rateLimiterIdleTimeout
	}

	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for clientID, cl := range rl.perClient {
		cl.mu.Lock()
		lastAccess := cl.lastAccess
		cl.mu.Unlock()

		if now.Sub(lastAccess) > idleTimeout {
			delete(rl.perClient, clientID)
		}
	}
}

// clients reports how many client buckets are tracked.
func (rl *InMemoryRateLimiter) clients() int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	return len(rl.perClient)
}

// RateLimit returns a middleware that answers 429 with an RFC 7807 body when
// the limiter rejects a request. Public endpoints are never limited so probes
// and scrapes keep working under load.
func RateLimit(limiter RateLimiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if IsPublicEndpoint(r.URL.Path) {
				next.ServeHTTP(w, r)

				return
			}

			if !limiter.Allow(ClientAddress(r)) {
				correlationID := GetCorrelationID(r.Context())

				detail := "Rate limit exceeded. Please retry after some time."
				if err := writeRFC7807Error(w, r, http.StatusTooManyRequests, detail, correlationID); err != nil {
					logger.Error("failed to write response with RFC 7807 error format",
						slog.String("correlation_id", correlationID),
						slog.String("path", r.URL.Path),
						slog.String("detail", detail),
						slog.String("error", err.Error()),
					)

					http.Error(w, detail, http.StatusTooManyRequests)
				}

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientAddress returns the host part of the request's remote address, or the
// whole value when it carries no port.
func ClientAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}
