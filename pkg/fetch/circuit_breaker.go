package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"
)

// CircuitBreakerFetcher stops hitting a download host after repeated
// failures and probes it again on an exponential schedule.
type CircuitBreakerFetcher struct {
	fetcher   Interface
	threshold int64
	breakers  map[string]*circuit.Breaker
	mu        sync.RWMutex
}

// NewCircuitBreakerFetcher wraps f. The breaker for a host trips after
// threshold consecutive failures; values below 1 mean 5.
func NewCircuitBreakerFetcher(f Interface, threshold int) *CircuitBreakerFetcher {
	if threshold < 1 {
		threshold = 5
	}
	return &CircuitBreakerFetcher{
		fetcher:   f,
		threshold: int64(threshold),
		breakers:  make(map[string]*circuit.Breaker),
	}
}

func (cbf *CircuitBreakerFetcher) getBreaker(host string) *circuit.Breaker {
	cbf.mu.RLock()
	breaker, exists := cbf.breakers[host]
	cbf.mu.RUnlock()
	if exists {
		return breaker
	}

	cbf.mu.Lock()
	defer cbf.mu.Unlock()

	if breaker, exists := cbf.breakers[host]; exists {
		return breaker
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 30 * time.Second
	expBackoff.MaxInterval = 5 * time.Minute
	expBackoff.Multiplier = 2.0
	expBackoff.Reset()

	breaker = circuit.NewBreakerWithOptions(&circuit.Options{
		BackOff:    expBackoff,
		ShouldTrip: circuit.ThresholdTripFunc(cbf.threshold),
	})
	cbf.breakers[host] = breaker
	return breaker
}

// Fetch runs the wrapped Fetch through the host's breaker. A missing file
// does not count as a host failure.
func (cbf *CircuitBreakerFetcher) Fetch(ctx context.Context, fetchURL string) (*Artifact, error) {
	host := hostOf(fetchURL)
	breaker := cbf.getBreaker(host)

	if !breaker.Ready() {
		return nil, fmt.Errorf("circuit breaker open for %s: %w", host, ErrUpstreamDown)
	}

	var (
		artifact *Artifact
		notFound error
	)
	err := breaker.Call(func() error {
		a, err := cbf.fetcher.Fetch(ctx, fetchURL)
		if errors.Is(err, ErrNotFound) {
			notFound = err
			return nil
		}
		artifact = a
		return err
	}, 0)
	if notFound != nil {
		return nil, notFound
	}
	if err != nil {
		return nil, err
	}
	return artifact, nil
}

// Head runs the wrapped Head through the host's breaker.
func (cbf *CircuitBreakerFetcher) Head(ctx context.Context, headURL string) (size int64, contentType string, err error) {
	host := hostOf(headURL)
	breaker := cbf.getBreaker(host)

	if !breaker.Ready() {
		return 0, "", fmt.Errorf("circuit breaker open for %s: %w", host, ErrUpstreamDown)
	}

	err = breaker.Call(func() error {
		var headErr error
		size, contentType, headErr = cbf.fetcher.Head(ctx, headURL)
		return headErr
	}, 0)
	return size, contentType, err
}

// States reports "open" or "closed" per host seen so far.
func (cbf *CircuitBreakerFetcher) States() map[string]string {
	cbf.mu.RLock()
	defer cbf.mu.RUnlock()

	states := make(map[string]string, len(cbf.breakers))
	for host, breaker := range cbf.breakers {
		if breaker.Tripped() {
			states[host] = "open"
		} else {
			states[host] = "closed"
		}
	}
	return states
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		if len(rawURL) > 50 {
			return rawURL[:50]
		}
		return rawURL
	}
	return parsed.Host
}
