package guards

import (
	"sync"
	"time"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	Closed CircuitState = iota
	Open
	HalfOpen
)

func (cs CircuitState) String() string {
	switch cs {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker isolates a single provider's failures: once its failure
// rate crosses the configured threshold, it stops dispatching calls to
// that provider for OpenTimeout and lets one probe through to test recovery.
type CircuitBreaker struct {
	state           CircuitState
	failureCount    int
	successCount    int
	requestCount    int
	lastFailureTime time.Time
	lastSuccessTime time.Time
	mutex           sync.RWMutex
	config          CircuitBreakerConfig
}

// CircuitBreakerConfig holds circuit breaker configuration.
type CircuitBreakerConfig struct {
	FailureThreshold float64       // Failure rate threshold (0.0-1.0)
	MinRequests      int           // Minimum requests before considering failure rate
	OpenTimeout      time.Duration // Time to stay open before half-open
	ProbeInterval    time.Duration // Interval for half-open probes
	MaxFailures      int           // Absolute failure count to trigger open
}

// NewCircuitBreaker creates a circuit breaker for one provider.
func NewCircuitBreaker(config ProviderConfig) *CircuitBreaker {
	failureThresh := config.FailureThresh
	if failureThresh <= 0 || failureThresh > 1.0 {
		failureThresh = 0.5
	}

	windowRequests := config.WindowRequests
	if windowRequests <= 0 {
		windowRequests = 10
	}

	probeInterval := time.Duration(config.ProbeInterval) * time.Second
	if probeInterval <= 0 {
		probeInterval = 30 * time.Second
	}

	cbConfig := CircuitBreakerConfig{
		FailureThreshold: failureThresh,
		MinRequests:      windowRequests,
		OpenTimeout:      probeInterval * 2,
		ProbeInterval:    probeInterval,
		MaxFailures:      windowRequests,
	}

	return &CircuitBreaker{
		state:  Closed,
		config: cbConfig,
	}
}

// IsOpen returns true if the circuit breaker is currently blocking calls.
func (cb *CircuitBreaker) IsOpen() bool {
	cb.mutex.RLock()
	defer cb.mutex.RUnlock()

	switch cb.state {
	case Open:
		if time.Since(cb.lastFailureTime) >= cb.config.OpenTimeout {
			return false
		}
		return true
	case HalfOpen:
		return false
	default:
		return false
	}
}

// CanRequest returns true if a request can proceed, transitioning Open to
// HalfOpen when the timeout has elapsed.
func (cb *CircuitBreaker) CanRequest() bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	switch cb.state {
	case Closed:
		return true
	case Open:
		if time.Since(cb.lastFailureTime) >= cb.config.OpenTimeout {
			cb.state = HalfOpen
			cb.successCount = 0
			cb.failureCount = 0
			return true
		}
		return false
	case HalfOpen:
		return true
	default:
		return false
	}
}

// RecordSuccess records a successful request.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.successCount++
	cb.requestCount++
	cb.lastSuccessTime = time.Now()

	switch cb.state {
	case HalfOpen:
		cb.state = Closed
		cb.resetCounts()
	case Closed:
		if cb.successCount > 0 && cb.successCount%5 == 0 {
			cb.failureCount = max(0, cb.failureCount-1)
		}
	}
}

// RecordFailure records a failed request.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.failureCount++
	cb.requestCount++
	cb.lastFailureTime = time.Now()

	switch cb.state {
	case Closed:
		if cb.shouldOpen() {
			cb.state = Open
		}
	case HalfOpen:
		cb.state = Open
	}
}

// shouldOpen determines if the circuit should open based on failure rate.
func (cb *CircuitBreaker) shouldOpen() bool {
	if cb.requestCount < cb.config.MinRequests {
		return false
	}

	if cb.failureCount >= cb.config.MaxFailures {
		return true
	}

	failureRate := float64(cb.failureCount) / float64(cb.requestCount)
	return failureRate >= cb.config.FailureThreshold
}

// resetCounts resets success and failure counts.
func (cb *CircuitBreaker) resetCounts() {
	cb.failureCount = 0
	cb.successCount = 0
	cb.requestCount = 0
}

// GetState returns the current circuit breaker state.
func (cb *CircuitBreaker) GetState() CircuitState {
	cb.mutex.RLock()
	defer cb.mutex.RUnlock()

	if cb.state == Open && time.Since(cb.lastFailureTime) >= cb.config.OpenTimeout {
		return HalfOpen
	}

	return cb.state
}

// Stats returns circuit breaker statistics.
func (cb *CircuitBreaker) Stats() CircuitBreakerStats {
	cb.mutex.RLock()
	defer cb.mutex.RUnlock()

	var failureRate float64
	if cb.requestCount > 0 {
		failureRate = float64(cb.failureCount) / float64(cb.requestCount)
	}

	var timeToNextProbe time.Duration
	if cb.state == Open {
		timeToNextProbe = cb.config.OpenTimeout - time.Since(cb.lastFailureTime)
		if timeToNextProbe < 0 {
			timeToNextProbe = 0
		}
	}

	return CircuitBreakerStats{
		State:            cb.state.String(),
		FailureCount:     cb.failureCount,
		SuccessCount:     cb.successCount,
		RequestCount:     cb.requestCount,
		FailureRate:      failureRate,
		LastFailureTime:  cb.lastFailureTime,
		LastSuccessTime:  cb.lastSuccessTime,
		TimeToNextProbe:  timeToNextProbe,
		FailureThreshold: cb.config.FailureThreshold,
		MinRequests:      cb.config.MinRequests,
	}
}

// CircuitBreakerStats represents circuit breaker statistics.
type CircuitBreakerStats struct {
	State            string        `json:"state"`
	FailureCount     int           `json:"failure_count"`
	SuccessCount     int           `json:"success_count"`
	RequestCount     int           `json:"request_count"`
	FailureRate      float64       `json:"failure_rate"`
	LastFailureTime  time.Time     `json:"last_failure_time"`
	LastSuccessTime  time.Time     `json:"last_success_time"`
	TimeToNextProbe  time.Duration `json:"time_to_next_probe"`
	FailureThreshold float64       `json:"failure_threshold"`
	MinRequests      int           `json:"min_requests"`
}

// Reset resets the circuit breaker to closed state.
func (cb *CircuitBreaker) Reset() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.state = Closed
	cb.resetCounts()
}

// ForceOpen forces the circuit breaker to open state.
func (cb *CircuitBreaker) ForceOpen() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.state = Open
	cb.lastFailureTime = time.Now()
}
