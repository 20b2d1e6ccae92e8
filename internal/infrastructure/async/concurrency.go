package async

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// ConcurrencyManager bounds how many per-domain enrichments `axpctl enrich
// batch` has in flight at once, adapting that bound to observed latency so
// a slow provider (review_platform, certification_shop, aggregated_ratings,
// tech_stack) degrades the batch run instead of stalling it outright.
type ConcurrencyManager struct {
	maxWorkers      int32
	activeWorkers   int32
	queuedTasks     int64
	completedTasks  int64
	failedTasks     int64
	
	// Adaptive settings
	targetLatency   time.Duration
	adaptiveEnabled bool
	lastAdjustment  time.Time
	
	// Rate limiting
	rateLimiter     *TokenBucket
	
	// Metrics
	metrics         *ConcurrencyMetrics
	mu              sync.RWMutex
}

// ConcurrencyMetrics tracks concurrency performance and is surfaced in a
// batch run's JSON summary alongside the per-domain results.
type ConcurrencyMetrics struct {
	MaxWorkers        int32
	ActiveWorkers     int32
	QueuedTasks       int64
	CompletedTasks    int64
	FailedTasks       int64
	AverageLatency    time.Duration
	ThroughputPerSec  float64
	QueueWaitTime     time.Duration
	WorkerUtilization float64
}

// NewConcurrencyManager creates a new concurrency manager
func NewConcurrencyManager(maxWorkers int, targetLatency time.Duration) *ConcurrencyManager {
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU() * 2
	}
	
	return &ConcurrencyManager{
		maxWorkers:      int32(maxWorkers),
		targetLatency:   targetLatency,
		adaptiveEnabled: true,
		rateLimiter:     NewTokenBucket(1000, time.Second), // 1000-token burst, refilled one token per second
		metrics:         &ConcurrencyMetrics{MaxWorkers: int32(maxWorkers)},
	}
}

// AcquireWorker attempts to acquire a worker slot
func (cm *ConcurrencyManager) AcquireWorker(ctx context.Context) error {
	// Rate limiting check
	if !cm.rateLimiter.TakeToken(ctx) {
		return fmt.Errorf("rate limit exceeded")
	}
	
	// Increment queued tasks
	atomic.AddInt64(&cm.queuedTasks, 1)
	
	start := time.Now()
	
	// Try to acquire worker
	for {
		current := atomic.LoadInt32(&cm.activeWorkers)
		max := atomic.LoadInt32(&cm.maxWorkers)
		
		if current >= max {
			// Wait for available worker
			select {
			case <-time.After(10 * time.Millisecond):
				continue
			case <-ctx.Done():
				atomic.AddInt64(&cm.queuedTasks, -1)
				return ctx.Err()
			}
		}
		
		// Try to increment active workers
		if atomic.CompareAndSwapInt32(&cm.activeWorkers, current, current+1) {
			break
		}
	}
	
	// Update queue wait time
	waitTime := time.Since(start)
	cm.updateQueueWaitTime(waitTime)
	
	atomic.AddInt64(&cm.queuedTasks, -1)
	return nil
}

// ReleaseWorker releases a worker slot
func (cm *ConcurrencyManager) ReleaseWorker(success bool, latency time.Duration) {
	atomic.AddInt32(&cm.activeWorkers, -1)
	
	if success {
		atomic.AddInt64(&cm.completedTasks, 1)
	} else {
		atomic.AddInt64(&cm.failedTasks, 1)
	}
	
	// Update metrics
	cm.updateLatencyMetrics(latency)
	cm.updateThroughputMetrics()
	
	// Trigger adaptive adjustment if enabled
	if cm.adaptiveEnabled {
		cm.maybeAdjustConcurrency()
	}
}

// SetMaxWorkers adjusts the maximum number of workers
func (cm *ConcurrencyManager) SetMaxWorkers(maxWorkers int) {
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU() * 2
	}
	
	atomic.StoreInt32(&cm.maxWorkers, int32(maxWorkers))
	cm.metrics.MaxWorkers = int32(maxWorkers)
}

// GetActiveWorkers returns the current number of active workers
func (cm *ConcurrencyManager) GetActiveWorkers() int32 {
	return atomic.LoadInt32(&cm.activeWorkers)
}

// GetQueuedTasks returns the current number of queued tasks
func (cm *ConcurrencyManager) GetQueuedTasks() int64 {
	return atomic.LoadInt64(&cm.queuedTasks)
}

// GetMetrics returns current concurrency metrics
func (cm *ConcurrencyManager) GetMetrics() ConcurrencyMetrics {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	
	return ConcurrencyMetrics{
		MaxWorkers:        atomic.LoadInt32(&cm.maxWorkers),
		ActiveWorkers:     atomic.LoadInt32(&cm.activeWorkers),
		QueuedTasks:       atomic.LoadInt64(&cm.queuedTasks),
		CompletedTasks:    atomic.LoadInt64(&cm.completedTasks),
		FailedTasks:       atomic.LoadInt64(&cm.failedTasks),
		AverageLatency:    cm.metrics.AverageLatency,
		ThroughputPerSec:  cm.metrics.ThroughputPerSec,
		QueueWaitTime:     cm.metrics.QueueWaitTime,
		WorkerUtilization: cm.calculateUtilization(),
	}
}

// updateLatencyMetrics updates average latency using exponential moving average
func (cm *ConcurrencyManager) updateLatencyMetrics(latency time.Duration) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	
	if cm.metrics.AverageLatency == 0 {
		cm.metrics.AverageLatency = latency
	} else {
		// 90% old, 10% new
		cm.metrics.AverageLatency = time.Duration(
			float64(cm.metrics.AverageLatency)*0.9 + float64(latency)*0.1,
		)
	}
}

// updateQueueWaitTime updates queue wait time metrics
func (cm *ConcurrencyManager) updateQueueWaitTime(waitTime time.Duration) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	
	if cm.metrics.QueueWaitTime == 0 {
		cm.metrics.QueueWaitTime = waitTime
	} else {
		// 95% old, 5% new (queue times are more volatile)
		cm.metrics.QueueWaitTime = time.Duration(
			float64(cm.metrics.QueueWaitTime)*0.95 + float64(waitTime)*0.05,
		)
	}
}

// updateThroughputMetrics calculates current throughput
func (cm *ConcurrencyManager) updateThroughputMetrics() {
	// This would be called periodically in a real implementation
	// For now, we'll calculate based on recent completed tasks
	completed := atomic.LoadInt64(&cm.completedTasks)
	
	cm.mu.Lock()
	defer cm.mu.Unlock()
	
	// Simple throughput calculation (would be more sophisticated in production)
	cm.metrics.ThroughputPerSec = float64(completed) / time.Since(time.Now().Add(-time.Minute)).Seconds()
}

// calculateUtilization calculates worker utilization percentage
func (cm *ConcurrencyManager) calculateUtilization() float64 {
	active := atomic.LoadInt32(&cm.activeWorkers)
	max := atomic.LoadInt32(&cm.maxWorkers)
	
	if max == 0 {
		return 0.0
	}
	
	return float64(active) / float64(max) * 100.0
}

// maybeAdjustConcurrency automatically adjusts concurrency based on performance
func (cm *ConcurrencyManager) maybeAdjustConcurrency() {
	now := time.Now()
	
	// Don't adjust too frequently
	if now.Sub(cm.lastAdjustment) < 30*time.Second {
		return
	}
	
	cm.mu.Lock()
	defer cm.mu.Unlock()
	
	avgLatency := cm.metrics.AverageLatency
	utilization := cm.calculateUtilization()
	maxWorkers := atomic.LoadInt32(&cm.maxWorkers)
	
	// Adjustment logic
	if avgLatency > cm.targetLatency && utilization > 80 {
		// High latency and high utilization - increase workers
		newMax := int(float64(maxWorkers) * 1.2)
		if newMax <= runtime.NumCPU()*4 { // Cap at 4x CPU cores
			atomic.StoreInt32(&cm.maxWorkers, int32(newMax))
		}
	} else if avgLatency < cm.targetLatency/2 && utilization < 50 {
		// Low latency and low utilization - decrease workers
		newMax := int(float64(maxWorkers) * 0.8)
		if newMax >= runtime.NumCPU() { // Minimum of 1x CPU cores
			atomic.StoreInt32(&cm.maxWorkers, int32(newMax))
		}
	}
	
	cm.lastAdjustment = now
}

// TokenBucket implements a token bucket rate limiter
type TokenBucket struct {
	tokens    int64
	maxTokens int64
	refillRate time.Duration
	lastRefill time.Time
	mu        sync.Mutex
}

// NewTokenBucket creates a new token bucket rate limiter
func NewTokenBucket(maxTokens int64, refillRate time.Duration) *TokenBucket {
	return &TokenBucket{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// TakeToken attempts to take a token from the bucket
func (tb *TokenBucket) TakeToken(ctx context.Context) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	
	// Refill tokens
	now := time.Now()
	elapsed := now.Sub(tb.lastRefill)
	
	if elapsed >= tb.refillRate {
		tokensToAdd := int64(elapsed / tb.refillRate)
		tb.tokens = min(tb.tokens+tokensToAdd, tb.maxTokens)
		tb.lastRefill = now
	}
	
	// Try to take a token
	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	
	return false
}

