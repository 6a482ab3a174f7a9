package struct_analyzer

import (
	"sync"
	"time"
)

// CacheStats tracks snapshot cache performance metrics
type CacheStats struct {
	TotalRequests int64
	CacheHits     int64
	CacheMisses   int64
	Rebuilds      int64
	LastResetTime time.Time
	mutex         sync.RWMutex
}

// recordHit increments cache hit counter
func (s *CacheStats) recordHit() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.TotalRequests++
	s.CacheHits++
}

// recordMiss increments cache miss counter
func (s *CacheStats) recordMiss() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.TotalRequests++
	s.CacheMisses++
}

// recordRebuild increments the completed-rebuild counter
func (s *CacheStats) recordRebuild() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.Rebuilds++
}

// report returns detailed cache performance statistics
func (s *CacheStats) report() map[string]interface{} {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	hitRate := 0.0
	if s.TotalRequests > 0 {
		hitRate = float64(s.CacheHits) / float64(s.TotalRequests) * 100
	}

	uptime := time.Since(s.LastResetTime)

	return map[string]interface{}{
		"total_requests":   s.TotalRequests,
		"cache_hits":       s.CacheHits,
		"cache_misses":     s.CacheMisses,
		"rebuilds":         s.Rebuilds,
		"hit_rate_percent": hitRate,
		"uptime_seconds":   uptime.Seconds(),
		"last_reset":       s.LastResetTime.Format(time.RFC3339),
	}
}

// Reset resets all performance counters
func (s *CacheStats) Reset() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.TotalRequests = 0
	s.CacheHits = 0
	s.CacheMisses = 0
	s.Rebuilds = 0
	s.LastResetTime = time.Now()
}
