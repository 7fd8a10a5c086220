package cache

import "sync/atomic"

// Stats is a point-in-time snapshot of engine counters.
type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Sets    int64 `json:"sets"`
	Deletes int64 `json:"deletes"`

	// HitRate is Hits/(Hits+Misses), or 0 before the first Get.
	HitRate       float64 `json:"hit_rate"`
	TotalRequests int64   `json:"total_requests"`
	LocalEntries  int     `json:"local_entries"`
}

// statsTracker holds monotonic counters for the lifetime of an engine.
type statsTracker struct {
	hits    atomic.Int64
	misses  atomic.Int64
	sets    atomic.Int64
	deletes atomic.Int64
}

func (s *statsTracker) hit()    { s.hits.Add(1) }
func (s *statsTracker) miss()   { s.misses.Add(1) }
func (s *statsTracker) set()    { s.sets.Add(1) }
func (s *statsTracker) delete() { s.deletes.Add(1) }

func (s *statsTracker) snapshot(localEntries int) Stats {
	st := Stats{
		Hits:         s.hits.Load(),
		Misses:       s.misses.Load(),
		Sets:         s.sets.Load(),
		Deletes:      s.deletes.Load(),
		LocalEntries: localEntries,
	}
	st.TotalRequests = st.Hits + st.Misses
	if st.TotalRequests > 0 {
		st.HitRate = float64(st.Hits) / float64(st.TotalRequests)
	}
	return st
}
