package datasync

import (
	"time"

	"Storefront/internal/cache"
)

type sliceHealth struct {
	failures    int
	lastSuccess time.Time
	lastErr     string
}

// SliceHealth is the refresh record of one slice. A stale slice keeps serving
// its last good snapshot.
type SliceHealth struct {
	Slice               string    `json:"slice"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastSuccess         time.Time `json:"last_success"`
	LastError           string    `json:"last_error,omitempty"`
	Stale               bool      `json:"stale"`
}

type Status struct {
	State     string        `json:"state"`
	Cycles    uint64        `json:"cycles"`
	LastCycle *CycleReport  `json:"last_cycle,omitempty"`
	Slices    []SliceHealth `json:"slices"`
}

func (s *Scheduler) recordFetch(sl cache.Slice, err error) {
	s.healthMu.Lock()
	defer s.healthMu.Unlock()

	h := s.health[sl]
	if err != nil {
		h.failures++
		h.lastErr = err.Error()
	} else {
		h.failures = 0
		h.lastErr = ""
		h.lastSuccess = s.opts.Now()
	}

	stale := 0
	for _, h := range s.health {
		if s.isStale(h) {
			stale++
		}
	}
	s.metrics.StaleSlices.Set(float64(stale))
}

func (s *Scheduler) isStale(h *sliceHealth) bool {
	return s.opts.StaleAfter > 0 && h.failures >= s.opts.StaleAfter
}

// Health lists every slice in fetch order.
func (s *Scheduler) Health() []SliceHealth {
	s.healthMu.Lock()
	defer s.healthMu.Unlock()

	out := make([]SliceHealth, 0, len(s.health))
	for _, sl := range cache.Slices() {
		h := s.health[sl]
		out = append(out, SliceHealth{
			Slice:               sl.String(),
			ConsecutiveFailures: h.failures,
			LastSuccess:         h.lastSuccess,
			LastError:           h.lastErr,
			Stale:               s.isStale(h),
		})
	}
	return out
}

func (s *Scheduler) Status() Status {
	st := Status{
		State:  s.State().String(),
		Cycles: s.cycles.Load(),
		Slices: s.Health(),
	}

	s.mu.Lock()
	if s.last.Seq != 0 {
		last := s.last
		st.LastCycle = &last
	}
	s.mu.Unlock()
	return st
}
