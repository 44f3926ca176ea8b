// Package datasync keeps the cache in step with the remote catalog.
//
// A cycle fetches every slice concurrently and applies each result as soon as
// it arrives. Results are tagged with the cycle's sequence number so a slow
// fetch from an older cycle can never overwrite a newer one. The discount
// slice is only written after reconciliation by the discount tracker.
package datasync

import (
	"context"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"Storefront/internal/cache"
	"Storefront/internal/catalog"
	"Storefront/internal/discount"
)

type State int32

const (
	Idle State = iota
	InitialLoading
	Steady
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case InitialLoading:
		return "initial_loading"
	case Steady:
		return "steady"
	default:
		return "unknown"
	}
}

const (
	defaultFetchTimeout = 10 * time.Second
	defaultRetryInitial = 200 * time.Millisecond
)

type Options struct {
	Log      *zap.Logger
	Metrics  *Metrics
	Identity discount.IdentityProvider

	FetchTimeout time.Duration
	RetryMax     int
	RetryInitial time.Duration
	// StaleAfter consecutive failures mark a slice stale; 0 disables.
	StaleAfter int

	Now func() time.Time
}

// CycleReport summarizes one cycle. Slices are listed by name.
type CycleReport struct {
	ID        string            `json:"id"`
	Seq       uint64            `json:"seq"`
	StartedAt time.Time         `json:"started_at"`
	Duration  time.Duration     `json:"duration"`
	Applied   []string          `json:"applied"`
	Discarded []string          `json:"discarded,omitempty"`
	Failed    map[string]string `json:"failed,omitempty"`
}

type Scheduler struct {
	remote  RemoteCatalog
	cache   *cache.Cache
	tracker *discount.Tracker
	opts    Options
	log     *zap.Logger
	metrics *Metrics

	seq    atomic.Uint64
	state  atomic.Int32
	cycles atomic.Uint64

	mu      sync.Mutex
	cancel  context.CancelFunc
	running atomic.Bool
	last    CycleReport

	healthMu sync.Mutex
	health   map[cache.Slice]*sliceHealth

	discMu        sync.Mutex
	discCycle     uint64
	lastDiscounts []catalog.Discount
	haveDiscounts bool
	expiry        *time.Timer
}

func New(remote RemoteCatalog, c *cache.Cache, tracker *discount.Tracker, opts Options) *Scheduler {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(nil)
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = defaultFetchTimeout
	}
	if opts.RetryInitial <= 0 {
		opts.RetryInitial = defaultRetryInitial
	}
	if opts.RetryMax < 0 {
		opts.RetryMax = 0
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if tracker == nil {
		tracker = discount.NewTracker()
	}

	s := &Scheduler{
		remote:  remote,
		cache:   c,
		tracker: tracker,
		opts:    opts,
		log:     opts.Log,
		metrics: opts.Metrics,
		health:  make(map[cache.Slice]*sliceHealth),
	}
	for _, sl := range cache.Slices() {
		s.health[sl] = &sliceHealth{}
	}
	return s
}

func (s *Scheduler) State() State { return State(s.state.Load()) }

// Start runs a cycle immediately and then every interval until Stop or ctx
// is done. It reports false when the schedule is already running.
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return false
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running.Store(true)

	go s.loop(ctx, interval)
	return true
}

// Stop cancels the repeating schedule and the discount expiry timer. Fetches
// already in flight run to completion.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel == nil {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.cancel = nil
	s.running.Store(false)
	s.mu.Unlock()

	s.discMu.Lock()
	if s.expiry != nil {
		s.expiry.Stop()
		s.expiry = nil
	}
	s.discMu.Unlock()
}

func (s *Scheduler) loop(ctx context.Context, interval time.Duration) {
	s.RunCycle(ctx)

	if interval <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("sync schedule stopped")
			return
		case <-ticker.C:
			s.RunCycle(ctx)
		}
	}
}

// RunCycle fetches every slice concurrently and applies what arrives. It never
// fails; per-slice problems are logged and listed in the report. Cancelling
// ctx does not abort fetches already issued, FetchTimeout bounds them.
func (s *Scheduler) RunCycle(ctx context.Context) CycleReport {
	seq := s.seq.Add(1)
	rep := CycleReport{
		ID:        uuid.NewString(),
		Seq:       seq,
		StartedAt: s.opts.Now(),
		Failed:    map[string]string{},
	}
	s.state.CompareAndSwap(int32(Idle), int32(InitialLoading))

	log := s.log.With(zap.Uint64("cycle", seq), zap.String("cycle_id", rep.ID))
	log.Debug("sync cycle started")

	fctx := context.WithoutCancel(ctx)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	for _, sl := range cache.Slices() {
		g.Go(func() error {
			start := time.Now()
			p, err := s.fetch(fctx, sl)
			s.metrics.Latency.WithLabelValues(sl.String()).Observe(time.Since(start).Seconds())
			s.recordFetch(sl, err)

			if err != nil {
				s.metrics.Fetches.WithLabelValues(sl.String(), resultError).Inc()
				log.Warn("slice fetch failed", zap.Stringer("slice", sl), zap.Error(err))

				mu.Lock()
				rep.Failed[sl.String()] = err.Error()
				mu.Unlock()

				if sl == cache.SliceDiscounts {
					s.reconcileDiscounts(seq, nil, false, log)
				}
				return nil
			}

			var applied bool
			if d, ok := p.(cache.Discounts); ok {
				applied = s.reconcileDiscounts(seq, d, true, log)
			} else {
				applied = s.cache.ReplaceAt(seq, p)
			}

			result := resultOK
			if !applied {
				result = resultDiscarded
			}
			s.metrics.Fetches.WithLabelValues(sl.String(), result).Inc()

			mu.Lock()
			if applied {
				rep.Applied = append(rep.Applied, sl.String())
			} else {
				rep.Discarded = append(rep.Discarded, sl.String())
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(rep.Applied)
	sort.Strings(rep.Discarded)
	rep.Duration = s.opts.Now().Sub(rep.StartedAt)

	s.cycles.Add(1)
	s.metrics.Cycles.Inc()
	s.state.Store(int32(Steady))

	s.mu.Lock()
	if seq >= s.last.Seq {
		s.last = rep
	}
	s.mu.Unlock()

	log.Info("sync cycle finished",
		zap.Int("applied", len(rep.Applied)),
		zap.Int("discarded", len(rep.Discarded)),
		zap.Int("failed", len(rep.Failed)),
		zap.Duration("duration", rep.Duration),
	)
	return rep
}

func (s *Scheduler) fetch(ctx context.Context, sl cache.Slice) (cache.Payload, error) {
	var p cache.Payload

	op := func() error {
		fctx, cancel := context.WithTimeout(ctx, s.opts.FetchTimeout)
		defer cancel()

		var err error
		p, err = fetchSlice(fctx, s.remote, sl)
		return err
	}

	var err error
	if s.opts.RetryMax == 0 {
		// WithMaxRetries treats 0 as unlimited.
		err = op()
	} else {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = s.opts.RetryInitial
		b.MaxElapsedTime = 0
		err = backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, uint64(s.opts.RetryMax)), ctx))
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// reconcileDiscounts runs the tracker over list, or over the last good list
// when the fetch failed, and publishes the active result.
func (s *Scheduler) reconcileDiscounts(seq uint64, list []catalog.Discount, fresh bool, log *zap.Logger) bool {
	s.discMu.Lock()
	defer s.discMu.Unlock()

	if seq < s.discCycle {
		return false
	}
	if fresh {
		s.lastDiscounts = slices.Clone(list)
		s.haveDiscounts = true
	} else {
		if !s.haveDiscounts {
			return false
		}
		list = s.lastDiscounts
	}
	s.discCycle = seq

	res := s.tracker.Reconcile(s.opts.Now(), list, s.phone())
	if len(res.Expired) > 0 || len(res.Removed) > 0 {
		log.Info("discounts retired",
			zap.Strings("expired", res.Expired),
			zap.Strings("removed", res.Removed),
		)
	}

	applied := s.cache.ReplaceAt(seq, cache.Discounts(res.Active))
	s.observeDiscounts(len(res.Excluded))
	s.armExpiryLocked()
	return applied
}

func (s *Scheduler) phone() string {
	if s.opts.Identity == nil {
		return ""
	}
	phone, ok := s.opts.Identity.PhoneNumber()
	if !ok {
		return ""
	}
	return phone
}

// armExpiryLocked schedules a sweep at the earliest tracked end time. Only
// armed while the schedule is running. Caller holds discMu.
func (s *Scheduler) armExpiryLocked() {
	if s.expiry != nil {
		s.expiry.Stop()
		s.expiry = nil
	}
	if !s.running.Load() {
		return
	}
	next, ok := s.tracker.NextExpiry()
	if !ok {
		return
	}
	d := next.Sub(s.opts.Now())
	if d < 0 {
		d = 0
	}
	s.expiry = time.AfterFunc(d, s.expire)
}

func (s *Scheduler) expire() {
	s.discMu.Lock()
	defer s.discMu.Unlock()

	active, changed := s.tracker.Sweep(s.opts.Now())
	if changed {
		s.cache.ReplaceAt(s.discCycle, cache.Discounts(active))
		s.log.Info("discount expired between cycles", zap.Int("active", len(active)))
		s.observeDiscounts(-1)
	}
	s.armExpiryLocked()
}

// observeDiscounts updates the lifecycle gauges; excluded < 0 leaves that gauge alone.
func (s *Scheduler) observeDiscounts(excluded int) {
	tracked, done := s.tracker.Counts()
	s.metrics.Discounts.WithLabelValues("tracked").Set(float64(tracked))
	s.metrics.Discounts.WithLabelValues("done").Set(float64(done))
	if excluded >= 0 {
		s.metrics.Discounts.WithLabelValues("excluded").Set(float64(excluded))
	}
}
