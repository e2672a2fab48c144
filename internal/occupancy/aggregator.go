// Package occupancy keeps an approximate "currently inside" count per event,
// fed by committed admissions and corrected by authoritative recomputes.
package occupancy

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ticketgate/gate-api/internal/cache"
	"github.com/ticketgate/gate-api/internal/domain"
	"github.com/ticketgate/gate-api/internal/pkg/clock"
)

// Store computes the authoritative breakdown from the record store.
type Store interface {
	OccupancyBreakdown(ctx context.Context, eventID uint) (domain.OccupancySnapshot, error)
}

type Config struct {
	QueueSize        int
	Workers          int
	StaleAfter       time.Duration
	RecomputeTimeout time.Duration
	SubscriberBuffer int
}

type eventState struct {
	mu       sync.Mutex
	snapshot domain.OccupancySnapshot
	ready    bool
	dirty    atomic.Bool
}

type Aggregator struct {
	store Store
	cache *cache.Cache
	clock clock.Clock
	conf  Config
	queue chan domain.OccupancyChange

	mu     sync.Mutex
	events map[uint]*eventState
	subs   map[uint]map[chan domain.OccupancySnapshot]struct{}

	wg      sync.WaitGroup
	cancel  context.CancelFunc
	started bool
}

func NewAggregator(store Store, c *cache.Cache, clk clock.Clock, conf Config) *Aggregator {
	if conf.QueueSize <= 0 {
		conf.QueueSize = 1024
	}
	if conf.Workers <= 0 {
		conf.Workers = 1
	}
	if conf.RecomputeTimeout <= 0 {
		conf.RecomputeTimeout = 5 * time.Second
	}
	if conf.SubscriberBuffer <= 0 {
		conf.SubscriberBuffer = 8
	}

	return &Aggregator{
		store:  store,
		cache:  c,
		clock:  clk,
		conf:   conf,
		queue:  make(chan domain.OccupancyChange, conf.QueueSize),
		events: make(map[uint]*eventState),
		subs:   make(map[uint]map[chan domain.OccupancySnapshot]struct{}),
	}
}

// Start launches the workers. They stop when ctx is done or Stop is called.
func (a *Aggregator) Start(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started {
		return
	}
	a.started = true

	ctx, a.cancel = context.WithCancel(ctx)
	for i := 0; i < a.conf.Workers; i++ {
		a.wg.Add(1)
		go a.work(ctx)
	}

	zap.L().Info("occupancy aggregator started", zap.Int("workers", a.conf.Workers), zap.Int("queue_size", a.conf.QueueSize))
}

// Stop cancels the workers and waits for them. Queued changes are dropped.
func (a *Aggregator) Stop() {
	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	a.wg.Wait()
}

// Notify queues a committed change without blocking. When the queue is full
// the change is dropped and the event is recomputed on its next update.
func (a *Aggregator) Notify(change domain.OccupancyChange) {
	select {
	case a.queue <- change:
	default:
		a.state(change.EventID).dirty.Store(true)
		zap.L().Warn("occupancy change dropped, queue full",
			zap.Uint("event_id", change.EventID),
			zap.String("direction", string(change.Direction)),
		)
	}
}

// Snapshot returns the cached snapshot of the event, or recomputes it from
// the record store when it is missing or older than the staleness bound.
func (a *Aggregator) Snapshot(ctx context.Context, eventID uint) (domain.OccupancySnapshot, error) {
	entry, err := cache.Lookup[domain.OccupancySnapshot](ctx, a.cache, cache.OccupancyKey(eventID))
	if err == nil && entry.Kind == cache.Hit && !a.stale(entry.Value) {
		return entry.Value, nil
	}

	return a.Recompute(ctx, eventID)
}

// Recompute replaces the running counters of the event with the
// authoritative breakdown and publishes it.
func (a *Aggregator) Recompute(ctx context.Context, eventID uint) (domain.OccupancySnapshot, error) {
	st := a.state(eventID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := a.recompute(ctx, eventID, st); err != nil {
		return domain.OccupancySnapshot{}, err
	}

	return st.snapshot, nil
}

// Subscribe streams every snapshot published for the event. A subscriber
// that falls behind misses snapshots rather than slowing the workers.
func (a *Aggregator) Subscribe(eventID uint) (<-chan domain.OccupancySnapshot, func()) {
	ch := make(chan domain.OccupancySnapshot, a.conf.SubscriberBuffer)

	a.mu.Lock()
	if a.subs[eventID] == nil {
		a.subs[eventID] = make(map[chan domain.OccupancySnapshot]struct{})
	}
	a.subs[eventID][ch] = struct{}{}
	a.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.subs[eventID], ch)
			if len(a.subs[eventID]) == 0 {
				delete(a.subs, eventID)
			}
			a.mu.Unlock()
			close(ch)
		})
	}

	return ch, cancel
}

func (a *Aggregator) work(ctx context.Context) {
	defer a.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case change := <-a.queue:
			a.apply(ctx, change)
		}
	}
}

func (a *Aggregator) apply(ctx context.Context, change domain.OccupancyChange) {
	st := a.state(change.EventID)
	st.mu.Lock()
	defer st.mu.Unlock()

	// The change is already committed, so a recompute includes it.
	if !st.ready || st.dirty.Load() {
		if err := a.recompute(ctx, change.EventID, st); err != nil {
			zap.L().Warn("occupancy recompute failed",
				zap.Uint("event_id", change.EventID),
				zap.Error(err),
			)
		}
		return
	}

	s := &st.snapshot
	if s.ByEntrance == nil {
		s.ByEntrance = make(map[string]domain.EntranceTally)
	}
	tally := s.ByEntrance[change.Entrance]
	switch change.Direction {
	case domain.DirectionEntry:
		if !change.WasInside {
			s.Inside++
		}
		s.Entries++
		tally.Entries++
	case domain.DirectionExit:
		if change.WasInside {
			s.Inside = max(s.Inside-1, 0)
		}
		s.Exits++
		tally.Exits++
	}
	s.ByEntrance[change.Entrance] = tally
	s.Percentage = percentage(s.Inside, s.TotalAttendees)
	s.ComputedAt = a.clock.Now()

	a.publish(ctx, *s)
}

// recompute must be called with st.mu held.
func (a *Aggregator) recompute(ctx context.Context, eventID uint, st *eventState) error {
	ctx, cancel := context.WithTimeout(ctx, a.conf.RecomputeTimeout)
	defer cancel()

	st.dirty.Store(false)
	snapshot, err := a.store.OccupancyBreakdown(ctx, eventID)
	if err != nil {
		st.dirty.Store(true)
		return err
	}

	snapshot.EventID = eventID
	snapshot.Percentage = percentage(snapshot.Inside, snapshot.TotalAttendees)
	snapshot.ComputedAt = a.clock.Now()
	st.snapshot = snapshot
	st.ready = true

	a.publish(ctx, snapshot)
	return nil
}

// publish must be called with the event state locked, which keeps cache
// writes and subscriber deliveries in order.
func (a *Aggregator) publish(ctx context.Context, snapshot domain.OccupancySnapshot) {
	snapshot.ByEntrance = copyTallies(snapshot.ByEntrance)
	cache.Put(ctx, a.cache, cache.OccupancyKey(snapshot.EventID), snapshot)

	a.mu.Lock()
	defer a.mu.Unlock()
	for ch := range a.subs[snapshot.EventID] {
		select {
		case ch <- snapshot:
		default:
		}
	}
}

func (a *Aggregator) state(eventID uint) *eventState {
	a.mu.Lock()
	defer a.mu.Unlock()

	st, ok := a.events[eventID]
	if !ok {
		st = &eventState{}
		a.events[eventID] = st
	}
	return st
}

func (a *Aggregator) stale(snapshot domain.OccupancySnapshot) bool {
	if a.conf.StaleAfter <= 0 {
		return false
	}
	return a.clock.Now().Sub(snapshot.ComputedAt) > a.conf.StaleAfter
}

func percentage(inside, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(inside) / float64(total) * 100
}

func copyTallies(in map[string]domain.EntranceTally) map[string]domain.EntranceTally {
	out := make(map[string]domain.EntranceTally, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
