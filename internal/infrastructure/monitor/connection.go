package monitor

import (
	"context"
	"sync"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fastygo/auction/internal/infrastructure/journal"
)

// Pinger is satisfied by the pgx pool and by the in-memory store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// EventsHealth reports the state of the event broker connection.
type EventsHealth interface {
	Connected() bool
}

// Monitor polls dependencies in the background. Only the system of record
// decides IsOnline; cache and broker are best-effort collaborators.
type Monitor struct {
	store       Pinger
	storeDriver string
	redis       *redislib.Client
	events      EventsHealth
	journal     *journal.Store

	status   Status
	mu       sync.RWMutex
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	logger   *zap.Logger
}

type Options struct {
	Store       Pinger
	StoreDriver string
	Redis       *redislib.Client
	Events      EventsHealth
	Journal     *journal.Store
	Interval    time.Duration
}

func New(opts Options, logger *zap.Logger) *Monitor {
	if opts.Interval <= 0 {
		opts.Interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		store:       opts.Store,
		storeDriver: opts.StoreDriver,
		redis:       opts.Redis,
		events:      opts.Events,
		journal:     opts.Journal,
		interval:    opts.Interval,
		stopCh:      make(chan struct{}),
		logger:      logger,
	}
}

func (m *Monitor) Start() {
	go m.loop()
}

func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.Store == StateUp
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Refresh runs every check once, synchronously.
func (m *Monitor) Refresh() {
	journalState, journalSize := m.checkJournal()
	status := Status{
		Store:       m.checkStore(),
		StoreDriver: m.storeDriver,
		Redis:       m.checkRedis(),
		Events:      m.checkEvents(),
		Journal:     journalState,
		JournalSize: journalSize,
		LastCheck:   time.Now(),
	}

	m.mu.Lock()
	m.status = status
	m.mu.Unlock()
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Refresh()
	for {
		select {
		case <-ticker.C:
			m.Refresh()
		case <-m.stopCh:
			return
		}
	}
}

func (m *Monitor) checkStore() State {
	if m.store == nil {
		return StateDown
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := m.store.Ping(ctx); err != nil {
		m.logger.Warn("store ping failed", zap.Error(err))
		return StateDown
	}
	return StateUp
}

func (m *Monitor) checkRedis() State {
	if m.redis == nil {
		return StateDisabled
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if m.redis.Ping(ctx).Err() != nil {
		return StateDown
	}
	return StateUp
}

func (m *Monitor) checkEvents() State {
	if m.events == nil {
		return StateDisabled
	}
	if !m.events.Connected() {
		return StateDown
	}
	return StateUp
}

func (m *Monitor) checkJournal() (State, int) {
	if m.journal == nil {
		return StateDisabled, 0
	}
	size, err := m.journal.Size()
	if err != nil {
		m.logger.Warn("journal size check failed", zap.Error(err))
		return StateDown, size
	}
	return StateUp, size
}
