package monitor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Pinger is satisfied by the Postgres pool wrapper and the Redis client wrapper.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BufferProbe is satisfied by *buffer.Store.
type BufferProbe interface {
	Size() (int, error)
	CountByEntity() (map[string]int, error)
}

type Monitor struct {
	pg     Pinger
	redis  Pinger
	buffer BufferProbe

	status   Status
	mu       sync.RWMutex
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	logger   *zap.Logger
}

func New(pg, redis Pinger, buf BufferProbe, interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		pg:       pg,
		redis:    redis,
		buffer:   buf,
		interval: interval,
		stopCh:   make(chan struct{}),
		logger:   logger,
	}
}

func (m *Monitor) Start() {
	go m.loop()
}

func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// IsOnline reports whether Postgres answered the last probe. Buffered writes
// only need Postgres to replay.
func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.PostgreSQL
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
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

// Refresh probes every dependency once and stores the result.
func (m *Monitor) Refresh() {
	status := Status{
		PostgreSQL: ping(m.pg, 3*time.Second),
		Redis:      ping(m.redis, 2*time.Second),
		LastCheck:  time.Now(),
	}
	status.Buffer, status.BufferSize, status.BufferByEntity = m.checkBuffer()

	previous := m.GetStatus()
	if !previous.LastCheck.IsZero() && previous.PostgreSQL != status.PostgreSQL {
		m.logger.Info("postgres availability changed", zap.Bool("online", status.PostgreSQL))
	}

	m.mu.Lock()
	m.status = status
	m.mu.Unlock()
}

func ping(p Pinger, timeout time.Duration) bool {
	if p == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return p.Ping(ctx) == nil
}

func (m *Monitor) checkBuffer() (bool, int, map[string]int) {
	if m.buffer == nil {
		return false, 0, nil
	}
	size, err := m.buffer.Size()
	if err != nil {
		m.logger.Warn("buffer size check failed", zap.Error(err))
		return false, 0, nil
	}
	counts, err := m.buffer.CountByEntity()
	if err != nil {
		m.logger.Warn("buffer entity count failed", zap.Error(err))
	}
	return true, size, counts
}
