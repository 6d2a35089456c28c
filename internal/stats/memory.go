package stats

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Memory keeps buckets in process memory. Counts are lost on restart.
type Memory struct {
	mu      sync.Mutex
	buckets map[string]*Snapshot
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		buckets: make(map[string]*Snapshot),
		now:     time.Now,
	}
}

func (m *Memory) RecordPremiumEvent(_ context.Context, ev PremiumEvent) error {
	ev = normalize(ev, m.now)
	month, year := bucket(ev.At)
	key := fmt.Sprintf("%d-%s", year, month)

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.buckets[key]
	if !ok {
		s = &Snapshot{Month: month, Year: year}
		m.buckets[key] = s
	}
	s.PremiumDownloads++
	s.TotalRaised += AmountPerPremiumEvent
	s.UpdatedAt = ev.At.UTC()
	return nil
}

func (m *Memory) Current(_ context.Context) (Snapshot, error) {
	month, year := bucket(m.now())

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.buckets[fmt.Sprintf("%d-%s", year, month)]; ok {
		return *s, nil
	}
	return Snapshot{Month: month, Year: year}, nil
}

func (m *Memory) Close() error {
	return nil
}
