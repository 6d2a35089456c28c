package server

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TransferStatus represents the current state of a streamed delivery
type TransferStatus string

const (
	TransferStreaming TransferStatus = "streaming"
	TransferCompleted TransferStatus = "completed"
	TransferFailed    TransferStatus = "failed"
	TransferAborted   TransferStatus = "aborted"
	TransferCancelled TransferStatus = "cancelled"
)

func (s TransferStatus) finished() bool {
	return s != TransferStreaming
}

// Transfer is one extractor-backed download being streamed to a client
type Transfer struct {
	ID        string         `json:"id"`
	URL       string         `json:"url"`
	Platform  string         `json:"platform"`
	Filename  string         `json:"filename"`
	Format    string         `json:"format"`
	Quality   string         `json:"quality,omitempty"`
	Status    TransferStatus `json:"status"`
	BytesSent int64          `json:"bytes_sent"`
	Error     string         `json:"error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`

	abort func()
}

// TransferTracker keeps the active and recently finished transfers
type TransferTracker struct {
	transfers     map[string]*Transfer
	mu            sync.RWMutex
	retention     time.Duration
	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
	now           func() time.Time
}

// NewTransferTracker creates a tracker that forgets finished transfers after retention
func NewTransferTracker(retention time.Duration) *TransferTracker {
	if retention <= 0 {
		retention = time.Hour
	}
	return &TransferTracker{
		transfers:   make(map[string]*Transfer),
		retention:   retention,
		stopCleanup: make(chan struct{}),
		now:         time.Now,
	}
}

// Start begins the cleanup routine (every 10 minutes)
func (t *TransferTracker) Start() {
	t.cleanupTicker = time.NewTicker(10 * time.Minute)
	go t.cleanupLoop()
}

// Stop ends the cleanup routine. Running transfers are left to their handlers.
func (t *TransferTracker) Stop() {
	close(t.stopCleanup)
	if t.cleanupTicker != nil {
		t.cleanupTicker.Stop()
	}
}

func (t *TransferTracker) cleanupLoop() {
	for {
		select {
		case <-t.cleanupTicker.C:
			t.cleanupOld()
		case <-t.stopCleanup:
			return
		}
	}
}

func (t *TransferTracker) cleanupOld() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-t.retention)
	removed := 0
	for id, tr := range t.transfers {
		if tr.Status.finished() && tr.UpdatedAt.Before(cutoff) {
			delete(t.transfers, id)
			removed++
		}
	}
	return removed
}

// Add registers a new streaming transfer. abort must stop the underlying extraction.
func (t *TransferTracker) Add(tr Transfer, abort func()) string {
	now := t.now()
	tr.ID = uuid.NewString()
	tr.Status = TransferStreaming
	tr.CreatedAt = now
	tr.UpdatedAt = now
	tr.abort = abort

	t.mu.Lock()
	t.transfers[tr.ID] = &tr
	t.mu.Unlock()
	return tr.ID
}

// Progress records the number of bytes written so far
func (t *TransferTracker) Progress(id string, sent int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if tr, ok := t.transfers[id]; ok {
		tr.BytesSent = sent
		tr.UpdatedAt = t.now()
	}
}

// Finish moves a transfer to a terminal status. A cancelled transfer stays cancelled.
func (t *TransferTracker) Finish(id string, status TransferStatus, errMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tr, ok := t.transfers[id]
	if !ok {
		return
	}
	if tr.Status != TransferCancelled {
		tr.Status = status
	}
	if errMsg != "" {
		tr.Error = errMsg
	}
	tr.abort = nil
	tr.UpdatedAt = t.now()
}

// Get returns a copy of a transfer by ID
func (t *TransferTracker) Get(id string) *Transfer {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if tr, ok := t.transfers[id]; ok {
		cp := *tr
		return &cp
	}
	return nil
}

// All returns copies of every tracked transfer, newest first
func (t *TransferTracker) All() []*Transfer {
	t.mu.RLock()
	out := make([]*Transfer, 0, len(t.transfers))
	for _, tr := range t.transfers {
		cp := *tr
		out = append(out, &cp)
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Active returns the number of transfers still streaming
func (t *TransferTracker) Active() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0
	for _, tr := range t.transfers {
		if !tr.Status.finished() {
			n++
		}
	}
	return n
}

// Cancel aborts a streaming transfer, killing its extractor
func (t *TransferTracker) Cancel(id string) bool {
	t.mu.Lock()
	tr, ok := t.transfers[id]
	if !ok || tr.Status.finished() {
		t.mu.Unlock()
		return false
	}
	abort := tr.abort
	tr.Status = TransferCancelled
	tr.UpdatedAt = t.now()
	t.mu.Unlock()

	if abort != nil {
		abort()
	}
	return true
}

// Remove deletes a single finished transfer by ID
func (t *TransferTracker) Remove(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	tr, ok := t.transfers[id]
	if !ok || !tr.Status.finished() {
		return false
	}
	delete(t.transfers, id)
	return true
}
