// Package stats records paid-tier ("premium") events into monthly buckets.
// The pipeline only sees the Sink interface; backends are chosen by config.
package stats

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/guiyumin/mediahub/internal/core/config"
)

// AmountPerPremiumEvent is what one premium event adds to the monthly total raised.
const AmountPerPremiumEvent = 5

// Event kinds.
const (
	KindDownload = "download"
	KindAdView   = "ad_view"
)

// PremiumEvent is one completed paid-tier action.
type PremiumEvent struct {
	Kind     string    `json:"kind"`
	URL      string    `json:"url,omitempty"`
	Platform string    `json:"platform,omitempty"`
	Format   string    `json:"format,omitempty"`
	Quality  string    `json:"quality,omitempty"`
	At       time.Time `json:"at"`
}

// Snapshot is the aggregate for one calendar month.
type Snapshot struct {
	Month            string    `json:"month"`
	Year             int       `json:"year"`
	PremiumDownloads int64     `json:"premiumDownloads"`
	TotalRaised      int64     `json:"totalRaised"`
	UpdatedAt        time.Time `json:"updatedAt,omitempty"`
}

// Sink stores premium events.
type Sink interface {
	RecordPremiumEvent(ctx context.Context, ev PremiumEvent) error
	// Current returns the bucket for the current month.
	Current(ctx context.Context) (Snapshot, error)
	Close() error
}

// New opens the backend selected by cfg.Backend.
func New(ctx context.Context, cfg config.StatsConfig) (Sink, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite":
		return OpenSQLite(ctx, cfg.SQLitePath)
	case "redis":
		return NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	}
	return nil, fmt.Errorf("unknown stats backend %q", cfg.Backend)
}

// bucket returns the month name and year an instant falls into (UTC).
func bucket(t time.Time) (string, int) {
	t = t.UTC()
	return t.Month().String(), t.Year()
}

func normalize(ev PremiumEvent, now func() time.Time) PremiumEvent {
	if ev.At.IsZero() {
		ev.At = now()
	}
	if ev.Kind == "" {
		ev.Kind = KindDownload
	}
	return ev
}
