// Package analytics emits search events for downstream analysis.
// Emission is best-effort: it must never fail or slow a search call.
package analytics

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SearchEvent describes one executed search.
type SearchEvent struct {
	ID         string
	FilterHash string
	Query      string
	UserID     int64
	Page       int
	Total      int
	CacheHit   bool
	Duration   time.Duration
	At         time.Time
}

// Emitter receives search events.
type Emitter interface {
	SearchExecuted(ctx context.Context, ev SearchEvent)
}

// LogEmitter writes events as structured log lines; a downstream
// pipeline picks them up from there.
type LogEmitter struct {
	log *zap.Logger
}

// NewLogEmitter creates a log-backed emitter.
func NewLogEmitter(log *zap.Logger) *LogEmitter {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogEmitter{log: log}
}

// SearchExecuted emits one search event. Assigns the event id and
// timestamp if the caller left them empty.
func (e *LogEmitter) SearchExecuted(_ context.Context, ev SearchEvent) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	e.log.Info("search_executed",
		zap.String("event_id", ev.ID),
		zap.String("filter_hash", ev.FilterHash),
		zap.String("query", ev.Query),
		zap.Int64("user_id", ev.UserID),
		zap.Int("page", ev.Page),
		zap.Int("total", ev.Total),
		zap.Bool("cache_hit", ev.CacheHit),
		zap.Duration("duration", ev.Duration),
		zap.Time("at", ev.At),
	)
}

// NopEmitter drops all events.
type NopEmitter struct{}

// SearchExecuted implements Emitter.
func (NopEmitter) SearchExecuted(context.Context, SearchEvent) {}
