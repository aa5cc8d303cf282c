package export

import (
	"context"
	"time"
)

// RecordDeleter removes history records. Cleanup forgets expired exports
// through it when the tracker supports deletion.
type RecordDeleter interface {
	Delete(ctx context.Context, id string) error
}

// Retention decides when finished exports expire.
type Retention struct {
	// TTL is the age after which an export expires. Zero keeps exports.
	TTL time.Duration
	// FailedTTL overrides TTL for failed attempts when positive.
	FailedTTL time.Duration
}

// Enabled reports whether any export can expire.
func (r Retention) Enabled() bool {
	return r.TTL > 0 || r.FailedTTL > 0
}

// Expired reports whether record has expired at now. Running exports
// never expire.
func (r Retention) Expired(record ExportRecord, now time.Time) bool {
	if record.State == StateRunning {
		return false
	}
	ttl := r.TTL
	if record.State == StateFailed && r.FailedTTL > 0 {
		ttl = r.FailedTTL
	}
	if ttl <= 0 {
		return false
	}
	finished := record.CompletedAt
	if finished.IsZero() {
		finished = record.CreatedAt
	}
	return !finished.Add(ttl).After(now)
}
