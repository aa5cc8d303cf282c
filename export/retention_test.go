package export

import (
	"testing"
	"time"
)

func TestRetention_Expired(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	policy := Retention{TTL: 24 * time.Hour, FailedTTL: time.Hour}

	cases := []struct {
		name   string
		record ExportRecord
		want   bool
	}{
		{"fresh completed", ExportRecord{State: StateCompleted, CompletedAt: now.Add(-time.Hour)}, false},
		{"old completed", ExportRecord{State: StateCompleted, CompletedAt: now.Add(-25 * time.Hour)}, true},
		{"exactly at ttl", ExportRecord{State: StateCompleted, CompletedAt: now.Add(-24 * time.Hour)}, true},
		{"failed uses failed ttl", ExportRecord{State: StateFailed, CompletedAt: now.Add(-2 * time.Hour)}, true},
		{"running never expires", ExportRecord{State: StateRunning, CreatedAt: now.Add(-48 * time.Hour)}, false},
		{"falls back to created", ExportRecord{State: StateCompleted, CreatedAt: now.Add(-30 * time.Hour)}, true},
	}
	for _, tc := range cases {
		if got := policy.Expired(tc.record, now); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}

	if (Retention{}).Enabled() || (Retention{}).Expired(ExportRecord{State: StateCompleted}, now) {
		t.Fatalf("zero retention should keep everything")
	}
}
