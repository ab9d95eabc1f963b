package challenge_test

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/p-n-ai/pai-progress/internal/challenge"
)

func TestNextReset(t *testing.T) {
	saoPaulo, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Fatalf("LoadLocation() error = %v", err)
	}
	newYork, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("LoadLocation() error = %v", err)
	}

	tests := []struct {
		name string
		now  time.Time
		loc  *time.Location
		want time.Time
	}{
		{
			name: "utc afternoon",
			now:  time.Date(2025, 6, 1, 15, 30, 0, 0, time.UTC),
			loc:  time.UTC,
			want: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "already next day in utc, still today in sao paulo",
			now:  time.Date(2025, 6, 2, 1, 0, 0, 0, time.UTC), // 22:00 on the 1st in São Paulo
			loc:  saoPaulo,
			want: time.Date(2025, 6, 2, 0, 0, 0, 0, saoPaulo),
		},
		{
			name: "exactly midnight rolls to the following day",
			now:  time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			loc:  time.UTC,
			want: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "month end",
			now:  time.Date(2025, 1, 31, 12, 0, 0, 0, time.UTC),
			loc:  time.UTC,
			want: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "dst spring forward",
			now:  time.Date(2025, 3, 9, 0, 30, 0, 0, newYork),
			loc:  newYork,
			want: time.Date(2025, 3, 10, 0, 0, 0, 0, newYork),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := challenge.NextReset(tt.now, tt.loc); !got.Equal(tt.want) {
				t.Errorf("NextReset() = %v, want %v", got, tt.want)
			}
		})
	}

	// The spring-forward day is 23 hours long.
	start := challenge.StartOfDay(time.Date(2025, 3, 9, 12, 0, 0, 0, newYork), newYork)
	if d := challenge.NextReset(start, newYork).Sub(start); d != 23*time.Hour {
		t.Errorf("DST day length = %v, want 23h", d)
	}
}

func TestDayKey(t *testing.T) {
	saoPaulo, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Fatalf("LoadLocation() error = %v", err)
	}
	now := time.Date(2025, 6, 2, 1, 0, 0, 0, time.UTC)
	if got := challenge.DayKey(now, time.UTC); got != "2025-06-02" {
		t.Errorf("DayKey(UTC) = %s", got)
	}
	if got := challenge.DayKey(now, saoPaulo); got != "2025-06-01" {
		t.Errorf("DayKey(Sao Paulo) = %s", got)
	}
}

func TestRemainingUntil(t *testing.T) {
	now := time.Date(2025, 6, 1, 14, 15, 30, 500_000_000, time.UTC)
	next := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	got := challenge.RemainingUntil(now, next)
	if got.Hours != 9 || got.Minutes != 44 || got.Seconds != 29 {
		t.Errorf("RemainingUntil() = %dh%dm%ds, want 9h44m29s", got.Hours, got.Minutes, got.Seconds)
	}
	if !got.ResetAt.Equal(next) {
		t.Errorf("ResetAt = %v", got.ResetAt)
	}

	past := challenge.RemainingUntil(next.Add(time.Second), next)
	if past.Hours != 0 || past.Minutes != 0 || past.Seconds != 0 || past.Total != 0 {
		t.Errorf("past boundary = %+v, want zeros", past)
	}
}
