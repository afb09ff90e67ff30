package analytics

import (
	"testing"
	"time"

	"xpurge/internal/model"
)

func TestDailyDeletions(t *testing.T) {
	d1 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 3, 2, 23, 59, 0, 0, time.UTC)
	events := []model.DeletionEvent{
		{Timestamp: d2, Deleted: 10},
		{Timestamp: d1, Deleted: 20, Failed: 5},
		{Timestamp: d1.Add(3 * time.Hour), Deleted: 5},
	}
	days := SortedDays(DailyDeletions(events))
	if len(days) != 2 {
		t.Fatalf("expected 2 days, got %d", len(days))
	}
	if days[0].Day != time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) || days[0].Batches != 2 || days[0].Deleted != 25 || days[0].Failed != 5 {
		t.Fatalf("unexpected first day %+v", days[0])
	}
	if days[1].Deleted != 10 {
		t.Fatalf("unexpected second day %+v", days[1])
	}
	if r := FailureRate(days); r != 5.0/40.0 {
		t.Fatalf("failure rate %v", r)
	}
	if FailureRate(nil) != 0 {
		t.Fatal("empty rate must be 0")
	}
}
