package analytics

import (
	"sort"
	"time"

	"xpurge/internal/model"
)

// DayTotals sums the batches of one UTC day.
type DayTotals struct {
	Day     time.Time
	Batches int
	Deleted int
	Failed  int
}

// DailyDeletions aggregates deletion events into per-day buckets.
func DailyDeletions(events []model.DeletionEvent) map[time.Time]DayTotals {
	buckets := make(map[time.Time]DayTotals)
	for _, e := range events {
		ts := e.Timestamp.UTC()
		key := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
		b := buckets[key]
		b.Day = key
		b.Batches++
		b.Deleted += e.Deleted
		b.Failed += e.Failed
		buckets[key] = b
	}
	return buckets
}

// SortedDays returns the buckets oldest first.
func SortedDays(m map[time.Time]DayTotals) []DayTotals {
	out := make([]DayTotals, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out
}

// FailureRate is failed over attempted across all days, 0 when nothing ran.
func FailureRate(days []DayTotals) float64 {
	var del, fail int
	for _, d := range days {
		del += d.Deleted
		fail += d.Failed
	}
	if del+fail == 0 {
		return 0
	}
	return float64(fail) / float64(del+fail)
}
