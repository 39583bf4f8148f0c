// Package analytics summarizes the action journal.
package analytics

import (
	"context"
	"sort"
	"time"

	"eviltwitter/internal/journal"
)

// HourlyActivity aggregates journal actions into per-hour buckets keyed by kind.
func HourlyActivity(actions []journal.Action) map[time.Time]map[string]int {
	buckets := make(map[time.Time]map[string]int)
	for _, a := range actions {
		key := a.At.UTC().Truncate(time.Hour)
		if _, ok := buckets[key]; !ok {
			buckets[key] = make(map[string]int)
		}
		buckets[key][a.Kind]++
	}
	return buckets
}

// SortedBucketKeys returns sorted hour keys.
func SortedBucketKeys(m map[time.Time]map[string]int) []time.Time {
	keys := make([]time.Time, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })
	return keys
}

// FailureCount is the number of actions that ended in an error.
func FailureCount(actions []journal.Action) int {
	n := 0
	for _, a := range actions {
		if !a.OK {
			n++
		}
	}
	return n
}

// Counter counts journal actions in a time window. *journal.DB satisfies it.
type Counter interface {
	CountActionsWithin(ctx context.Context, start, end time.Time, kind string) (int, error)
}

// Recent returns how many actions of kind happened in the current UTC hour
// and the current UTC day. Empty kind counts every action.
func Recent(ctx context.Context, c Counter, kind string, now time.Time) (hour, day int, err error) {
	now = now.UTC()
	startHour := now.Truncate(time.Hour)
	startDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	hour, err = c.CountActionsWithin(ctx, startHour, startHour.Add(time.Hour), kind)
	if err != nil {
		return 0, 0, err
	}
	day, err = c.CountActionsWithin(ctx, startDay, startDay.Add(24*time.Hour), kind)
	if err != nil {
		return 0, 0, err
	}
	return hour, day, nil
}
