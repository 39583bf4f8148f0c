package analytics

import (
	"context"
	"testing"
	"time"

	"eviltwitter/internal/journal"
)

func TestHourlyActivity(t *testing.T) {
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	actions := []journal.Action{
		{At: base.Add(5 * time.Minute), Kind: "follow", OK: true},
		{At: base.Add(10 * time.Minute), Kind: "follow", OK: false},
		{At: base.Add(70 * time.Minute), Kind: "reply", OK: true},
	}
	b := HourlyActivity(actions)
	keys := SortedBucketKeys(b)
	if len(keys) != 2 || !keys[0].Equal(base) {
		t.Fatalf("unexpected buckets: %v", keys)
	}
	if b[base]["follow"] != 2 || b[keys[1]]["reply"] != 1 {
		t.Fatalf("unexpected counts: %v", b)
	}
	if FailureCount(actions) != 1 {
		t.Fatalf("expected one failure")
	}
}

func TestRecentCountsHourAndDay(t *testing.T) {
	db, err := journal.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 30, 0, 0, time.UTC)
	for _, at := range []time.Time{now.Add(-20 * time.Minute), now.Add(-2 * time.Hour), now.Add(-13 * time.Hour)} {
		if err := db.PutAction(ctx, journal.Action{At: at, Kind: "tweet", OK: true}); err != nil {
			t.Fatal(err)
		}
	}
	_ = db.PutAction(ctx, journal.Action{At: now, Kind: "like", OK: true})

	hour, day, err := Recent(ctx, db, "tweet", now)
	if err != nil {
		t.Fatal(err)
	}
	if hour != 1 || day != 2 {
		t.Fatalf("expected hour=1 day=2, got %d %d", hour, day)
	}
	hour, _, _ = Recent(ctx, db, "", now)
	if hour != 2 {
		t.Fatalf("expected 2 actions this hour, got %d", hour)
	}
}
