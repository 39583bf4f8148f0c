package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"eviltwitter/internal/graphql"
	"eviltwitter/internal/journal"
	"eviltwitter/internal/model"
)

type fakeTimeline struct {
	pages  []graphql.Page
	afters []string
	failAt int
}

func (f *fakeTimeline) Timeline(ctx context.Context, first int, after string) (graphql.Page, error) {
	f.afters = append(f.afters, after)
	if f.failAt > 0 && len(f.afters) == f.failAt {
		return graphql.Page{}, errors.New("boom")
	}
	if len(f.pages) == 0 {
		return graphql.Page{}, nil
	}
	p := f.pages[0]
	f.pages = f.pages[1:]
	return p, nil
}

func openJournal(t *testing.T) *journal.DB {
	t.Helper()
	db, err := journal.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSyncTimelinePaginationAndCursor(t *testing.T) {
	db := openJournal(t)
	ctx := context.Background()
	if err := db.SaveCursor(ctx, TimelineCursorKey, "c0"); err != nil {
		t.Fatal(err)
	}
	f := &fakeTimeline{pages: []graphql.Page{
		{Tweets: []model.Tweet{{ID: "1"}, {ID: "2"}}, HasNextPage: true, EndCursor: "c1"},
		{Tweets: []model.Tweet{{ID: "3"}}, HasNextPage: false, EndCursor: "c2"},
	}}
	var got []string
	n, err := SyncTimeline(ctx, f, db, 2, 5, func(ts []model.Tweet) {
		for _, tw := range ts {
			got = append(got, tw.ID)
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 || len(got) != 3 {
		t.Fatalf("expected 3 tweets, got %d %v", n, got)
	}
	if len(f.afters) != 2 || f.afters[0] != "c0" || f.afters[1] != "c1" {
		t.Fatalf("unexpected cursors sent: %v", f.afters)
	}
	v, err := db.LoadCursor(ctx, TimelineCursorKey)
	if err != nil || v != "c2" {
		t.Fatalf("cursor expected c2, got %s err=%v", v, err)
	}
}

func TestSyncTimelineKeepsProgressOnError(t *testing.T) {
	db := openJournal(t)
	ctx := context.Background()
	f := &fakeTimeline{failAt: 2, pages: []graphql.Page{
		{Tweets: []model.Tweet{{ID: "1"}}, HasNextPage: true, EndCursor: "c1"},
	}}
	n, err := SyncTimeline(ctx, f, db, 1, 5, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if n != 1 {
		t.Fatalf("expected 1 tweet before the failure, got %d", n)
	}
	v, _ := db.LoadCursor(ctx, TimelineCursorKey)
	if v != "c1" {
		t.Fatalf("cursor expected c1, got %q", v)
	}
}

type brokenCursors struct {
	saved []string
}

func (b *brokenCursors) LoadCursor(ctx context.Context, name string) (string, error) {
	return "", errors.New("disk I/O error")
}

func (b *brokenCursors) SaveCursor(ctx context.Context, name, value string) error {
	b.saved = append(b.saved, value)
	return nil
}

func TestSyncTimelineResumesAfterPartialFailure(t *testing.T) {
	db := openJournal(t)
	ctx := context.Background()
	if err := db.SaveCursor(ctx, TimelineCursorKey, "c0"); err != nil {
		t.Fatal(err)
	}
	f := &fakeTimeline{failAt: 3, pages: []graphql.Page{
		{Tweets: []model.Tweet{{ID: "1"}}, HasNextPage: true, EndCursor: "c1"},
		{Tweets: []model.Tweet{{ID: "2"}}, HasNextPage: true, EndCursor: "c2"},
	}}
	if _, err := SyncTimeline(ctx, f, db, 1, 5, nil); err == nil {
		t.Fatal("expected error")
	}
	v, _ := db.LoadCursor(ctx, TimelineCursorKey)
	if v != "c2" {
		t.Fatalf("cursor expected c2, got %q", v)
	}

	// next run starts where the failed one stopped
	f2 := &fakeTimeline{}
	if _, err := SyncTimeline(ctx, f2, db, 1, 1, nil); err != nil {
		t.Fatal(err)
	}
	if len(f2.afters) != 1 || f2.afters[0] != "c2" {
		t.Fatalf("expected resume from c2, got %v", f2.afters)
	}
}

func TestSyncTimelineCursorLoadError(t *testing.T) {
	cur := &brokenCursors{}
	f := &fakeTimeline{}
	n, err := SyncTimeline(context.Background(), f, cur, 10, 3, nil)
	if err == nil {
		t.Fatal("expected cursor load error")
	}
	if n != 0 || len(f.afters) != 0 {
		t.Fatalf("expected no timeline reads, got %d reads", len(f.afters))
	}
	if len(cur.saved) != 0 {
		t.Fatalf("expected no cursor writes, got %v", cur.saved)
	}
}

func TestRunSyncLoopStopsOnCancel(t *testing.T) {
	db := openJournal(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	f := &fakeTimeline{}
	err := RunSyncLoop(ctx, f, db, 10, 1, 10*time.Millisecond, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if len(f.afters) < 2 {
		t.Fatalf("expected repeated syncs, got %d", len(f.afters))
	}
}
