package jobs

import (
	"context"
	"fmt"
	"time"

	"eviltwitter/internal/graphql"
	"eviltwitter/internal/logging"
	"eviltwitter/internal/metrics"
	"eviltwitter/internal/model"
)

// TimelineCursorKey is where the last seen timeline end cursor is kept.
const TimelineCursorKey = "timeline:end_cursor"

// TimelinePager is the GraphQL timeline read. *graphql.Client satisfies it.
type TimelinePager interface {
	Timeline(ctx context.Context, first int, after string) (graphql.Page, error)
}

// CursorStore persists named cursors. *journal.DB satisfies it.
type CursorStore interface {
	LoadCursor(ctx context.Context, name string) (string, error)
	SaveCursor(ctx context.Context, name, value string) error
}

// SyncTimeline pages the timeline forward from the saved cursor, hands every
// page to sink and saves the last end cursor. It stops after pages pages or
// when the server reports no next page, and returns the number of tweets seen.
func SyncTimeline(ctx context.Context, src TimelinePager, cur CursorStore, perPage, pages int, sink func([]model.Tweet)) (int, error) {
	metrics.SyncRuns.Inc()
	after, err := cur.LoadCursor(ctx, TimelineCursorKey)
	if err != nil {
		metrics.SyncErrors.Inc()
		return 0, fmt.Errorf("load timeline cursor: %w", err)
	}
	seen := 0
	start, last := after, after
	for i := 0; i < pages; i++ {
		page, err := src.Timeline(ctx, perPage, after)
		if err != nil {
			metrics.SyncErrors.Inc()
			if last != "" && last != start {
				if serr := cur.SaveCursor(ctx, TimelineCursorKey, last); serr != nil {
					logging.Error("timeline_sync_save_cursor", map[string]any{"error": serr.Error()})
				}
			}
			return seen, err
		}
		if len(page.Tweets) > 0 && sink != nil {
			sink(page.Tweets)
		}
		seen += len(page.Tweets)
		if page.EndCursor != "" {
			last = page.EndCursor
		}
		if !page.HasNextPage || page.EndCursor == "" {
			break
		}
		after = page.EndCursor
	}
	metrics.SyncedTweets.Add(float64(seen))
	if last != "" {
		if err := cur.SaveCursor(ctx, TimelineCursorKey, last); err != nil {
			return seen, err
		}
	}
	logging.Info("timeline_sync", map[string]any{"tweets": seen, "cursor": last})
	return seen, nil
}

// RunSyncLoop runs SyncTimeline on a ticker until ctx is cancelled.
func RunSyncLoop(ctx context.Context, src TimelinePager, cur CursorStore, perPage, pages int, interval time.Duration, sink func([]model.Tweet)) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	// run immediately
	_, _ = SyncTimeline(ctx, src, cur, perPage, pages, sink)
	for {
		select {
		case <-ctx.Done():
			logging.Info("timeline_sync_stop", nil)
			return ctx.Err()
		case <-t.C:
			if _, err := SyncTimeline(ctx, src, cur, perPage, pages, sink); err != nil {
				logging.Error("timeline_sync_error", map[string]any{"error": err.Error()})
			}
		}
	}
}
