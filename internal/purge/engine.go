package purge

import (
	"context"
	"errors"
	"time"

	"xpurge/internal/logging"
	"xpurge/internal/metrics"
	"xpurge/internal/model"
	"xpurge/internal/xclient"
)

var (
	ErrMissingCredentials = errors.New("missing credentials")
	ErrNoItems            = errors.New("no tweet ids provided")
)

// DefaultPacing is the pause after every delete call.
const DefaultPacing = 500 * time.Millisecond

// Deleter removes a single post.
type Deleter interface {
	DeleteItem(ctx context.Context, creds model.Credentials, id string) error
}

// Engine deletes ids one at a time with a fixed pause after each call.
type Engine struct {
	deleter Deleter
	pacing  time.Duration
	sleep   func(time.Duration)
	now     func() time.Time
}

// NewEngine returns an engine that waits pacing after every delete call.
func NewEngine(d Deleter, pacing time.Duration) *Engine {
	if pacing < 0 {
		pacing = DefaultPacing
	}
	return &Engine{deleter: d, pacing: pacing, sleep: time.Sleep, now: time.Now}
}

// DeleteBatch deletes ids in order. Once validation passes the batch runs to
// the end even if ctx is cancelled, and every id ends up either counted as
// deleted or listed in Failed. Errors are only returned for invalid input.
func (e *Engine) DeleteBatch(ctx context.Context, creds model.Credentials, ids []string) (model.BatchResult, error) {
	var res model.BatchResult
	if !creds.Valid() {
		return res, ErrMissingCredentials
	}
	if len(ids) == 0 {
		return res, ErrNoItems
	}
	ctx = context.WithoutCancel(ctx)
	start := e.now()
	defer metrics.ObserveBatchDuration(start)

	for _, id := range ids {
		err := e.deleter.DeleteItem(ctx, creds, id)
		if err != nil {
			res.Failed = append(res.Failed, id)
			fields := map[string]any{"tweet_id": id, "error": err.Error()}
			var de *xclient.DeleteItemError
			if errors.As(err, &de) && de.Status != 0 {
				fields["status"] = de.Status
			}
			logging.Warn("delete_failed", fields)
			metrics.IncDeletion(false)
		} else {
			res.Deleted++
			metrics.IncDeletion(true)
		}
		e.sleep(e.pacing)
	}
	logging.Info("batch_done", map[string]any{
		"submitted":   len(ids),
		"deleted":     res.Deleted,
		"failed":      len(res.Failed),
		"duration_ms": e.now().Sub(start).Milliseconds(),
	})
	return res, nil
}
