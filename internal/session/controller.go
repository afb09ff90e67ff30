package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"xpurge/internal/logging"
	"xpurge/internal/metrics"
	"xpurge/internal/model"
	"xpurge/internal/purge"
	"xpurge/internal/quota"
)

var (
	ErrInvalidTransition = errors.New("transition not allowed in current phase")
	ErrNoCursor          = errors.New("no further page to load")
)

// Source lists the user's posts.
type Source interface {
	ResolveAccount(ctx context.Context, creds model.Credentials) (model.Account, error)
	ListPage(ctx context.Context, creds model.Credentials, acct model.Account, cursor string) (model.PageResult, error)
}

// BatchDeleter runs one deletion batch.
type BatchDeleter interface {
	DeleteBatch(ctx context.Context, creds model.Credentials, ids []string) (model.BatchResult, error)
}

// ProfileStore reads and updates the quota fields of a profile.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (model.Profile, error)
	UpdateUsage(ctx context.Context, userID string, u model.Usage) error
}

// EventRecorder appends batches to the deletion log.
type EventRecorder interface {
	PutDeletionEvent(ctx context.Context, userID string, ev model.DeletionEvent) error
}

// LedgerPersistError is a failed usage update after a batch. It is logged and
// never returned to callers: the deletions already happened.
type LedgerPersistError struct {
	UserID string
	Err    error
}

func (e *LedgerPersistError) Error() string {
	return fmt.Sprintf("persist usage for %s: %v", e.UserID, e.Err)
}

func (e *LedgerPersistError) Unwrap() error { return e.Err }

// Options tunes a Controller. Zero values select the defaults.
type Options struct {
	DailyLimit int
	MaxBatch   int
	Events     EventRecorder
	Now        func() time.Time
	// OnPhase observes transient phases (Listing, Deleting) and the resting
	// phase each transition ends in.
	OnPhase func(Phase)
}

// Controller drives sessions through list, review and delete.
type Controller struct {
	source   Source
	engine   BatchDeleter
	profiles ProfileStore
	events   EventRecorder
	limit    int
	maxBatch int
	now      func() time.Time
	onPhase  func(Phase)
}

// NewController wires a controller over the listing source, deletion engine and profile store.
func NewController(src Source, engine BatchDeleter, profiles ProfileStore, opts Options) *Controller {
	c := &Controller{
		source:   src,
		engine:   engine,
		profiles: profiles,
		events:   opts.Events,
		limit:    opts.DailyLimit,
		maxBatch: opts.MaxBatch,
		now:      opts.Now,
		onPhase:  opts.OnPhase,
	}
	if c.limit <= 0 {
		c.limit = quota.DefaultDailyLimit
	}
	if c.maxBatch <= 0 {
		c.maxBatch = 25
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// MaxBatch is the per-batch ceiling in effect.
func (c *Controller) MaxBatch() int { return c.maxBatch }

func (c *Controller) enter(p Phase) {
	if c.onPhase != nil {
		c.onPhase(p)
	}
}

// FetchPage resolves the account behind creds and lists one page from cursor.
func (c *Controller) FetchPage(ctx context.Context, creds model.Credentials, cursor string) (model.Account, model.PageResult, error) {
	if !creds.Valid() {
		return model.Account{}, model.PageResult{}, purge.ErrMissingCredentials
	}
	acct, err := c.source.ResolveAccount(ctx, creds)
	if err != nil {
		return model.Account{}, model.PageResult{}, err
	}
	page, err := c.source.ListPage(ctx, creds, acct, cursor)
	if err != nil {
		return acct, model.PageResult{}, err
	}
	logging.Info("page_fetched", map[string]any{
		"screen_name": acct.ScreenName,
		"items":       len(page.Items),
		"total":       page.TotalCount,
		"has_more":    page.NextCursor != "",
	})
	return acct, page, nil
}

// Authenticate lists the first page with creds.
func (c *Controller) Authenticate(ctx context.Context, st State, creds model.Credentials) (State, error) {
	if st.Phase != PhaseUnauthenticated {
		return st, ErrInvalidTransition
	}
	c.enter(PhaseListing)
	acct, page, err := c.FetchPage(ctx, creds, "")
	if err != nil {
		c.enter(st.Phase)
		return st, err
	}
	next := New(st.UserID)
	next.Credentials = creds
	next.Account = acct
	next.Items = page.Items
	next.Cursor = page.NextCursor
	next.TotalCount = page.TotalCount
	next = settle(next)
	c.enter(next.Phase)
	return next, nil
}

// LoadMore appends the page after the held cursor.
func (c *Controller) LoadMore(ctx context.Context, st State) (State, error) {
	if st.Phase != PhaseReviewing {
		return st, ErrInvalidTransition
	}
	if st.Cursor == "" {
		return st, ErrNoCursor
	}
	c.enter(PhaseListing)
	acct, page, err := c.FetchPage(ctx, st.Credentials, st.Cursor)
	if err != nil {
		c.enter(st.Phase)
		return st, err
	}
	next := st
	next.Account = acct
	next.Items = appendNew(st.Items, page.Items)
	next.Cursor = page.NextCursor
	next.TotalCount = page.TotalCount
	next.Notice = quota.Notice{}
	next = settle(next)
	c.enter(next.Phase)
	return next, nil
}

// Outcome is the result of one clamped, executed selection.
type Outcome struct {
	BatchID   string
	Submitted []string
	Result    model.BatchResult
	Notice    quota.Notice
}

// DeleteSelection clamps ids to the batch ceiling and the user's remaining
// quota, deletes what is left and books the confirmed deletions.
func (c *Controller) DeleteSelection(ctx context.Context, userID string, creds model.Credentials, ids []string) (Outcome, error) {
	var out Outcome
	if !creds.Valid() {
		return out, purge.ErrMissingCredentials
	}
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return out, purge.ErrNoItems
	}
	profile, err := c.profiles.GetProfile(ctx, userID)
	if err != nil {
		return out, fmt.Errorf("load profile: %w", err)
	}
	today := quota.Today(c.now())
	allowance := quota.Check(profile, today, c.limit)
	n, notice := quota.Clamp(allowance, len(ids), c.maxBatch)
	if n == 0 {
		metrics.IncQuotaClamp("exhausted")
		return out, quota.ErrQuotaExceeded
	}
	if !notice.Empty() {
		metrics.IncQuotaClamp(string(notice.Kind))
		logging.Info("selection_clamped", map[string]any{"user_id": userID, "selected": len(ids), "submitted": n, "reason": string(notice.Kind)})
	}
	out.Submitted = append([]string(nil), ids[:n]...)
	out.Notice = notice
	out.BatchID = ulid.Make().String()

	res, err := c.engine.DeleteBatch(ctx, creds, out.Submitted)
	if err != nil {
		return out, err
	}
	out.Result = res
	c.book(ctx, userID, profile, out, today)
	return out, nil
}

// book records usage and the audit event. Both are best effort.
func (c *Controller) book(ctx context.Context, userID string, profile model.Profile, out Outcome, today string) {
	ctx = context.WithoutCancel(ctx)
	if out.Result.Deleted > 0 {
		usage := quota.ApplyUsage(profile, out.Result.Deleted, today)
		if err := c.profiles.UpdateUsage(ctx, userID, usage); err != nil {
			perr := &LedgerPersistError{UserID: userID, Err: err}
			metrics.IncLedgerError()
			logging.Error("ledger_persist_failed", map[string]any{"user_id": userID, "error": perr.Error(), "deleted": out.Result.Deleted})
		}
	}
	if c.events == nil {
		return
	}
	ev := model.DeletionEvent{
		Timestamp: c.now().UTC(),
		BatchID:   out.BatchID,
		Deleted:   out.Result.Deleted,
		Failed:    len(out.Result.Failed),
	}
	if err := c.events.PutDeletionEvent(ctx, userID, ev); err != nil {
		logging.Warn("deletion_event_failed", map[string]any{"user_id": userID, "batch_id": out.BatchID, "error": err.Error()})
	}
}

// Delete runs one batch over the selected ids and merges the result.
// Deleted ids leave the held list; failed ids stay for a later batch.
func (c *Controller) Delete(ctx context.Context, st State, ids []string) (State, error) {
	if st.Phase != PhaseReviewing {
		return st, ErrInvalidTransition
	}
	c.enter(PhaseDeleting)
	out, err := c.DeleteSelection(ctx, st.UserID, st.Credentials, ids)
	if err != nil {
		c.enter(st.Phase)
		return st, err
	}
	failed := make(map[string]bool, len(out.Result.Failed))
	for _, id := range out.Result.Failed {
		failed[id] = true
	}
	gone := make(map[string]bool, len(out.Submitted))
	for _, id := range out.Submitted {
		if !failed[id] {
			gone[id] = true
		}
	}
	next := st
	next.Items = make([]model.Item, 0, len(st.Items))
	for _, it := range st.Items {
		if !gone[it.ID] {
			next.Items = append(next.Items, it)
		}
	}
	next.TotalDeleted += out.Result.Deleted
	next.TotalCount -= out.Result.Deleted
	if next.TotalCount < 0 {
		next.TotalCount = 0
	}
	next.LastBatch = out.Result
	next.LastBatchID = out.BatchID
	next.Notice = out.Notice
	next = settle(next)
	c.enter(next.Phase)
	return next, nil
}

// uniqueIDs drops repeated ids, keeping the first occurrence in order.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func appendNew(held, page []model.Item) []model.Item {
	seen := make(map[string]bool, len(held))
	out := make([]model.Item, 0, len(held)+len(page))
	for _, it := range held {
		seen[it.ID] = true
		out = append(out, it)
	}
	for _, it := range page {
		if !seen[it.ID] {
			seen[it.ID] = true
			out = append(out, it)
		}
	}
	return out
}
