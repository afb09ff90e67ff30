package quota

import (
	"errors"
	"fmt"
	"time"

	"xpurge/internal/model"
)

// DefaultDailyLimit is the free tier allowance per UTC day.
const DefaultDailyLimit = 50

// ErrQuotaExceeded is returned when a free profile has nothing left today.
var ErrQuotaExceeded = errors.New("daily limit reached")

const dateLayout = "2006-01-02"

// Today returns the UTC calendar date used as the ledger key.
func Today(now time.Time) string { return now.UTC().Format(dateLayout) }

// Allowance is what a profile may still delete today.
type Allowance struct {
	Allowed   bool
	Remaining int // meaningless when Unlimited
	Unlimited bool
}

// EffectiveUsed applies the lazy day reset: a count recorded on another day is zero.
func EffectiveUsed(storedDate string, storedCount int, today string) int {
	if storedDate != today || storedCount < 0 {
		return 0
	}
	return storedCount
}

// Check evaluates the profile against the daily limit. limit <= 0 selects the default.
func Check(p model.Profile, today string, limit int) Allowance {
	if p.Unlimited() {
		return Allowance{Allowed: true, Unlimited: true}
	}
	if limit <= 0 {
		limit = DefaultDailyLimit
	}
	remaining := limit - EffectiveUsed(p.LastDeletionDate, p.DeletedToday, today)
	if remaining < 0 {
		remaining = 0
	}
	return Allowance{Allowed: remaining > 0, Remaining: remaining}
}

// ApplyUsage returns the ledger values after deleted items were removed today.
// A stale count is reset before the new deletions are added.
func ApplyUsage(p model.Profile, deleted int, today string) model.Usage {
	if deleted < 0 {
		deleted = 0
	}
	return model.Usage{
		DeletedToday:     EffectiveUsed(p.LastDeletionDate, p.DeletedToday, today) + deleted,
		LastDeletionDate: today,
	}
}

// NoticeKind tells why a selection was cut down.
type NoticeKind string

const (
	NoticeNone    NoticeKind = ""
	NoticeCeiling NoticeKind = "ceiling"
	NoticeQuota   NoticeKind = "quota"
)

// Notice explains a truncated selection to the user.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
}

func (n Notice) Empty() bool { return n.Kind == NoticeNone }

// Clamp returns how many of n selected items may be submitted. The per-batch
// ceiling applies first and the remaining quota second; the notice names the
// tighter bound. A zero limit with a.Allowed false means nothing may be sent.
func Clamp(a Allowance, n, maxBatch int) (int, Notice) {
	limit := n
	var notice Notice
	if maxBatch > 0 && limit > maxBatch {
		limit = maxBatch
		notice = Notice{Kind: NoticeCeiling, Message: fmt.Sprintf("Only the first %d selected posts are deleted per batch.", maxBatch)}
	}
	if a.Unlimited {
		return limit, notice
	}
	if !a.Allowed {
		return 0, Notice{Kind: NoticeQuota, Message: "Daily limit reached. Upgrade for unlimited deletions."}
	}
	if a.Remaining < limit {
		limit = a.Remaining
		notice = Notice{Kind: NoticeQuota, Message: fmt.Sprintf("Only %d deletions left today; deleting the first %d selected posts.", a.Remaining, limit)}
	}
	return limit, notice
}

// NextReset is the start of the next UTC day, when a spent allowance returns.
func NextReset(now time.Time) time.Time {
	u := now.UTC()
	return time.Date(u.Year(), u.Month(), u.Day()+1, 0, 0, 0, 0, time.UTC)
}
