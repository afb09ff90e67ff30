package session

import (
	"xpurge/internal/model"
	"xpurge/internal/quota"
)

// Phase is the position of a session in the deletion workflow.
type Phase string

const (
	PhaseUnauthenticated Phase = "unauthenticated"
	PhaseListing         Phase = "listing"
	PhaseReviewing       Phase = "reviewing"
	PhaseDeleting        Phase = "deleting"
	PhaseExhausted       Phase = "exhausted"
)

// State is everything one user session holds between transitions. Every
// Controller transition takes a State and returns the next one; a failed
// transition returns its input unchanged.
type State struct {
	Phase       Phase
	UserID      string
	Credentials model.Credentials `json:"-"`
	Account     model.Account
	Items       []model.Item
	Cursor      string
	TotalCount  int

	TotalDeleted int
	LastBatch    model.BatchResult
	LastBatchID  string
	Notice       quota.Notice

	// MoreAvailable is set when every held item is gone but the account still
	// has posts. The next page is only fetched on an explicit LoadMore.
	MoreAvailable bool
}

// New returns an unauthenticated session for userID.
func New(userID string) State {
	return State{Phase: PhaseUnauthenticated, UserID: userID}
}

// Reset drops credentials and everything listed, keeping the user.
func Reset(st State) State { return New(st.UserID) }

// CanLoadMore reports whether LoadMore would be accepted.
func (s State) CanLoadMore() bool { return s.Phase == PhaseReviewing && s.Cursor != "" }

// Count returns how many held items have the given kind.
func (s State) Count(k model.Kind) int {
	n := 0
	for _, it := range s.Items {
		if it.Kind == k {
			n++
		}
	}
	return n
}

// settle picks the resting phase after a listing or a batch.
func settle(st State) State {
	st.MoreAvailable = false
	switch {
	case len(st.Items) > 0:
		st.Phase = PhaseReviewing
	case st.TotalCount > 0:
		st.Phase = PhaseReviewing
		st.MoreAvailable = st.Cursor != ""
	default:
		st.Phase = PhaseExhausted
	}
	return st
}

// SelectByKind returns ids of items with kind k in list order, at most max of
// them. An empty kind selects every item; max <= 0 means no bound.
func SelectByKind(items []model.Item, k model.Kind, max int) []string {
	var ids []string
	for _, it := range items {
		if k != "" && it.Kind != k {
			continue
		}
		if max > 0 && len(ids) == max {
			break
		}
		ids = append(ids, it.ID)
	}
	return ids
}
