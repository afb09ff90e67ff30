package model

import "time"

// Credentials carry the X web session of the user. They are held in memory for
// the duration of one session and are never persisted or logged.
type Credentials struct {
	AuthToken string `json:"authToken"`
	CSRFToken string `json:"csrfToken"`
}

// Valid reports whether both tokens are present.
func (c Credentials) Valid() bool { return c.AuthToken != "" && c.CSRFToken != "" }

// String redacts both tokens so credentials never leak through %v.
func (c Credentials) String() string { return "Credentials{redacted}" }

// Account is the identity the remote API resolves from a set of credentials.
type Account struct {
	ID             string
	ScreenName     string
	TotalItemCount int
}

// Kind classifies a post.
type Kind string

const (
	KindOriginal Kind = "original"
	KindRetweet  Kind = "retweet" // reposts and quote posts
	KindReply    Kind = "reply"
)

// Kinds lists every classification in display order.
var Kinds = []Kind{KindOriginal, KindRetweet, KindReply}

// Item is a deletable post normalized from the remote timeline.
type Item struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"-"`
	Date      string    `json:"date"`
	SortIndex string    `json:"cursor"`
	Kind      Kind      `json:"tweetType"`
}

// PageResult is one page of the user's timeline. An empty NextCursor means no
// further pages exist.
type PageResult struct {
	Items      []Item
	NextCursor string
	TotalCount int
}

// BatchResult aggregates the outcome of one deletion batch. Failed keeps input order.
type BatchResult struct {
	Deleted int      `json:"deleted"`
	Failed  []string `json:"errors,omitempty"`
}

// Tier is a subscription level.
type Tier string

const (
	TierFree     Tier = "free"
	TierPro      Tier = "pro"
	TierLifetime Tier = "lifetime"
)

// Status of a subscription. Only meaningful for TierPro.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Profile is the slice of the user profile record the deletion flow reads.
type Profile struct {
	UserID           string
	Email            string
	Tier             Tier
	Status           Status
	DeletedToday     int
	LastDeletionDate string // UTC YYYY-MM-DD, empty if never
	SaleID           string
}

// Unlimited reports whether the profile is exempt from the daily quota.
func (p Profile) Unlimited() bool {
	return p.Tier == TierLifetime || (p.Tier == TierPro && p.Status == StatusActive)
}

// Usage is the ledger update requested after a batch deleted something.
type Usage struct {
	DeletedToday     int
	LastDeletionDate string
}

// DeletionEvent is one batch recorded in the deletion log.
type DeletionEvent struct {
	Timestamp time.Time
	BatchID   string
	Deleted   int
	Failed    int
}
