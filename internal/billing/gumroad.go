package billing

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"xpurge/internal/config"
	"xpurge/internal/logging"
	"xpurge/internal/model"
	"xpurge/internal/store/sqlitedb"
)

var (
	ErrInvalidSeller = errors.New("invalid seller")
	ErrNoEmail       = errors.New("no email provided")
)

// Actions reported back to the payment provider.
const (
	ActionRefund       = "refund_processed"
	ActionUserNotFound = "user_not_found"
	ActionUpgraded     = "upgraded"
)

// Sale is the subset of a Gumroad ping the tier logic reads.
type Sale struct {
	SellerID         string
	Email            string
	ProductPermalink string
	ProductName      string
	SaleID           string
	Recurrence       string
	Refunded         bool
	Disputed         bool
	Chargebacked     bool
}

// ParseSale reads a form-encoded ping.
func ParseSale(form url.Values) Sale {
	s := Sale{
		SellerID:         form.Get("seller_id"),
		Email:            strings.TrimSpace(form.Get("email")),
		ProductPermalink: form.Get("product_permalink"),
		ProductName:      form.Get("product_name"),
		SaleID:           form.Get("sale_id"),
		Recurrence:       form.Get("recurrence"),
		Refunded:         form.Get("refunded") == "true",
		Disputed:         form.Get("disputed") == "true",
		Chargebacked:     form.Get("chargebacked") == "true",
	}
	if s.ProductPermalink == "" {
		s.ProductPermalink = form.Get("short_product_id")
	}
	return s
}

// Reversed reports a sale that no longer entitles the buyer to anything.
func (s Sale) Reversed() bool { return s.Refunded || s.Disputed || s.Chargebacked }

// Plans maps product permalinks to tiers. Full product URLs are accepted.
type Plans struct {
	ProPermalink      string
	LifetimePermalink string
}

// ResolveTier picks the tier a sale grants. Lifetime wins over pro.
func ResolveTier(s Sale, p Plans) model.Tier {
	life := permalink(p.LifetimePermalink)
	pro := permalink(p.ProPermalink)
	switch {
	case life != "" && s.ProductPermalink == life,
		strings.Contains(strings.ToLower(s.ProductName), "lifetime"):
		return model.TierLifetime
	case pro != "" && s.ProductPermalink == pro,
		s.Recurrence == "monthly":
		return model.TierPro
	}
	return model.TierFree
}

// permalink strips a product URL like https://x.gumroad.com/l/abc down to abc.
func permalink(s string) string {
	if i := strings.Index(s, "/l/"); i >= 0 {
		return s[i+len("/l/"):]
	}
	return s
}

// Store is the part of the profile store subscriptions touch.
type Store interface {
	FindUserByEmail(ctx context.Context, email string) (string, error)
	SetSubscription(ctx context.Context, userID string, tier model.Tier, status model.Status, saleID string) error
	SetSubscriptionByEmail(ctx context.Context, email string, tier model.Tier, status model.Status, saleID string) error
}

// Result describes what a ping changed.
type Result struct {
	Action string     `json:"action"`
	Tier   model.Tier `json:"tier,omitempty"`
}

// Processor applies payment pings to profiles.
type Processor struct {
	store    Store
	sellerID string
	plans    Plans
}

func NewProcessor(store Store, cfg config.BillingConfig) *Processor {
	return &Processor{
		store:    store,
		sellerID: cfg.SellerID,
		plans:    Plans{ProPermalink: cfg.ProPermalink, LifetimePermalink: cfg.LifetimePermalink},
	}
}

// Handle applies one sale. A ping for an unknown email is acknowledged
// without changes so the provider stops redelivering it.
func (p *Processor) Handle(ctx context.Context, s Sale) (Result, error) {
	if s.SellerID != "" && s.SellerID != p.sellerID {
		logging.Warn("webhook_invalid_seller", map[string]any{"seller_id": s.SellerID})
		return Result{}, ErrInvalidSeller
	}
	if s.Reversed() {
		if s.Email != "" {
			err := p.store.SetSubscriptionByEmail(ctx, s.Email, model.TierFree, model.StatusInactive, "")
			if err != nil && !errors.Is(err, sqlitedb.ErrNotFound) {
				return Result{}, err
			}
		}
		logging.Info("webhook_refund", map[string]any{"sale_id": s.SaleID})
		return Result{Action: ActionRefund}, nil
	}
	if s.Email == "" {
		return Result{}, ErrNoEmail
	}
	userID, err := p.store.FindUserByEmail(ctx, s.Email)
	if errors.Is(err, sqlitedb.ErrNotFound) {
		logging.Info("webhook_user_not_found", map[string]any{"sale_id": s.SaleID})
		return Result{Action: ActionUserNotFound}, nil
	}
	if err != nil {
		return Result{}, err
	}
	tier := ResolveTier(s, p.plans)
	if err := p.store.SetSubscription(ctx, userID, tier, model.StatusActive, s.SaleID); err != nil {
		return Result{}, err
	}
	logging.Info("webhook_subscription_updated", map[string]any{"user_id": userID, "tier": string(tier), "sale_id": s.SaleID})
	return Result{Action: ActionUpgraded, Tier: tier}, nil
}
