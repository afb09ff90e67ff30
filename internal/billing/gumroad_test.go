package billing

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xpurge/internal/config"
	"xpurge/internal/model"
	"xpurge/internal/store/sqlitedb"
)

func TestResolveTier(t *testing.T) {
	plans := Plans{ProPermalink: "https://shop.gumroad.com/l/xpro", LifetimePermalink: "xlife"}
	cases := []struct {
		name string
		sale Sale
		want model.Tier
	}{
		{"lifetime permalink", Sale{ProductPermalink: "xlife"}, model.TierLifetime},
		{"lifetime name", Sale{ProductName: "XPurge LIFETIME deal"}, model.TierLifetime},
		{"pro permalink", Sale{ProductPermalink: "xpro"}, model.TierPro},
		{"monthly", Sale{ProductPermalink: "other", Recurrence: "monthly"}, model.TierPro},
		{"unknown", Sale{ProductPermalink: "other"}, model.TierFree},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, ResolveTier(c.sale, plans))
		})
	}
	assert.Equal(t, model.TierFree, ResolveTier(Sale{}, Plans{}), "empty permalinks must not match empty products")
}

func TestParseSaleFallsBackToShortProductID(t *testing.T) {
	s := ParseSale(url.Values{"short_product_id": {"abc"}, "refunded": {"true"}, "email": {" a@b.c "}})
	assert.Equal(t, "abc", s.ProductPermalink)
	assert.True(t, s.Reversed())
	assert.Equal(t, "a@b.c", s.Email)
}

func newProcessor(t *testing.T) (*Processor, *sqlitedb.DB) {
	t.Helper()
	db, err := sqlitedb.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.EnsureProfile(context.Background(), "u1", "buyer@example.com")
	require.NoError(t, err)
	p := NewProcessor(db, config.BillingConfig{SellerID: "seller", ProPermalink: "xpro", LifetimePermalink: "xlife"})
	return p, db
}

func TestHandleUpgradeAndRefund(t *testing.T) {
	p, db := newProcessor(t)
	ctx := context.Background()

	res, err := p.Handle(ctx, Sale{SellerID: "seller", Email: "buyer@example.com", ProductPermalink: "xpro", SaleID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, Result{Action: ActionUpgraded, Tier: model.TierPro}, res)
	prof, _ := db.GetProfile(ctx, "u1")
	assert.True(t, prof.Unlimited())
	assert.Equal(t, "s1", prof.SaleID)

	res, err = p.Handle(ctx, Sale{SellerID: "seller", Email: "buyer@example.com", Refunded: true})
	require.NoError(t, err)
	assert.Equal(t, ActionRefund, res.Action)
	prof, _ = db.GetProfile(ctx, "u1")
	assert.Equal(t, model.TierFree, prof.Tier)
	assert.Equal(t, model.StatusInactive, prof.Status)
}

func TestHandleRejections(t *testing.T) {
	p, _ := newProcessor(t)
	ctx := context.Background()

	_, err := p.Handle(ctx, Sale{SellerID: "someone-else", Email: "buyer@example.com"})
	assert.ErrorIs(t, err, ErrInvalidSeller)

	_, err = p.Handle(ctx, Sale{SellerID: "seller"})
	assert.ErrorIs(t, err, ErrNoEmail)

	res, err := p.Handle(ctx, Sale{Email: "stranger@example.com", ProductPermalink: "xlife"})
	require.NoError(t, err)
	assert.Equal(t, ActionUserNotFound, res.Action)

	res, err = p.Handle(ctx, Sale{Email: "stranger@example.com", Chargebacked: true})
	require.NoError(t, err)
	assert.Equal(t, ActionRefund, res.Action)
}
