package quota

import (
	"testing"
	"time"

	"xpurge/internal/model"
)

const today = "2024-03-02"

func free(count int, date string) model.Profile {
	return model.Profile{Tier: model.TierFree, DeletedToday: count, LastDeletionDate: date}
}

func TestTodayIsUTC(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	now := time.Date(2024, 3, 2, 8, 0, 0, 0, loc) // 2024-03-01 22:00 UTC
	if got := Today(now); got != "2024-03-01" {
		t.Fatalf("Today=%s", got)
	}
}

func TestCheckResetsOnNewDay(t *testing.T) {
	a := Check(free(37, "2024-03-01"), today, 50)
	if !a.Allowed || a.Remaining != 50 || a.Unlimited {
		t.Fatalf("unexpected allowance %+v", a)
	}
}

func TestCheckCountsToday(t *testing.T) {
	cases := []struct {
		used      int
		remaining int
		allowed   bool
	}{
		{0, 50, true},
		{45, 5, true},
		{50, 0, false},
		{60, 0, false},
	}
	for _, c := range cases {
		a := Check(free(c.used, today), today, 0)
		if a.Remaining != c.remaining || a.Allowed != c.allowed {
			t.Errorf("used=%d: got %+v", c.used, a)
		}
	}
}

func TestCheckUnlimitedTiers(t *testing.T) {
	cases := []struct {
		p         model.Profile
		unlimited bool
	}{
		{model.Profile{Tier: model.TierLifetime, DeletedToday: 500, LastDeletionDate: today}, true},
		{model.Profile{Tier: model.TierPro, Status: model.StatusActive, DeletedToday: 500, LastDeletionDate: today}, true},
		{model.Profile{Tier: model.TierPro, Status: model.StatusInactive, DeletedToday: 50, LastDeletionDate: today}, false},
	}
	for _, c := range cases {
		a := Check(c.p, today, 50)
		if a.Unlimited != c.unlimited {
			t.Errorf("%s/%s: unlimited=%v", c.p.Tier, c.p.Status, a.Unlimited)
		}
		if !c.unlimited && a.Allowed {
			t.Errorf("inactive pro must be held to the free limit")
		}
	}
}

func TestApplyUsage(t *testing.T) {
	u := ApplyUsage(free(10, today), 5, today)
	if u.DeletedToday != 15 || u.LastDeletionDate != today {
		t.Fatalf("same day: %+v", u)
	}
	u = ApplyUsage(free(40, "2024-02-28"), 3, today)
	if u.DeletedToday != 3 || u.LastDeletionDate != today {
		t.Fatalf("stale day: %+v", u)
	}
	u = ApplyUsage(free(0, ""), 7, today)
	if u.DeletedToday != 7 {
		t.Fatalf("first use: %+v", u)
	}
}

func TestEffectiveUsed(t *testing.T) {
	if EffectiveUsed("", 9, today) != 0 || EffectiveUsed("2024-03-01", 9, today) != 0 || EffectiveUsed(today, 9, today) != 9 {
		t.Fatal("lazy reset broken")
	}
}

func TestClampQuotaNotice(t *testing.T) {
	a := Check(free(38, today), today, 50) // 12 remaining
	n, notice := Clamp(a, 30, 25)
	if n != 12 || notice.Kind != NoticeQuota {
		t.Fatalf("got %d %+v", n, notice)
	}
}

func TestClampCeilingNotice(t *testing.T) {
	n, notice := Clamp(Allowance{Allowed: true, Unlimited: true}, 30, 25)
	if n != 25 || notice.Kind != NoticeCeiling {
		t.Fatalf("got %d %+v", n, notice)
	}
	n, notice = Clamp(Allowance{Allowed: true, Remaining: 50}, 30, 25)
	if n != 25 || notice.Kind != NoticeCeiling {
		t.Fatalf("free with room: got %d %+v", n, notice)
	}
}

func TestClampWithinBounds(t *testing.T) {
	n, notice := Clamp(Allowance{Allowed: true, Remaining: 50}, 10, 25)
	if n != 10 || !notice.Empty() {
		t.Fatalf("got %d %+v", n, notice)
	}
}

func TestClampExhausted(t *testing.T) {
	n, notice := Clamp(Allowance{}, 5, 25)
	if n != 0 || notice.Kind != NoticeQuota {
		t.Fatalf("got %d %+v", n, notice)
	}
}

func TestNextReset(t *testing.T) {
	now := time.Date(2024, 12, 31, 22, 30, 0, 0, time.UTC)
	if got := NextReset(now); !got.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("NextReset=%s", got)
	}
}
