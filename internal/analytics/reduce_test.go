package analytics

import (
	"testing"
	"time"

	"oap/internal/flatten"
	"oap/internal/model"
)

func row(t *testing.T, orderID, customerID, sellerID, price string, ts time.Time) flatten.FlatRow {
	t.Helper()
	d, err := model.NewDecimal(price)
	if err != nil {
		t.Fatalf("decimal %q: %v", price, err)
	}
	return flatten.FlatRow{
		OrderID:               orderID,
		CustomerID:            customerID,
		SellerID:              sellerID,
		Price:                 d,
		OrderTimestamp:        ts,
		ItemCampaignDiscount:  model.DecimalZero(),
		OrderCampaignDiscount: model.DecimalZero(),
	}
}

func TestReduce_AvgDividesByDistinctOrders(t *testing.T) {
	ts := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)
	rows := []flatten.FlatRow{
		row(t, "O1", "C1", "S1", "10", ts),
		row(t, "O1", "C1", "S1", "20", ts), // same order, second line item
		row(t, "O2", "C2", "S1", "30", ts),
	}
	groups := Reduce(rows, BySeller)
	g := groups["S1"]
	if g == nil {
		t.Fatalf("missing seller group")
	}
	if g.Rows != 3 || g.Orders() != 2 {
		t.Fatalf("rows=%d orders=%d", g.Rows, g.Orders())
	}
	if g.Revenue.String() != "60" {
		t.Fatalf("revenue: %s", g.Revenue)
	}
	// 60 revenue over 2 distinct orders, not 3 rows.
	if aov := g.AvgOrderValue(); aov.String() != "30" {
		t.Fatalf("aov: %s", aov)
	}
}

func TestReduce_EmptyGroupAvgIsZero(t *testing.T) {
	g := newGroupMetrics()
	if !g.AvgOrderValue().IsZero() {
		t.Fatalf("empty group aov must be zero")
	}
}

func TestReduce_TemporalKeysSkipZeroTimestamps(t *testing.T) {
	ts := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
	rows := []flatten.FlatRow{
		row(t, "O1", "C1", "S1", "10", ts),
		row(t, "O2", "C2", "S1", "20", time.Time{}),
	}
	for name, fn := range map[string]KeyFunc{"hour": ByHour, "day": ByDay, "month": ByMonth} {
		groups := Reduce(rows, fn)
		total := int64(0)
		for _, g := range groups {
			total += g.Rows
		}
		if total != 1 {
			t.Fatalf("%s: rows with no timestamp must be skipped, got %d", name, total)
		}
	}
	if groups := Reduce(rows, ByHour); groups["09"] == nil {
		t.Fatalf("hour key missing: %v", groups)
	}
}

func TestCombine_MatchesSingleReduce(t *testing.T) {
	ts := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)
	rows := []flatten.FlatRow{
		row(t, "O1", "C1", "S1", "10", ts),
		row(t, "O1", "C1", "S1", "20", ts),
		row(t, "O2", "C2", "S1", "30", ts),
		row(t, "O3", "C3", "S2", "5", ts),
	}

	whole := Reduce(rows, BySeller)
	partA := Reduce(rows[:2], BySeller)
	partB := Reduce(rows[2:], BySeller)

	for _, combined := range []map[string]*GroupMetrics{
		Combine(partA, partB),
		Combine(partB, partA), // order must not matter
		Combine(Combine(partA), partB),
	} {
		if len(combined) != len(whole) {
			t.Fatalf("group count: %d vs %d", len(combined), len(whole))
		}
		for key, want := range whole {
			got := combined[key]
			if got == nil {
				t.Fatalf("missing group %s", key)
			}
			if got.Rows != want.Rows || got.Orders() != want.Orders() {
				t.Fatalf("group %s: rows=%d/%d orders=%d/%d", key, got.Rows, want.Rows, got.Orders(), want.Orders())
			}
			if got.Revenue.Cmp(want.Revenue) != 0 {
				t.Fatalf("group %s revenue: %s vs %s", key, got.Revenue, want.Revenue)
			}
		}
	}
}

func TestReduce_CampaignFlagKey(t *testing.T) {
	ts := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)
	a := row(t, "O1", "C1", "S1", "10", ts)
	a.CampaignFlag = model.FlagCampaignUsed
	b := row(t, "O2", "C2", "S1", "20", ts)
	b.CampaignFlag = model.FlagNoCampaign

	groups := Reduce([]flatten.FlatRow{a, b}, ByCampaignFlag)
	if groups[model.FlagCampaignUsed] == nil || groups[model.FlagNoCampaign] == nil {
		t.Fatalf("flag groups: %v", groups)
	}
}
