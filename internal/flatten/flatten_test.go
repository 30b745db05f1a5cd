package flatten

import (
	"reflect"
	"testing"
	"time"

	"oap/internal/model"
	"oap/internal/sink"
)

func mustDecimal(t *testing.T, s string) model.Decimal {
	t.Helper()
	d, err := model.NewDecimal(s)
	if err != nil {
		t.Fatalf("decimal %q: %v", s, err)
	}
	return d
}

func sampleOrder(t *testing.T) model.Order {
	return model.Order{
		OrderID:        "O1",
		Customer:       model.Customer{CustomerID: "C1", City: "sao paulo", State: "sp"},
		OrderStatus:    "delivered",
		OrderTimestamp: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		Campaign: model.CampaignInfo{
			Discount:   mustDecimal(t, "5.0"),
			Channel:    "email",
			CouponCode: "summer10",
		},
		Items: []model.LineItem{
			{ProductID: "P1", Price: mustDecimal(t, "10.0"), SellerID: "S1", Campaign: model.NoCampaign()},
			{ProductID: "P2", Price: mustDecimal(t, "20.0"), SellerID: "S2", Campaign: model.CampaignInfo{
				Discount:   mustDecimal(t, "2.0"),
				Channel:    "social",
				CouponCode: "flash20",
			}},
		},
	}
}

func TestProject_RowPerLineItem(t *testing.T) {
	o := sampleOrder(t)
	rows := Project(o)
	if len(rows) != len(o.Items) {
		t.Fatalf("want %d rows, got %d", len(o.Items), len(rows))
	}
	for i, r := range rows {
		if r.OrderID != "O1" || r.CustomerID != "C1" {
			t.Fatalf("row %d missing parent fields: %+v", i, r)
		}
		if r.ItemSeq != i+1 {
			t.Fatalf("row %d has seq %d", i, r.ItemSeq)
		}
	}
}

func TestProject_CampaignLevelsSideBySide(t *testing.T) {
	rows := Project(sampleOrder(t))

	// First item has no item campaign but keeps the order-level one.
	r := rows[0]
	if r.ItemCampaignCoupon != model.SentinelNoCampaign {
		t.Fatalf("item coupon: %s", r.ItemCampaignCoupon)
	}
	if r.OrderCampaignCoupon != "summer10" || r.OrderCampaignChannel != "email" {
		t.Fatalf("order campaign lost: %+v", r)
	}

	// Second item carries its own campaign; neither level overwrites the other.
	r = rows[1]
	if r.ItemCampaignCoupon != "flash20" || r.OrderCampaignCoupon != "summer10" {
		t.Fatalf("campaign levels merged: %+v", r)
	}
}

func TestProject_Restartable(t *testing.T) {
	o := sampleOrder(t)
	a := Project(o)
	b := Project(o)
	if len(a) != len(b) {
		t.Fatalf("row counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if !reflect.DeepEqual(a[i], b[i]) {
			t.Fatalf("row %d differs between runs", i)
		}
	}
}

func TestCampaignFlag(t *testing.T) {
	if got := CampaignFlag(model.SentinelNoCampaign); got != model.FlagNoCampaign {
		t.Fatalf("sentinel flag: %s", got)
	}
	if got := CampaignFlag("summer10"); got != model.FlagCampaignUsed {
		t.Fatalf("coupon flag: %s", got)
	}
	// Pre-normalization tables may carry the sentinel in mixed case.
	for _, coupon := range []string{"NO_CAMPAIGN", "No_Campaign"} {
		if got := CampaignFlag(coupon); got != model.FlagNoCampaign {
			t.Fatalf("flag for %q: %s", coupon, got)
		}
	}
}

func TestRecomputeCampaignFlags(t *testing.T) {
	mem := sink.NewMemory()
	rows := Rows(Project(sampleOrder(t)))
	// Simulate a table written before the flag column was derived, including
	// a legacy row whose sentinel was never lower-cased.
	for _, r := range rows {
		r["campaign_flag"] = ""
	}
	legacy := Rows(Project(sampleOrder(t)))[0]
	legacy["order_id"] = "O-legacy"
	legacy["item_campaign_coupon"] = "NO_CAMPAIGN"
	legacy["campaign_flag"] = ""
	rows = append(rows, legacy)
	if err := mem.CreateOrReplaceTable("flat", TableColumns, rows); err != nil {
		t.Fatalf("create table: %v", err)
	}

	n, err := RecomputeCampaignFlags(mem, "flat")
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if n != len(rows) {
		t.Fatalf("want %d updates, got %d", len(rows), n)
	}

	got, err := mem.Rows("flat")
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	for _, r := range got {
		coupon := r["item_campaign_coupon"].(string)
		want := CampaignFlag(coupon)
		if r["campaign_flag"] != want {
			t.Fatalf("flag for coupon %q: got %v want %s", coupon, r["campaign_flag"], want)
		}
		// The mixed-case sentinel must not read as a used campaign.
		if r["order_id"] == "O-legacy" && r["campaign_flag"] != model.FlagNoCampaign {
			t.Fatalf("legacy sentinel mislabeled: %v", r["campaign_flag"])
		}
	}
}
