package analytics

import (
	"testing"
	"time"

	"oap/internal/flatten"
	"oap/internal/model"
)

func statsWithSpend(t *testing.T, spends ...string) []CustomerStats {
	t.Helper()
	out := make([]CustomerStats, len(spends))
	for i, s := range spends {
		d, err := model.NewDecimal(s)
		if err != nil {
			t.Fatalf("decimal %q: %v", s, err)
		}
		out[i] = CustomerStats{
			CustomerID:  string(rune('A' + i)),
			RecencyDays: -1,
			Monetary:    d,
		}
	}
	return out
}

func TestCustomerRollup(t *testing.T) {
	ref := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	old := ref.AddDate(0, 0, -30)
	recent := ref.AddDate(0, 0, -3)

	rows := []flatten.FlatRow{
		row(t, "O1", "C1", "S1", "10", old),
		row(t, "O1", "C1", "S1", "20", old),
		row(t, "O2", "C1", "S1", "30", recent),
		row(t, "O3", "C2", "S2", "5", time.Time{}),
	}
	stats := CustomerRollup(rows, ref)
	if len(stats) != 2 {
		t.Fatalf("want 2 customers, got %d", len(stats))
	}
	// First-seen order is preserved.
	if stats[0].CustomerID != "C1" || stats[1].CustomerID != "C2" {
		t.Fatalf("customer order: %+v", stats)
	}

	c1 := stats[0]
	if c1.Frequency != 2 {
		t.Fatalf("C1 distinct orders: %d", c1.Frequency)
	}
	if c1.Monetary.String() != "60" {
		t.Fatalf("C1 spend: %s", c1.Monetary)
	}
	if c1.RecencyDays != 3 {
		t.Fatalf("C1 recency: %d", c1.RecencyDays)
	}

	// No valid timestamp at all: recency stays unknown.
	if stats[1].RecencyDays != -1 {
		t.Fatalf("C2 recency should be unknown: %d", stats[1].RecencyDays)
	}
}

func TestCLVTerciles_SixCustomers(t *testing.T) {
	stats := statsWithSpend(t, "10", "20", "30", "40", "50", "60")
	segs := CLVTerciles(stats)

	want := []string{"Low", "Low", "Mid", "Mid", "High", "High"}
	for i, s := range segs {
		if s.Segment != want[i] {
			t.Fatalf("customer %s (spend %s): got %s want %s", s.CustomerID, s.Monetary, s.Segment, want[i])
		}
	}
}

func TestCLVTerciles_TiesBreakFirstSeen(t *testing.T) {
	// Three equal spends across three terciles: input order decides.
	stats := statsWithSpend(t, "50", "50", "50")
	segs := CLVTerciles(stats)
	if segs[0].Segment != "Low" || segs[1].Segment != "Mid" || segs[2].Segment != "High" {
		t.Fatalf("tie-break not first-seen: %+v", segs)
	}
}

func TestCLVTerciles_Empty(t *testing.T) {
	if got := CLVTerciles(nil); got != nil {
		t.Fatalf("empty input: %+v", got)
	}
}

func TestAssignBins_UnevenSplit(t *testing.T) {
	vals := []int{5, 1, 9, 3, 7}
	bins := AssignBins(len(vals), 3, func(i, j int) bool { return vals[i] < vals[j] })
	// Ranked order 1,3,5,7,9 → bins 0,0,1,1,2 mapped back to input positions.
	want := []int{1, 0, 2, 0, 1}
	for i := range want {
		if bins[i] != want[i] {
			t.Fatalf("bins: %v", bins)
		}
	}
}

func TestRFMQuintiles(t *testing.T) {
	mustDec := func(s string) model.Decimal {
		d, err := model.NewDecimal(s)
		if err != nil {
			t.Fatalf("decimal %q: %v", s, err)
		}
		return d
	}
	stats := []CustomerStats{
		{CustomerID: "A", RecencyDays: 1, Frequency: 5, Monetary: mustDec("500")},
		{CustomerID: "B", RecencyDays: 10, Frequency: 4, Monetary: mustDec("400")},
		{CustomerID: "C", RecencyDays: 20, Frequency: 3, Monetary: mustDec("300")},
		{CustomerID: "D", RecencyDays: 40, Frequency: 2, Monetary: mustDec("200")},
		{CustomerID: "E", RecencyDays: -1, Frequency: 1, Monetary: mustDec("100")},
	}
	scores := RFMQuintiles(stats)

	// Most recent, most frequent, biggest spender scores 555.
	if scores[0].RFM != "555" {
		t.Fatalf("A: %+v", scores[0])
	}
	// Unknown recency sorts as least recent: R=1.
	if scores[4].R != 1 || scores[4].F != 1 || scores[4].M != 1 {
		t.Fatalf("E: %+v", scores[4])
	}
	for i, want := range []string{"555", "444", "333", "222", "111"} {
		if scores[i].RFM != want {
			t.Fatalf("customer %s: got %s want %s", scores[i].CustomerID, scores[i].RFM, want)
		}
	}
}

func TestRFMQuintiles_Empty(t *testing.T) {
	if got := RFMQuintiles(nil); got != nil {
		t.Fatalf("empty input: %+v", got)
	}
}
