package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"sort"
	"time"

	"oap/internal/analytics"
	"oap/internal/export"
	"oap/internal/flatten"
)

// Runs the aggregation contracts over an exported flattened row set and
// prints JSON reports: grouped revenue, CLV terciles, RFM quintiles.

type groupReport struct {
	Key           string `json:"key"`
	Rows          int64  `json:"rows"`
	Orders        int64  `json:"orders"`
	Revenue       string `json:"revenue"`
	AvgOrderValue string `json:"avg_order_value"`
}

func main() {
	var (
		input   string
		refDate string
	)
	flag.StringVar(&input, "input", "exports/latest/flat_rows.jsonl", "exported flattened rows (jsonl)")
	flag.StringVar(&refDate, "ref-date", "", "RFC3339 reference instant for recency (default: now)")
	flag.Parse()

	rows, err := export.ReadJSONL(input)
	if err != nil {
		log.Fatalf("load rows: %v", err)
	}
	log.Printf("loaded %d flattened rows from %s", len(rows), input)

	ref := time.Now().UTC()
	if refDate != "" {
		ref, err = time.Parse(time.RFC3339, refDate)
		if err != nil {
			log.Fatalf("bad -ref-date: %v", err)
		}
	}

	out := map[string]any{
		"revenue_by_status":  groupReports(rows, analytics.ByStatus),
		"revenue_by_state":   groupReports(rows, analytics.ByState),
		"revenue_by_month":   groupReports(rows, analytics.ByMonth),
		"seller_performance": groupReports(rows, analytics.BySeller),
		"campaign_by_coupon": groupReports(rows, analytics.ByItemCoupon),
		"campaign_by_flag":   groupReports(rows, analytics.ByCampaignFlag),
	}

	stats := analytics.CustomerRollup(rows, ref)
	out["clv_terciles"] = analytics.CLVTerciles(stats)
	out["rfm_quintiles"] = analytics.RFMQuintiles(stats)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatalf("encode report: %v", err)
	}
}

func groupReports(rows []flatten.FlatRow, key analytics.KeyFunc) []groupReport {
	grouped := analytics.Reduce(rows, key)
	reports := make([]groupReport, 0, len(grouped))
	for k, g := range grouped {
		reports = append(reports, groupReport{
			Key:           k,
			Rows:          g.Rows,
			Orders:        g.Orders(),
			Revenue:       g.Revenue.String(),
			AvgOrderValue: g.AvgOrderValue().String(),
		})
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].Key < reports[j].Key })
	return reports
}
