package analytics

import (
	"fmt"
	"sort"
	"time"

	"oap/internal/flatten"
	"oap/internal/model"
)

// CustomerStats is the customer-level aggregate CLV/RFM binning runs over:
// one row per customer_id, in first-seen order.
type CustomerStats struct {
	CustomerID  string
	RecencyDays int // days between ref and the last valid order; -1 if none
	Frequency   int64
	Monetary    model.Decimal
	LastOrder   time.Time
}

// CustomerRollup aggregates the flattened rows per customer. ref is the
// explicit reference instant for recency; reducers never read the clock so
// re-runs stay reproducible.
func CustomerRollup(rows []flatten.FlatRow, ref time.Time) []CustomerStats {
	index := make(map[string]int)
	orders := make([]map[string]struct{}, 0)
	var stats []CustomerStats
	for _, row := range rows {
		i, seen := index[row.CustomerID]
		if !seen {
			i = len(stats)
			index[row.CustomerID] = i
			stats = append(stats, CustomerStats{
				CustomerID:  row.CustomerID,
				RecencyDays: -1,
				Monetary:    model.DecimalZero(),
			})
			orders = append(orders, make(map[string]struct{}))
		}
		st := &stats[i]
		st.Monetary = st.Monetary.Add(row.Price)
		orders[i][row.OrderID] = struct{}{}
		if !row.OrderTimestamp.IsZero() && row.OrderTimestamp.After(st.LastOrder) {
			st.LastOrder = row.OrderTimestamp
		}
	}
	for i := range stats {
		stats[i].Frequency = int64(len(orders[i]))
		if !stats[i].LastOrder.IsZero() {
			stats[i].RecencyDays = int(ref.Sub(stats[i].LastOrder).Hours() / 24)
		}
	}
	return stats
}

// AssignBins splits n items into bins equal-sized groups ordered by less.
// Ties are broken by stable input order: the first-seen item wins the
// earlier bin. Returned slice maps input index to bin 0..bins-1.
func AssignBins(n int, bins int, less func(i, j int) bool) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return less(idx[a], idx[b]) })
	out := make([]int, n)
	for rank, i := range idx {
		out[i] = rank * bins / n
	}
	return out
}

// CLV tercile labels, lowest spend first.
var clvLabels = []string{"Low", "Mid", "High"}

type CLVSegment struct {
	CustomerID string
	Monetary   model.Decimal
	Segment    string
}

// CLVTerciles bins customers into Low/Mid/High lifetime-value groups by
// total historical spend.
func CLVTerciles(stats []CustomerStats) []CLVSegment {
	if len(stats) == 0 {
		return nil
	}
	bins := AssignBins(len(stats), 3, func(i, j int) bool {
		return stats[i].Monetary.Cmp(stats[j].Monetary) < 0
	})
	out := make([]CLVSegment, len(stats))
	for i, st := range stats {
		out[i] = CLVSegment{
			CustomerID: st.CustomerID,
			Monetary:   st.Monetary,
			Segment:    clvLabels[bins[i]],
		}
	}
	return out
}

type RFMScore struct {
	CustomerID string
	R          int
	F          int
	M          int
	RFM        string
}

// RFMQuintiles scores each customer 1..5 on recency, frequency and
// monetary. Recency is inverted: the most recent buyers score 5. Customers
// with no valid order timestamp sort as least recent.
func RFMQuintiles(stats []CustomerStats) []RFMScore {
	if len(stats) == 0 {
		return nil
	}
	n := len(stats)
	recencyBins := AssignBins(n, 5, func(i, j int) bool {
		ri, rj := stats[i].RecencyDays, stats[j].RecencyDays
		if ri < 0 {
			return false
		}
		if rj < 0 {
			return true
		}
		return ri < rj
	})
	freqBins := AssignBins(n, 5, func(i, j int) bool {
		return stats[i].Frequency < stats[j].Frequency
	})
	monBins := AssignBins(n, 5, func(i, j int) bool {
		return stats[i].Monetary.Cmp(stats[j].Monetary) < 0
	})
	out := make([]RFMScore, n)
	for i, st := range stats {
		s := RFMScore{
			CustomerID: st.CustomerID,
			R:          5 - recencyBins[i],
			F:          freqBins[i] + 1,
			M:          monBins[i] + 1,
		}
		s.RFM = fmt.Sprintf("%d%d%d", s.R, s.F, s.M)
		out[i] = s
	}
	return out
}
