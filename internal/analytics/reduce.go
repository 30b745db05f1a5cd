// Package analytics holds the stateless reducers over the flattened row
// set: grouped revenue metrics, customer rollups, and the deterministic
// CLV/RFM binning.
package analytics

import (
	"fmt"

	"oap/internal/flatten"
	"oap/internal/model"
)

// GroupMetrics accumulates one group's counters. OrderSet tracks distinct
// order ids because one order contributes multiple rows; the average order
// value divides by distinct orders, never by row count.
type GroupMetrics struct {
	Rows     int64
	Revenue  model.Decimal
	OrderSet map[string]struct{}
}

func newGroupMetrics() *GroupMetrics {
	return &GroupMetrics{Revenue: model.DecimalZero(), OrderSet: make(map[string]struct{})}
}

func (g *GroupMetrics) Orders() int64 {
	return int64(len(g.OrderSet))
}

func (g *GroupMetrics) AvgOrderValue() model.Decimal {
	n := g.Orders()
	if n == 0 {
		return model.DecimalZero()
	}
	return g.Revenue.Div(model.NewDecimalFromInt64(n))
}

func (g *GroupMetrics) add(row flatten.FlatRow) {
	g.Rows++
	g.Revenue = g.Revenue.Add(row.Price)
	g.OrderSet[row.OrderID] = struct{}{}
}

// KeyFunc maps a row to its group key. ok=false skips the row (e.g.
// temporal keys on rows with no valid timestamp).
type KeyFunc func(flatten.FlatRow) (key string, ok bool)

// Reduce groups rows by keyFn and accumulates per-group metrics.
func Reduce(rows []flatten.FlatRow, keyFn KeyFunc) map[string]*GroupMetrics {
	out := make(map[string]*GroupMetrics)
	for _, row := range rows {
		key, ok := keyFn(row)
		if !ok {
			continue
		}
		g, exists := out[key]
		if !exists {
			g = newGroupMetrics()
			out[key] = g
		}
		g.add(row)
	}
	return out
}

// Combine merges partial aggregates produced over row partitions. The
// operation is associative and commutative, so partials can be reduced in
// parallel and combined in any order.
func Combine(partials ...map[string]*GroupMetrics) map[string]*GroupMetrics {
	out := make(map[string]*GroupMetrics)
	for _, part := range partials {
		for key, g := range part {
			acc, exists := out[key]
			if !exists {
				acc = newGroupMetrics()
				out[key] = acc
			}
			acc.Rows += g.Rows
			acc.Revenue = acc.Revenue.Add(g.Revenue)
			for id := range g.OrderSet {
				acc.OrderSet[id] = struct{}{}
			}
		}
	}
	return out
}

// Built-in group keys.

func ByProduct(r flatten.FlatRow) (string, bool) { return r.ProductID, true }
func BySeller(r flatten.FlatRow) (string, bool)  { return r.SellerID, true }
func ByStatus(r flatten.FlatRow) (string, bool)  { return r.OrderStatus, true }
func ByCity(r flatten.FlatRow) (string, bool)    { return r.CustomerCity, true }
func ByState(r flatten.FlatRow) (string, bool)   { return r.CustomerState, true }

func ByItemCoupon(r flatten.FlatRow) (string, bool)  { return r.ItemCampaignCoupon, true }
func ByOrderCoupon(r flatten.FlatRow) (string, bool) { return r.OrderCampaignCoupon, true }

func ByCampaignFlag(r flatten.FlatRow) (string, bool) { return r.CampaignFlag, true }

func ByHour(r flatten.FlatRow) (string, bool) {
	if r.OrderTimestamp.IsZero() {
		return "", false
	}
	return fmt.Sprintf("%02d", r.OrderTimestamp.UTC().Hour()), true
}

func ByDay(r flatten.FlatRow) (string, bool) {
	if r.OrderTimestamp.IsZero() {
		return "", false
	}
	return r.OrderTimestamp.UTC().Format("2006-01-02"), true
}

func ByMonth(r flatten.FlatRow) (string, bool) {
	if r.OrderTimestamp.IsZero() {
		return "", false
	}
	return r.OrderTimestamp.UTC().Format("2006-01"), true
}
