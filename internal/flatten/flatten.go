// Package flatten expands a canonical nested order into one analysis-ready
// row per line item. Order-level and item-level campaign attribution ride
// side by side on every row; neither level ever overwrites the other.
package flatten

import (
	"strings"
	"time"

	"oap/internal/model"
	"oap/internal/sink"
)

// FlatRow is the denormalized projection of one line item plus its parent
// order's fields.
type FlatRow struct {
	OrderID        string    `json:"order_id"`
	CustomerID     string    `json:"customer_id"`
	CustomerCity   string    `json:"customer_city"`
	CustomerState  string    `json:"customer_state"`
	OrderStatus    string    `json:"order_status"`
	OrderTimestamp time.Time `json:"order_timestamp"`

	ItemSeq           int           `json:"item_seq"` // 1-based line-item position
	ProductID         string        `json:"product_id"`
	Price             model.Decimal `json:"price"`
	SellerID          string        `json:"seller_id"`
	ShippingLimitDate time.Time     `json:"shipping_limit_date"`

	ItemCampaignDiscount model.Decimal `json:"item_campaign_discount"`
	ItemCampaignChannel  string        `json:"item_campaign_channel"`
	ItemCampaignCoupon   string        `json:"item_campaign_coupon"`

	OrderCampaignDiscount model.Decimal `json:"order_campaign_discount"`
	OrderCampaignChannel  string        `json:"order_campaign_channel"`
	OrderCampaignCoupon   string        `json:"order_campaign_coupon"`

	CampaignFlag string `json:"campaign_flag"`
}

// TableColumns is the flattened table schema, in export order.
var TableColumns = []string{
	"order_id", "customer_id", "customer_city", "customer_state",
	"order_status", "order_timestamp",
	"item_seq", "product_id", "price", "seller_id", "shipping_limit_date",
	"item_campaign_discount", "item_campaign_channel", "item_campaign_coupon",
	"order_campaign_discount", "order_campaign_channel", "order_campaign_coupon",
	"campaign_flag",
}

// Project expands an order into exactly len(o.Items) rows, in line-item
// order. Pure and restartable: the same order always yields the same rows.
func Project(o model.Order) []FlatRow {
	rows := make([]FlatRow, 0, len(o.Items))
	for i, item := range o.Items {
		rows = append(rows, FlatRow{
			OrderID:               o.OrderID,
			CustomerID:            o.Customer.CustomerID,
			CustomerCity:          o.Customer.City,
			CustomerState:         o.Customer.State,
			OrderStatus:           o.OrderStatus,
			OrderTimestamp:        o.OrderTimestamp,
			ItemSeq:               i + 1,
			ProductID:             item.ProductID,
			Price:                 item.Price,
			SellerID:              item.SellerID,
			ShippingLimitDate:     item.ShippingLimitDate,
			ItemCampaignDiscount:  item.Campaign.Discount,
			ItemCampaignChannel:   item.Campaign.Channel,
			ItemCampaignCoupon:    item.Campaign.CouponCode,
			OrderCampaignDiscount: o.Campaign.Discount,
			OrderCampaignChannel:  o.Campaign.Channel,
			OrderCampaignCoupon:   o.Campaign.CouponCode,
			CampaignFlag:          CampaignFlag(item.Campaign.CouponCode),
		})
	}
	return rows
}

// CampaignFlag derives the flag from a coupon code. The single derivation
// used both at projection time and by the batch recompute. The comparison is
// case-insensitive: the recompute may run over tables written before
// normalization lower-cased coupon codes.
func CampaignFlag(coupon string) string {
	if strings.ToLower(coupon) == model.SentinelNoCampaign {
		return model.FlagNoCampaign
	}
	return model.FlagCampaignUsed
}

// Row converts the flat row to the sink's generic record shape.
func (f FlatRow) Row() sink.Row {
	return sink.Row{
		"order_id":                f.OrderID,
		"customer_id":             f.CustomerID,
		"customer_city":           f.CustomerCity,
		"customer_state":          f.CustomerState,
		"order_status":            f.OrderStatus,
		"order_timestamp":         f.OrderTimestamp,
		"item_seq":                f.ItemSeq,
		"product_id":              f.ProductID,
		"price":                   f.Price,
		"seller_id":               f.SellerID,
		"shipping_limit_date":     f.ShippingLimitDate,
		"item_campaign_discount":  f.ItemCampaignDiscount,
		"item_campaign_channel":   f.ItemCampaignChannel,
		"item_campaign_coupon":    f.ItemCampaignCoupon,
		"order_campaign_discount": f.OrderCampaignDiscount,
		"order_campaign_channel":  f.OrderCampaignChannel,
		"order_campaign_coupon":   f.OrderCampaignCoupon,
		"campaign_flag":           f.CampaignFlag,
	}
}

// Rows converts a projection to sink rows.
func Rows(flat []FlatRow) []sink.Row {
	out := make([]sink.Row, 0, len(flat))
	for _, f := range flat {
		out = append(out, f.Row())
	}
	return out
}

// RecomputeCampaignFlags re-derives campaign_flag for every row of an
// already-flattened table. It reads only columns present in the table, so
// it can run as a batch migration without touching raw input.
func RecomputeCampaignFlags(store sink.Columnar, table string) (int, error) {
	return store.UpdateWhere(table, nil, func(r sink.Row) map[string]any {
		coupon, _ := r["item_campaign_coupon"].(string)
		return map[string]any{"campaign_flag": CampaignFlag(coupon)}
	})
}
