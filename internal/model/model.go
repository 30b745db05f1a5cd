package model

import "time"

// Sentinel values stand in for absent or unknown data after normalization.
const (
	SentinelUnknown    = "unknown"
	SentinelNoCampaign = "no_campaign"
)

// Campaign flag values derived from the item-level coupon code.
const (
	FlagCampaignUsed = "Campaign Used"
	FlagNoCampaign   = "Not Using Campaigns"
)

// Customer is the order-level customer struct. Owned by its order.
type Customer struct {
	CustomerID string `json:"customer_id"`
	City       string `json:"city"`
	State      string `json:"state"`
}

// CampaignInfo is the discount/channel/coupon sub-structure attached at
// order or item level. Post-normalization every field is populated; absence
// becomes the no_campaign sentinel and a zero discount.
type CampaignInfo struct {
	Discount   Decimal `json:"discount"`
	Channel    string  `json:"channel"`
	CouponCode string  `json:"coupon_code"`
}

// NoCampaign returns the fully-defaulted campaign struct.
func NoCampaign() CampaignInfo {
	return CampaignInfo{
		Discount:   DecimalZero(),
		Channel:    SentinelNoCampaign,
		CouponCode: SentinelNoCampaign,
	}
}

// LineItem is one product within an order. Not independently addressable.
type LineItem struct {
	ProductID         string       `json:"product_id"`
	Price             Decimal      `json:"price"`
	ShippingLimitDate time.Time    `json:"shipping_limit_date"`
	SellerID          string       `json:"seller_id"`
	Campaign          CampaignInfo `json:"campaign_details"`
}

// Order is the canonical root record produced by the normalizer. Every
// sub-structure is present, so downstream code never needs a nil check.
type Order struct {
	OrderID        string       `json:"order_id"`
	Customer       Customer     `json:"customer"`
	OrderStatus    string       `json:"order_status"`
	OrderTimestamp time.Time    `json:"order_timestamp"`
	Items          []LineItem   `json:"order_items"`
	Campaign       CampaignInfo `json:"campaign_details"`
}
