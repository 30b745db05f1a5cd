package model

// Raw input shapes, one per logical order, as received from the upstream
// feed. Scalars are deliberately loose (any): fields may be absent, null,
// or carry the wrong primitive type, and the normalizer sorts that out.
// Decode raw records with json.Decoder.UseNumber so numeric text reaches
// the coercion layer unrounded.

type RawCustomer struct {
	CustomerID any `json:"customer_id"`
	City       any `json:"city"`
	State      any `json:"state"`
}

type RawCampaign struct {
	Discount   any `json:"discount"`
	Channel    any `json:"channel"`
	CouponCode any `json:"coupon_code"`
}

type RawLineItem struct {
	ProductID         any          `json:"product_id"`
	Price             any          `json:"price"`
	ShippingLimitDate any          `json:"shipping_limit_date"`
	SellerID          any          `json:"seller_id"`
	Campaign          *RawCampaign `json:"campaign_details"`
}

type RawOrder struct {
	OrderID        any           `json:"order_id"`
	Customer       *RawCustomer  `json:"customer"`
	OrderStatus    any           `json:"order_status"`
	OrderTimestamp any           `json:"order_timestamp"`
	Items          []RawLineItem `json:"order_items"`
	Campaign       *RawCampaign  `json:"campaign_details"`
}
