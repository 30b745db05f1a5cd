package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"oap/internal/model"
)

// Normalize converts a raw, possibly-incomplete order record into the
// canonical model. Absent sub-structures become fully-defaulted structs,
// grouping text is trimmed and lower-cased, and price/discount values are
// coerced to exact decimals. Pure: identical input yields identical output.
func Normalize(raw model.RawOrder) (model.Order, error) {
	o := model.Order{
		OrderID:        scalarString(raw.OrderID),
		OrderStatus:    statusString(raw.OrderStatus),
		OrderTimestamp: coerceTime(raw.OrderTimestamp),
	}

	cust := raw.Customer
	if cust == nil {
		cust = &model.RawCustomer{}
	}
	o.Customer = model.Customer{
		CustomerID: scalarString(cust.CustomerID),
		City:       groupingString(cust.City, model.SentinelUnknown),
		State:      groupingString(cust.State, model.SentinelUnknown),
	}

	camp, err := normalizeCampaign(raw.Campaign, "campaign_details")
	if err != nil {
		return model.Order{}, err
	}
	o.Campaign = camp

	o.Items = make([]model.LineItem, 0, len(raw.Items))
	for i, ri := range raw.Items {
		path := fmt.Sprintf("order_items[%d]", i)
		price, err := coerceDecimal(ri.Price, path+".price")
		if err != nil {
			return model.Order{}, err
		}
		itemCamp, err := normalizeCampaign(ri.Campaign, path+".campaign_details")
		if err != nil {
			return model.Order{}, err
		}
		o.Items = append(o.Items, model.LineItem{
			ProductID:         scalarString(ri.ProductID),
			Price:             price,
			ShippingLimitDate: coerceTime(ri.ShippingLimitDate),
			SellerID:          scalarString(ri.SellerID),
			Campaign:          itemCamp,
		})
	}
	return o, nil
}

func normalizeCampaign(raw *model.RawCampaign, path string) (model.CampaignInfo, error) {
	if raw == nil {
		return model.NoCampaign(), nil
	}
	discount, err := coerceDecimal(raw.Discount, path+".discount")
	if err != nil {
		return model.CampaignInfo{}, err
	}
	return model.CampaignInfo{
		Discount:   discount,
		Channel:    groupingString(raw.Channel, model.SentinelNoCampaign),
		CouponCode: groupingString(raw.CouponCode, model.SentinelNoCampaign),
	}, nil
}

// scalarString coerces identity-ish fields. Numbers are stringified, other
// non-string values collapse to empty and are left to validation.
func scalarString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return ""
	}
}

// statusString keeps the open status set as-is, defaulting absence to the
// unknown sentinel.
func statusString(v any) string {
	s := scalarString(v)
	if s == "" {
		return model.SentinelUnknown
	}
	return s
}

// groupingString normalizes text used for equality-based grouping: trim,
// lower-case, and substitute the sentinel for absent/empty values. The
// lower-casing is what makes sentinel matching case-insensitive at the
// boundary.
func groupingString(v any, sentinel string) string {
	s := strings.ToLower(scalarString(v))
	if s == "" {
		return sentinel
	}
	return s
}

func coerceDecimal(v any, path string) (model.Decimal, error) {
	switch n := v.(type) {
	case nil:
		return model.DecimalZero(), nil
	case json.Number:
		d, err := model.NewDecimal(n.String())
		if err != nil {
			return model.Decimal{}, &CoercionError{Path: path, Value: v}
		}
		return requireNonNegative(d, path, v)
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return model.DecimalZero(), nil
		}
		d, err := model.NewDecimal(s)
		if err != nil {
			return model.Decimal{}, &CoercionError{Path: path, Value: v}
		}
		return requireNonNegative(d, path, v)
	case float64:
		d, err := model.NewDecimal(strconv.FormatFloat(n, 'f', -1, 64))
		if err != nil {
			return model.Decimal{}, &CoercionError{Path: path, Value: v}
		}
		return requireNonNegative(d, path, v)
	case int:
		return requireNonNegative(model.NewDecimalFromInt64(int64(n)), path, v)
	case int64:
		return requireNonNegative(model.NewDecimalFromInt64(n), path, v)
	default:
		return model.Decimal{}, &CoercionError{Path: path, Value: v}
	}
}

func requireNonNegative(d model.Decimal, path string, raw any) (model.Decimal, error) {
	if d.Negative() {
		return model.Decimal{}, &CoercionError{Path: path, Value: raw}
	}
	return d, nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// coerceTime accepts RFC3339-ish strings or epoch seconds. Absent or
// unparseable instants become the zero time; temporal reducers skip those
// rows, but the record itself stays valid.
func coerceTime(v any) time.Time {
	switch t := v.(type) {
	case nil:
		return time.Time{}
	case json.Number:
		sec, err := t.Int64()
		if err != nil {
			f, ferr := t.Float64()
			if ferr != nil {
				return time.Time{}
			}
			sec = int64(f)
		}
		return time.Unix(sec, 0).UTC()
	case float64:
		return time.Unix(int64(t), 0).UTC()
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}
		}
		for _, layout := range timeLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts.UTC()
			}
		}
		return time.Time{}
	default:
		return time.Time{}
	}
}
