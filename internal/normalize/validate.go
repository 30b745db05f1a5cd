package normalize

import "oap/internal/model"

// Validate rejects structurally incomplete records. Only the three
// identity/completeness invariants reject; partial or defaulted data is
// kept on purpose (flag it unknown rather than drop the row).
func Validate(o model.Order) *RejectionError {
	if o.OrderID == "" {
		return &RejectionError{Reason: ReasonMissingIdentity, Field: "order_id"}
	}
	if o.Customer.CustomerID == "" {
		return &RejectionError{Reason: ReasonMissingIdentity, Field: "customer.customer_id"}
	}
	if len(o.Items) == 0 {
		return &RejectionError{Reason: ReasonEmptyItems, Field: "order_items"}
	}
	return nil
}
