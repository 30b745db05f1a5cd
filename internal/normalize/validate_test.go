package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oap/internal/model"
)

func validOrder() model.Order {
	return model.Order{
		OrderID:  "O1",
		Customer: model.Customer{CustomerID: "C1", City: "x", State: "y"},
		Items:    []model.LineItem{{ProductID: "P1", SellerID: "S1"}},
		Campaign: model.NoCampaign(),
	}
}

func TestValidate(t *testing.T) {
	t.Run("accepts complete order", func(t *testing.T) {
		assert.Nil(t, Validate(validOrder()))
	})

	t.Run("empty order_id rejects with missing identity", func(t *testing.T) {
		o := validOrder()
		o.OrderID = ""
		rej := Validate(o)
		require.NotNil(t, rej)
		assert.Equal(t, ReasonMissingIdentity, rej.Reason)
		assert.Equal(t, "order_id", rej.Field)
	})

	t.Run("empty customer_id rejects with missing identity", func(t *testing.T) {
		o := validOrder()
		o.Customer.CustomerID = ""
		rej := Validate(o)
		require.NotNil(t, rej)
		assert.Equal(t, ReasonMissingIdentity, rej.Reason)
	})

	t.Run("empty items always reject regardless of other fields", func(t *testing.T) {
		o := validOrder()
		o.Items = nil
		rej := Validate(o)
		require.NotNil(t, rej)
		assert.Equal(t, ReasonEmptyItems, rej.Reason)
	})

	t.Run("defaulted data is not grounds for rejection", func(t *testing.T) {
		o := validOrder()
		o.Customer.City = model.SentinelUnknown
		o.Customer.State = model.SentinelUnknown
		o.OrderStatus = model.SentinelUnknown
		assert.Nil(t, Validate(o))
	})
}
