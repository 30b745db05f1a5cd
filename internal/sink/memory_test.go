package sink

import (
	"errors"
	"testing"

	"oap/internal/model"
)

func dec(t *testing.T, s string) model.Decimal {
	t.Helper()
	d, err := model.NewDecimal(s)
	if err != nil {
		t.Fatalf("decimal %q: %v", s, err)
	}
	return d
}

func flatTable(t *testing.T) *Memory {
	t.Helper()
	m := NewMemory()
	cols := []string{"order_id", "seller_id", "price", "campaign_flag"}
	rows := []Row{
		{"order_id": "O1", "seller_id": "S1", "price": dec(t, "10"), "campaign_flag": ""},
		{"order_id": "O1", "seller_id": "S1", "price": dec(t, "20"), "campaign_flag": ""},
		{"order_id": "O2", "seller_id": "S1", "price": dec(t, "30"), "campaign_flag": ""},
		{"order_id": "O3", "seller_id": "S2", "price": dec(t, "5"), "campaign_flag": ""},
	}
	if err := m.CreateOrReplaceTable("flat", cols, rows); err != nil {
		t.Fatalf("create: %v", err)
	}
	return m
}

func TestMemory_InsertSchemaMismatch(t *testing.T) {
	m := flatTable(t)
	err := m.InsertRows("flat", []Row{{"order_id": "O4", "surprise": 1}})
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("want schema mismatch, got %v", err)
	}
}

func TestMemory_CreateOrReplace(t *testing.T) {
	m := flatTable(t)
	if err := m.CreateOrReplaceTable("flat", []string{"order_id"}, []Row{{"order_id": "X"}}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	rows, err := m.Rows("flat")
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 1 || rows[0]["order_id"] != "X" {
		t.Fatalf("replace did not reset contents: %+v", rows)
	}
}

func TestMemory_UpdateWhere(t *testing.T) {
	m := flatTable(t)
	n, err := m.UpdateWhere("flat",
		func(r Row) bool { return r["seller_id"] == "S1" },
		func(r Row) map[string]any { return map[string]any{"campaign_flag": "x"} })
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if n != 3 {
		t.Fatalf("want 3 updates, got %d", n)
	}

	_, err = m.UpdateWhere("flat", nil, func(r Row) map[string]any {
		return map[string]any{"nope": 1}
	})
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("assigning unknown column must be schema mismatch, got %v", err)
	}
}

func TestMemory_AlterColumns(t *testing.T) {
	m := flatTable(t)
	if err := m.AlterAddColumn("flat", "segment"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := m.InsertRows("flat", []Row{{"order_id": "O5", "segment": "High"}}); err != nil {
		t.Fatalf("insert with new column: %v", err)
	}
	if err := m.AlterDropColumn("flat", "segment"); err != nil {
		t.Fatalf("drop: %v", err)
	}
	rows, _ := m.Rows("flat")
	for _, r := range rows {
		if _, ok := r["segment"]; ok {
			t.Fatalf("dropped column still present")
		}
	}
	if err := m.AlterDropColumn("flat", "segment"); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("double drop must be schema mismatch, got %v", err)
	}
}

func TestMemory_QueryGroupBy(t *testing.T) {
	m := flatTable(t)
	rows, err := m.QueryGroupBy("flat", GroupQuery{
		Keys: []string{"seller_id"},
		Aggregates: []Aggregate{
			{Fn: AggCount, As: "rows"},
			{Fn: AggCountDistinct, Col: "order_id", As: "orders"},
			{Fn: AggSum, Col: "price", As: "revenue"},
		},
		OrderBy: "revenue",
		Desc:    true,
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("want 2 groups, got %d", len(rows))
	}

	top := rows[0]
	if top["seller_id"] != "S1" {
		t.Fatalf("ordering wrong: %+v", top)
	}
	if top["rows"].(int64) != 3 {
		t.Fatalf("row count: %+v", top)
	}
	// S1 has 3 rows but only 2 distinct orders.
	if top["orders"].(int64) != 2 {
		t.Fatalf("distinct orders: %+v", top)
	}
	rev := top["revenue"].(model.Decimal)
	if rev.String() != "60" {
		t.Fatalf("revenue: %s", rev)
	}
}

func TestMemory_QueryFilterAndLimit(t *testing.T) {
	m := flatTable(t)
	rows, err := m.QueryGroupBy("flat", GroupQuery{
		Keys:       []string{"order_id"},
		Aggregates: []Aggregate{{Fn: AggCount, As: "rows"}},
		Filter:     func(r Row) bool { return r["seller_id"] == "S1" },
		OrderBy:    "order_id",
		Limit:      1,
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rows) != 1 || rows[0]["order_id"] != "O1" {
		t.Fatalf("filter/limit wrong: %+v", rows)
	}
}

func TestMemory_NoSuchTable(t *testing.T) {
	m := NewMemory()
	if err := m.InsertRows("missing", nil); !errors.Is(err, ErrNoSuchTable) {
		t.Fatalf("want no such table, got %v", err)
	}
}
